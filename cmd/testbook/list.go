package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// --- libraries ---

var librariesCmd = &cobra.Command{
	Use:   "libraries",
	Short: "List step libraries and their parameters",
	Args:  cobra.NoArgs,
	RunE:  runLibraries,
}

func runLibraries(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	libs, err := ws.LoadLibraries()
	if err != nil {
		return err
	}

	names := make([]string, 0, len(libs))
	for name := range libs {
		names = append(names, name)
	}
	sort.Strings(names)

	out := cmd.OutOrStdout()
	if len(names) == 0 {
		fmt.Fprintf(out, "No step libraries under %s\n", ws.Project.LibrariesDir())
		return nil
	}
	for _, name := range names {
		lib := libs[name]
		line := name
		if lib.Description != "" {
			line += "  " + lib.Description
		}
		fmt.Fprintln(out, line)
		for _, p := range lib.Parameters {
			param := "    " + p.Name
			if p.Default != nil {
				param += fmt.Sprintf(" (default %q)", *p.Default)
			}
			if p.Description != "" {
				param += "  " + p.Description
			}
			fmt.Fprintln(out, param)
		}
	}
	return nil
}

// --- envs ---

var envsCmd = &cobra.Command{
	Use:   "envs",
	Short: "List environment profiles",
	Args:  cobra.NoArgs,
	RunE:  runEnvs,
}

func runEnvs(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	names, err := ws.Environments()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(names) == 0 {
		fmt.Fprintf(out, "No environment profiles under %s\n", ws.Project.EnvironmentsDir())
		return nil
	}
	def := ws.Project.Defaults.Environment
	for _, name := range names {
		marker := " "
		if name == def {
			marker = "*"
		}
		fmt.Fprintln(out, strings.TrimRight(marker+" "+name, " "))
	}
	return nil
}
