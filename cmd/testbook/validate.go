package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/testbook/pkg/schema"
)

// --- validate ---

var validateType string

var validateCmd = &cobra.Command{
	Use:   "validate <files...>",
	Short: "Validate test case, suite and step library YAML files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	files, err := absPaths(args)
	if err != nil {
		return err
	}

	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	failed := 0
	for i, path := range files {
		kind, findings := ws.Validate(path, validateType)

		var errs, warnings []*schema.ValidationError
		for _, f := range findings {
			if f.Severity == "warning" {
				warnings = append(warnings, f)
			} else {
				errs = append(errs, f)
			}
		}
		for _, w := range warnings {
			fmt.Fprintf(errOut, "  ⚠ [%s] %s\n", w.Phase, w.Message)
			if w.Path != "" {
				fmt.Fprintf(errOut, "    at: %s\n", w.Path)
			}
		}
		if len(errs) > 0 {
			failed++
			fmt.Fprintf(errOut, "✗ %s: %d error(s)\n", args[i], len(errs))
			for n, e := range errs {
				fmt.Fprintf(errOut, "  %d. [%s] %s\n", n+1, e.Phase, e.Message)
				if e.Path != "" {
					fmt.Fprintf(errOut, "     at: %s\n", e.Path)
				}
			}
			continue
		}
		fmt.Fprintf(out, "✓ %s is a valid %s\n", args[i], kind)
	}

	if failed > 0 {
		return fmt.Errorf("validation failed for %d of %d file(s)", failed, len(files))
	}
	return nil
}
