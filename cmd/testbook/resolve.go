package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/testbook/pkg/report"
	"github.com/ormasoftchile/testbook/pkg/tags"
	"github.com/ormasoftchile/testbook/pkg/workspace"
)

// --- resolve ---

var (
	resolveEnv         string
	resolveTags        string
	resolveJSON        bool
	resolveOut         string
	resolveWidth       int
	resolveMaxDepth    int
	resolveShowSecrets bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [files...]",
	Short: "Resolve test cases and suites into instruction lists",
	Long: `Resolve test cases and suites into flat lists of instructions.

With no files, every test case under paths.tests and every suite under
paths.suites is resolved. Suites resolve their member test cases without
applying the tag filter a second time.`,
	RunE: runResolve,
}

func runResolve(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	files, err := absPaths(args)
	if err != nil {
		return err
	}

	doc, err := ws.Resolve(workspace.Request{
		Environment: resolveEnv,
		Filter:      tags.Parse(ws.FilterText(resolveTags, cmd.Flags().Changed("tags"))),
		Files:       files,
		MaxDepth:    resolveMaxDepth,
		ShowSecrets: resolveShowSecrets,
	})
	if err != nil {
		return err
	}

	if resolveOut != "" {
		if err := writeDocument(resolveOut, doc); err != nil {
			return err
		}
	}
	switch {
	case resolveJSON:
		if err := doc.WriteJSON(cmd.OutOrStdout()); err != nil {
			return err
		}
	case resolveOut == "":
		report.NewPrinter(cmd.OutOrStdout(), resolveWidth).Print(doc)
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d test cases, %d steps, %d errors)\n",
			resolveOut, doc.Summary.TotalTestCases, doc.Summary.TotalSteps, doc.Summary.TotalErrors)
	}

	if doc.HasErrors() {
		return fmt.Errorf("resolution finished with %d error(s)", doc.Summary.TotalErrors)
	}
	return nil
}

func writeDocument(path string, doc *report.Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := doc.WriteJSON(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
