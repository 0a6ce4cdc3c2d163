// Package main provides the testbook CLI: resolve test cases and suites into
// instruction lists, validate documents, and inspect the project.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ormasoftchile/testbook/pkg/schema"
	"github.com/ormasoftchile/testbook/pkg/workspace"
)

// Version is set at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

var (
	rootDir  string
	logLevel string

	logger = zap.NewNop()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "testbook",
	Short:         "Resolve YAML test definitions into executable instructions",
	Long:          "testbook resolves test cases and suites built from reusable step libraries, environment profiles and tag filters into flat lists of natural-language instructions for an external runner.",
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(logLevel)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// newLogger builds a development logger on stderr at the given level.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	config := zap.NewDevelopmentConfig()
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.DisableStacktrace = true
	return config.Build()
}

func openWorkspace() (*workspace.Workspace, error) {
	return workspace.Open(rootDir, logger)
}

// absPaths makes command-line paths absolute against the working directory.
func absPaths(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for _, a := range args {
		abs, err := filepath.Abs(a)
		if err != nil {
			return nil, err
		}
		out = append(out, abs)
	}
	return out, nil
}

// --- schema ---

var schemaType string

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Schema operations",
}

var schemaExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export JSON Schema to stdout",
	RunE:  runSchemaExport,
}

func runSchemaExport(cmd *cobra.Command, args []string) error {
	kind, err := schema.ParseDocumentKind(schemaType)
	if err != nil {
		return err
	}
	data, err := schema.GenerateJSONSchema(kind)
	if err != nil {
		return fmt.Errorf("generate schema: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

// --- version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "testbook %s (build: %s)\n", version, commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", ".", "Directory inside the project (testbook.yaml is searched upwards from here)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn or error")

	// resolve flags
	resolveCmd.Flags().StringVar(&resolveEnv, "env", "", "Environment profile name (default: defaults.environment)")
	resolveCmd.Flags().StringVar(&resolveTags, "tags", "", "Tag filter, e.g. 'smoke,checkout|regression' (default: defaults.tags)")
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "Write the result document as JSON to stdout")
	resolveCmd.Flags().StringVar(&resolveOut, "out", "", "Write the result document as JSON to this file")
	resolveCmd.Flags().IntVar(&resolveWidth, "width", 0, "Truncate printed steps to this many columns (0 = no limit)")
	resolveCmd.Flags().IntVar(&resolveMaxDepth, "max-depth", 0, "Maximum nested include depth (default: defaults.max_include_depth)")
	resolveCmd.Flags().BoolVar(&resolveShowSecrets, "show-secrets", false, "Do not redact secret-looking environment values")

	// validate flags
	validateCmd.Flags().StringVar(&validateType, "type", "", "Document type: testcase, suite or library (default: detect)")

	// schema export flags
	schemaExportCmd.Flags().StringVar(&schemaType, "type", "testcase", "Schema type: testcase, suite or library")
	schemaCmd.AddCommand(schemaExportCmd)

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(librariesCmd)
	rootCmd.AddCommand(envsCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(versionCmd)
}
