// Package main provides the testbook-mcp binary: an MCP server on stdio for
// agent runners.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	tmcp "github.com/ormasoftchile/testbook/pkg/mcp"
)

var version = "dev"

var (
	rootFlag  = flag.String("root", ".", "Project directory that relative tool paths resolve against")
	debugFlag = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	// stdout carries the protocol; logs go to stderr.
	config := zap.NewDevelopmentConfig()
	config.OutputPaths = []string{"stderr"}
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if *debugFlag {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := config.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	s := tmcp.NewServer(version, *rootFlag, logger)
	if err := server.ServeStdio(s); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}
