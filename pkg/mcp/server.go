// Package mcp exposes testbook over the Model Context Protocol so an agent
// runner can pull resolved instructions, library listings and validation
// results.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// NewServer creates an MCP server with the testbook tools registered.
// Relative paths in tool arguments resolve against root.
func NewServer(version, root string, logger *zap.Logger) *server.MCPServer {
	h := &Handlers{Root: root, Logger: logger}

	s := server.NewMCPServer(
		"testbook",
		version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(
		mcp.NewTool("testbook/resolve",
			mcp.WithDescription("Resolve a test case or suite YAML file into its flat list of instructions"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the test case or suite YAML file")),
			mcp.WithString("environment", mcp.Description("Environment profile name (defaults to the project default)")),
			mcp.WithString("tags", mcp.Description("Tag filter, e.g. 'smoke,checkout|regression' (defaults to the project default)")),
		),
		h.HandleResolve,
	)

	s.AddTool(
		mcp.NewTool("testbook/libraries",
			mcp.WithDescription("List the step libraries available to the project"),
		),
		h.HandleLibraries,
	)

	s.AddTool(
		mcp.NewTool("testbook/validate",
			mcp.WithDescription("Validate a test case, suite or step library YAML file"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the YAML file")),
		),
		h.HandleValidate,
	)

	s.AddTool(
		mcp.NewTool("testbook/schema",
			mcp.WithDescription("Export the JSON Schema for a testbook document type"),
			mcp.WithString("type", mcp.Required(), mcp.Description("Schema type: 'testcase', 'suite' or 'library'")),
		),
		h.HandleSchema,
	)

	return s
}
