package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/ormasoftchile/testbook/pkg/schema"
	"github.com/ormasoftchile/testbook/pkg/tags"
	"github.com/ormasoftchile/testbook/pkg/workspace"
)

// Handlers implements the testbook MCP tools.
type Handlers struct {
	Root   string
	Logger *zap.Logger
}

// HandleResolve implements the testbook/resolve MCP tool.
func (h *Handlers) HandleResolve(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	if path == "" {
		return errorResult("path argument is required"), nil
	}
	path = h.abs(path)

	ws, err := workspace.Open(filepath.Dir(path), h.Logger)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	environment, _ := args["environment"].(string)
	filterText, set := args["tags"].(string)
	doc, err := ws.Resolve(workspace.Request{
		Environment: environment,
		Filter:      tags.Parse(ws.FilterText(filterText, set)),
		Files:       []string{path},
	})
	if err != nil {
		return errorResult(err.Error()), nil
	}

	var buf bytes.Buffer
	if err := doc.WriteJSON(&buf); err != nil {
		return errorResult(err.Error()), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(buf.String())},
		IsError: doc.HasErrors(),
	}, nil
}

type libraryInfo struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  []schema.Parameter `json:"parameters,omitempty"`
	Path        string             `json:"path"`
}

// HandleLibraries implements the testbook/libraries MCP tool.
func (h *Handlers) HandleLibraries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ws, err := workspace.Open(h.abs("."), h.Logger)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	libs, err := ws.LoadLibraries()
	if err != nil {
		return errorResult(err.Error()), nil
	}

	out := make([]libraryInfo, 0, len(libs))
	for _, name := range sortedKeys(libs) {
		lib := libs[name]
		out = append(out, libraryInfo{
			Name:        name,
			Description: lib.Description,
			Parameters:  lib.Parameters,
			Path:        lib.Path,
		})
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	return textResult(string(data)), nil
}

// HandleValidate implements the testbook/validate MCP tool.
func (h *Handlers) HandleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	if path == "" {
		return errorResult("path argument is required"), nil
	}
	path = h.abs(path)

	ws, err := workspace.Open(filepath.Dir(path), h.Logger)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	kind, errs := ws.Validate(path, "")
	if schema.HasErrors(errs) {
		return errorResult(formatFindings(errs)), nil
	}
	msg := fmt.Sprintf("✓ %s is a valid %s", filepath.Base(path), kind)
	if len(errs) > 0 {
		msg += "\n" + formatFindings(errs)
	}
	return textResult(msg), nil
}

// HandleSchema implements the testbook/schema MCP tool.
func (h *Handlers) HandleSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	schemaType, _ := args["type"].(string)

	kind, err := schema.ParseDocumentKind(schemaType)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	data, err := schema.GenerateJSONSchema(kind)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(string(data)), nil
}

func (h *Handlers) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	root := h.Root
	if root == "" {
		root = "."
	}
	return filepath.Join(root, path)
}

func formatFindings(errs []*schema.ValidationError) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, fmt.Sprintf("%s [%s] %s: %s", e.Severity, e.Phase, e.Path, e.Message))
	}
	return strings.Join(msgs, "\n")
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(msg),
		},
		IsError: true,
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
