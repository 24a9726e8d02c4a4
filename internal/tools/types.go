// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tejzpr/armis/internal/apierr"
	"github.com/tejzpr/armis/internal/ingest"
	"github.com/tejzpr/armis/internal/logger"
	"github.com/tejzpr/armis/internal/store"
)

// ToolHandler is the signature of every tool handler
type ToolHandler func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// ToolContext holds shared dependencies for all tools
type ToolContext struct {
	Store    *store.Store
	Ingester *ingest.Ingester
	Log      *logger.Logger
}

// NewToolContext creates a new tool context
func NewToolContext(st *store.Store, in *ingest.Ingester, log *logger.Logger) *ToolContext {
	if log == nil {
		log = logger.Nop()
	}
	return &ToolContext{
		Store:    st,
		Ingester: in,
		Log:      log.With("component", "tools"),
	}
}

// Tool pairs a definition with its handler
type Tool struct {
	Definition mcp.Tool
	Handler    ToolHandler
}

// All returns every context tool bound to ctx
func All(ctx *ToolContext) []Tool {
	return []Tool{
		{NewListTool(), ListHandler(ctx)},
		{NewGetTool(), GetHandler(ctx)},
		{NewCreateTool(), CreateHandler(ctx)},
		{NewUpdateTool(), UpdateHandler(ctx)},
		{NewDeleteTool(), DeleteHandler(ctx)},
		{NewExportTool(), ExportHandler(ctx)},
		{NewImportTool(), ImportHandler(ctx)},
		{NewIngestTool(), IngestHandler(ctx)},
	}
}

// jsonResult renders v as indented JSON text
func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// errorResult reports err as a tool error, never as a protocol fault
func (tc *ToolContext) errorResult(tool string, err error) (*mcp.CallToolResult, error) {
	tc.Log.Warn("tool failed", "tool", tool, "error", err)
	msg := err.Error()
	var e *apierr.Error
	if errors.As(err, &e) && e.Details != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Details)
	}
	return mcp.NewToolResultError(msg), nil
}
