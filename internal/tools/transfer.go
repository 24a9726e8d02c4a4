// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tejzpr/armis/internal/ingest"
	"github.com/tejzpr/armis/internal/item"
)

// NewExportTool creates the context_export tool definition
func NewExportTool() mcp.Tool {
	return mcp.NewTool("context_export",
		mcp.WithDescription("Export every context item as a versioned envelope {version, exportedAt, items, categories}."),
	)
}

// ExportHandler handles the context_export tool
func ExportHandler(ctx *ToolContext) ToolHandler {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		env, err := ctx.Store.Export(c)
		if err != nil {
			return ctx.errorResult("context_export", err)
		}
		return jsonResult(env)
	}
}

// NewImportTool creates the context_import tool definition
func NewImportTool() mcp.Tool {
	return mcp.NewTool("context_import",
		mcp.WithDescription("Import an export envelope. Items whose id already exists are skipped, so importing twice is safe."),
		mcp.WithString("data", mcp.Required(), mcp.Description("Envelope JSON as produced by context_export")),
	)
}

// ImportHandler handles the context_import tool
func ImportHandler(ctx *ToolContext) ToolHandler {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		data, err := request.RequireString("data")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var env item.Envelope
		if err := json.Unmarshal([]byte(data), &env); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid import data: %v", err)), nil
		}

		res, err := ctx.Store.Import(c, env)
		if err != nil {
			return ctx.errorResult("context_import", err)
		}
		return jsonResult(map[string]interface{}{
			"message":  fmt.Sprintf("Successfully imported %d items", res.Imported),
			"imported": res.Imported,
			"total":    res.Total,
		})
	}
}

// NewIngestTool creates the context_ingest tool definition
func NewIngestTool() mcp.Tool {
	return mcp.NewTool("context_ingest",
		mcp.WithDescription("Create context items from the files of a local folder (not recursive) and/or a web page."),
		mcp.WithString("folder", mcp.Description("Absolute path of a folder whose files become documentation items")),
		mcp.WithString("url", mcp.Description("http(s) URL of a page to scrape into a reference item")),
	)
}

// IngestHandler handles the context_ingest tool
func IngestHandler(ctx *ToolContext) ToolHandler {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		src := ingest.Source{
			Folder: request.GetString("folder", ""),
			URL:    request.GetString("url", ""),
		}
		if src.Folder == "" && src.URL == "" {
			return mcp.NewToolResultError("at least one of folder or url is required"), nil
		}
		if ctx.Ingester == nil {
			return mcp.NewToolResultError("ingestion is not available"), nil
		}

		res, err := ctx.Ingester.Ingest(c, src)
		if err != nil {
			return ctx.errorResult("context_ingest", err)
		}
		return jsonResult(map[string]interface{}{
			"message": fmt.Sprintf("Successfully processed %d items", len(res.Created)),
			"created": len(res.Created),
			"total":   res.Total,
			"items":   res.Created,
		})
	}
}
