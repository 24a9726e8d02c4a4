// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tejzpr/armis/internal/item"
)

var (
	typeValues     = []string{"rule", "documentation", "snippet", "note", "reference"}
	priorityValues = []string{"low", "medium", "high", "critical"}
)

// NewListTool creates the context_list tool definition
func NewListTool() mcp.Tool {
	return mcp.NewTool("context_list",
		mcp.WithDescription("List context items. All filters are optional and combine with AND. Returns {items, total, allItems}."),
		mcp.WithString("type", mcp.Description("Comma separated types: rule, documentation, snippet, note, reference")),
		mcp.WithString("category", mcp.Description("Comma separated categories (exact match)")),
		mcp.WithString("tags", mcp.Description("Comma separated tags; an item matches when it has any of them")),
		mcp.WithString("priority", mcp.Description("Comma separated priorities: low, medium, high, critical")),
		mcp.WithBoolean("isActive", mcp.Description("Only active (true) or inactive (false) items")),
		mcp.WithString("search", mcp.Description("Case-insensitive text found in title, content or a tag")),
	)
}

// ListHandler handles the context_list tool
func ListHandler(ctx *ToolContext) ToolHandler {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		filter := item.Filter{
			Search:   request.GetString("search", ""),
			IsActive: optionalBool(request, "isActive"),
		}
		filter.Types, _ = stringList(request, "type")
		filter.Categories, _ = stringList(request, "category")
		filter.Tags, _ = stringList(request, "tags")
		filter.Priorities, _ = stringList(request, "priority")

		res, err := ctx.Store.List(c, filter)
		if err != nil {
			return ctx.errorResult("context_list", err)
		}
		return jsonResult(res)
	}
}

// NewGetTool creates the context_get tool definition
func NewGetTool() mcp.Tool {
	return mcp.NewTool("context_get",
		mcp.WithDescription("Fetch one context item by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Context item id")),
	)
}

// GetHandler handles the context_get tool
func GetHandler(ctx *ToolContext) ToolHandler {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		it, err := ctx.Store.Get(c, id)
		if err != nil {
			return ctx.errorResult("context_get", err)
		}
		return jsonResult(it)
	}
}

// NewCreateTool creates the context_create tool definition
func NewCreateTool() mcp.Tool {
	return mcp.NewTool("context_create",
		mcp.WithDescription("Create a context item: a rule, documentation, snippet, note or reference the assistant should take into account."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Short title")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Body text")),
		mcp.WithString("type", mcp.Required(), mcp.Enum(typeValues...), mcp.Description("Kind of item")),
		mcp.WithString("category", mcp.Required(), mcp.Description("Free-form grouping label")),
		mcp.WithString("priority", mcp.Required(), mcp.Enum(priorityValues...), mcp.Description("Importance")),
		mcp.WithArray("tags", mcp.Description("Labels for filtering")),
		mcp.WithBoolean("isActive", mcp.Description("Defaults to true")),
		mcp.WithArray("relatedFiles", mcp.Description("Paths or URLs the item refers to")),
		mcp.WithObject("metadata", mcp.Description("Free-form key/value data")),
	)
}

// CreateHandler handles the context_create tool
func CreateHandler(ctx *ToolContext) ToolHandler {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		draft := item.Draft{
			Title:    request.GetString("title", ""),
			Content:  request.GetString("content", ""),
			Type:     item.Type(request.GetString("type", "")),
			Category: request.GetString("category", ""),
			Priority: item.Priority(request.GetString("priority", "")),
			IsActive: optionalBool(request, "isActive"),
			Metadata: objectArg(request, "metadata"),
		}
		draft.Tags, _ = stringList(request, "tags")
		draft.RelatedFiles, _ = stringList(request, "relatedFiles")

		created, err := ctx.Store.Create(c, draft)
		if err != nil {
			return ctx.errorResult("context_create", err)
		}
		return jsonResult(created)
	}
}

// NewUpdateTool creates the context_update tool definition
func NewUpdateTool() mcp.Tool {
	return mcp.NewTool("context_update",
		mcp.WithDescription("Update fields of a context item. Only the supplied fields change; lists and metadata are replaced as a whole."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Context item id")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("content", mcp.Description("New body text")),
		mcp.WithString("type", mcp.Enum(typeValues...), mcp.Description("New kind")),
		mcp.WithString("category", mcp.Description("New category")),
		mcp.WithString("priority", mcp.Enum(priorityValues...), mcp.Description("New importance")),
		mcp.WithArray("tags", mcp.Description("Replacement tag list")),
		mcp.WithBoolean("isActive", mcp.Description("Activate or deactivate the item")),
		mcp.WithArray("relatedFiles", mcp.Description("Replacement related files")),
		mcp.WithObject("metadata", mcp.Description("Replacement metadata")),
	)
}

// UpdateHandler handles the context_update tool
func UpdateHandler(ctx *ToolContext) ToolHandler {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		patch := item.Patch{
			Title:    optionalString(request, "title"),
			Content:  optionalString(request, "content"),
			Category: optionalString(request, "category"),
			IsActive: optionalBool(request, "isActive"),
			Metadata: objectArg(request, "metadata"),
		}
		if t := optionalString(request, "type"); t != nil {
			typ := item.Type(*t)
			patch.Type = &typ
		}
		if p := optionalString(request, "priority"); p != nil {
			prio := item.Priority(*p)
			patch.Priority = &prio
		}
		if tags, ok := stringList(request, "tags"); ok {
			patch.Tags = tags
		}
		if files, ok := stringList(request, "relatedFiles"); ok {
			patch.RelatedFiles = files
		}

		updated, err := ctx.Store.Update(c, id, patch)
		if err != nil {
			return ctx.errorResult("context_update", err)
		}
		return jsonResult(updated)
	}
}

// NewDeleteTool creates the context_delete tool definition
func NewDeleteTool() mcp.Tool {
	return mcp.NewTool("context_delete",
		mcp.WithDescription("Permanently delete a context item. Consider context_update with isActive=false to keep it around."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Context item id")),
	)
}

// DeleteHandler handles the context_delete tool
func DeleteHandler(ctx *ToolContext) ToolHandler {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if err := ctx.Store.Delete(c, id); err != nil {
			return ctx.errorResult("context_delete", err)
		}
		return mcp.NewToolResultText(fmt.Sprintf("Context item '%s' deleted", id)), nil
	}
}
