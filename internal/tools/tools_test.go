// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tejzpr/armis/internal/ingest"
	"github.com/tejzpr/armis/internal/item"
	"github.com/tejzpr/armis/internal/logger"
	"github.com/tejzpr/armis/internal/storage"
	"github.com/tejzpr/armis/internal/store"
)

func newTestToolContext(t *testing.T) *ToolContext {
	t.Helper()
	backend := storage.NewJSONFile(t.TempDir(), storage.DefaultFileName, logger.Nop())
	st := store.New(backend, logger.Nop())
	return NewToolContext(st, ingest.New(st, nil, 0, logger.Nop()), logger.Nop())
}

func call(t *testing.T, handler ToolHandler, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	request := mcp.CallToolRequest{}
	request.Params.Arguments = args
	result, err := handler(context.Background(), request)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func getResultText(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return ""
	}
	if textContent, ok := result.Content[0].(mcp.TextContent); ok {
		return textContent.Text
	}
	return ""
}

func decode(t *testing.T, result *mcp.CallToolResult, v interface{}) {
	t.Helper()
	require.False(t, result.IsError, "tool failed: %s", getResultText(result))
	require.NoError(t, json.Unmarshal([]byte(getResultText(result)), v))
}

func TestAll_RegistersEveryTool(t *testing.T) {
	tools := All(newTestToolContext(t))

	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Definition.Name)
		assert.NotNil(t, tool.Handler)
	}
	assert.Equal(t, []string{
		"context_list", "context_get", "context_create", "context_update",
		"context_delete", "context_export", "context_import", "context_ingest",
	}, names)
}

func TestCreateGetUpdateDelete(t *testing.T) {
	ctx := newTestToolContext(t)

	var created item.ContextItem
	decode(t, call(t, CreateHandler(ctx), map[string]interface{}{
		"title":    "Use tabs",
		"content":  "Indent with tabs",
		"type":     "rule",
		"category": "Style",
		"priority": "high",
		"tags":     []interface{}{"go", "format"},
		"metadata": map[string]interface{}{"origin": "review"},
	}), &created)
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.IsActive)
	assert.Equal(t, []string{"go", "format"}, created.Tags)

	var fetched item.ContextItem
	decode(t, call(t, GetHandler(ctx), map[string]interface{}{"id": created.ID}), &fetched)
	assert.Equal(t, "Use tabs", fetched.Title)
	assert.Equal(t, "review", fetched.Metadata["origin"])

	var updated item.ContextItem
	decode(t, call(t, UpdateHandler(ctx), map[string]interface{}{
		"id":       created.ID,
		"priority": "critical",
		"isActive": false,
	}), &updated)
	assert.Equal(t, item.PriorityCritical, updated.Priority)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "Use tabs", updated.Title)
	assert.Equal(t, []string{"go", "format"}, updated.Tags)

	result := call(t, DeleteHandler(ctx), map[string]interface{}{"id": created.ID})
	assert.False(t, result.IsError)
	assert.Contains(t, getResultText(result), created.ID)

	result = call(t, GetHandler(ctx), map[string]interface{}{"id": created.ID})
	assert.True(t, result.IsError)
	assert.Contains(t, getResultText(result), "not found")
}

func TestCreate_MissingFields(t *testing.T) {
	ctx := newTestToolContext(t)

	result := call(t, CreateHandler(ctx), map[string]interface{}{"title": "only"})
	assert.True(t, result.IsError)
	assert.Contains(t, getResultText(result), "Missing required fields")

	result = call(t, GetHandler(ctx), map[string]interface{}{})
	assert.True(t, result.IsError)
}

func TestList_Filters(t *testing.T) {
	ctx := newTestToolContext(t)

	for _, args := range []map[string]interface{}{
		{"title": "A", "content": "B", "type": "note", "category": "C", "priority": "low"},
		{"title": "Rule", "content": "x", "type": "rule", "category": "C", "priority": "high", "tags": "go, lint"},
	} {
		result := call(t, CreateHandler(ctx), args)
		require.False(t, result.IsError, getResultText(result))
	}

	var res item.ListResult
	decode(t, call(t, ListHandler(ctx), map[string]interface{}{"type": "note"}), &res)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, 2, res.AllItems)
	assert.Equal(t, "A", res.Items[0].Title)

	decode(t, call(t, ListHandler(ctx), map[string]interface{}{"tags": "lint"}), &res)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, "Rule", res.Items[0].Title)

	decode(t, call(t, ListHandler(ctx), map[string]interface{}{"search": "RULE", "isActive": true}), &res)
	assert.Equal(t, 1, res.Total)

	decode(t, call(t, ListHandler(ctx), map[string]interface{}{}), &res)
	assert.Equal(t, 2, res.Total)
}

func TestExportImport(t *testing.T) {
	src := newTestToolContext(t)
	result := call(t, CreateHandler(src), map[string]interface{}{
		"title": "A", "content": "B", "type": "note", "category": "Notes", "priority": "low",
	})
	require.False(t, result.IsError)

	exported := call(t, ExportHandler(src), nil)
	var env item.Envelope
	decode(t, exported, &env)
	assert.Equal(t, item.EnvelopeVersion, env.Version)
	require.Len(t, env.Items, 1)
	assert.Equal(t, []item.Category{{ID: "notes", Name: "Notes", ItemCount: 1}}, env.Categories)

	dst := newTestToolContext(t)
	var res struct {
		Imported int `json:"imported"`
		Total    int `json:"total"`
	}
	decode(t, call(t, ImportHandler(dst), map[string]interface{}{"data": getResultText(exported)}), &res)
	assert.Equal(t, 1, res.Imported)

	decode(t, call(t, ImportHandler(dst), map[string]interface{}{"data": getResultText(exported)}), &res)
	assert.Equal(t, 0, res.Imported)
	assert.Equal(t, 1, res.Total)

	result = call(t, ImportHandler(dst), map[string]interface{}{"data": "{not json"})
	assert.True(t, result.IsError)

	result = call(t, ImportHandler(dst), map[string]interface{}{"data": `{"version":"1.0"}`})
	assert.True(t, result.IsError)
	assert.Contains(t, getResultText(result), "items must be an array")
}

func TestIngest_Folder(t *testing.T) {
	ctx := newTestToolContext(t)

	result := call(t, IngestHandler(ctx), map[string]interface{}{})
	assert.True(t, result.IsError)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "guide.md"), []byte("# Guide\nRead **this**"), 0644))

	var res struct {
		Created int                `json:"created"`
		Total   int                `json:"total"`
		Items   []item.ContextItem `json:"items"`
	}
	decode(t, call(t, IngestHandler(ctx), map[string]interface{}{"folder": dir}), &res)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Total)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Guide\nRead this", res.Items[0].Content)
	assert.Equal(t, ingest.CategoryFolder, res.Items[0].Category)
}

func TestStringList(t *testing.T) {
	request := mcp.CallToolRequest{}
	request.Params.Arguments = map[string]interface{}{
		"csv":   "a, b,,c",
		"array": []interface{}{"x", " ", 3, "y"},
		"bad":   42,
	}

	got, ok := stringList(request, "csv")
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c"}, got)

	got, ok = stringList(request, "array")
	assert.True(t, ok)
	assert.Equal(t, []string{"x", "y"}, got)

	_, ok = stringList(request, "bad")
	assert.False(t, ok)
	_, ok = stringList(request, "missing")
	assert.False(t, ok)
}
