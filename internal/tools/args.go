// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tejzpr/armis/internal/item"
)

// stringList reads key as either a JSON array of strings or a comma
// separated string. ok is false when the key is absent.
func stringList(request mcp.CallToolRequest, key string) ([]string, bool) {
	raw, ok := request.GetArguments()[key]
	if !ok || raw == nil {
		return nil, false
	}
	switch v := raw.(type) {
	case string:
		return item.SplitList(v), true
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out, true
	case []string:
		return v, true
	default:
		return nil, false
	}
}

// optionalString returns a pointer to key's value when it is present
func optionalString(request mcp.CallToolRequest, key string) *string {
	if s, ok := request.GetArguments()[key].(string); ok {
		return &s
	}
	return nil
}

// optionalBool returns a pointer to key's value when it is present
func optionalBool(request mcp.CallToolRequest, key string) *bool {
	if b, ok := request.GetArguments()[key].(bool); ok {
		return &b
	}
	return nil
}

// objectArg returns key as a JSON object, or nil when absent
func objectArg(request mcp.CallToolRequest, key string) map[string]interface{} {
	if m, ok := request.GetArguments()[key].(map[string]interface{}); ok {
		return m
	}
	return nil
}
