// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package server

import (
	"context"
	"io"
	stdlog "log"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/tejzpr/armis/internal/ingest"
	"github.com/tejzpr/armis/internal/logger"
	"github.com/tejzpr/armis/internal/store"
	"github.com/tejzpr/armis/internal/tools"
)

// MCPServer wraps the mcp-go server with the context tools registered
type MCPServer struct {
	mcpServer *server.MCPServer
	log       *logger.Logger
	toolCount int
}

// NewMCPServer creates an MCP server exposing the context store
func NewMCPServer(version string, st *store.Store, in *ingest.Ingester, log *logger.Logger) *MCPServer {
	if log == nil {
		log = logger.Nop()
	}

	mcpServer := server.NewMCPServer(
		"Armis",
		version,
		server.WithToolCapabilities(true),
	)

	all := tools.All(tools.NewToolContext(st, in, log))
	for _, t := range all {
		mcpServer.AddTool(t.Definition, server.ToolHandlerFunc(t.Handler))
	}

	return &MCPServer{mcpServer: mcpServer, log: log, toolCount: len(all)}
}

// GetMCPServer returns the underlying MCP server
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio speaks JSON-RPC over stdin/stdout until ctx is cancelled or
// stdin closes
func (s *MCPServer) ServeStdio(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve speaks JSON-RPC over the given streams
func (s *MCPServer) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(stdlog.New(os.Stderr, "mcp: ", stdlog.LstdFlags))

	s.log.Info("MCP server ready (stdio mode)", "tools", s.toolCount)
	return stdio.Listen(ctx, in, out)
}
