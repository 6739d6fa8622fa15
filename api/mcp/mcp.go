// Package mcp provides an MCP (Model Context Protocol) server for the stacks system.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/stacks/pkg/knowledge"
	"github.com/papercomputeco/stacks/pkg/utils"
)

type Config struct {
	// Knowledge executes operations against the remote knowledge base
	Knowledge *knowledge.Client

	// Logger is the configured logger
	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the knowledge base tools.
func NewServer(c Config) (*Server, error) {
	if c.Knowledge == nil {
		return nil, errors.New("knowledge client is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	s := &Server{
		config: c,
	}

	// Create the MCP server
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "stacks",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	// Add tools
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        searchToolName,
		Description: searchDescription,
	}, s.handleSearch)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        documentToolName,
		Description: documentDescription,
	}, s.handleGetDocument)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        collectionsToolName,
		Description: collectionsDescription,
	}, s.handleListCollections)

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServeStdio runs the MCP server over stdin/stdout until the context is
// cancelled or the transport closes.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// envelopeResult serializes a result envelope into a single TextContent
// payload. Operation failures ride inside the envelope with success=false;
// IsError is reserved for serialization problems on this side.
func envelopeResult(logger *slog.Logger, envelope any) (*mcp.CallToolResult, any, error) {
	jsonBytes, err := json.Marshal(envelope)
	if err != nil {
		logger.Error("marshaling result envelope", "error", err)
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to serialize result: %v", err)},
			},
		}, nil, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, nil, nil
}
