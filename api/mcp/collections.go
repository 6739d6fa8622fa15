package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	collectionsToolName    = "list_collections"
	collectionsDescription = "List the collections available in the knowledge base. Use this to discover what can be searched before calling search_knowledge_base."
)

// CollectionsInput represents the (empty) input for the list_collections tool.
type CollectionsInput struct{}

// handleListCollections processes a list_collections call.
func (s *Server) handleListCollections(ctx context.Context, _ *mcp.CallToolRequest, _ CollectionsInput) (*mcp.CallToolResult, any, error) {
	s.config.Logger.Debug("MCP collections request")

	envelope := s.config.Knowledge.ListCollections(ctx)

	return envelopeResult(s.config.Logger, envelope)
}
