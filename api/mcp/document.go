package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/stacks/pkg/knowledge"
)

var (
	documentToolName    = "get_document"
	documentDescription = "Retrieve a specific document from the knowledge base by its ID. Use this when the full content of a known document is needed rather than a similarity search."
)

// DocumentInput represents the input arguments for the get_document tool.
type DocumentInput struct {
	DocumentID     string `json:"document_id" jsonschema:"the ID of the document to retrieve"`
	CollectionName string `json:"collection_name,omitempty" jsonschema:"collection holding the document (default: default)"`
}

// handleGetDocument processes a get_document call.
func (s *Server) handleGetDocument(ctx context.Context, _ *mcp.CallToolRequest, input DocumentInput) (*mcp.CallToolResult, any, error) {
	s.config.Logger.Debug("MCP document request",
		"document_id", input.DocumentID,
		"collection", input.CollectionName,
	)

	envelope := s.config.Knowledge.GetDocument(ctx, knowledge.DocumentRequest{
		DocumentID: input.DocumentID,
		Collection: input.CollectionName,
	})

	return envelopeResult(s.config.Logger, envelope)
}
