package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/stacks/pkg/knowledge"
)

var (
	searchToolName    = "search_knowledge_base"
	searchDescription = "Search the knowledge base for documents relevant to a query using vector similarity. Returns a JSON envelope with a success flag, the matched documents, and a result count."
)

// SearchInput represents the input arguments for the search tool. TopK and
// ScoreThreshold are pointers so an omitted argument gets the documented
// default while an explicit zero is clamped like any other value.
type SearchInput struct {
	Query          string   `json:"query" jsonschema:"the text to search the knowledge base for"`
	CollectionName string   `json:"collection_name,omitempty" jsonschema:"collection to search (default: default)"`
	TopK           *int     `json:"top_k,omitempty" jsonschema:"number of results to return, clamped to 1-20 (default: 5)"`
	ScoreThreshold *float64 `json:"score_threshold,omitempty" jsonschema:"minimum similarity score, clamped to 0.0-1.0 (default: 0.7)"`
}

// handleSearch processes a search_knowledge_base call.
func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, any, error) {
	topK := knowledge.DefaultTopK
	if input.TopK != nil {
		topK = *input.TopK
	}

	scoreThreshold := knowledge.DefaultScoreThreshold
	if input.ScoreThreshold != nil {
		scoreThreshold = *input.ScoreThreshold
	}

	s.config.Logger.Debug("MCP search request",
		"collection", input.CollectionName,
		"top_k", topK,
		"score_threshold", scoreThreshold,
	)

	envelope := s.config.Knowledge.Search(ctx, knowledge.SearchRequest{
		Query:          input.Query,
		Collection:     input.CollectionName,
		TopK:           topK,
		ScoreThreshold: scoreThreshold,
	})

	return envelopeResult(s.config.Logger, envelope)
}
