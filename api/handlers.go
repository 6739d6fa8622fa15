package api

import (
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/stacks/pkg/knowledge"
)

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleSearch handles GET /v1/search requests.
// Query parameters:
//   - query (required): the search query text
//   - collection (optional, default "default"): collection to search
//   - top_k (optional, default 5): result count, clamped to 1-20
//   - score_threshold (optional, default 0.7): similarity floor, clamped to 0.0-1.0
func (s *Server) handleSearch(c *fiber.Ctx) error {
	query := c.Query("query")

	topK := knowledge.DefaultTopK
	if raw := c.Query("top_k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(knowledge.SearchEnvelope{
				Success: false,
				Error:   "top_k must be an integer",
				Query:   query,
			})
		}
		topK = parsed
	}

	scoreThreshold := knowledge.DefaultScoreThreshold
	if raw := c.Query("score_threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(knowledge.SearchEnvelope{
				Success: false,
				Error:   "score_threshold must be a number",
				Query:   query,
			})
		}
		scoreThreshold = parsed
	}

	envelope := s.knowledge.Search(c.Context(), knowledge.SearchRequest{
		Query:          query,
		Collection:     c.Query("collection"),
		TopK:           topK,
		ScoreThreshold: scoreThreshold,
	})

	return c.Status(envelopeStatus(envelope.Success, envelope.Error)).JSON(envelope)
}

// handleDocument handles GET /v1/document/:id requests. The id path segment
// arrives percent-encoded; it is decoded here so the knowledge client can
// re-encode it for the upstream call.
func (s *Server) handleDocument(c *fiber.Ctx) error {
	id := c.Params("id")
	unescaped, err := url.PathUnescape(id)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(knowledge.DocumentEnvelope{
			Success:    false,
			Error:      "document id is not valid percent-encoding",
			DocumentID: id,
		})
	}

	envelope := s.knowledge.GetDocument(c.Context(), knowledge.DocumentRequest{
		DocumentID: unescaped,
		Collection: c.Query("collection"),
	})

	return c.Status(envelopeStatus(envelope.Success, envelope.Error)).JSON(envelope)
}

// handleCollections handles GET /v1/collections requests.
func (s *Server) handleCollections(c *fiber.Ctx) error {
	envelope := s.knowledge.ListCollections(c.Context())
	return c.Status(envelopeStatus(envelope.Success, envelope.Error)).JSON(envelope)
}

// envelopeStatus maps an operation envelope onto an HTTP status: 200 for
// success, 400 when the request was rejected before reaching the knowledge
// base, 502 when the upstream call failed.
func envelopeStatus(success bool, errMsg string) int {
	if success {
		return fiber.StatusOK
	}

	switch errMsg {
	case knowledge.EmptyQueryMessage, knowledge.EmptyDocumentIDMessage:
		return fiber.StatusBadRequest
	}

	return fiber.StatusBadGateway
}
