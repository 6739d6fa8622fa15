package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/stacks/pkg/eventstream"
)

// DocumentRequest identifies a document within a collection.
type DocumentRequest struct {
	// DocumentID is the document to fetch. Must be non-blank.
	DocumentID string

	// Collection names the collection holding the document. Defaults to
	// DefaultCollection.
	Collection string
}

type documentResponse struct {
	Document json.RawMessage `json:"document"`
}

// GetDocument fetches a single document by ID. Makes exactly one attempt;
// only Search retries.
func (c *Client) GetDocument(ctx context.Context, req DocumentRequest) DocumentEnvelope {
	if strings.TrimSpace(req.DocumentID) == "" {
		return DocumentEnvelope{
			Success: false,
			Error:   EmptyDocumentIDMessage,
		}
	}

	collection := req.Collection
	if collection == "" {
		collection = DefaultCollection
	}

	requestID := uuid.NewString()
	start := time.Now()

	c.logger.Debug("fetching document",
		"request_id", requestID,
		"document_id", req.DocumentID,
		"collection", collection,
	)

	doc, err := c.getDocument(ctx, req.DocumentID, collection)

	event := eventstream.NewOperationEvent(eventstream.OperationGetDocument)
	event.Collection = collection
	event.DocumentID = req.DocumentID
	event.Attempts = 1
	event.DurationMs = time.Since(start).Milliseconds()

	if err != nil {
		event.Error = err.Error()
		c.publish(ctx, event)

		c.logger.Error("document fetch failed",
			"request_id", requestID,
			"document_id", req.DocumentID,
			"collection", collection,
			"error", err,
		)
		return DocumentEnvelope{
			Success:    false,
			Error:      err.Error(),
			DocumentID: req.DocumentID,
			Collection: collection,
		}
	}

	event.Success = true
	event.ResultCount = 1
	c.publish(ctx, event)

	c.logger.Debug("document fetched",
		"request_id", requestID,
		"document_id", req.DocumentID,
	)

	return DocumentEnvelope{
		Success:  true,
		Document: doc,
	}
}

func (c *Client) getDocument(ctx context.Context, id, collection string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("collection", collection)
	u := fmt.Sprintf("%s/api/document/%s?%s", c.baseURL, url.PathEscape(id), params.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating document request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending document request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newStatusError(resp)
	}

	var parsed documentResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding document response: %w", err)
	}

	return parsed.Document, nil
}
