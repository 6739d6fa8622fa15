package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/stacks/pkg/eventstream"
)

type collectionsResponse struct {
	Collections []json.RawMessage `json:"collections"`
}

// ListCollections returns the collections available on the server. Makes
// exactly one attempt; only Search retries.
func (c *Client) ListCollections(ctx context.Context) CollectionsEnvelope {
	requestID := uuid.NewString()
	start := time.Now()

	c.logger.Debug("listing collections", "request_id", requestID)

	collections, err := c.getCollections(ctx)

	event := eventstream.NewOperationEvent(eventstream.OperationListCollections)
	event.Attempts = 1
	event.DurationMs = time.Since(start).Milliseconds()

	if err != nil {
		event.Error = err.Error()
		c.publish(ctx, event)

		c.logger.Error("listing collections failed",
			"request_id", requestID,
			"error", err,
		)
		return CollectionsEnvelope{
			Success: false,
			Error:   err.Error(),
		}
	}

	if collections == nil {
		collections = []json.RawMessage{}
	}

	event.Success = true
	event.ResultCount = len(collections)
	c.publish(ctx, event)

	c.logger.Debug("collections listed",
		"request_id", requestID,
		"count", len(collections),
	)

	return CollectionsEnvelope{
		Success:     true,
		Collections: &collections,
	}
}

func (c *Client) getCollections(ctx context.Context) ([]json.RawMessage, error) {
	url := fmt.Sprintf("%s/api/collections", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating collections request: %w", err)
	}
	c.authorize(req)

	resp, err := c.collectionsClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending collections request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newStatusError(resp)
	}

	var parsed collectionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding collections response: %w", err)
	}

	return parsed.Collections, nil
}
