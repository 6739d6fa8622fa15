package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/stacks/pkg/eventstream"
)

// SearchRequest carries the parameters for one knowledge base search.
type SearchRequest struct {
	// Query is the text to search for. Must be non-blank.
	Query string

	// Collection names the collection to search. Defaults to
	// DefaultCollection.
	Collection string

	// TopK is the maximum number of results, clamped to [1, MaxTopK].
	TopK int

	// ScoreThreshold is the minimum similarity score, clamped to [0, 1].
	ScoreThreshold float64
}

type searchBody struct {
	Query          string  `json:"query"`
	CollectionName string  `json:"collection_name"`
	TopK           int     `json:"top_k"`
	ScoreThreshold float64 `json:"score_threshold"`
}

type searchResponse struct {
	Documents []json.RawMessage `json:"documents"`
}

// Search queries a collection for documents matching the request query.
// Transient upstream failures are retried on the client's schedule; the
// returned envelope reports the final outcome either way.
func (c *Client) Search(ctx context.Context, req SearchRequest) SearchEnvelope {
	if strings.TrimSpace(req.Query) == "" {
		return SearchEnvelope{
			Success: false,
			Error:   EmptyQueryMessage,
			Query:   req.Query,
		}
	}

	collection := req.Collection
	if collection == "" {
		collection = DefaultCollection
	}

	body := searchBody{
		Query:          req.Query,
		CollectionName: collection,
		TopK:           clampTopK(req.TopK),
		ScoreThreshold: clampScoreThreshold(req.ScoreThreshold),
	}

	requestID := uuid.NewString()
	start := time.Now()

	c.logger.Debug("searching knowledge base",
		"request_id", requestID,
		"collection", collection,
		"top_k", body.TopK,
		"score_threshold", body.ScoreThreshold,
	)

	docs, attempts, err := c.searchWithRetry(ctx, body)

	event := eventstream.NewOperationEvent(eventstream.OperationSearch)
	event.Collection = collection
	event.Query = req.Query
	event.Attempts = attempts
	event.DurationMs = time.Since(start).Milliseconds()

	if err != nil {
		event.Error = err.Error()
		c.publish(ctx, event)

		c.logger.Error("search failed",
			"request_id", requestID,
			"collection", collection,
			"attempts", attempts,
			"error", err,
		)
		return SearchEnvelope{
			Success:    false,
			Error:      err.Error(),
			Query:      req.Query,
			Collection: collection,
		}
	}

	if docs == nil {
		docs = []json.RawMessage{}
	}
	count := len(docs)

	event.Success = true
	event.ResultCount = count
	c.publish(ctx, event)

	c.logger.Debug("search complete",
		"request_id", requestID,
		"collection", collection,
		"results", count,
		"attempts", attempts,
	)

	return SearchEnvelope{
		Success:    true,
		Query:      req.Query,
		Collection: collection,
		Results:    &docs,
		Count:      &count,
	}
}

// searchWithRetry runs the search POST through the retry schedule and
// returns the parsed documents along with the number of attempts made. A
// non-retryable failure ends the loop immediately.
func (c *Client) searchWithRetry(ctx context.Context, body searchBody) ([]json.RawMessage, int, error) {
	maxAttempts := len(c.retrySchedule)

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		docs, err := c.postSearch(ctx, body)
		if err == nil {
			return docs, attempt + 1, nil
		}
		lastErr = err

		if !retryable(err) {
			return nil, attempt + 1, err
		}
		if attempt == maxAttempts-1 {
			break
		}

		delay := c.retrySchedule[attempt]
		c.logger.Warn("search attempt failed, retrying",
			"attempt", attempt+1,
			"max_attempts", maxAttempts,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, attempt + 1, fmt.Errorf("search aborted: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return nil, maxAttempts, fmt.Errorf("search failed after %d attempts: %w", maxAttempts, lastErr)
}

func (c *Client) postSearch(ctx context.Context, body searchBody) ([]json.RawMessage, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling search request: %w", err)
	}

	url := fmt.Sprintf("%s/api/search", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newStatusError(resp)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	return parsed.Documents, nil
}

func clampTopK(v int) int {
	if v < 1 {
		return 1
	}
	if v > MaxTopK {
		return MaxTopK
	}
	return v
}

func clampScoreThreshold(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
