// Package knowledge provides the client for a remote knowledge base server.
//
// The client exposes the three operations agents rely on: searching a
// collection, fetching a single document, and listing collections. Operations
// never return a Go error. Every outcome, including validation and upstream
// failures, is folded into a result envelope whose Success field tells the
// caller which shape to read.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/stacks/pkg/eventstream"
	"github.com/papercomputeco/stacks/pkg/eventstream/nop"
)

const (
	// DefaultBaseURL points at a knowledge base server on the local machine.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultCollection is searched when a request does not name a collection.
	DefaultCollection = "default"

	// DefaultTopK is the result count applied when a caller omits top_k.
	DefaultTopK = 5

	// DefaultScoreThreshold is the similarity floor applied when a caller
	// omits score_threshold.
	DefaultScoreThreshold = 0.7

	// MaxTopK caps how many results a single search may request.
	MaxTopK = 20

	connectTimeout         = 10 * time.Second
	searchReadTimeout      = 30 * time.Second
	collectionsReadTimeout = 10 * time.Second

	maxErrorBody = 200
)

// DefaultRetrySchedule paces search attempts: one attempt per entry, with
// that entry's delay before the next attempt. The final delay is never slept.
var DefaultRetrySchedule = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

// Client talks to the knowledge base REST API.
type Client struct {
	baseURL       string
	apiKey        string
	retrySchedule []time.Duration

	// httpClient serves search and document requests; collectionsClient
	// carries a shorter read timeout for the lightweight collections route.
	httpClient        *http.Client
	collectionsClient *http.Client

	logger *slog.Logger
	events eventstream.Publisher
}

// Config holds configuration for the knowledge base client.
type Config struct {
	// URL is the knowledge base server URL (e.g., "http://localhost:8000").
	URL string

	// APIKey is sent as a bearer token when non-empty.
	APIKey string

	// RetrySchedule paces search attempts. The attempt count equals its
	// length. Defaults to DefaultRetrySchedule.
	RetrySchedule []time.Duration

	// Events receives an OperationEvent after every executed operation.
	// Defaults to the nop publisher.
	Events eventstream.Publisher
}

// NewClient creates a knowledge base client.
func NewClient(c Config, logger *slog.Logger) (*Client, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("knowledge base URL is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	schedule := c.RetrySchedule
	if len(schedule) == 0 {
		schedule = DefaultRetrySchedule
	}

	events := c.Events
	if events == nil {
		events = nop.NewPublisher()
	}

	return &Client{
		baseURL:           strings.TrimRight(c.URL, "/"),
		apiKey:            c.APIKey,
		retrySchedule:     schedule,
		httpClient:        newHTTPClient(searchReadTimeout),
		collectionsClient: newHTTPClient(collectionsReadTimeout),
		logger:            logger,
		events:            events,
	}, nil
}

// newHTTPClient builds a client with a connect timeout and a response header
// timeout but no overall request deadline.
func newHTTPClient(readTimeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout: connectTimeout,
			}).DialContext,
			ResponseHeaderTimeout: readTimeout,
		},
	}
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// publish sends an operation event. Event delivery never affects the
// operation outcome; failures are logged and dropped.
func (c *Client) publish(ctx context.Context, event *eventstream.OperationEvent) {
	if err := c.events.PublishOperation(ctx, event); err != nil {
		c.logger.Warn("publishing operation event",
			"event_id", event.EventID,
			"operation", event.Operation,
			"error", err,
		)
	}
}
