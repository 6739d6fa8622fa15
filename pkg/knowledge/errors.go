package knowledge

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

// StatusError is returned when the knowledge base responds with a non-200
// status. The status code is part of the message so envelope errors carry it
// to the caller.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("knowledge base returned status %d", e.Code)
	}
	return fmt.Sprintf("knowledge base returned status %d: %s", e.Code, e.Body)
}

// newStatusError captures the status code and a bounded slice of the
// response body.
func newStatusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		Code: resp.StatusCode,
		Body: strings.TrimSpace(string(body)),
	}
}

// retryable reports whether another attempt could change the outcome.
// Timeouts, throttling, and server errors qualify; every other failure,
// including non-timeout transport errors, is permanent.
func retryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= 500 ||
			statusErr.Code == http.StatusRequestTimeout ||
			statusErr.Code == http.StatusTooManyRequests
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}
