package http

import (
	"context"
	"net/http"
)

// Executor issues one request against the IUT and returns the observed response.
// Non-2xx statuses are returned as responses, not errors; only transport
// failures are errors. There are no retries.
type Executor interface {
	Issue(ctx context.Context, req Request) (*Response, error)
}

// HTTPClientProvider defines interface for the underlying HTTP client
// Enables testing with mock HTTP clients
type HTTPClientProvider interface {
	Do(req *http.Request) (*http.Response, error)
}

// RequestSigner signs an outgoing request in place
type RequestSigner interface {
	Sign(ctx context.Context, req *http.Request) error
}
