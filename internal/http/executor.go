package http

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/brendan.keane/featcheck/internal/errors"
	"github.com/brendan.keane/featcheck/pkg/document"
	"github.com/rs/zerolog"
)

const userAgent = "featcheck"

// executor implements Executor on top of an injected HTTP client
type executor struct {
	logger     zerolog.Logger
	httpClient HTTPClientProvider
	signer     RequestSigner
	headers    map[string]string
	clock      func() time.Time
}

// ExecutorOption customises an executor built by NewExecutorWithDependencies
type ExecutorOption func(*executor)

// WithHeaders adds headers sent on every request. Request headers win on conflict.
func WithHeaders(headers map[string]string) ExecutorOption {
	return func(e *executor) {
		e.headers = headers
	}
}

// WithSigner signs every non-lambda request before it is sent
func WithSigner(signer RequestSigner) ExecutorOption {
	return func(e *executor) {
		e.signer = signer
	}
}

// WithClock replaces time.Now for the Sent/Received instants
func WithClock(clock func() time.Time) ExecutorOption {
	return func(e *executor) {
		e.clock = clock
	}
}

// NewExecutorWithDependencies creates an Executor with injected dependencies
func NewExecutorWithDependencies(logger zerolog.Logger, httpClient HTTPClientProvider, opts ...ExecutorOption) Executor {
	e := &executor{
		logger:     logger,
		httpClient: httpClient,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Issue performs a single request and decodes a JSON body when one is present
func (e *executor) Issue(ctx context.Context, request Request) (*Response, error) {
	method := request.Method
	if method == "" {
		method = http.MethodGet
	}

	targetURL, err := ApplyQueryParameters(request.URI, request.Query)
	if err != nil {
		return nil, err
	}

	logger := e.logger.With().
		Str("method", method).
		Str("url", targetURL).
		Logger()

	req, err := e.buildHTTPRequest(ctx, method, targetURL, request.Headers)
	if err != nil {
		logger.Error().Err(err).Msg("failed to build HTTP request")
		return nil, err
	}

	sent := e.clock()
	resp, err := e.httpClient.Do(req)
	if err != nil {
		duration := e.clock().Sub(sent)
		logger.Error().
			Err(err).
			Dur("duration", duration).
			Msg("HTTP request failed")
		return nil, errors.Wrap(err, errors.ErrorTypeTransport, "HTTP request failed").
			WithContext("url", targetURL).
			WithContext("duration", duration)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	received := e.clock()
	if err != nil {
		logger.Error().Err(err).Msg("failed to read response body")
		return nil, errors.Wrap(err, errors.ErrorTypeTransport, "failed to read response body").
			WithContext("url", targetURL)
	}

	logger.Debug().
		Int("status", resp.StatusCode).
		Int("body_length", len(raw)).
		Dur("duration", received.Sub(sent)).
		Msg("HTTP request completed")

	out := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Raw:        raw,
		URI:        targetURL,
		Sent:       sent,
		Received:   received,
	}
	if out.Header == nil {
		out.Header = make(http.Header)
	}

	out.Body, out.BodyErr = document.Decode(raw)
	if out.BodyErr != nil {
		logger.Debug().Err(out.BodyErr).Msg("response body is not JSON")
	}

	return out, nil
}

// buildHTTPRequest creates the request with default, configured and per-call headers
func (e *executor) buildHTTPRequest(ctx context.Context, method, targetURL string, headers map[string]string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, targetURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create HTTP request").
			WithContext("method", method).
			WithContext("url", targetURL)
	}

	req.Header.Set("User-Agent", userAgent)
	for name, value := range e.headers {
		req.Header.Set(name, value)
	}
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	// lambda:// invocations bypass API Gateway, so there is nothing to sign
	if e.signer != nil && req.URL.Scheme != "lambda" {
		if err := e.signer.Sign(ctx, req); err != nil {
			return nil, err
		}
	}

	return req, nil
}
