package testutil

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/brendan.keane/featcheck/internal/errors"
	featcheckhttp "github.com/brendan.keane/featcheck/internal/http"
	"github.com/brendan.keane/featcheck/pkg/document"
)

// MockHTTPClient returns a canned response and records every request
type MockHTTPClient struct {
	Response *http.Response
	Error    error
	Requests []*http.Request
}

// Do implements the HTTPClientProvider interface
func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.Requests = append(m.Requests, req)
	return m.Response, m.Error
}

// NewMockHTTPClient creates a mock HTTP client with the given response and error
func NewMockHTTPClient(body string, statusCode int, headers map[string]string, err error) *MockHTTPClient {
	var resp *http.Response
	if err == nil {
		resp = &http.Response{
			StatusCode: statusCode,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     make(http.Header),
		}
		for key, value := range headers {
			resp.Header.Set(key, value)
		}
	}

	return &MockHTTPClient{
		Response: resp,
		Error:    err,
		Requests: make([]*http.Request, 0),
	}
}

// ScriptedResponse is the canned answer for one URL
type ScriptedResponse struct {
	Status int
	Body   string
	Err    error
}

// ScriptedExecutor answers requests from a table keyed by the full request URL,
// query included. Unscripted URLs get a 404.
type ScriptedExecutor struct {
	Responses map[string]ScriptedResponse
	// Clock stamps Sent and Received; time.Now when nil
	Clock func() time.Time

	mu       sync.Mutex
	requests []featcheckhttp.Request
}

func NewScriptedExecutor() *ScriptedExecutor {
	return &ScriptedExecutor{Responses: make(map[string]ScriptedResponse)}
}

// On scripts a status and body for uri
func (e *ScriptedExecutor) On(uri string, status int, body string) *ScriptedExecutor {
	e.Responses[uri] = ScriptedResponse{Status: status, Body: body}
	return e
}

// Fail scripts a network failure for uri
func (e *ScriptedExecutor) Fail(uri string, message string) *ScriptedExecutor {
	e.Responses[uri] = ScriptedResponse{
		Err: errors.New(errors.ErrorTypeTransport, message).WithContext("url", uri),
	}
	return e
}

// Requests returns the requests issued so far
func (e *ScriptedExecutor) Requests() []featcheckhttp.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]featcheckhttp.Request(nil), e.requests...)
}

// Issue implements featcheckhttp.Executor
func (e *ScriptedExecutor) Issue(ctx context.Context, req featcheckhttp.Request) (*featcheckhttp.Response, error) {
	e.mu.Lock()
	e.requests = append(e.requests, req)
	e.mu.Unlock()

	clock := e.Clock
	if clock == nil {
		clock = time.Now
	}

	uri, err := featcheckhttp.ApplyQueryParameters(req.URI, req.Query)
	if err != nil {
		return nil, err
	}

	sent := clock()
	scripted, ok := e.Responses[uri]
	if !ok {
		scripted = ScriptedResponse{Status: http.StatusNotFound, Body: `{"code":"NotFound"}`}
	}
	if scripted.Err != nil {
		return nil, scripted.Err
	}

	resp := &featcheckhttp.Response{
		StatusCode: scripted.Status,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Raw:        []byte(scripted.Body),
		URI:        uri,
		Sent:       sent,
	}
	resp.Body, resp.BodyErr = document.Decode(resp.Raw)
	resp.Received = clock()
	return resp, nil
}
