package http

import (
	"net/http"
	"net/url"
	"time"

	"github.com/brendan.keane/featcheck/internal/errors"
	"github.com/brendan.keane/featcheck/pkg/document"
)

// Request describes one call against the IUT. Query values are merged into
// any query already present on URI.
type Request struct {
	Method  string
	URI     string
	Headers map[string]string
	Query   url.Values
}

// Response is the observed outcome of a Request. Sent and Received bracket the
// exchange and feed the timeStamp freshness check.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       document.Value
	Raw        []byte
	URI        string
	Sent       time.Time
	Received   time.Time

	// BodyErr is set when Raw could not be decoded as JSON
	BodyErr error
}

// ExpectStatus returns a transport error unless the response carries the given status.
func (r *Response) ExpectStatus(code int) error {
	if r.StatusCode == code {
		return nil
	}
	return errors.Newf(errors.ErrorTypeTransport, "unexpected status %d, expected %d", r.StatusCode, code).
		WithContext("url", r.URI).
		WithContext("status", r.StatusCode)
}

// JSON returns the decoded body or a decode error.
func (r *Response) JSON() (document.Value, error) {
	if r.BodyErr != nil {
		return document.Value{}, errors.Wrap(r.BodyErr, errors.ErrorTypeDecode, "response body is not JSON").
			WithContext("url", r.URI).
			WithContext("content_type", r.Header.Get("Content-Type"))
	}
	return r.Body, nil
}
