package http

import (
	"net/http"

	"github.com/rs/zerolog"
)

// AuthenticatedHTTPClient applies configured headers and signing to plain
// *http.Request calls. It serves collaborators that speak net/http directly,
// such as the API description loader.
type AuthenticatedHTTPClient struct {
	client  HTTPClientProvider
	signer  RequestSigner
	headers map[string]string
	logger  zerolog.Logger
}

// NewAuthenticatedHTTPClient wraps client. signer may be nil.
func NewAuthenticatedHTTPClient(client HTTPClientProvider, signer RequestSigner, headers map[string]string, logger zerolog.Logger) *AuthenticatedHTTPClient {
	return &AuthenticatedHTTPClient{
		client:  client,
		signer:  signer,
		headers: headers,
		logger:  logger.With().Str("component", "auth_http_client").Logger(),
	}
}

// Do performs an HTTP request with authentication applied if configured
func (c *AuthenticatedHTTPClient) Do(req *http.Request) (*http.Response, error) {
	logger := c.logger.With().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Logger()

	for name, value := range c.headers {
		if req.Header.Get(name) == "" {
			req.Header.Set(name, value)
		}
	}

	if c.signer != nil && req.URL.Scheme != "lambda" {
		if err := c.signer.Sign(req.Context(), req); err != nil {
			logger.Error().Err(err).Msg("failed to apply authentication")
			return nil, err
		}
	}

	logger.Debug().Msg("performing authenticated HTTP request")
	return c.client.Do(req)
}
