package http

import (
	"net/http"

	"github.com/brendan.keane/featcheck/internal/config"
	featcheckhttp "github.com/brendan.keane/featcheck/pkg/http"
	"github.com/rs/zerolog"
)

// ClientFactory centralizes HTTP client creation from configuration
type ClientFactory struct {
	logger zerolog.Logger
}

// NewClientFactory creates a new client factory
func NewClientFactory(logger zerolog.Logger) *ClientFactory {
	return &ClientFactory{
		logger: logger,
	}
}

// baseClient returns the lambda-capable client, falling back to plain HTTP
// when no AWS configuration can be loaded.
func (f *ClientFactory) baseClient(cfg *config.Config) HTTPClientProvider {
	httpClient := &http.Client{Timeout: cfg.Timeout}

	client, err := featcheckhttp.NewClientWithHTTPClient(httpClient)
	if err != nil {
		f.logger.Warn().Err(err).Msg("failed to create lambda-capable client, falling back to basic client")
		return httpClient
	}
	return client
}

func (f *ClientFactory) signer(cfg *config.Config) RequestSigner {
	if !cfg.SigV4Enabled {
		return nil
	}
	return NewSigV4Signer(cfg.SigV4Service, f.logger)
}

// CreateExecutor creates the Executor used for every conformance request
func (f *ClientFactory) CreateExecutor(cfg *config.Config) Executor {
	opts := []ExecutorOption{WithHeaders(ParseHeaders(cfg.Headers))}
	if signer := f.signer(cfg); signer != nil {
		opts = append(opts, WithSigner(signer))
	}

	return NewExecutorWithDependencies(
		f.logger.With().Str("component", "http_executor").Logger(),
		f.baseClient(cfg),
		opts...,
	)
}

// CreateDescriptionClient creates the client used to fetch the API description
func (f *ClientFactory) CreateDescriptionClient(cfg *config.Config) *AuthenticatedHTTPClient {
	return NewAuthenticatedHTTPClient(f.baseClient(cfg), f.signer(cfg), ParseHeaders(cfg.Headers), f.logger)
}
