package testutil

import (
	"time"

	"github.com/brendan.keane/featcheck/internal/config"
)

// ConfigBuilder provides a fluent interface for building test configurations
type ConfigBuilder struct {
	config *config.Config
}

// NewConfigBuilder starts from the defaults of a command line run
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{config: config.NewConfig()}
}

// WithIUT sets the landing page of the implementation under test
func (b *ConfigBuilder) WithIUT(iut string) *ConfigBuilder {
	b.config.IUT = iut
	return b
}

// WithOpenAPIURL sets the API description URL
func (b *ConfigBuilder) WithOpenAPIURL(url string) *ConfigBuilder {
	b.config.OpenAPIURL = url
	return b
}

// WithHeader adds a single "Name: value" header
func (b *ConfigBuilder) WithHeader(header string) *ConfigBuilder {
	b.config.Headers = append(b.config.Headers, header)
	return b
}

func (b *ConfigBuilder) WithCollectionLimit(n int) *ConfigBuilder {
	b.config.CollectionLimit = n
	return b
}

func (b *ConfigBuilder) WithMatchMode(mode string) *ConfigBuilder {
	b.config.MatchMode = mode
	return b
}

func (b *ConfigBuilder) WithTimeout(d time.Duration) *ConfigBuilder {
	b.config.Timeout = d
	return b
}

// Build returns a copy of the configured Config
func (b *ConfigBuilder) Build() *config.Config {
	cfg := *b.config
	cfg.Headers = append([]string(nil), b.config.Headers...)
	return &cfg
}
