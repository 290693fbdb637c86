package config

import (
	"context"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/brendan.keane/featcheck/internal/errors"
	"github.com/spf13/pflag"
)

const (
	DefaultMaxHops   = 1000
	DefaultMatchMode = "strict"
	DefaultOutput    = "pretty"
	DefaultTimeout   = 30 * time.Second
)

var (
	validMatchModes = []string{"strict", "page-bounded"}
	validOutputs    = []string{"pretty", "json"}
	validSchemes    = []string{"http", "https", "lambda"}
)

// Config holds all application configuration
type Config struct {
	// Target
	IUT        string
	OpenAPIURL string
	Headers    []string

	// Run shape
	CollectionLimit int
	MaxHops         int
	MatchMode       string
	Timeout         time.Duration

	// Output
	Output  string
	Verbose bool
	Debug   bool

	// Authentication
	SigV4Enabled bool
	SigV4Service string

	// MCP settings
	MCP MCPConfig
}

// MCPConfig holds MCP-specific configuration
type MCPConfig struct {
	Description string // Server description for LLM context
}

// contextKey is a custom type for context keys
type contextKey string

// configKey is the context key for storing config
const configKey contextKey = "config"

// WithConfig adds config to context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) (*Config, bool) {
	cfg, ok := ctx.Value(configKey).(*Config)
	return cfg, ok
}

// NewConfig creates a Config with default values
func NewConfig() *Config {
	return &Config{
		MaxHops:      DefaultMaxHops,
		MatchMode:    DefaultMatchMode,
		Output:       DefaultOutput,
		Timeout:      DefaultTimeout,
		SigV4Service: "execute-api",
	}
}

// LoadFromFlags creates a Config from command line flags. When --config names
// a profile file, its values are the base and only flags set explicitly on the
// command line override them.
func LoadFromFlags(flags *pflag.FlagSet) (*Config, error) {
	config := NewConfig()

	profilePath, err := flags.GetString("config")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get config flag")
	}

	fromProfile := false
	if profilePath != "" {
		profile, err := LoadProfile(profilePath)
		if err != nil {
			return nil, err
		}
		profile.Apply(config)
		fromProfile = true
	}

	// use reports whether a flag value should replace the current one
	use := func(name string) bool {
		return !fromProfile || flags.Changed(name)
	}

	var (
		headers   []string
		limit     int
		maxHops   int
		timeout   time.Duration
		strValue  string
		boolValue bool
	)

	if strValue, err = flags.GetString("iut"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get iut flag")
	} else if use("iut") {
		config.IUT = strValue
	}

	if strValue, err = flags.GetString("openapi"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get openapi flag")
	} else if use("openapi") {
		config.OpenAPIURL = strValue
	}

	if headers, err = flags.GetStringSlice("header"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get headers flag")
	} else if use("header") {
		config.Headers = headers
	}

	if limit, err = flags.GetInt("collections"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get collections flag")
	} else if use("collections") {
		config.CollectionLimit = limit
	}

	if maxHops, err = flags.GetInt("max-hops"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get max-hops flag")
	} else if use("max-hops") {
		config.MaxHops = maxHops
	}

	if strValue, err = flags.GetString("match-mode"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get match-mode flag")
	} else if use("match-mode") {
		config.MatchMode = strings.ToLower(strings.TrimSpace(strValue))
	}

	if timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get timeout flag")
	} else if use("timeout") {
		config.Timeout = timeout
	}

	if strValue, err = flags.GetString("output"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get output flag")
	} else if use("output") {
		config.Output = strings.ToLower(strValue)
	}

	if boolValue, err = flags.GetBool("verbose"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get verbose flag")
	} else if use("verbose") {
		config.Verbose = boolValue
	}

	if boolValue, err = flags.GetBool("debug"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get debug flag")
	} else if use("debug") {
		config.Debug = boolValue
	}

	// Authentication flags
	if boolValue, err = flags.GetBool("aws-sigv4"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get aws-sigv4 flag")
	} else if use("aws-sigv4") {
		config.SigV4Enabled = boolValue
	}

	if strValue, err = flags.GetString("aws-service"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get aws-service flag")
	} else if use("aws-service") {
		config.SigV4Service = strValue
	}

	// MCP-specific flags
	if strValue, err = flags.GetString("mcp-desc"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get mcp-desc flag")
	} else if use("mcp-desc") {
		config.MCP.Description = strValue
	}

	// If not set via flag or profile, try environment variables
	if config.IUT == "" {
		config.IUT = os.Getenv("FEATCHECK_IUT")
	}
	if config.OpenAPIURL == "" {
		config.OpenAPIURL = os.Getenv("FEATCHECK_OPENAPI")
	}
	if config.MCP.Description == "" {
		config.MCP.Description = os.Getenv("FEATCHECK_MCP_DESCRIPTION")
	}

	return config, nil
}

// Validate ensures the configuration is valid for a conformance run
func (c *Config) Validate() error {
	if c.IUT == "" {
		return errors.New(errors.ErrorTypeConfig, "IUT URL is required").
			WithContext("config_type", "iut").
			WithContext("suggestion", "set FEATCHECK_IUT environment variable or use --iut flag")
	}

	if err := validateTargetURL(c.IUT); err != nil {
		return err.WithContext("config_type", "iut")
	}

	if c.OpenAPIURL != "" && !strings.HasPrefix(c.OpenAPIURL, "file://") {
		if err := validateTargetURL(c.OpenAPIURL); err != nil {
			return err.WithContext("config_type", "openapi")
		}
	}

	if c.CollectionLimit < 0 {
		return errors.Newf(errors.ErrorTypeConfig, "collection limit must not be negative, got %d", c.CollectionLimit).
			WithContext("config_type", "collections")
	}

	if c.MaxHops <= 0 {
		return errors.Newf(errors.ErrorTypeConfig, "max hops must be positive, got %d", c.MaxHops).
			WithContext("config_type", "max-hops")
	}

	if !contains(validMatchModes, c.MatchMode) {
		return errors.New(errors.ErrorTypeConfig, "invalid match mode").
			WithContext("config_type", "match-mode").
			WithContext("match_mode", c.MatchMode).
			WithContext("valid_match_modes", validMatchModes)
	}

	if !contains(validOutputs, c.Output) {
		return errors.New(errors.ErrorTypeConfig, "invalid output format").
			WithContext("config_type", "output").
			WithContext("output", c.Output).
			WithContext("valid_outputs", validOutputs)
	}

	return nil
}

func validateTargetURL(raw string) *errors.CheckError {
	parsed, err := url.Parse(raw)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid URL").
			WithContext("url", raw)
	}

	if !contains(validSchemes, parsed.Scheme) || parsed.Host == "" {
		return errors.New(errors.ErrorTypeConfig, "URL must be absolute (e.g., https://example.com)").
			WithContext("url", raw).
			WithContext("valid_schemes", validSchemes)
	}

	return nil
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
