package config

import (
	"os"
	"time"

	"github.com/brendan.keane/featcheck/internal/errors"
	"gopkg.in/yaml.v3"
)

// Profile is the on-disk form of a run configuration. Unset fields leave the
// defaults untouched.
//
//	iut: https://demo.ldproxy.net/daraa
//	openapi: https://demo.ldproxy.net/daraa/api?f=json
//	collections: 3
//	maxHops: 200
//	matchMode: page-bounded
//	headers:
//	  - "Authorization: Bearer xyz"
type Profile struct {
	IUT             string   `yaml:"iut"`
	OpenAPIURL      string   `yaml:"openapi"`
	Headers         []string `yaml:"headers"`
	CollectionLimit *int     `yaml:"collections"`
	MaxHops         *int     `yaml:"maxHops"`
	MatchMode       string   `yaml:"matchMode"`
	Timeout         string   `yaml:"timeout"`
	Output          string   `yaml:"output"`
	SigV4           *bool    `yaml:"awsSigV4"`
	SigV4Service    string   `yaml:"awsService"`
	MCPDescription  string   `yaml:"mcpDescription"`

	timeout time.Duration
}

// LoadProfile reads and parses a YAML profile file
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to read profile").
			WithContext("config_type", "profile").
			WithContext("path", path)
	}
	return ParseProfile(data)
}

// ParseProfile parses YAML profile content
func ParseProfile(data []byte) (*Profile, error) {
	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse profile").
			WithContext("config_type", "profile")
	}

	if profile.Timeout != "" {
		timeout, err := time.ParseDuration(profile.Timeout)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid profile timeout").
				WithContext("config_type", "profile").
				WithContext("timeout", profile.Timeout)
		}
		profile.timeout = timeout
	}

	return &profile, nil
}

// Apply copies every set profile field onto cfg
func (p *Profile) Apply(cfg *Config) {
	if p.IUT != "" {
		cfg.IUT = p.IUT
	}
	if p.OpenAPIURL != "" {
		cfg.OpenAPIURL = p.OpenAPIURL
	}
	if len(p.Headers) > 0 {
		cfg.Headers = p.Headers
	}
	if p.CollectionLimit != nil {
		cfg.CollectionLimit = *p.CollectionLimit
	}
	if p.MaxHops != nil {
		cfg.MaxHops = *p.MaxHops
	}
	if p.MatchMode != "" {
		cfg.MatchMode = p.MatchMode
	}
	if p.timeout > 0 {
		cfg.Timeout = p.timeout
	}
	if p.Output != "" {
		cfg.Output = p.Output
	}
	if p.SigV4 != nil {
		cfg.SigV4Enabled = *p.SigV4
	}
	if p.SigV4Service != "" {
		cfg.SigV4Service = p.SigV4Service
	}
	if p.MCPDescription != "" {
		cfg.MCP.Description = p.MCPDescription
	}
}
