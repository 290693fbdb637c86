package config

import (
	"github.com/spf13/pflag"
)

// RegisterFlags defines every flag LoadFromFlags reads
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "YAML profile file with run defaults")
	flags.String("iut", "", "Landing page URL of the implementation under test (or set FEATCHECK_IUT)")
	flags.String("openapi", "", "API description URL; discovered from the landing page when empty (or set FEATCHECK_OPENAPI)")
	flags.StringSliceP("header", "H", []string{}, "Custom header sent on every request (can be used multiple times)")
	flags.Int("collections", 0, "Maximum number of collections to test, 0 tests all")
	flags.Int("max-hops", DefaultMaxHops, "Maximum next links followed when counting features")
	flags.String("match-mode", DefaultMatchMode, "numberMatched rule: strict or page-bounded")
	flags.Duration("timeout", DefaultTimeout, "Per-request transport timeout")
	flags.StringP("output", "o", DefaultOutput, "Report format: pretty or json")
	flags.BoolP("verbose", "v", false, "Verbose logging")
	flags.Bool("debug", false, "Debug logging with caller information")
	flags.Bool("aws-sigv4", false, "Sign requests with AWS SigV4")
	flags.String("aws-service", "execute-api", "AWS service name for SigV4 signing")
	flags.String("mcp-desc", "", "Server description shown to MCP clients")
}
