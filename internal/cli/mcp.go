package cli

import (
	"github.com/brendan.keane/featcheck/internal/mcp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// MCPHandler handles MCP server commands
type MCPHandler struct {
	logger zerolog.Logger
}

// NewMCPHandler creates a new MCP command handler
func NewMCPHandler(logger zerolog.Logger) *MCPHandler {
	return &MCPHandler{
		logger: logger.With().Str("handler", "mcp").Logger(),
	}
}

// Execute handles the MCP server command. The IUT is optional here since
// every tool call may name its own.
func (h *MCPHandler) Execute(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load configuration")
		return err
	}

	if cfg.IUT != "" {
		if err := cfg.Validate(); err != nil {
			h.logger.Error().Err(err).Msg("configuration validation failed")
			return err
		}
	}

	h.logger.Debug().
		Str("iut", cfg.IUT).
		Str("openapi_url", cfg.OpenAPIURL).
		Bool("sigv4", cfg.SigV4Enabled).
		Int("headers", len(cfg.Headers)).
		Msg("starting MCP server")

	server, err := mcp.NewServer(h.logger, cfg)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create MCP server")
		return err
	}

	h.logger.Debug().Msg("MCP server created, starting message loop")
	return server.Start()
}
