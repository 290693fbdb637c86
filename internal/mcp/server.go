// Package mcp exposes the conformance runner as Model Context Protocol tools
package mcp

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/brendan.keane/featcheck/internal/config"
	"github.com/brendan.keane/featcheck/internal/conformance"
	"github.com/brendan.keane/featcheck/internal/errors"
	"github.com/brendan.keane/featcheck/internal/http"
	"github.com/brendan.keane/featcheck/internal/logger"
	"github.com/brendan.keane/featcheck/internal/report"
	"github.com/brendan.keane/featcheck/pkg/openapi"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

const (
	serverName    = "featcheck"
	serverVersion = "1.0.0"

	ToolResolveTestPoints = "resolve_test_points"
	ToolRunConformance    = "run_conformance"
)

// Server serves conformance tools over stdio
type Server struct {
	logger            zerolog.Logger
	config            *config.Config
	executor          http.Executor
	descriptionClient openapi.HTTPClient
	mcpServer         *server.MCPServer
}

// NewServer creates a new MCP server with clients built from cfg
func NewServer(logger zerolog.Logger, cfg *config.Config) (*Server, error) {
	factory := http.NewClientFactory(logger)
	return NewServerWithDependencies(logger, cfg, factory.CreateExecutor(cfg), factory.CreateDescriptionClient(cfg))
}

// NewServerWithDependencies creates a server around the given clients
func NewServerWithDependencies(log zerolog.Logger, cfg *config.Config, executor http.Executor, descriptionClient openapi.HTTPClient) (*Server, error) {
	if _, err := conformance.ParseMatchMode(cfg.MatchMode); err != nil {
		return nil, err
	}

	opts := []server.ServerOption{server.WithToolCapabilities(false)}
	if cfg.MCP.Description != "" {
		opts = append(opts, server.WithInstructions(cfg.MCP.Description))
	}

	s := &Server{
		logger:            logger.ForComponent(log, "mcp_server"),
		config:            cfg,
		executor:          executor,
		descriptionClient: descriptionClient,
		mcpServer:         server.NewMCPServer(serverName, serverVersion, opts...),
	}
	s.registerTools()
	return s, nil
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcpgo.NewTool(ToolResolveTestPoints,
		mcpgo.WithDescription("List the concrete URLs a conformance run would request for one role. Roles: 'collections' (/collections), 'collection' (/collections/{collectionId}) and 'items' (/collections/{collectionId}/items)."),
		mcpgo.WithString("iut",
			mcpgo.Description("Landing page URL of the implementation under test. Defaults to the configured IUT."),
		),
		mcpgo.WithString("openapi",
			mcpgo.Description("URL of the OpenAPI description. Discovered from the landing page when omitted."),
		),
		mcpgo.WithString("role",
			mcpgo.Description("Endpoint role to resolve (default: collections)"),
			mcpgo.Enum("collections", "collection", "items"),
		),
		mcpgo.WithString("collection",
			mcpgo.Description("Collection identifier substituted into {collectionId}. Without it only literal collection paths match."),
		),
	), s.handleResolveTestPoints)

	s.mcpServer.AddTool(mcpgo.NewTool(ToolRunConformance,
		mcpgo.WithDescription("Run the OGC API Features core conformance checks against an implementation and return the JSON report. Supports optional report filtering via 'regex' (text search with context) or 'jmespath' (JSON filtering) to reduce token usage."),
		mcpgo.WithString("iut",
			mcpgo.Description("Landing page URL of the implementation under test. Defaults to the configured IUT."),
		),
		mcpgo.WithString("openapi",
			mcpgo.Description("URL of the OpenAPI description. Discovered from the landing page when omitted."),
		),
		mcpgo.WithNumber("collections",
			mcpgo.Description("Test only the first N collections (0 tests all)"),
		),
		mcpgo.WithString("match_mode",
			mcpgo.Description("numberMatched comparison: 'strict' or 'page-bounded'"),
			mcpgo.Enum(string(conformance.MatchStrict), string(conformance.MatchPageBounded)),
		),
		mcpgo.WithString("regex",
			mcpgo.Description("Regex pattern to search the report (returns matches with surrounding context). Cannot be used with jmespath."),
		),
		mcpgo.WithString("jmespath",
			mcpgo.Description("JMESPath expression to filter the JSON report (https://jmespath.org), e.g. outcomes[?status=='fail']. Cannot be used with regex."),
		),
		mcpgo.WithNumber("context_lines",
			mcpgo.Description("Amount of context around regex matches, ~80 characters per line (default: 5)"),
		),
	), s.handleRunConformance)
}

// Start serves MCP requests on stdin and stdout until stdin closes
func (s *Server) Start() error {
	s.logger.Debug().Msg("MCP server started, reading from stdin")
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return errors.Wrap(err, errors.ErrorTypeMCP, "MCP server stopped")
	}
	s.logger.Debug().Msg("MCP server stopped")
	return nil
}

// target is the IUT and description a tool call works on
type target struct {
	iut         *url.URL
	description string
	parser      *openapi.Parser
}

// loadTarget resolves the IUT from the call or the configuration and loads
// its description. A description argument only falls back to the configured
// one when the IUT does too.
func (s *Server) loadTarget(ctx context.Context, request mcpgo.CallToolRequest) (*target, error) {
	iut := request.GetString("iut", "")
	description := request.GetString("openapi", "")
	if iut == "" {
		iut = s.config.IUT
		if description == "" {
			description = s.config.OpenAPIURL
		}
	}
	if iut == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "no IUT given and none configured").
			WithContext("config_type", "iut")
	}

	parsed, err := url.Parse(iut)
	if err != nil || !parsed.IsAbs() {
		return nil, errors.Newf(errors.ErrorTypeConfig, "IUT %q is not an absolute URL", iut).
			WithContext("config_type", "iut")
	}

	parser, err := openapi.Load(ctx, s.descriptionClient, iut, description)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeOpenAPI, "failed to load API description").
			WithContext("iut", iut)
	}
	return &target{iut: parsed, description: parser.Source(), parser: parser}, nil
}

func toolError(log zerolog.Logger, err error) *mcpgo.CallToolResult {
	log.Warn().Err(err).Str("error_type", string(errors.GetType(err))).Msg("tool call failed")
	log.Debug().Fields(errors.DebugInfo(err)).Msg("tool error details")
	return mcpgo.NewToolResultError(errors.UserMessage(err))
}

func parseRole(name string) (conformance.Role, error) {
	switch name {
	case "", "collections":
		return conformance.RoleAllCollectionsMetadata, nil
	case "collection":
		return conformance.RoleSingleCollectionMetadata, nil
	case "items":
		return conformance.RoleItemsOfCollection, nil
	default:
		return 0, errors.Newf(errors.ErrorTypeMCP, "unknown role %q", name).
			WithContext("role", name)
	}
}

func (s *Server) handleResolveTestPoints(ctx context.Context, request mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	log := logger.ForMCP(s.logger, ToolResolveTestPoints)

	role, err := parseRole(request.GetString("role", ""))
	if err != nil {
		return toolError(log, err), nil
	}

	t, err := s.loadTarget(ctx, request)
	if err != nil {
		return toolError(log, err), nil
	}
	doc, err := t.parser.Model()
	if err != nil {
		return toolError(log, err), nil
	}

	points, err := conformance.NewResolver(log).Resolve(doc, t.iut, role, request.GetString("collection", ""))
	if err != nil {
		return toolError(log, err), nil
	}

	data, err := json.MarshalIndent(points, "", "  ")
	if err != nil {
		return toolError(log, errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode test points")), nil
	}

	log.Debug().Int("points", len(points)).Str("role", role.String()).Msg("resolved test points")
	return mcpgo.NewToolResultText(string(data)), nil
}

func (s *Server) handleRunConformance(ctx context.Context, request mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	log := logger.ForMCP(s.logger, ToolRunConformance)

	mode, err := conformance.ParseMatchMode(request.GetString("match_mode", s.config.MatchMode))
	if err != nil {
		return toolError(log, err), nil
	}
	filter := filterOptions{
		Regex:        request.GetString("regex", ""),
		JMESPath:     request.GetString("jmespath", ""),
		ContextLines: request.GetInt("context_lines", 5),
	}
	if filter.Regex != "" && filter.JMESPath != "" {
		return toolError(log, errors.New(errors.ErrorTypeMCP, "regex and jmespath cannot be combined")), nil
	}

	t, err := s.loadTarget(ctx, request)
	if err != nil {
		return toolError(log, err), nil
	}
	doc, err := t.parser.Model()
	if err != nil {
		return toolError(log, err), nil
	}

	runner := conformance.NewRunner(s.executor, conformance.Options{
		CollectionLimit: request.GetInt("collections", s.config.CollectionLimit),
		MaxHops:         s.config.MaxHops,
		MatchMode:       mode,
	}, log)

	outcomes, snap, err := runner.RunAll(ctx, doc, t.iut)
	if err != nil {
		return toolError(log, err), nil
	}

	rep := report.New(t.iut.String(), t.description, snap.ConformanceClasses, outcomes)
	body, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return toolError(log, errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode report")), nil
	}

	log.Info().
		Int("passed", rep.Summary.Passed).
		Int("failed", rep.Summary.Failed).
		Int("skipped", rep.Summary.Skipped).
		Msg("conformance run finished")

	filtered, err := applyFilter(string(body), filter, log)
	if err != nil {
		return toolError(log, err), nil
	}
	if filtered == nil {
		return mcpgo.NewToolResultText(string(body)), nil
	}

	data, err := json.MarshalIndent(filtered, "", "  ")
	if err != nil {
		return toolError(log, errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode filtered report")), nil
	}
	return mcpgo.NewToolResultText(string(data)), nil
}
