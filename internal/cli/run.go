package cli

import (
	"context"
	"net/url"

	"github.com/brendan.keane/featcheck/internal/config"
	"github.com/brendan.keane/featcheck/internal/conformance"
	"github.com/brendan.keane/featcheck/internal/errors"
	"github.com/brendan.keane/featcheck/internal/http"
	"github.com/brendan.keane/featcheck/internal/logger"
	"github.com/brendan.keane/featcheck/internal/report"
	"github.com/brendan.keane/featcheck/pkg/openapi"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// RunHandler handles conformance run commands
type RunHandler struct {
	logger zerolog.Logger
}

// NewRunHandler creates a new run command handler
func NewRunHandler(logger zerolog.Logger) *RunHandler {
	return &RunHandler{
		logger: logger.With().Str("handler", "run").Logger(),
	}
}

// loadConfig returns the configuration main.go stored on the command context,
// falling back to the command's flags. A positional argument replaces the IUT.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	var cfg *config.Config
	if ctx := cmd.Context(); ctx != nil {
		cfg, _ = config.FromContext(ctx)
	}
	if cfg == nil {
		var err error
		if cfg, err = config.LoadFromFlags(cmd.Flags()); err != nil {
			return nil, err
		}
	}

	if len(args) > 0 && args[0] != "" {
		cfg.IUT = args[0]
	}
	return cfg, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// loadDescription fetches and builds the API description of the configured IUT
func loadDescription(ctx context.Context, factory *http.ClientFactory, cfg *config.Config) (*v3.Document, string, error) {
	parser, err := openapi.Load(ctx, factory.CreateDescriptionClient(cfg), cfg.IUT, cfg.OpenAPIURL)
	if err != nil {
		return nil, "", errors.Wrap(err, errors.ErrorTypeOpenAPI, "failed to load API description").
			WithContext("iut", cfg.IUT)
	}
	doc, err := parser.Model()
	if err != nil {
		return nil, "", errors.Wrap(err, errors.ErrorTypeOpenAPI, "API description has no usable model").
			WithContext("url", parser.Source())
	}
	return doc, parser.Source(), nil
}

// Execute runs every conformance check and renders the report. It fails when
// any check failed so the process exit status reflects conformance.
func (h *RunHandler) Execute(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load configuration")
		return err
	}

	if err := cfg.Validate(); err != nil {
		h.logger.Error().Err(err).Msg("configuration validation failed")
		return err
	}

	mode, err := conformance.ParseMatchMode(cfg.MatchMode)
	if err != nil {
		return err
	}
	iut, err := url.Parse(cfg.IUT)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid IUT URL").
			WithContext("config_type", "iut")
	}

	h.logger.Debug().
		Str("iut", cfg.IUT).
		Str("openapi", cfg.OpenAPIURL).
		Int("collections", cfg.CollectionLimit).
		Str("match_mode", string(mode)).
		Msg("starting conformance run")

	ctx := commandContext(cmd)
	factory := http.NewClientFactory(h.logger)

	doc, source, err := loadDescription(ctx, factory, cfg)
	if err != nil {
		return err
	}

	runner := conformance.NewRunner(factory.CreateExecutor(cfg), conformance.Options{
		CollectionLimit: cfg.CollectionLimit,
		MaxHops:         cfg.MaxHops,
		MatchMode:       mode,
	}, logger.ForRun(h.logger, cfg.IUT, source))

	outcomes, snap, err := runner.RunAll(ctx, doc, iut)
	if err != nil {
		return err
	}

	rep := report.New(cfg.IUT, source, snap.ConformanceClasses, outcomes)
	if err := report.Render(cmd.OutOrStdout(), cfg.Output, rep); err != nil {
		return err
	}

	if !rep.Passed() {
		return errors.Newf(errors.ErrorTypeViolation, "%d of %d checks failed", rep.Summary.Failed, rep.Summary.Total).
			WithContext("iut", cfg.IUT)
	}
	return nil
}
