package cli

import (
	"net/url"

	"github.com/brendan.keane/featcheck/internal/conformance"
	"github.com/brendan.keane/featcheck/internal/errors"
	"github.com/brendan.keane/featcheck/internal/http"
	"github.com/brendan.keane/featcheck/internal/report"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Roles accepted by the points command
var Roles = map[string]conformance.Role{
	"collections": conformance.RoleAllCollectionsMetadata,
	"collection":  conformance.RoleSingleCollectionMetadata,
	"items":       conformance.RoleItemsOfCollection,
}

// PointsHandler lists resolved test points without issuing checks
type PointsHandler struct {
	logger zerolog.Logger
}

// NewPointsHandler creates a new points command handler
func NewPointsHandler(logger zerolog.Logger) *PointsHandler {
	return &PointsHandler{
		logger: logger.With().Str("handler", "points").Logger(),
	}
}

// RegisterPointsFlags defines the flags only the points command reads
func RegisterPointsFlags(flags *pflag.FlagSet) {
	flags.String("role", "collections", "Endpoint role: collections, collection or items")
	flags.String("collection", "", "Collection identifier substituted into {collectionId}")
}

// Execute resolves the test points of one role and renders them
func (h *PointsHandler) Execute(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load configuration")
		return err
	}
	if err := cfg.Validate(); err != nil {
		h.logger.Error().Err(err).Msg("configuration validation failed")
		return err
	}

	roleName, err := cmd.Flags().GetString("role")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to get role flag")
	}
	role, ok := Roles[roleName]
	if !ok {
		return errors.Newf(errors.ErrorTypeConfig, "unknown role %q", roleName).
			WithContext("config_type", "role").
			WithContext("suggestion", "use collections, collection or items")
	}
	collectionID, err := cmd.Flags().GetString("collection")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to get collection flag")
	}

	iut, err := url.Parse(cfg.IUT)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid IUT URL").
			WithContext("config_type", "iut")
	}

	doc, _, err := loadDescription(commandContext(cmd), http.NewClientFactory(h.logger), cfg)
	if err != nil {
		return err
	}

	points, err := conformance.NewResolver(h.logger, conformance.WithMaxCollections(cfg.CollectionLimit)).
		Resolve(doc, iut, role, collectionID)
	if err != nil {
		return err
	}

	h.logger.Debug().
		Str("role", role.String()).
		Int("points", len(points)).
		Msg("resolved test points")

	return report.RenderPoints(cmd.OutOrStdout(), cfg.Output, points)
}
