package conformance

import (
	"net/url"
	"strings"

	"github.com/brendan.keane/featcheck/internal/errors"
	"github.com/brendan.keane/featcheck/internal/logger"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
	"github.com/rs/zerolog"
)

// Role names the capability a test point must provide.
type Role int

const (
	// RoleAllCollectionsMetadata matches /collections.
	RoleAllCollectionsMetadata Role = iota
	// RoleSingleCollectionMetadata matches /collections/{name}.
	RoleSingleCollectionMetadata
	// RoleItemsOfCollection matches /collections/{name}/items.
	RoleItemsOfCollection
)

// collectionSegment marks the template segment that names a collection
const collectionSegment = "*"

func (r Role) String() string {
	switch r {
	case RoleAllCollectionsMetadata:
		return "all-collections-metadata"
	case RoleSingleCollectionMetadata:
		return "single-collection-metadata"
	case RoleItemsOfCollection:
		return "items-of-collection"
	default:
		return "unknown"
	}
}

func (r Role) segments() []string {
	switch r {
	case RoleAllCollectionsMetadata:
		return []string{"collections"}
	case RoleSingleCollectionMetadata:
		return []string{"collections", collectionSegment}
	case RoleItemsOfCollection:
		return []string{"collections", collectionSegment, "items"}
	default:
		return nil
	}
}

// TestPoint is one invocable operation: a declared server joined with a
// matching path. ResolvedPath never holds a path variable.
type TestPoint struct {
	ServerURL    string `json:"serverUrl"`
	PathTemplate string `json:"pathTemplate"`
	ResolvedPath string `json:"resolvedPath"`
	CollectionID string `json:"collectionId,omitempty"`
}

// URL returns the absolute URL of the test point.
func (tp TestPoint) URL() string {
	return strings.TrimSuffix(tp.ServerURL, "/") + tp.ResolvedPath
}

// Key identifies the test point in per-run response tables.
func (tp TestPoint) Key() string {
	return tp.URL()
}

// Resolver maps a role onto the paths an API description declares.
type Resolver struct {
	logger         zerolog.Logger
	maxCollections int
}

// ResolverOption configures a Resolver
type ResolverOption func(*Resolver)

// WithMaxCollections keeps only the first n distinct collections in document
// order. Zero or less keeps all of them.
func WithMaxCollections(n int) ResolverOption {
	return func(r *Resolver) {
		r.maxCollections = n
	}
}

func NewResolver(log zerolog.Logger, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		logger: logger.ForComponent(log, "resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type pathMatch struct {
	template     string
	resolved     string
	collectionID string
}

// Resolve returns one test point per declared server and matching path, servers
// in declaration order and paths in document order. An empty collectionID only
// matches paths that name their collection literally. The result is never nil.
func (r *Resolver) Resolve(doc *v3.Document, iut *url.URL, role Role, collectionID string) ([]TestPoint, error) {
	servers, err := ServerURLs(doc, iut)
	if err != nil {
		return nil, err
	}

	matches := r.matchPaths(doc, role, collectionID)

	points := make([]TestPoint, 0, len(servers)*len(matches))
	for _, server := range servers {
		for _, m := range matches {
			points = append(points, TestPoint{
				ServerURL:    server,
				PathTemplate: m.template,
				ResolvedPath: m.resolved,
				CollectionID: m.collectionID,
			})
		}
	}

	r.logger.Debug().
		Str("role", role.String()).
		Str("collection", collectionID).
		Int("servers", len(servers)).
		Int("paths", len(matches)).
		Msg("resolved test points")

	return points, nil
}

func (r *Resolver) matchPaths(doc *v3.Document, role Role, collectionID string) []pathMatch {
	var matches []pathMatch
	if doc.Paths == nil || doc.Paths.PathItems == nil {
		return matches
	}

	seen := make(map[string]bool)
	for template := range doc.Paths.PathItems.FromOldest() {
		m, ok := matchTemplate(template, role.segments(), collectionID)
		if !ok {
			continue
		}
		if m.collectionID != "" && !seen[m.collectionID] {
			if r.maxCollections > 0 && len(seen) >= r.maxCollections {
				continue
			}
			seen[m.collectionID] = true
		}
		matches = append(matches, m)
	}
	return matches
}

// matchTemplate compares a declared path with a role template segment by
// segment. The collection segment accepts a path variable, substituted with
// collectionID, or a literal that must equal collectionID when one is given.
func matchTemplate(template string, want []string, collectionID string) (pathMatch, bool) {
	segs := splitPath(template)
	if len(want) == 0 || len(segs) != len(want) {
		return pathMatch{}, false
	}

	m := pathMatch{template: template}
	resolved := make([]string, len(segs))
	for i, w := range want {
		seg := segs[i]
		if w != collectionSegment {
			if seg != w {
				return pathMatch{}, false
			}
			resolved[i] = seg
			continue
		}

		if isPathVariable(seg) {
			if collectionID == "" {
				return pathMatch{}, false
			}
			resolved[i] = url.PathEscape(collectionID)
			m.collectionID = collectionID
			continue
		}
		if collectionID != "" && seg != collectionID {
			return pathMatch{}, false
		}
		resolved[i] = seg
		m.collectionID = seg
	}

	m.resolved = "/" + strings.Join(resolved, "/")
	return m, true
}

func splitPath(path string) []string {
	return strings.Split(strings.Trim(path, "/"), "/")
}

func isPathVariable(seg string) bool {
	return len(seg) > 2 && strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}")
}

// ServerURLs returns the declared server URLs with variables replaced by their
// defaults. Relative server URLs resolve against the IUT.
func ServerURLs(doc *v3.Document, iut *url.URL) ([]string, error) {
	if doc == nil || len(doc.Servers) == 0 {
		return nil, errors.New(errors.ErrorTypeConfig, "API description declares no servers").
			WithContext("config_type", "servers")
	}

	urls := make([]string, 0, len(doc.Servers))
	for _, server := range doc.Servers {
		if server == nil {
			continue
		}
		raw := server.URL
		if server.Variables != nil {
			for name, variable := range server.Variables.FromOldest() {
				if variable == nil {
					continue
				}
				raw = strings.ReplaceAll(raw, "{"+name+"}", variable.Default)
			}
		}

		ref, err := url.Parse(raw)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrorTypeConfig, "invalid server URL %q", raw).
				WithContext("config_type", "servers")
		}
		if iut != nil && !ref.IsAbs() {
			ref = iut.ResolveReference(ref)
		}
		urls = append(urls, strings.TrimSuffix(ref.String(), "/"))
	}

	if len(urls) == 0 {
		return nil, errors.New(errors.ErrorTypeConfig, "API description declares no servers").
			WithContext("config_type", "servers")
	}
	return urls, nil
}
