package conformance

import (
	"testing"

	"github.com/brendan.keane/featcheck/internal/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoServerDescription = `openapi: 3.0.3
info:
  title: Two servers
  version: 1.0.0
servers:
  - url: https://{host}/ogc/
    variables:
      host:
        default: example.org
  - url: /v2
paths:
  /collections:
    get:
      responses:
        '200':
          description: ok
  /collections/{collectionId}:
    get:
      responses:
        '200':
          description: ok
  /collections/buildings/items:
    get:
      responses:
        '200':
          description: ok
  /collections/{collectionId}/items:
    get:
      responses:
        '200':
          description: ok
  /collections/{collectionId}/items/{featureId}:
    get:
      responses:
        '200':
          description: ok
`

func TestServerURLs(t *testing.T) {
	doc := loadDescription(t, twoServerDescription)

	servers, err := ServerURLs(doc, mustURL(t, "https://demo.example.com/bonn/"))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.org/ogc", "https://demo.example.com/v2"}, servers)
}

func TestServerURLs_NoServers(t *testing.T) {
	doc := loadDescription(t, `openapi: 3.0.3
info:
  title: none
  version: 1.0.0
paths: {}
`)
	_, err := ServerURLs(doc, mustURL(t, "https://demo.example.com"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	assert.Equal(t, "servers", errors.GetContext(err)["config_type"])
}

func TestResolve_ServersTimesPaths(t *testing.T) {
	doc := loadDescription(t, twoServerDescription)
	resolver := NewResolver(zerolog.Nop())
	iut := mustURL(t, "https://demo.example.com/bonn")

	points, err := resolver.Resolve(doc, iut, RoleAllCollectionsMetadata, "")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "https://example.org/ogc/collections", points[0].URL())
	assert.Equal(t, "https://demo.example.com/v2/collections", points[1].URL())

	points, err = resolver.Resolve(doc, iut, RoleItemsOfCollection, "roads")
	require.NoError(t, err)
	require.Len(t, points, 2)
	for _, tp := range points {
		assert.Equal(t, "/collections/{collectionId}/items", tp.PathTemplate)
		assert.Equal(t, "/collections/roads/items", tp.ResolvedPath)
		assert.Equal(t, "roads", tp.CollectionID)
	}
}

func TestResolve_LiteralCollection(t *testing.T) {
	doc := loadDescription(t, twoServerDescription)
	resolver := NewResolver(zerolog.Nop())
	iut := mustURL(t, "https://demo.example.com")

	points, err := resolver.Resolve(doc, iut, RoleItemsOfCollection, "")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "/collections/buildings/items", points[0].ResolvedPath)
	assert.Equal(t, "buildings", points[0].CollectionID)

	points, err = resolver.Resolve(doc, iut, RoleItemsOfCollection, "buildings")
	require.NoError(t, err)
	assert.Len(t, points, 4, "literal and variable paths both serve buildings")
}

func TestResolve_NoMatchIsEmptyNotNil(t *testing.T) {
	doc := loadDescription(t, `openapi: 3.0.3
info:
  title: landing only
  version: 1.0.0
servers:
  - url: https://example.org
paths:
  /:
    get:
      responses:
        '200':
          description: ok
`)
	points, err := NewResolver(zerolog.Nop()).Resolve(doc, mustURL(t, "https://example.org"), RoleAllCollectionsMetadata, "")
	require.NoError(t, err)
	assert.NotNil(t, points)
	assert.Empty(t, points)
}

func TestResolve_EscapesCollectionID(t *testing.T) {
	doc := loadDescription(t, twoServerDescription)
	points, err := NewResolver(zerolog.Nop()).Resolve(doc, mustURL(t, "https://example.org"), RoleSingleCollectionMetadata, "my roads")
	require.NoError(t, err)
	require.NotEmpty(t, points)
	assert.Equal(t, "/collections/my%20roads", points[0].ResolvedPath)
	assert.Equal(t, "my roads", points[0].CollectionID)
}

func TestResolve_MaxCollections(t *testing.T) {
	doc := loadDescription(t, `openapi: 3.0.3
info:
  title: literal collections
  version: 1.0.0
servers:
  - url: https://example.org
paths:
  /collections/a/items:
    get:
      responses:
        '200':
          description: ok
  /collections/b/items:
    get:
      responses:
        '200':
          description: ok
  /collections/c/items:
    get:
      responses:
        '200':
          description: ok
`)
	resolver := NewResolver(zerolog.Nop(), WithMaxCollections(2))
	points, err := resolver.Resolve(doc, mustURL(t, "https://example.org"), RoleItemsOfCollection, "")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "a", points[0].CollectionID)
	assert.Equal(t, "b", points[1].CollectionID)
}

func TestRoleString(t *testing.T) {
	assert.Equal(t, "all-collections-metadata", RoleAllCollectionsMetadata.String())
	assert.Equal(t, "single-collection-metadata", RoleSingleCollectionMetadata.String())
	assert.Equal(t, "items-of-collection", RoleItemsOfCollection.String())
	assert.Equal(t, "unknown", Role(42).String())
}
