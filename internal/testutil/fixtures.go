// Package testutil provides shared fixtures, fake servers and builders for
// exercising the validator against a Features API without a real deployment
package testutil

import (
	"encoding/json"
	"fmt"
)

// Conformance classes advertised by the fake server
const (
	ConformanceCore    = "http://www.opengis.net/spec/ogcapi-features-1/1.0/conf/core"
	ConformanceGeoJSON = "http://www.opengis.net/spec/ogcapi-features-1/1.0/conf/geojson"
	ConformanceHTML    = "http://www.opengis.net/spec/ogcapi-features-1/1.0/conf/html"
	ConformanceOAS30   = "http://www.opengis.net/spec/ogcapi-features-1/1.0/conf/oas30"
)

// FeaturesDescription returns an OpenAPI 3.0 description of a Features API with
// a single server. The items path declares limit, bbox and datetime with the
// contracts the validator expects.
func FeaturesDescription(serverURL string) string {
	return fmt.Sprintf(featuresDescriptionTemplate, serverURL)
}

const featuresDescriptionTemplate = `openapi: 3.0.3
info:
  title: Test Features API
  version: 1.0.0
servers:
  - url: %s
paths:
  /:
    get:
      operationId: getLandingPage
      responses:
        "200":
          description: landing page
  /conformance:
    get:
      operationId: getConformanceDeclaration
      responses:
        "200":
          description: conformance classes
  /collections:
    get:
      operationId: getCollections
      responses:
        "200":
          description: collections
  /collections/{collectionId}:
    get:
      operationId: describeCollection
      parameters:
        - name: collectionId
          in: path
          required: true
          schema:
            type: string
      responses:
        "200":
          description: collection
  /collections/{collectionId}/items:
    get:
      operationId: getFeatures
      parameters:
        - name: collectionId
          in: path
          required: true
          schema:
            type: string
        - name: limit
          in: query
          required: false
          style: form
          explode: false
          schema:
            type: integer
            minimum: 1
            maximum: 1000
            default: 10
        - name: bbox
          in: query
          required: false
          style: form
          explode: false
          schema:
            type: array
            minItems: 4
            maxItems: 6
            items:
              type: number
        - name: datetime
          in: query
          required: false
          style: form
          explode: false
          schema:
            type: string
      responses:
        "200":
          description: features
`

// ConformanceDocument returns a /conformance body listing classes
func ConformanceDocument(classes ...string) string {
	if classes == nil {
		classes = []string{}
	}
	return mustJSON(map[string]interface{}{"conformsTo": classes})
}

// FeatureCollectionPage returns a GeoJSON feature collection with n point
// features. A non-empty next adds a rel=next link.
func FeatureCollectionPage(self, next string, n, matched int) string {
	features := make([]interface{}, 0, n)
	for i := 0; i < n; i++ {
		features = append(features, pointFeature(fmt.Sprintf("f%d", i), float64(i), float64(i)))
	}
	links := []interface{}{link("self", "application/geo+json", self)}
	if next != "" {
		links = append(links, link("next", "application/geo+json", next))
	}
	return mustJSON(map[string]interface{}{
		"type":           "FeatureCollection",
		"features":       features,
		"numberReturned": n,
		"numberMatched":  matched,
		"links":          links,
	})
}

func pointFeature(id string, x, y float64) map[string]interface{} {
	return map[string]interface{}{
		"type": "Feature",
		"id":   id,
		"geometry": map[string]interface{}{
			"type":        "Point",
			"coordinates": []float64{x, y},
		},
		"properties": map[string]interface{}{},
	}
}

func link(rel, typ, href string) map[string]interface{} {
	return map[string]interface{}{"rel": rel, "type": typ, "href": href}
}

func mustJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}
