package openapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const featuresDescription = `openapi: 3.0.3
info:
  title: Buildings in Bonn
  version: 1.0.0
servers:
  - url: https://demo.example.com/bonn
  - url: /v2
paths:
  /collections:
    get:
      responses:
        '200':
          description: collections
  /collections/{collectionId}/items:
    parameters:
      - name: limit
        in: query
        schema:
          type: integer
          minimum: 1
          maximum: 1000
    get:
      parameters:
        - name: limit
          in: query
          required: true
          schema:
            type: integer
            maximum: 10
        - name: bbox
          in: query
          explode: false
          schema:
            type: array
            minItems: 4
            maxItems: 6
            items:
              type: number
      responses:
        '200':
          description: items
`

func newDescriptionServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api":
			w.Header().Set("Content-Type", "application/vnd.oai.openapi;version=3.0")
			w.Write([]byte(featuresDescription))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestParserLoadFromURL(t *testing.T) {
	server := newDescriptionServer(t)
	parser := NewParser()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := parser.LoadFromURL(ctx, server.URL+"/api"); err != nil {
		t.Fatalf("Failed to load API description from URL: %v", err)
	}

	info, err := parser.GetInfo()
	if err != nil {
		t.Fatalf("Failed to get info: %v", err)
	}
	if info.Title != "Buildings in Bonn" {
		t.Errorf("Expected title 'Buildings in Bonn', got '%s'", info.Title)
	}
	if parser.Source() != server.URL+"/api" {
		t.Errorf("Source() = %q", parser.Source())
	}

	servers, err := parser.GetServers()
	if err != nil {
		t.Fatalf("Failed to get servers: %v", err)
	}
	if len(servers) != 2 {
		t.Fatalf("Expected 2 servers, got %d", len(servers))
	}
	if servers[1].URL != "/v2" {
		t.Errorf("Expected relative server URL to be kept, got %q", servers[1].URL)
	}
}

func TestParserLoadFromURL_Status(t *testing.T) {
	server := newDescriptionServer(t)
	parser := NewParser()

	err := parser.LoadFromURL(context.Background(), server.URL+"/missing")
	if err == nil {
		t.Fatal("Expected error for 404 description")
	}
	if _, err := parser.Model(); err == nil {
		t.Error("Model() should fail when nothing was loaded")
	}
}

func TestParserNotLoaded(t *testing.T) {
	parser := NewParser()

	if _, err := parser.GetInfo(); err == nil {
		t.Error("GetInfo() expected error")
	}
	if _, err := parser.GetServers(); err == nil {
		t.Error("GetServers() expected error")
	}
	if _, ok := parser.PathItem("/collections"); ok {
		t.Error("PathItem() should report false")
	}
}

func TestLookupParameter(t *testing.T) {
	parser := NewParser()
	if err := parser.LoadFromBytes([]byte(featuresDescription)); err != nil {
		t.Fatalf("LoadFromBytes() error = %v", err)
	}

	item, ok := parser.PathItem("/collections/{collectionId}/items")
	if !ok {
		t.Fatal("items path not found")
	}

	tests := []struct {
		name      string
		param     string
		wantFound bool
		wantMax   float64
	}{
		{name: "path level shadows operation level", param: "limit", wantFound: true, wantMax: 1000},
		{name: "operation level only", param: "bbox", wantFound: true},
		{name: "absent", param: "datetime", wantFound: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			param, found := LookupParameter(item, tt.param)
			if found != tt.wantFound {
				t.Fatalf("LookupParameter(%q) found = %v, want %v", tt.param, found, tt.wantFound)
			}
			if !found {
				return
			}
			if param.Name != tt.param {
				t.Errorf("Name = %q", param.Name)
			}
			if tt.wantMax != 0 {
				schema := param.Schema.Schema()
				if schema.Maximum == nil || *schema.Maximum != tt.wantMax {
					t.Errorf("Maximum = %v, want %v", schema.Maximum, tt.wantMax)
				}
				if param.Required != nil && *param.Required {
					t.Error("path-level limit is not required; operation-level value leaked")
				}
			}
		})
	}

	if _, found := LookupParameter(nil, "limit"); found {
		t.Error("LookupParameter(nil) should report false")
	}
}
