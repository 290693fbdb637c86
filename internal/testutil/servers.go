package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// FakeCollection describes one collection served by OGCServer
type FakeCollection struct {
	ID       string
	Features int
	BBox     []float64
	Interval [2]interface{}
}

// OGCServer is an in-process Features API that follows the rules the
// validator checks. Tweak lets a test break a document before it is written.
type OGCServer struct {
	*httptest.Server

	Collections []FakeCollection
	Classes     []string
	PageSize    int

	// Tweak receives the request path and the decoded document
	Tweak func(path string, doc map[string]interface{})

	mu       sync.Mutex
	requests []*http.Request
}

// NewOGCServer starts a fake Features API with the given collections. It
// advertises core, geojson and oas30 and pages items ten at a time.
func NewOGCServer(collections ...FakeCollection) *OGCServer {
	s := &OGCServer{
		Collections: collections,
		Classes:     []string{ConformanceCore, ConformanceGeoJSON, ConformanceOAS30},
		PageSize:    10,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api", func(w http.ResponseWriter, r *http.Request) {
		s.record(r)
		w.Header().Set("Content-Type", "application/vnd.oai.openapi;version=3.0")
		w.Write([]byte(FeaturesDescription(s.URL)))
	})
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		s.record(r)
		s.writeJSON(w, r, map[string]interface{}{
			"title": "Test Features API",
			"links": []interface{}{
				link("self", "application/json", s.URL+"/"),
				link("service-desc", "application/vnd.oai.openapi;version=3.0", s.URL+"/api"),
				link("conformance", "application/json", s.URL+"/conformance"),
				link("data", "application/json", s.URL+"/collections"),
			},
		})
	})
	mux.HandleFunc("GET /conformance", func(w http.ResponseWriter, r *http.Request) {
		s.record(r)
		s.writeJSON(w, r, map[string]interface{}{"conformsTo": s.Classes})
	})
	mux.HandleFunc("GET /collections", func(w http.ResponseWriter, r *http.Request) {
		s.record(r)
		entries := make([]interface{}, 0, len(s.Collections))
		for _, c := range s.Collections {
			entries = append(entries, s.collectionDocument(c))
		}
		s.writeJSON(w, r, map[string]interface{}{
			"links":       s.selfLinks("/collections", "application/json"),
			"collections": entries,
		})
	})
	mux.HandleFunc("GET /collections/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.record(r)
		c, ok := s.find(r.PathValue("id"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		s.writeJSON(w, r, s.collectionDocument(c))
	})
	mux.HandleFunc("GET /collections/{id}/items", func(w http.ResponseWriter, r *http.Request) {
		s.record(r)
		c, ok := s.find(r.PathValue("id"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		s.writeItems(w, r, c)
	})

	s.Server = httptest.NewServer(mux)
	return s
}

// Requests returns every request received so far
func (s *OGCServer) Requests() []*http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*http.Request(nil), s.requests...)
}

func (s *OGCServer) record(r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, r)
}

func (s *OGCServer) find(id string) (FakeCollection, bool) {
	for _, c := range s.Collections {
		if c.ID == id {
			return c, true
		}
	}
	return FakeCollection{}, false
}

func (s *OGCServer) hasClass(class string) bool {
	for _, c := range s.Classes {
		if c == class {
			return true
		}
	}
	return false
}

func (s *OGCServer) selfLinks(path, selfType string) []interface{} {
	links := []interface{}{link("self", selfType, s.URL+path)}
	if s.hasClass(ConformanceHTML) {
		links = append(links, link("alternate", "text/html", s.URL+path+"?f=html"))
	}
	return links
}

func (s *OGCServer) collectionDocument(c FakeCollection) map[string]interface{} {
	itemsURL := s.URL + "/collections/" + c.ID + "/items"
	links := []interface{}{
		link("self", "application/json", s.URL+"/collections/"+c.ID),
		link("items", "application/geo+json", itemsURL),
	}
	if s.hasClass(ConformanceHTML) {
		links = append(links, link("items", "text/html", itemsURL+"?f=html"))
	}

	doc := map[string]interface{}{
		"id":    c.ID,
		"title": "Collection " + c.ID,
		"links": links,
	}

	extent := map[string]interface{}{}
	if c.BBox != nil {
		extent["spatial"] = map[string]interface{}{"bbox": []interface{}{c.BBox}}
	}
	if c.Interval[0] != nil || c.Interval[1] != nil {
		extent["temporal"] = map[string]interface{}{"interval": []interface{}{c.Interval[:]}}
	}
	if len(extent) > 0 {
		doc["extent"] = extent
	}
	return doc
}

func (s *OGCServer) writeItems(w http.ResponseWriter, r *http.Request, c FakeCollection) {
	query := r.URL.Query()
	limit := s.PageSize
	if v := query.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, 1000)
	}
	offset, _ := strconv.Atoi(query.Get("offset"))

	end := min(offset+limit, c.Features)
	features := make([]interface{}, 0, max(end-offset, 0))
	for i := offset; i < end; i++ {
		features = append(features, pointFeature(fmt.Sprintf("%s.%d", c.ID, i), 0, 0))
	}

	base := s.URL + "/collections/" + c.ID + "/items"
	links := s.selfLinks(fmt.Sprintf("/collections/%s/items?limit=%d&offset=%d", c.ID, limit, offset), "application/geo+json")
	if end < c.Features {
		links = append(links, link("next", "application/geo+json",
			fmt.Sprintf("%s?limit=%d&offset=%d", base, limit, end)))
	}

	s.writeJSON(w, r, map[string]interface{}{
		"type":           "FeatureCollection",
		"features":       features,
		"numberMatched":  c.Features,
		"numberReturned": len(features),
		"timeStamp":      time.Now().UTC().Format(time.RFC3339Nano),
		"links":          links,
	})
}

func (s *OGCServer) writeJSON(w http.ResponseWriter, r *http.Request, doc map[string]interface{}) {
	if s.Tweak != nil {
		s.Tweak(r.URL.Path, doc)
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// NewDescriptionServer serves only an API description at /api
func NewDescriptionServer(description string) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/api", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.Write([]byte(description))
	})
	return httptest.NewServer(mux)
}
