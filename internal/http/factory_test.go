package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/brendan.keane/featcheck/internal/config"
	"github.com/rs/zerolog"
)

func TestClientFactory_CreateExecutor(t *testing.T) {
	var gotHeader, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Api-Key")
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/geo+json")
		w.Write([]byte(`{"type": "FeatureCollection", "features": []}`))
	}))
	defer server.Close()

	factory := NewClientFactory(zerolog.New(nil))

	tests := []struct {
		name   string
		config *config.Config
	}{
		{
			name: "headers from config",
			config: &config.Config{
				Headers: []string{"X-Api-Key: secret"},
				Timeout: 5 * time.Second,
			},
		},
		{
			name: "no timeout",
			config: &config.Config{
				Headers: []string{"X-Api-Key:secret"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executor := factory.CreateExecutor(tt.config)
			if executor == nil {
				t.Fatal("CreateExecutor() returned nil executor")
			}

			resp, err := executor.Issue(context.Background(), Request{
				URI:   server.URL + "/collections/a/items",
				Query: url.Values{"limit": []string{"5"}},
			})
			if err != nil {
				t.Fatalf("Issue() unexpected error: %v", err)
			}
			if resp.StatusCode != http.StatusOK {
				t.Errorf("status = %d, expected 200", resp.StatusCode)
			}
			if gotHeader != "secret" {
				t.Errorf("X-Api-Key = %q, expected %q", gotHeader, "secret")
			}
			if gotQuery != "limit=5" {
				t.Errorf("query = %q, expected %q", gotQuery, "limit=5")
			}
		})
	}
}

func TestParseHeaders(t *testing.T) {
	headers := ParseHeaders([]string{"Accept: application/json", "X-Empty", " : ignored", "X-Colon: a:b"})

	expected := map[string]string{
		"Accept":  "application/json",
		"X-Empty": "",
		"X-Colon": "a:b",
	}
	if len(headers) != len(expected) {
		t.Fatalf("ParseHeaders() = %v, expected %v", headers, expected)
	}
	for name, value := range expected {
		if headers[name] != value {
			t.Errorf("ParseHeaders()[%q] = %q, expected %q", name, headers[name], value)
		}
	}
}

func TestApplyQueryParameters(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		query    url.Values
		expected string
	}{
		{
			name:     "no query",
			target:   "https://api.example.com/items",
			expected: "https://api.example.com/items",
		},
		{
			name:     "bbox commas stay literal",
			target:   "https://api.example.com/items",
			query:    url.Values{"bbox": []string{"-1.5,50,1.5,53"}},
			expected: "https://api.example.com/items?bbox=-1.5,50,1.5,53",
		},
		{
			name:     "time interval stays literal",
			target:   "https://api.example.com/items",
			query:    url.Values{"time": []string{"2020-01-01T00:00:00Z/P30DT0H0M0S"}},
			expected: "https://api.example.com/items?time=2020-01-01T00:00:00Z/P30DT0H0M0S",
		},
		{
			name:     "replaces an existing value",
			target:   "https://api.example.com/items?limit=10&f=json",
			query:    url.Values{"limit": []string{"2"}},
			expected: "https://api.example.com/items?f=json&limit=2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyQueryParameters(tt.target, tt.query)
			if err != nil {
				t.Fatalf("ApplyQueryParameters() unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("ApplyQueryParameters() = %s, expected %s", got, tt.expected)
			}
		})
	}
}
