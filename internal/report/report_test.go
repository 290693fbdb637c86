package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/brendan.keane/featcheck/internal/conformance"
)

func sampleOutcomes() []conformance.Outcome {
	return []conformance.Outcome{
		{Check: "collections.operation", Requirement: "A.4.4.4", Subject: "https://example.org/collections", Status: conformance.StatusPass},
		{
			Check:      "collections.links",
			Subject:    "https://example.org/collections",
			Status:     conformance.StatusFail,
			Message:    "links of the collections document: 1 violation(s)",
			Violations: []string{"no link with rel=alternate and type text/html"},
			ErrorType:  "violation",
		},
		{Check: "collection.extent", Subject: "roads", Status: conformance.StatusSkip, Message: "collection roads declares no extent", ErrorType: "skip"},
	}
}

func TestNew(t *testing.T) {
	r := New("https://example.org", "", nil, sampleOutcomes())

	if r.Summary.Total != 3 || r.Summary.Passed != 1 || r.Summary.Failed != 1 || r.Summary.Skipped != 1 {
		t.Errorf("unexpected summary %+v", r.Summary)
	}
	if r.Passed() {
		t.Error("report with a failure should not pass")
	}
	if r.ConformanceClasses == nil {
		t.Error("conformance classes should be an empty list, not nil")
	}

	empty := New("https://example.org", "", nil, nil)
	if !empty.Passed() {
		t.Error("empty report should pass")
	}
}

func TestRender_JSON(t *testing.T) {
	var buf bytes.Buffer
	r := New("https://example.org", "https://example.org/api", []string{"core"}, sampleOutcomes())
	if err := Render(&buf, FormatJSON, r); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	summary, ok := decoded["summary"].(map[string]interface{})
	if !ok {
		t.Fatalf("summary missing from %s", buf.String())
	}
	if summary["failed"] != float64(1) {
		t.Errorf("summary.failed = %v, want 1", summary["failed"])
	}
	outcomes := decoded["outcomes"].([]interface{})
	if len(outcomes) != 3 {
		t.Errorf("got %d outcomes, want 3", len(outcomes))
	}
	if decoded["description"] != "https://example.org/api" {
		t.Errorf("description = %v", decoded["description"])
	}
}

func TestRender_Pretty(t *testing.T) {
	var buf bytes.Buffer
	r := New("https://example.org", "", nil, sampleOutcomes())
	if err := Render(&buf, FormatPretty, r); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"https://example.org",
		"PASS", "FAIL", "SKIP",
		"collections.links",
		"- no link with rel=alternate and type text/html",
		"collection roads declares no extent",
		"3 checks: 1 passed, 1 failed, 1 skipped",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("pretty output missing %q:\n%s", want, out)
		}
	}
}

func TestRender_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, "xml", New("https://example.org", "", nil, nil)); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestRenderPoints(t *testing.T) {
	points := []conformance.TestPoint{{
		ServerURL:    "https://example.org/",
		PathTemplate: "/collections/{collectionId}/items",
		ResolvedPath: "/collections/a/items",
		CollectionID: "a",
	}}

	var buf bytes.Buffer
	if err := RenderPoints(&buf, FormatPretty, points); err != nil {
		t.Fatalf("RenderPoints() error = %v", err)
	}
	if !strings.Contains(buf.String(), "https://example.org/collections/a/items") {
		t.Errorf("pretty points missing URL: %s", buf.String())
	}

	buf.Reset()
	if err := RenderPoints(&buf, FormatJSON, nil); err != nil {
		t.Fatalf("RenderPoints() error = %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("empty points should render as [], got %q", buf.String())
	}
}
