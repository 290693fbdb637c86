package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/brendan.keane/featcheck/internal/errors"
	"github.com/brendan.keane/featcheck/internal/testutil"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("FEATCHECK_IUT", "")
	t.Setenv("FEATCHECK_OPENAPI", "")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func newFeaturesServer() *testutil.OGCServer {
	return testutil.NewOGCServer(
		testutil.FakeCollection{
			ID:       "lakes",
			Features: 14,
			BBox:     []float64{-10.5, 51.4, -5.4, 55.4},
			Interval: [2]interface{}{"2021-01-01T00:00:00Z", "2021-12-31T00:00:00Z"},
		},
	)
}

func TestExitCode(t *testing.T) {
	if got := exitCode(errors.New(errors.ErrorTypeViolation, "2 of 9 checks failed")); got != exitNonConformant {
		t.Errorf("exitCode(violation) = %d, want %d", got, exitNonConformant)
	}
	if got := exitCode(errors.New(errors.ErrorTypeConfig, "IUT URL is required")); got != exitError {
		t.Errorf("exitCode(config) = %d, want %d", got, exitError)
	}
}

func TestRun_JSONReport(t *testing.T) {
	srv := newFeaturesServer()
	defer srv.Close()

	out, err := execute(t, "run", srv.URL+"/", "-o", "json")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	var rep struct {
		IUT     string `json:"iut"`
		Summary struct {
			Total  int `json:"total"`
			Failed int `json:"failed"`
		} `json:"summary"`
	}
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if rep.IUT != srv.URL+"/" {
		t.Errorf("iut = %q", rep.IUT)
	}
	if rep.Summary.Total == 0 || rep.Summary.Failed != 0 {
		t.Errorf("summary = %+v", rep.Summary)
	}
}

func TestRun_NonConformant(t *testing.T) {
	srv := newFeaturesServer()
	defer srv.Close()
	srv.Tweak = func(path string, doc map[string]interface{}) {
		if path == "/collections" {
			delete(doc, "collections")
		}
	}

	_, err := execute(t, "run", "--iut", srv.URL+"/")
	if err == nil {
		t.Fatal("run should fail for a non-conformant server")
	}
	if exitCode(err) != exitNonConformant {
		t.Errorf("exitCode = %d, want %d (%v)", exitCode(err), exitNonConformant, err)
	}
}

func TestRun_MissingIUT(t *testing.T) {
	_, err := execute(t, "run")
	if err == nil {
		t.Fatal("run without IUT should fail")
	}
	if exitCode(err) != exitError {
		t.Errorf("exitCode = %d, want %d", exitCode(err), exitError)
	}
}

func TestPoints(t *testing.T) {
	srv := newFeaturesServer()
	defer srv.Close()

	out, err := execute(t, "points", srv.URL+"/", "--role", "items", "--collection", "lakes")
	if err != nil {
		t.Fatalf("points failed: %v", err)
	}
	if !strings.Contains(out, srv.URL+"/collections/lakes/items") {
		t.Errorf("points output missing items URL:\n%s", out)
	}
}

func TestCompletion(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			out, err := execute(t, "completion", shell)
			if err != nil {
				t.Fatalf("completion %s failed: %v", shell, err)
			}
			if !strings.Contains(out, "featcheck") {
				t.Errorf("completion script does not mention featcheck")
			}
		})
	}

	if _, err := execute(t, "completion", "tcsh"); err == nil {
		t.Error("unsupported shell should fail")
	}
}
