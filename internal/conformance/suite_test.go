package conformance

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/brendan.keane/featcheck/internal/errors"
	featcheckhttp "github.com/brendan.keane/featcheck/internal/http"
	"github.com/brendan.keane/featcheck/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reference = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func fakeCollections() []testutil.FakeCollection {
	return []testutil.FakeCollection{
		{
			ID:       "buildings",
			Features: 25,
			BBox:     []float64{7.0, 50.6, 7.2, 50.8},
			Interval: [2]interface{}{"2020-01-01T00:00:00Z", nil},
		},
		{
			ID:       "roads",
			Features: 3,
			Interval: [2]interface{}{"2019-01-01T00:00:00Z", "2019-12-31T00:00:00Z"},
		},
	}
}

func runAgainst(t *testing.T, srv *testutil.OGCServer, opts Options) ([]Outcome, *Snapshot) {
	t.Helper()
	doc := loadDescription(t, testutil.FeaturesDescription(srv.URL))
	exec := featcheckhttp.NewExecutorWithDependencies(zerolog.Nop(), srv.Client())
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return reference }
	}

	outcomes, snap, err := NewRunner(exec, opts, zerolog.Nop()).RunAll(context.Background(), doc, mustURL(t, srv.URL+"/"))
	require.NoError(t, err)
	return outcomes, snap
}

func outcomesFor(outcomes []Outcome, check string) []Outcome {
	var found []Outcome
	for _, o := range outcomes {
		if o.Check == check {
			found = append(found, o)
		}
	}
	return found
}

func failures(outcomes []Outcome) []Outcome {
	var failed []Outcome
	for _, o := range outcomes {
		if o.Status == StatusFail {
			failed = append(failed, o)
		}
	}
	return failed
}

func TestRunAll_ConformingServer(t *testing.T) {
	srv := testutil.NewOGCServer(fakeCollections()...)
	defer srv.Close()

	outcomes, snap := runAgainst(t, srv, Options{})

	assert.Empty(t, failures(outcomes))
	assert.Len(t, snap.Collections, 2)
	assert.Contains(t, snap.ConformanceClasses, testutil.ConformanceGeoJSON)

	for _, check := range []string{
		CheckCollectionsOperation, CheckCollectionsLinks, CheckCollectionsCollections,
		CheckCollectionItemLinks, CheckCollectionExtent, CheckCollectionMetadata,
		CheckItemsOperation, CheckItemsLinks, CheckItemsTimeStamp, CheckItemsNumberReturned,
		CheckItemsNumberMatched, CheckLimitParameter, CheckLimitRequest, CheckBBoxParameter,
		CheckBBoxRequest, CheckTimeParameter, CheckTimeRequest,
	} {
		assert.NotEmpty(t, outcomesFor(outcomes, check), check)
	}

	// two limits, six boxes and three time values for buildings
	assert.Len(t, outcomesFor(outcomes, CheckLimitRequest), 4)
	assert.Len(t, outcomesFor(outcomes, CheckBBoxRequest), 7)
	assert.Len(t, outcomesFor(outcomes, CheckTimeRequest), 6)

	bboxRoads := outcomesFor(outcomes, CheckBBoxRequest)[6]
	assert.Equal(t, StatusSkip, bboxRoads.Status)
	assert.Equal(t, "roads", bboxRoads.Subject)
}

func TestRun_MissingAlternateLink(t *testing.T) {
	srv := testutil.NewOGCServer(fakeCollections()...)
	defer srv.Close()
	srv.Classes = append(srv.Classes, testutil.ConformanceHTML)
	srv.Tweak = func(path string, doc map[string]interface{}) {
		if path == "/collections" {
			doc["links"] = doc["links"].([]interface{})[:1]
		}
	}

	outcomes, _ := runAgainst(t, srv, Options{})

	failed := failures(outcomes)
	require.Len(t, failed, 1)
	assert.Equal(t, CheckCollectionsLinks, failed[0].Check)
	assert.Equal(t, []string{"no link with rel=alternate and type text/html"}, failed[0].Violations)
}

func TestRun_CollectionDocumentDiffers(t *testing.T) {
	srv := testutil.NewOGCServer(fakeCollections()...)
	defer srv.Close()
	srv.Tweak = func(path string, doc map[string]interface{}) {
		if path == "/collections/roads" {
			doc["title"] = "Something else"
		}
	}

	outcomes, _ := runAgainst(t, srv, Options{})

	failed := failures(outcomes)
	require.Len(t, failed, 1)
	assert.Equal(t, CheckCollectionMetadata, failed[0].Check)
	assert.Equal(t, "roads", failed[0].Subject)
}

func TestRun_WrongCounts(t *testing.T) {
	srv := testutil.NewOGCServer(fakeCollections()...)
	defer srv.Close()
	srv.Tweak = func(path string, doc map[string]interface{}) {
		if path == "/collections/roads/items" {
			doc["numberMatched"] = 99
			doc["numberReturned"] = 0
		}
	}

	outcomes, _ := runAgainst(t, srv, Options{})

	for _, check := range []string{CheckItemsNumberMatched, CheckItemsNumberReturned} {
		found := outcomesFor(outcomes, check)
		require.Len(t, found, 2, check)
		assert.Equal(t, StatusPass, found[0].Status, check)
		assert.Equal(t, StatusFail, found[1].Status, check)
	}

	for _, o := range outcomesFor(outcomes, CheckTimeRequest) {
		if o.Status == StatusFail {
			assert.Contains(t, o.Subject, "roads")
			assert.Len(t, o.Violations, 1)
		}
	}
}

func TestRun_CollectionLimit(t *testing.T) {
	srv := testutil.NewOGCServer(fakeCollections()...)
	defer srv.Close()

	outcomes, snap := runAgainst(t, srv, Options{CollectionLimit: 1})

	require.Len(t, snap.Collections, 1)
	assert.Equal(t, "buildings", snap.Collections[0].Name())
	assert.Len(t, outcomesFor(outcomes, CheckItemsOperation), 1)
}

func TestRun_NoCollectionsPath(t *testing.T) {
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
	exec := testutil.NewScriptedExecutor().
		On("https://example.org/conformance", 200, testutil.ConformanceDocument(testutil.ConformanceCore))

	outcomes, snap, err := NewRunner(exec, Options{}, zerolog.Nop()).RunAll(context.Background(), doc, mustURL(t, "https://example.org/"))
	require.NoError(t, err)

	assert.Empty(t, snap.Collections)
	assert.Equal(t, Summary{Total: 6, Skipped: 6}, Summarize(outcomes))
}

func TestRun_CollectionsNotFound(t *testing.T) {
	srv := testutil.NewOGCServer()
	defer srv.Close()
	doc := loadDescription(t, testutil.FeaturesDescription(srv.URL+"/missing"))
	exec := featcheckhttp.NewExecutorWithDependencies(zerolog.Nop(), srv.Client())

	outcomes, _, err := NewRunner(exec, Options{}, zerolog.Nop()).RunAll(context.Background(), doc, mustURL(t, srv.URL))
	require.NoError(t, err)

	op := outcomesFor(outcomes, CheckCollectionsOperation)
	require.Len(t, op, 1)
	assert.Equal(t, StatusFail, op[0].Status)
	assert.Equal(t, "transport", op[0].ErrorType)
	assert.Equal(t, StatusSkip, outcomesFor(outcomes, CheckCollectionsLinks)[0].Status)
}

func TestDiscover_Unreachable(t *testing.T) {
	srv := testutil.NewOGCServer(fakeCollections()...)
	doc := loadDescription(t, testutil.FeaturesDescription(srv.URL))
	exec := featcheckhttp.NewExecutorWithDependencies(zerolog.Nop(), srv.Client())
	srv.Close()

	_, err := NewRunner(exec, Options{}, zerolog.Nop()).Discover(context.Background(), doc, mustURL(t, srv.URL))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	assert.Contains(t, err.Error(), "IUT unreachable")
}

func TestDiscover_RelativeIUT(t *testing.T) {
	doc := loadDescription(t, testutil.FeaturesDescription("https://example.org"))

	_, err := NewRunner(testutil.NewScriptedExecutor(), Options{}, zerolog.Nop()).Discover(context.Background(), doc, mustURL(t, "/ogc"))
	require.Error(t, err)
	assert.Equal(t, "iut", errors.GetContext(err)["config_type"])
}

func TestRun_LogsItemsTestPoints(t *testing.T) {
	srv := testutil.NewOGCServer(fakeCollections()...)
	defer srv.Close()

	doc := loadDescription(t, testutil.FeaturesDescription(srv.URL))
	exec := featcheckhttp.NewExecutorWithDependencies(zerolog.Nop(), srv.Client())
	opts := Options{Clock: func() time.Time { return reference }}

	var logs bytes.Buffer
	_, _, err := NewRunner(exec, opts, zerolog.New(&logs)).RunAll(context.Background(), doc, mustURL(t, srv.URL+"/"))
	require.NoError(t, err)

	assert.Contains(t, logs.String(), `"path":"/collections/buildings/items"`)
	assert.Contains(t, logs.String(), `"path":"/collections/roads/items"`)
	assert.Contains(t, logs.String(), `"message":"fetching items"`)
}
