package conformance

import (
	"bytes"
	"context"
	"testing"

	"github.com/brendan.keane/featcheck/internal/config"
	"github.com/brendan.keane/featcheck/internal/errors"
	"github.com/brendan.keane/featcheck/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const itemsURL = "https://example.org/collections/a/items"

func firstPage(t *testing.T, body string) Page {
	t.Helper()
	page, err := ParsePage(itemsURL, mustDecode(t, body))
	require.NoError(t, err)
	return page
}

func TestParsePage(t *testing.T) {
	page := firstPage(t, `{
		"type": "FeatureCollection",
		"features": [{}, {}],
		"numberReturned": 2,
		"numberMatched": 7,
		"timeStamp": "2024-03-01T10:00:00.5Z",
		"links": [{"rel":"next","href":"?offset=2"}]
	}`)

	assert.Equal(t, 2, page.Features)
	require.NotNil(t, page.NumberReturned)
	assert.Equal(t, 2, *page.NumberReturned)
	require.NotNil(t, page.NumberMatched)
	assert.Equal(t, 7, *page.NumberMatched)
	require.NotNil(t, page.TimeStamp)
	assert.Equal(t, 500, page.TimeStamp.Nanosecond()/1e6)
	assert.Len(t, page.Links, 1)
}

func TestParsePage_Errors(t *testing.T) {
	tests := map[string]string{
		"missing features":     `{"type":"FeatureCollection"}`,
		"non-integer count":    `{"features":[],"numberReturned":"two"}`,
		"fractional count":     `{"features":[],"numberMatched":1.5}`,
		"timestamp not a date": `{"features":[],"timeStamp":"now"}`,
		"links not an array":   `{"features":[],"links":{}}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePage(itemsURL, mustDecode(t, body))
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeDecode))
			assert.Equal(t, itemsURL, errors.GetContext(err)["url"])
		})
	}
}

func TestAggregate_FollowsNextLinks(t *testing.T) {
	exec := testutil.NewScriptedExecutor().
		On(itemsURL+"?offset=10", 200, testutil.FeatureCollectionPage(itemsURL+"?offset=10", itemsURL+"?offset=20", 10, 25)).
		On(itemsURL+"?offset=20", 200, testutil.FeatureCollectionPage(itemsURL+"?offset=20", "", 5, 25))

	initial := firstPage(t, testutil.FeatureCollectionPage(itemsURL, itemsURL+"?offset=10", 10, 25))

	result, err := NewPaginator(exec, 0, zerolog.Nop()).Aggregate(context.Background(), initial)
	require.NoError(t, err)
	assert.Equal(t, AggregateResult{FeatureCount: 25, PagesVisited: 3}, result)

	requests := exec.Requests()
	require.Len(t, requests, 2)
	assert.Equal(t, "application/geo+json", requests[0].Headers["Accept"])
}

func TestAggregate_RelativeNextLink(t *testing.T) {
	exec := testutil.NewScriptedExecutor().
		On(itemsURL+"?offset=1", 200, testutil.FeatureCollectionPage(itemsURL+"?offset=1", "", 1, 2))

	initial := firstPage(t, `{"features":[{}],"links":[{"rel":"next","href":"items?offset=1"}]}`)
	result, err := NewPaginator(exec, 0, zerolog.Nop()).Aggregate(context.Background(), initial)
	require.NoError(t, err)
	assert.Equal(t, 2, result.FeatureCount)
}

func TestAggregate_DetectsLoop(t *testing.T) {
	exec := testutil.NewScriptedExecutor().
		On(itemsURL+"?offset=10", 200, testutil.FeatureCollectionPage(itemsURL+"?offset=10", itemsURL, 10, 25))

	initial := firstPage(t, testutil.FeatureCollectionPage(itemsURL, itemsURL+"?offset=10", 10, 25))

	_, err := NewPaginator(exec, 0, zerolog.Nop()).Aggregate(context.Background(), initial)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypePaginationLoop))
	assert.Len(t, exec.Requests(), 1)
}

func TestAggregate_HopBound(t *testing.T) {
	exec := testutil.NewScriptedExecutor().
		On(itemsURL+"?offset=1", 200, testutil.FeatureCollectionPage(itemsURL+"?offset=1", itemsURL+"?offset=2", 1, 9)).
		On(itemsURL+"?offset=2", 200, testutil.FeatureCollectionPage(itemsURL+"?offset=2", itemsURL+"?offset=3", 1, 9))

	initial := firstPage(t, testutil.FeatureCollectionPage(itemsURL, itemsURL+"?offset=1", 1, 9))

	_, err := NewPaginator(exec, 2, zerolog.Nop()).Aggregate(context.Background(), initial)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypePaginationLoop))
	assert.Equal(t, 2, errors.GetContext(err)["max_hops"])
}

func TestAggregate_FailedPage(t *testing.T) {
	exec := testutil.NewScriptedExecutor().
		On(itemsURL+"?offset=10", 500, `{"code":"boom"}`)

	initial := firstPage(t, testutil.FeatureCollectionPage(itemsURL, itemsURL+"?offset=10", 10, 25))

	_, err := NewPaginator(exec, 0, zerolog.Nop()).Aggregate(context.Background(), initial)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTransport))
	assert.Equal(t, 500, errors.GetContext(err)["status"])
}

func TestNormalizeURI(t *testing.T) {
	assert.Equal(t, normalizeURI("https://example.org/items?b=2&a=1#top"), normalizeURI("https://example.org/items?a=1&b=2"))
	assert.NotEqual(t, normalizeURI("https://example.org/items?a=1"), normalizeURI("https://example.org/items?a=2"))
}

func TestAggregate_NetworkFailure(t *testing.T) {
	exec := testutil.NewScriptedExecutor().
		Fail(itemsURL+"?offset=10", "connection reset by peer")

	initial := firstPage(t, testutil.FeatureCollectionPage(itemsURL, itemsURL+"?offset=10", 10, 25))

	var logs bytes.Buffer
	_, err := NewPaginator(exec, 0, zerolog.New(&logs)).Aggregate(context.Background(), initial)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTransport))
	assert.Contains(t, err.Error(), "connection reset by peer")

	assert.Contains(t, logs.String(), `"page":"`+itemsURL+`?offset=10"`)
	assert.Contains(t, logs.String(), `"hop":1`)
}

func TestNewPaginator_DefaultBound(t *testing.T) {
	exec := testutil.NewScriptedExecutor()

	assert.Equal(t, config.DefaultMaxHops, NewPaginator(exec, 0, zerolog.Nop()).maxHops)
	assert.Equal(t, config.DefaultMaxHops, NewPaginator(exec, -3, zerolog.Nop()).maxHops)
	assert.Equal(t, 7, NewPaginator(exec, 7, zerolog.Nop()).maxHops)
}
