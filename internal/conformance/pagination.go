package conformance

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/brendan.keane/featcheck/internal/config"
	"github.com/brendan.keane/featcheck/internal/errors"
	featcheckhttp "github.com/brendan.keane/featcheck/internal/http"
	"github.com/brendan.keane/featcheck/internal/logger"
	"github.com/brendan.keane/featcheck/pkg/document"
	"github.com/rs/zerolog"
)

// DefaultMaxHops bounds the next-link walk when no bound is configured.
const DefaultMaxHops = config.DefaultMaxHops

// Page is one decoded feature collection response.
type Page struct {
	URI            string
	Features       int
	NumberReturned *int
	NumberMatched  *int
	TimeStamp      *time.Time
	Links          []Link
}

// ParsePage reads the members of a feature collection the checks rely on.
// features is required; numberReturned, numberMatched and timeStamp are
// optional but must have the right type when present.
func ParsePage(uri string, body document.Value) (Page, error) {
	page := Page{URI: uri}

	features, err := body.GetArray("features")
	if err != nil {
		return Page{}, decodeError(err, uri)
	}
	page.Features = len(features)

	if page.NumberReturned, err = optionalInt(body, "numberReturned"); err != nil {
		return Page{}, decodeError(err, uri)
	}
	if page.NumberMatched, err = optionalInt(body, "numberMatched"); err != nil {
		return Page{}, decodeError(err, uri)
	}

	if v, ok := body.Lookup("timeStamp"); ok && !v.IsNull() {
		s, err := v.AsString()
		if err != nil {
			return Page{}, decodeError(err, uri)
		}
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return Page{}, decodeError(&document.DecodeError{Path: v.Path(), Expected: "RFC 3339 date-time", Actual: s}, uri)
		}
		page.TimeStamp = &ts
	}

	if page.Links, err = LinksOf(body); err != nil {
		return Page{}, decodeError(err, uri)
	}
	return page, nil
}

func optionalInt(body document.Value, key string) (*int, error) {
	v, ok := body.Lookup(key)
	if !ok || v.IsNull() {
		return nil, nil
	}
	n, err := v.AsInt()
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func decodeError(err error, uri string) error {
	return errors.Wrap(err, errors.ErrorTypeDecode, "malformed document").
		WithContext("url", uri)
}

// AggregateResult totals a next-link walk.
type AggregateResult struct {
	FeatureCount int `json:"featureCount"`
	PagesVisited int `json:"pagesVisited"`
}

// Paginator walks rel=next links through an executor.
type Paginator struct {
	executor featcheckhttp.Executor
	maxHops  int
	logger   zerolog.Logger
}

// NewPaginator creates a paginator. maxHops of zero or less uses DefaultMaxHops.
func NewPaginator(executor featcheckhttp.Executor, maxHops int, log zerolog.Logger) *Paginator {
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}
	return &Paginator{
		executor: executor,
		maxHops:  maxHops,
		logger:   logger.ForComponent(log, "paginator"),
	}
}

// Aggregate sums the features of initial and of every page reachable through
// rel=next. Following more than maxHops links, or a link back to a page already
// visited, ends the walk with a pagination_loop error.
func (p *Paginator) Aggregate(ctx context.Context, initial Page) (AggregateResult, error) {
	result := AggregateResult{}
	visited := map[string]bool{}
	hops := 0

	page := initial
	for {
		visited[normalizeURI(page.URI)] = true
		result.FeatureCount += page.Features
		result.PagesVisited++

		next, ok := FindLink(page.Links, "next", "")
		if !ok || next.Href == "" {
			break
		}

		target, err := resolveHref(page.URI, next.Href)
		if err != nil {
			return result, errors.Wrap(err, errors.ErrorTypeDecode, "invalid next link").
				WithContext("url", page.URI).
				WithContext("href", next.Href)
		}
		if visited[normalizeURI(target)] {
			return result, errors.Newf(errors.ErrorTypePaginationLoop,
				"next link of %s points back to already visited page %s", page.URI, target).
				WithContext("url", target).
				WithContext("pages_visited", result.PagesVisited)
		}
		if hops >= p.maxHops {
			return result, errors.Newf(errors.ErrorTypePaginationLoop,
				"still finding next links after %d hops", hops).
				WithContext("url", target).
				WithContext("max_hops", p.maxHops)
		}
		hops++

		pageLog := logger.ForPage(p.logger, target, hops)
		pageLog.Trace().Int("features_so_far", result.FeatureCount).Msg("following next link")

		page, err = p.fetch(ctx, target)
		if err != nil {
			pageLog.Debug().Err(err).Msg("next page could not be read")
			return result, err
		}
	}

	p.logger.Debug().
		Str("url", initial.URI).
		Int("features", result.FeatureCount).
		Int("pages", result.PagesVisited).
		Msg("pagination walk complete")

	return result, nil
}

func (p *Paginator) fetch(ctx context.Context, target string) (Page, error) {
	resp, err := p.executor.Issue(ctx, featcheckhttp.Request{
		Method:  http.MethodGet,
		URI:     target,
		Headers: map[string]string{"Accept": MediaTypeGeoJSON},
	})
	if err != nil {
		return Page{}, err
	}
	if err := resp.ExpectStatus(http.StatusOK); err != nil {
		return Page{}, err
	}
	body, err := resp.JSON()
	if err != nil {
		return Page{}, err
	}
	return ParsePage(resp.URI, body)
}

func resolveHref(base, href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(ref).String(), nil
}

// normalizeURI makes equivalent page URIs compare equal: query keys sorted
// and the fragment dropped.
func normalizeURI(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Fragment = ""
	u.RawQuery = u.Query().Encode()
	return u.String()
}
