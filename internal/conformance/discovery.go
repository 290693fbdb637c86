package conformance

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/brendan.keane/featcheck/internal/errors"
	featcheckhttp "github.com/brendan.keane/featcheck/internal/http"
	"github.com/brendan.keane/featcheck/internal/logger"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
	"github.com/rs/zerolog"
)

// Options configures a Runner.
type Options struct {
	// CollectionLimit caps the collections under test, zero tests all
	CollectionLimit int
	MaxHops         int
	MatchMode       MatchMode
	// Clock supplies the reference instant for open temporal extents
	Clock func() time.Time
}

// Fetch is the observed result of requesting one test point.
type Fetch struct {
	Point    TestPoint
	Response *featcheckhttp.Response
	Err      error
}

// Snapshot is everything discovery learned about the IUT. It is built once and
// only read afterwards.
type Snapshot struct {
	IUT                *url.URL
	Model              *v3.Document
	ConformanceClasses []string
	CollectionsPoints  []TestPoint
	Fetches            map[string]Fetch
	Collections        []Collection
	// CollectionsErr is set when no /collections response yielded a collection list
	CollectionsErr error
}

// Runner discovers and validates one IUT.
type Runner struct {
	executor  featcheckhttp.Executor
	resolver  *Resolver
	paginator *Paginator
	checker   *InvariantChecker
	opts      Options
	logger    zerolog.Logger
}

func NewRunner(executor featcheckhttp.Executor, opts Options, log zerolog.Logger) *Runner {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.MatchMode == "" {
		opts.MatchMode = MatchStrict
	}
	paginator := NewPaginator(executor, opts.MaxHops, log)
	return &Runner{
		executor:  executor,
		resolver:  NewResolver(log, WithMaxCollections(opts.CollectionLimit)),
		paginator: paginator,
		checker:   NewInvariantChecker(paginator, opts.MatchMode),
		opts:      opts,
		logger:    logger.ForComponent(log, "runner"),
	}
}

// Resolver exposes the runner's test point resolver.
func (r *Runner) Resolver() *Resolver {
	return r.resolver
}

// Discover resolves the /collections test points, fetches each of them once,
// reads the advertised conformance classes and captures the collections. It
// fails with a config error when the description declares no servers or when
// no request reached the IUT at all.
func (r *Runner) Discover(ctx context.Context, doc *v3.Document, iut *url.URL) (*Snapshot, error) {
	if iut == nil || !iut.IsAbs() {
		return nil, errors.New(errors.ErrorTypeConfig, "IUT must be an absolute URL").
			WithContext("config_type", "iut")
	}
	points, err := r.resolver.Resolve(doc, iut, RoleAllCollectionsMetadata, "")
	if err != nil {
		return nil, err
	}
	servers, err := ServerURLs(doc, iut)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		IUT:               iut,
		Model:             doc,
		CollectionsPoints: points,
		Fetches:           make(map[string]Fetch, len(points)),
	}

	attempts, failures := 0, 0

	classes, err := r.conformanceClasses(ctx, servers[0])
	attempts++
	if err != nil {
		if isNetworkFailure(err) {
			failures++
		}
		r.logger.Warn().Err(err).Msg("could not read conformance classes")
	}
	snap.ConformanceClasses = classes

	for _, tp := range points {
		if _, done := snap.Fetches[tp.Key()]; done {
			continue
		}
		resp, err := r.executor.Issue(ctx, featcheckhttp.Request{
			Method:  http.MethodGet,
			URI:     tp.URL(),
			Headers: map[string]string{"Accept": MediaTypeJSON},
		})
		attempts++
		if err != nil && isNetworkFailure(err) {
			failures++
		}
		snap.Fetches[tp.Key()] = Fetch{Point: tp, Response: resp, Err: err}

		if snap.Collections == nil && err == nil && resp.StatusCode == http.StatusOK {
			body, jsonErr := resp.JSON()
			if jsonErr != nil {
				snap.CollectionsErr = jsonErr
				continue
			}
			collections, parseErr := ParseCollections(body, r.opts.CollectionLimit)
			if parseErr != nil {
				snap.CollectionsErr = errors.Wrap(parseErr, errors.ErrorTypeDecode, "malformed collections document").
					WithContext("url", resp.URI)
				continue
			}
			snap.Collections = collections
			snap.CollectionsErr = nil
		}
	}

	if attempts > 0 && failures == attempts {
		return nil, errors.New(errors.ErrorTypeConfig, "IUT unreachable").
			WithContext("config_type", "iut").
			WithContext("url", iut.String())
	}

	r.logger.Info().
		Int("test_points", len(points)).
		Int("collections", len(snap.Collections)).
		Strs("conformance_classes", snap.ConformanceClasses).
		Msg("discovery complete")

	return snap, nil
}

func (r *Runner) conformanceClasses(ctx context.Context, server string) ([]string, error) {
	resp, err := r.executor.Issue(ctx, featcheckhttp.Request{
		Method:  http.MethodGet,
		URI:     server + "/conformance",
		Headers: map[string]string{"Accept": MediaTypeJSON},
	})
	if err != nil {
		return []string{}, err
	}
	if err := resp.ExpectStatus(http.StatusOK); err != nil {
		return []string{}, err
	}
	body, err := resp.JSON()
	if err != nil {
		return []string{}, err
	}
	values, err := body.GetArray("conformsTo")
	if err != nil {
		return []string{}, errors.Wrap(err, errors.ErrorTypeDecode, "malformed conformance document")
	}
	classes := make([]string, 0, len(values))
	for _, v := range values {
		if s, err := v.AsString(); err == nil {
			classes = append(classes, s)
		}
	}
	return classes, nil
}

// isNetworkFailure reports an executor error that never produced a response
func isNetworkFailure(err error) bool {
	return errors.IsType(err, errors.ErrorTypeTransport) && errors.GetContext(err)["status"] == nil
}
