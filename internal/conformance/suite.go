package conformance

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/brendan.keane/featcheck/internal/errors"
	featcheckhttp "github.com/brendan.keane/featcheck/internal/http"
	"github.com/brendan.keane/featcheck/internal/logger"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
)

// Check identifiers reported in outcomes
const (
	CheckCollectionsOperation   = "collections.operation"
	CheckCollectionsLinks       = "collections.links"
	CheckCollectionsCollections = "collections.collections"
	CheckCollectionItemLinks    = "collection.item-links"
	CheckCollectionExtent       = "collection.extent"
	CheckCollectionMetadata     = "collection.metadata"
	CheckItemsOperation         = "items.operation"
	CheckItemsLinks             = "items.links"
	CheckItemsTimeStamp         = "items.timestamp"
	CheckItemsNumberReturned    = "items.number-returned"
	CheckItemsNumberMatched     = "items.number-matched"
	CheckLimitParameter         = "parameter.limit"
	CheckLimitRequest           = "parameter.limit.request"
	CheckBBoxParameter          = "parameter.bbox"
	CheckBBoxRequest            = "parameter.bbox.request"
	CheckTimeParameter          = "parameter.time"
	CheckTimeRequest            = "parameter.time.request"
)

// itemsFetch is the items response of one collection. The table of these is
// built once and passed to the later phases.
type itemsFetch struct {
	collection Collection
	model      *v3.Document
	url        string
	point      *TestPoint
	page       Page
	response   *featcheckhttp.Response
	err        error
}

// Run validates a discovery snapshot and returns one outcome per check and
// subject. Failures of one unit never stop the others.
func (r *Runner) Run(ctx context.Context, snap *Snapshot) []Outcome {
	var outcomes []Outcome

	outcomes = append(outcomes, r.checkCollections(snap)...)
	outcomes = append(outcomes, r.checkCollectionMetadata(ctx, snap)...)

	items, itemOutcomes := r.fetchItems(ctx, snap)
	outcomes = append(outcomes, itemOutcomes...)
	outcomes = append(outcomes, r.checkItems(ctx, snap, items)...)
	outcomes = append(outcomes, r.checkParameterContracts(snap, items)...)
	outcomes = append(outcomes, r.checkParameterRequests(ctx, items)...)

	summary := Summarize(outcomes)
	r.logger.Info().
		Int("passed", summary.Passed).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Msg("validation complete")

	return outcomes
}

// RunAll discovers the IUT and validates it.
func (r *Runner) RunAll(ctx context.Context, doc *v3.Document, iut *url.URL) ([]Outcome, *Snapshot, error) {
	snap, err := r.Discover(ctx, doc, iut)
	if err != nil {
		return nil, nil, err
	}
	return r.Run(ctx, snap), snap, nil
}

// selfType returns the type of the self link, or fallback when it has none
func selfType(links []Link, fallback string) string {
	if l, ok := FindLink(links, "self", ""); ok && l.Type != "" {
		return l.Type
	}
	return fallback
}

func fetchError(f Fetch) error {
	if f.Err != nil {
		return f.Err
	}
	if f.Response == nil {
		return errors.Skip("no response recorded for %s", f.Point.URL())
	}
	return f.Response.ExpectStatus(http.StatusOK)
}

func (r *Runner) checkCollections(snap *Snapshot) []Outcome {
	var out []Outcome
	if len(snap.CollectionsPoints) == 0 {
		skip := errors.Skip("API description declares no /collections path")
		return append(out,
			OutcomeFrom(CheckCollectionsOperation, "A.4.4.4", "/collections", skip),
			OutcomeFrom(CheckCollectionsLinks, "A.4.4.5", "/collections", skip),
			OutcomeFrom(CheckCollectionsCollections, "A.4.4.5", "/collections", skip),
		)
	}

	supported := OtherResourceMediaTypes(snap.ConformanceClasses)
	for _, tp := range snap.CollectionsPoints {
		subject := tp.URL()
		f := snap.Fetches[tp.Key()]

		opErr := fetchError(f)
		out = append(out, OutcomeFrom(CheckCollectionsOperation, "A.4.4.4 (Req 9, 10)", subject, opErr))
		if opErr != nil {
			skip := errors.Skip("no successful response for %s", subject)
			out = append(out,
				OutcomeFrom(CheckCollectionsLinks, "A.4.4.5 (Req 11)", subject, skip),
				OutcomeFrom(CheckCollectionsCollections, "A.4.4.5 (Req 12)", subject, skip),
			)
			continue
		}

		body, err := f.Response.JSON()
		if err != nil {
			out = append(out,
				OutcomeFrom(CheckCollectionsLinks, "A.4.4.5 (Req 11)", subject, err),
				OutcomeFrom(CheckCollectionsCollections, "A.4.4.5 (Req 12)", subject, err),
			)
			continue
		}

		var linksErr error
		links, err := LinksOf(body)
		if err != nil {
			linksErr = decodeError(err, subject)
		} else {
			required := RequiredAlternateTypes(supported, selfType(links, MediaTypeJSON))
			linksErr = batch("links of the collections document", ValidateLinks(links, required).Messages())
		}
		out = append(out, OutcomeFrom(CheckCollectionsLinks, "A.4.4.5 (Req 11)", subject, linksErr))

		var collectionsErr error
		if _, err := ParseCollections(body, 0); err != nil {
			collectionsErr = decodeError(err, subject)
		}
		out = append(out, OutcomeFrom(CheckCollectionsCollections, "A.4.4.5 (Req 12)", subject, collectionsErr))
	}
	return out
}

func (r *Runner) checkCollectionMetadata(ctx context.Context, snap *Snapshot) []Outcome {
	var out []Outcome
	wanted := FeatureMediaTypes(snap.ConformanceClasses)

	for _, c := range snap.Collections {
		name := c.Name()
		log := logger.ForCollection(r.logger, name)

		out = append(out, OutcomeFrom(CheckCollectionItemLinks, "A.4.4.6 (Req 13)", name, itemLinkViolations(c, wanted)))
		out = append(out, OutcomeFrom(CheckCollectionExtent, "A.4.4.6 (Req 14)", name, extentError(c)))

		metaErr := r.compareCollectionDocument(ctx, snap, c)
		if metaErr != nil {
			log.Debug().Err(metaErr).Msg("collection metadata check did not pass")
		}
		out = append(out, OutcomeFrom(CheckCollectionMetadata, "A.4.4.7-8 (Req 15, 16)", name, metaErr))
	}
	return out
}

// itemLinkViolations checks the items links of a collection entry. Both the
// items and the WFS 3.0 item relation are accepted.
func itemLinkViolations(c Collection, wanted []string) error {
	var violations []string
	found := false
	for i, l := range c.Links {
		if l.Rel != "items" && l.Rel != "item" {
			continue
		}
		found = true
		if l.Type == "" || l.Href == "" {
			violations = append(violations, fmt.Sprintf("link %d (rel=%s) has no type or href", i, l.Rel))
		}
	}
	if !found {
		violations = append(violations, "no link with rel=items")
	}

	missingItems := MissingRelTypes(c.Links, "items", wanted)
	missingItem := make(map[string]bool)
	for _, t := range MissingRelTypes(c.Links, "item", wanted) {
		missingItem[t] = true
	}
	for _, t := range missingItems {
		if missingItem[t] {
			violations = append(violations, fmt.Sprintf("no link with rel=items and type %s", t))
		}
	}
	return batch("items links of collection "+c.Name(), violations)
}

func extentError(c Collection) error {
	_, hasBBox, err := ParseBBox(c.Document)
	if err != nil {
		return decodeError(err, c.Name())
	}
	_, hasTime, err := ParseTemporalExtent(c.Document)
	if err != nil {
		return decodeError(err, c.Name())
	}
	if !hasBBox && !hasTime {
		return errors.Skip("collection %s declares no extent", c.Name())
	}
	return nil
}

func (r *Runner) compareCollectionDocument(ctx context.Context, snap *Snapshot, c Collection) error {
	points, err := r.resolver.Resolve(snap.Model, snap.IUT, RoleSingleCollectionMetadata, c.Name())
	if err != nil {
		return err
	}
	if len(points) == 0 {
		return errors.Skip("API description declares no path for collection %s", c.Name())
	}

	resp, err := r.executor.Issue(ctx, featcheckhttp.Request{
		Method:  http.MethodGet,
		URI:     points[0].URL(),
		Headers: map[string]string{"Accept": MediaTypeJSON},
	})
	if err != nil {
		return err
	}
	if err := resp.ExpectStatus(http.StatusOK); err != nil {
		return err
	}
	body, err := resp.JSON()
	if err != nil {
		return err
	}
	if !body.Equal(c.Document) {
		return errors.Violation("collection document at %s differs from its entry in the collections document", resp.URI).
			WithContext("url", resp.URI)
	}
	return nil
}

func (r *Runner) itemsTarget(snap *Snapshot, c Collection) (string, *TestPoint, error) {
	points, err := r.resolver.Resolve(snap.Model, snap.IUT, RoleItemsOfCollection, c.Name())
	if err != nil {
		return "", nil, err
	}
	var point *TestPoint
	if len(points) > 0 {
		point = &points[0]
	}

	if link, ok := c.ItemsLink(); ok {
		base := snap.IUT.String()
		if len(snap.CollectionsPoints) > 0 {
			base = snap.CollectionsPoints[0].URL()
		}
		target, err := resolveHref(base, link.Href)
		if err != nil {
			return "", point, decodeError(err, c.Name())
		}
		return target, point, nil
	}
	if point != nil {
		return point.URL(), point, nil
	}
	return "", nil, errors.Skip("collection %s has no GeoJSON items link and no items path is declared", c.Name())
}

func (r *Runner) fetchItems(ctx context.Context, snap *Snapshot) ([]itemsFetch, []Outcome) {
	items := make([]itemsFetch, 0, len(snap.Collections))
	var out []Outcome

	for _, c := range snap.Collections {
		entry := itemsFetch{collection: c, model: snap.Model}
		entry.url, entry.point, entry.err = r.itemsTarget(snap, c)
		if entry.point != nil {
			tpLog := logger.ForTestPoint(r.logger, entry.point.ServerURL, entry.point.ResolvedPath)
			tpLog.Debug().
				Str("target", entry.url).
				Msg("fetching items")
		}
		if entry.err == nil {
			entry.page, entry.response, entry.err = r.requestPage(ctx, entry.url, nil)
		}
		items = append(items, entry)
		out = append(out, OutcomeFrom(CheckItemsOperation, "A.4.4.9 (Req 17, 24)", c.Name(), entry.err))
	}
	return items, out
}

// requestPage issues a GeoJSON items request and decodes the page
func (r *Runner) requestPage(ctx context.Context, target string, query url.Values) (Page, *featcheckhttp.Response, error) {
	resp, err := r.executor.Issue(ctx, featcheckhttp.Request{
		Method:  http.MethodGet,
		URI:     target,
		Headers: map[string]string{"Accept": MediaTypeGeoJSON},
		Query:   query,
	})
	if err != nil {
		return Page{}, nil, err
	}
	if err := resp.ExpectStatus(http.StatusOK); err != nil {
		return Page{}, resp, err
	}
	body, err := resp.JSON()
	if err != nil {
		return Page{}, resp, err
	}
	page, err := ParsePage(resp.URI, body)
	return page, resp, err
}

func (r *Runner) maxLimit(snap *Snapshot, point *TestPoint) int {
	if point == nil {
		return 0
	}
	spec, ok := FindParameter(snap.Model, *point, "limit")
	if !ok || spec.Schema.Maximum == nil {
		return 0
	}
	return schemaBound(*spec.Schema.Maximum)
}

func (r *Runner) checkItems(ctx context.Context, snap *Snapshot, items []itemsFetch) []Outcome {
	var out []Outcome
	supported := FeatureMediaTypes(snap.ConformanceClasses)

	for _, entry := range items {
		name := entry.collection.Name()
		if entry.err != nil {
			skip := errors.Skip("no items response for collection %s", name)
			out = append(out,
				OutcomeFrom(CheckItemsLinks, "A.4.4.10 (Req 25, 26)", name, skip),
				OutcomeFrom(CheckItemsTimeStamp, "A.4.4.10 (Req 27)", name, skip),
				OutcomeFrom(CheckItemsNumberReturned, "A.4.4.10 (Req 29)", name, skip),
				OutcomeFrom(CheckItemsNumberMatched, "A.4.4.10 (Req 28)", name, skip),
			)
			continue
		}

		page := entry.page
		required := RequiredAlternateTypes(supported, selfType(page.Links, MediaTypeGeoJSON))
		linksErr := batch("links of the items of "+name, ValidateLinks(page.Links, required).Messages())

		out = append(out,
			OutcomeFrom(CheckItemsLinks, "A.4.4.10 (Req 25, 26)", name, linksErr),
			OutcomeFrom(CheckItemsTimeStamp, "A.4.4.10 (Req 27)", name,
				r.checker.Freshness(page, entry.response.Sent, entry.response.Received)),
			OutcomeFrom(CheckItemsNumberReturned, "A.4.4.10 (Req 29)", name, r.checker.NumberReturned(page)),
			OutcomeFrom(CheckItemsNumberMatched, "A.4.4.10 (Req 28)", name,
				r.checker.NumberMatched(ctx, page, r.maxLimit(snap, entry.point))),
		)
	}
	return out
}

// timeParameter returns the declared time parameter, preferring the 1.0 name
func timeParameter(doc *v3.Document, tp TestPoint) (ParameterSpec, ParameterProfile, bool) {
	for _, profile := range []ParameterProfile{DateTimeProfile, TimeProfile} {
		if spec, ok := FindParameter(doc, tp, profile.Name); ok {
			return spec, profile, true
		}
	}
	return ParameterSpec{}, TimeProfile, false
}

func (r *Runner) checkParameterContracts(snap *Snapshot, items []itemsFetch) []Outcome {
	var out []Outcome
	seen := make(map[string]bool)
	var points []TestPoint
	for _, entry := range items {
		if entry.point != nil && !seen[entry.point.PathTemplate] {
			seen[entry.point.PathTemplate] = true
			points = append(points, *entry.point)
		}
	}

	if len(points) == 0 {
		skip := errors.Skip("no items path resolved for any collection")
		return append(out,
			OutcomeFrom(CheckLimitParameter, "A.4.4.11 (Req 18)", "items", skip),
			OutcomeFrom(CheckBBoxParameter, "A.4.4.12 (Req 20)", "items", skip),
			OutcomeFrom(CheckTimeParameter, "A.4.4.13 (Req 22)", "items", skip),
		)
	}

	for _, tp := range points {
		subject := tp.PathTemplate
		out = append(out,
			OutcomeFrom(CheckLimitParameter, "A.4.4.11 (Req 18)", subject, contractError(snap.Model, tp, LimitProfile)),
			OutcomeFrom(CheckBBoxParameter, "A.4.4.12 (Req 20)", subject, contractError(snap.Model, tp, BBoxProfile)),
		)

		spec, profile, ok := timeParameter(snap.Model, tp)
		var timeErr error
		if !ok {
			timeErr = missingParameter(tp, "time")
		} else {
			timeErr = CompareParameter(spec, profile)
		}
		out = append(out, OutcomeFrom(CheckTimeParameter, "A.4.4.13 (Req 22)", subject, timeErr))
	}
	return out
}

func contractError(doc *v3.Document, tp TestPoint, profile ParameterProfile) error {
	spec, ok := FindParameter(doc, tp, profile.Name)
	if !ok {
		return missingParameter(tp, profile.Name)
	}
	return CompareParameter(spec, profile)
}

func missingParameter(tp TestPoint, name string) error {
	return errors.Newf(errors.ErrorTypeSpecMismatch, "required %s parameter for path %s is missing", name, tp.PathTemplate).
		WithContext("field", name)
}

func (r *Runner) checkParameterRequests(ctx context.Context, items []itemsFetch) []Outcome {
	var out []Outcome
	for _, entry := range items {
		name := entry.collection.Name()
		if entry.url == "" {
			skip := errors.Skip("no items URL for collection %s", name)
			out = append(out,
				OutcomeFrom(CheckLimitRequest, "A.4.4.11 (Req 19)", name, skip),
				OutcomeFrom(CheckBBoxRequest, "A.4.4.12 (Req 21)", name, skip),
				OutcomeFrom(CheckTimeRequest, "A.4.4.13 (Req 23)", name, skip),
			)
			continue
		}
		out = append(out, r.limitRequests(ctx, entry)...)
		out = append(out, r.bboxRequests(ctx, entry)...)
		out = append(out, r.timeRequests(ctx, entry)...)
	}
	return out
}

func (r *Runner) limitRequests(ctx context.Context, entry itemsFetch) []Outcome {
	name := entry.collection.Name()
	var spec ParameterSpec
	ok := false
	if entry.point != nil {
		spec, ok = FindParameter(entry.model, *entry.point, "limit")
	}
	values := LimitRequestValues(spec)
	if !ok || len(values) == 0 {
		return []Outcome{OutcomeFrom(CheckLimitRequest, "A.4.4.11 (Req 19)", name,
			errors.Skip("no limit bounds declared for collection %s", name))}
	}

	var out []Outcome
	for _, limit := range values {
		query := url.Values{"limit": {strconv.Itoa(limit)}}
		subject := fmt.Sprintf("%s limit=%d", name, limit)
		page, resp, err := r.requestPage(ctx, entry.url, query)
		if err == nil {
			err = r.pageInvariants(subject, page, resp, CountWithinLimit(page, limit))
		}
		out = append(out, OutcomeFrom(CheckLimitRequest, "A.4.4.11 (Req 19)", subject, err))
	}
	return out
}

func (r *Runner) bboxRequests(ctx context.Context, entry itemsFetch) []Outcome {
	name := entry.collection.Name()
	extent, ok, err := ParseBBox(entry.collection.Document)
	if err != nil {
		return []Outcome{OutcomeFrom(CheckBBoxRequest, "A.4.4.12 (Req 21)", name, decodeError(err, name))}
	}
	if !ok {
		return []Outcome{OutcomeFrom(CheckBBoxRequest, "A.4.4.12 (Req 21)", name,
			errors.Skip("collection %s declares no spatial extent", name))}
	}

	var out []Outcome
	for _, fixture := range BBoxFixtures(extent) {
		value := fixture.BBox.String()
		subject := fmt.Sprintf("%s bbox=%s (%s)", name, value, fixture.Name)
		page, resp, err := r.requestPage(ctx, entry.url, url.Values{"bbox": {value}})
		if err == nil {
			err = r.pageInvariants(subject, page, resp)
		}
		out = append(out, OutcomeFrom(CheckBBoxRequest, "A.4.4.12 (Req 21)", subject, err))
	}
	return out
}

func (r *Runner) timeRequests(ctx context.Context, entry itemsFetch) []Outcome {
	name := entry.collection.Name()
	extent, ok, err := ParseTemporalExtent(entry.collection.Document)
	if err != nil {
		return []Outcome{OutcomeFrom(CheckTimeRequest, "A.4.4.13 (Req 23)", name, decodeError(err, name))}
	}
	if !ok {
		return []Outcome{OutcomeFrom(CheckTimeRequest, "A.4.4.13 (Req 23)", name,
			errors.Skip("collection %s declares no temporal extent", name))}
	}

	param := TimeProfile.Name
	if entry.point != nil {
		if _, profile, found := timeParameter(entry.model, *entry.point); found {
			param = profile.Name
		}
	}

	var out []Outcome
	for _, fixture := range TimeFixtures(extent, r.opts.Clock()) {
		subject := fmt.Sprintf("%s %s=%s (%s)", name, param, fixture.Value, fixture.Name)
		page, resp, err := r.requestPage(ctx, entry.url, url.Values{param: {fixture.Value}})
		if err == nil {
			err = r.pageInvariants(subject, page, resp)
		}
		out = append(out, OutcomeFrom(CheckTimeRequest, "A.4.4.13 (Req 23)", subject, err))
	}
	return out
}

// pageInvariants applies the freshness and count rules to a parameter request.
// Absent properties are ignored here rather than skipped.
func (r *Runner) pageInvariants(subject string, page Page, resp *featcheckhttp.Response, extra ...error) error {
	checks := append(extra,
		r.checker.Freshness(page, resp.Sent, resp.Received),
		r.checker.NumberReturned(page),
	)

	var violations []string
	for _, err := range checks {
		if err == nil || errors.IsType(err, errors.ErrorTypeSkip) {
			continue
		}
		violations = append(violations, err.Error())
	}
	return batch("response to "+subject, violations)
}
