package conformance

import (
	"context"
	"strings"
	"time"

	"github.com/brendan.keane/featcheck/internal/errors"
)

// MatchMode selects how numberMatched is compared with the walked total.
type MatchMode string

const (
	// MatchStrict requires numberMatched to equal the total of all pages.
	MatchStrict MatchMode = "strict"
	// MatchPageBounded accepts the advertised maximum page size as the total
	// when the walk could not leave the first page.
	MatchPageBounded MatchMode = "page-bounded"
)

// ParseMatchMode accepts "strict" and "page-bounded" in any case.
func ParseMatchMode(s string) (MatchMode, error) {
	switch MatchMode(strings.ToLower(strings.TrimSpace(s))) {
	case MatchStrict, "":
		return MatchStrict, nil
	case MatchPageBounded:
		return MatchPageBounded, nil
	default:
		return "", errors.Newf(errors.ErrorTypeConfig, "unknown match mode %q", s).
			WithContext("config_type", "match-mode")
	}
}

// InvariantChecker verifies per-response invariants. Each check returns nil
// when the invariant holds, a skip error when the property is absent and a
// violation error otherwise.
type InvariantChecker struct {
	paginator *Paginator
	mode      MatchMode
}

func NewInvariantChecker(paginator *Paginator, mode MatchMode) *InvariantChecker {
	if mode == "" {
		mode = MatchStrict
	}
	return &InvariantChecker{paginator: paginator, mode: mode}
}

// Freshness requires timeStamp to lie strictly between sent and received.
func (c *InvariantChecker) Freshness(page Page, sent, received time.Time) error {
	if page.TimeStamp == nil {
		return errors.Skip("property timeStamp is not set in %s", page.URI)
	}
	ts := *page.TimeStamp
	if !ts.After(sent) || !ts.Before(received) {
		return errors.Violation("timeStamp %s is not between request %s and response %s",
			ts.Format(time.RFC3339Nano), sent.Format(time.RFC3339Nano), received.Format(time.RFC3339Nano)).
			WithContext("url", page.URI)
	}
	return nil
}

// NumberReturned requires numberReturned to equal the features on the page.
func (c *InvariantChecker) NumberReturned(page Page) error {
	if page.NumberReturned == nil {
		return errors.Skip("property numberReturned is not set in %s", page.URI)
	}
	if *page.NumberReturned != page.Features {
		return errors.Violation("numberReturned (%d) does not match the number of features in the response (%d)",
			*page.NumberReturned, page.Features).
			WithContext("url", page.URI)
	}
	return nil
}

// NumberMatched walks every page from page and compares the total with
// numberMatched. maxLimit is the largest declared limit, zero when unknown.
func (c *InvariantChecker) NumberMatched(ctx context.Context, page Page, maxLimit int) error {
	if page.NumberMatched == nil {
		return errors.Skip("property numberMatched is not set in %s", page.URI)
	}

	result, err := c.paginator.Aggregate(ctx, page)
	if err != nil {
		return err
	}

	matched := *page.NumberMatched
	expected := result.FeatureCount
	if c.mode == MatchPageBounded && result.PagesVisited == 1 && maxLimit > 0 && matched > maxLimit {
		// the server caps results at its maximum page size
		matched = maxLimit
	}

	if matched != expected {
		return errors.Violation("numberMatched (%d) does not match the number of features in all responses (%d over %d pages)",
			*page.NumberMatched, expected, result.PagesVisited).
			WithContext("url", page.URI).
			WithContext("mode", string(c.mode))
	}
	return nil
}

// CountWithinLimit requires a page to hold at most limit features.
func CountWithinLimit(page Page, limit int) error {
	if page.Features > limit {
		return errors.Violation("%d features returned, expected at most %d", page.Features, limit).
			WithContext("url", page.URI)
	}
	return nil
}
