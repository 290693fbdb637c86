package conformance

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/brendan.keane/featcheck/pkg/document"
)

// BBox is a WGS 84 bounding box. MinX greater than MaxX crosses the antimeridian.
type BBox struct {
	MinX float64 `json:"minx"`
	MinY float64 `json:"miny"`
	MaxX float64 `json:"maxx"`
	MaxY float64 `json:"maxy"`
}

// NewBBox checks every coordinate against the geographic range. The order of
// min and max is not checked.
func NewBBox(minX, minY, maxX, maxY float64) (BBox, error) {
	for _, x := range []float64{minX, maxX} {
		if x < -180 || x > 180 {
			return BBox{}, fmt.Errorf("longitude %v outside [-180, 180]", x)
		}
	}
	for _, y := range []float64{minY, maxY} {
		if y < -90 || y > 90 {
			return BBox{}, fmt.Errorf("latitude %v outside [-90, 90]", y)
		}
	}
	return BBox{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}, nil
}

func mustBBox(minX, minY, maxX, maxY float64) BBox {
	b, err := NewBBox(minX, minY, maxX, maxY)
	if err != nil {
		panic(err)
	}
	return b
}

// CrossesAntimeridian reports whether the box wraps around 180 degrees.
func (b BBox) CrossesAntimeridian() bool {
	return b.MinX > b.MaxX
}

// String renders the bbox query value, e.g. "177,65,-177,70".
func (b BBox) String() string {
	parts := []string{
		strconv.FormatFloat(b.MinX, 'f', -1, 64),
		strconv.FormatFloat(b.MinY, 'f', -1, 64),
		strconv.FormatFloat(b.MaxX, 'f', -1, 64),
		strconv.FormatFloat(b.MaxY, 'f', -1, 64),
	}
	return strings.Join(parts, ",")
}

// ParseBBox reads a collection's spatial extent. It accepts the 1.0 form
// extent.spatial.bbox[[...]] and the WFS 3.0 draft form extent.spatial[...].
// ok is false when the collection declares no spatial extent.
func ParseBBox(collection document.Value) (BBox, bool, error) {
	extent, ok := collection.Lookup("extent")
	if !ok || extent.IsNull() {
		return BBox{}, false, nil
	}
	spatial, ok := extent.Lookup("spatial")
	if !ok || spatial.IsNull() {
		return BBox{}, false, nil
	}

	coords := spatial
	if spatial.Kind() == document.Object {
		bbox, ok := spatial.Lookup("bbox")
		if !ok || bbox.IsNull() {
			return BBox{}, false, nil
		}
		coords = bbox
	}

	values, err := coords.AsArray()
	if err != nil {
		return BBox{}, false, err
	}
	if len(values) > 0 && values[0].Kind() == document.Array {
		// the first box is the overall extent
		if values, err = values[0].AsArray(); err != nil {
			return BBox{}, false, err
		}
	}

	nums := make([]float64, 0, len(values))
	for _, v := range values {
		f, err := v.AsFloat()
		if err != nil {
			return BBox{}, false, err
		}
		nums = append(nums, f)
	}

	var b BBox
	switch len(nums) {
	case 4:
		b, err = NewBBox(nums[0], nums[1], nums[2], nums[3])
	case 6:
		b, err = NewBBox(nums[0], nums[1], nums[3], nums[4])
	default:
		return BBox{}, false, &document.DecodeError{
			Path:     coords.Path(),
			Expected: "4 or 6 coordinates",
			Actual:   strconv.Itoa(len(nums)),
		}
	}
	if err != nil {
		return BBox{}, false, &document.DecodeError{Path: coords.Path(), Expected: "coordinates in range", Actual: err.Error()}
	}
	return b, true, nil
}

// TemporalExtent is a time interval. A nil bound is open.
type TemporalExtent struct {
	Begin *time.Time `json:"begin,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// ParseTemporalExtent reads a collection's temporal extent in either the 1.0
// form extent.temporal.interval[[begin, end]] or the WFS 3.0 draft form
// extent.temporal[begin, end]. null and ".." are open bounds. ok is false when
// no temporal extent is declared or both bounds are open.
func ParseTemporalExtent(collection document.Value) (TemporalExtent, bool, error) {
	extent, ok := collection.Lookup("extent")
	if !ok || extent.IsNull() {
		return TemporalExtent{}, false, nil
	}
	temporal, ok := extent.Lookup("temporal")
	if !ok || temporal.IsNull() {
		return TemporalExtent{}, false, nil
	}

	interval := temporal
	if temporal.Kind() == document.Object {
		iv, ok := temporal.Lookup("interval")
		if !ok || iv.IsNull() {
			return TemporalExtent{}, false, nil
		}
		interval = iv
	}

	values, err := interval.AsArray()
	if err != nil {
		return TemporalExtent{}, false, err
	}
	if len(values) > 0 && values[0].Kind() == document.Array {
		if values, err = values[0].AsArray(); err != nil {
			return TemporalExtent{}, false, err
		}
	}
	if len(values) != 2 {
		return TemporalExtent{}, false, &document.DecodeError{
			Path:     interval.Path(),
			Expected: "interval of 2 instants",
			Actual:   strconv.Itoa(len(values)),
		}
	}

	var te TemporalExtent
	if te.Begin, err = parseInstant(values[0]); err != nil {
		return TemporalExtent{}, false, err
	}
	if te.End, err = parseInstant(values[1]); err != nil {
		return TemporalExtent{}, false, err
	}
	if te.Begin == nil && te.End == nil {
		return TemporalExtent{}, false, nil
	}
	if te.Begin != nil && te.End != nil && te.Begin.After(*te.End) {
		return TemporalExtent{}, false, &document.DecodeError{
			Path:     interval.Path(),
			Expected: "begin not after end",
			Actual:   formatInstant(*te.Begin) + "/" + formatInstant(*te.End),
		}
	}
	return te, true, nil
}

func parseInstant(v document.Value) (*time.Time, error) {
	if v.IsNull() {
		return nil, nil
	}
	s, err := v.AsString()
	if err != nil {
		return nil, err
	}
	if s == "" || s == ".." {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, &document.DecodeError{Path: v.Path(), Expected: "RFC 3339 date-time", Actual: s}
}

// BBoxFixture is a named bbox query value.
type BBoxFixture struct {
	Name string `json:"name"`
	BBox BBox   `json:"bbox"`
}

// BBoxFixtures returns the collection's own extent followed by boxes crossing
// the prime meridian, the equator and the antimeridian, and one at each pole.
func BBoxFixtures(extent BBox) []BBoxFixture {
	return []BBoxFixture{
		{Name: "collection-extent", BBox: extent},
		{Name: "prime-meridian", BBox: mustBBox(-1.5, 50, 1.5, 53)},
		{Name: "equator", BBox: mustBBox(-80, -5, -70, 5)},
		{Name: "antimeridian", BBox: mustBBox(177, 65, -177, 70)},
		{Name: "north-pole", BBox: mustBBox(-180, 85, 180, 90)},
		{Name: "south-pole", BBox: mustBBox(-180, -90, 180, -85)},
	}
}

// TimeFixture is a time query value with the instants it selects.
type TimeFixture struct {
	Name  string     `json:"name"`
	Value string     `json:"value"`
	Begin *time.Time `json:"begin,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// TimeFixtures derives query values from a temporal extent: an instant, a
// start/end range and a start/duration range, each a quarter of the extent
// long. An open end is replaced by reference; an open begin only yields the
// end instant and "../end". A reference before begin collapses both ranges
// onto begin.
func TimeFixtures(extent TemporalExtent, reference time.Time) []TimeFixture {
	if extent.Begin == nil && extent.End == nil {
		return nil
	}

	if extent.Begin == nil {
		end := extent.End.UTC()
		return []TimeFixture{
			{Name: "instant", Value: formatInstant(end), Begin: &end},
			{Name: "open-start", Value: "../" + formatInstant(end), End: &end},
		}
	}

	begin := extent.Begin.UTC()
	end := reference.UTC()
	if extent.End != nil {
		end = extent.End.UTC()
	}

	// Whole seconds: time.Duration cannot span extents longer than ~292 years.
	quarter := (end.Unix() - begin.Unix()) / 4
	if quarter < 0 {
		quarter = 0
	}
	beginInterval := addSeconds(begin, quarter)
	endInterval := addSeconds(beginInterval, quarter)

	return []TimeFixture{
		{Name: "instant", Value: formatInstant(begin), Begin: &begin},
		{
			Name:  "range",
			Value: formatInstant(beginInterval) + "/" + formatInstant(endInterval),
			Begin: &beginInterval,
			End:   &endInterval,
		},
		{
			Name:  "duration",
			Value: formatInstant(beginInterval) + "/" + formatISOSeconds(quarter),
			Begin: &beginInterval,
			End:   &endInterval,
		},
	}
}

func addSeconds(t time.Time, seconds int64) time.Time {
	return time.Unix(t.Unix()+seconds, int64(t.Nanosecond())).UTC()
}

func formatInstant(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// FormatISODuration renders d as an ISO 8601 duration such as P3DT4H or PT0S.
// Durations below a second are truncated.
func FormatISODuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	return formatISOSeconds(int64(d / time.Second))
}

func formatISOSeconds(seconds int64) string {
	if seconds <= 0 {
		return "PT0S"
	}

	days := seconds / 86400
	seconds %= 86400
	hours := seconds / 3600
	seconds %= 3600
	minutes := seconds / 60
	seconds %= 60

	var b strings.Builder
	b.WriteString("P")
	if days > 0 {
		fmt.Fprintf(&b, "%dD", days)
	}
	if hours > 0 || minutes > 0 || seconds > 0 {
		b.WriteString("T")
		if hours > 0 {
			fmt.Fprintf(&b, "%dH", hours)
		}
		if minutes > 0 {
			fmt.Fprintf(&b, "%dM", minutes)
		}
		if seconds > 0 {
			fmt.Fprintf(&b, "%dS", seconds)
		}
	}
	return b.String()
}
