package conformance

import (
	"fmt"
	"math"
	"strconv"

	"github.com/brendan.keane/featcheck/internal/errors"
	"github.com/brendan.keane/featcheck/pkg/openapi"
	"github.com/pb33f/libopenapi/datamodel/high/base"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
)

// SchemaSpec is the subset of a parameter schema the contract checks read.
type SchemaSpec struct {
	Type       string   `json:"type,omitempty"`
	Minimum    *float64 `json:"minimum,omitempty"`
	Maximum    *float64 `json:"maximum,omitempty"`
	MinItems   *int64   `json:"minItems,omitempty"`
	MaxItems   *int64   `json:"maxItems,omitempty"`
	ItemsType  string   `json:"itemsType,omitempty"`
	Default    string   `json:"default,omitempty"`
	HasDefault bool     `json:"-"`
}

// ParameterSpec is a declared query parameter with absent flags normalised.
type ParameterSpec struct {
	Name     string     `json:"name"`
	In       string     `json:"in"`
	Required bool       `json:"required"`
	Style    string     `json:"style"`
	Explode  bool       `json:"explode"`
	Schema   SchemaSpec `json:"schema"`
}

// FindParameter returns the named parameter declared for GET on the test
// point's path. Path-item parameters shadow operation parameters.
func FindParameter(doc *v3.Document, tp TestPoint, name string) (ParameterSpec, bool) {
	if doc == nil || doc.Paths == nil || doc.Paths.PathItems == nil {
		return ParameterSpec{}, false
	}
	item, ok := doc.Paths.PathItems.Get(tp.PathTemplate)
	if !ok {
		return ParameterSpec{}, false
	}
	param, ok := openapi.LookupParameter(item, name)
	if !ok {
		return ParameterSpec{}, false
	}
	return NewParameterSpec(param), true
}

// NewParameterSpec normalises a declared parameter. Absent required and
// explode are false; an absent style takes the default for the location.
func NewParameterSpec(param *v3.Parameter) ParameterSpec {
	spec := ParameterSpec{
		Name:  param.Name,
		In:    param.In,
		Style: param.Style,
	}
	if param.Required != nil {
		spec.Required = *param.Required
	}
	if param.Explode != nil {
		spec.Explode = *param.Explode
	}
	if spec.Style == "" {
		spec.Style = defaultStyle(param.In)
	}
	if param.Schema != nil {
		spec.Schema = newSchemaSpec(param.Schema.Schema())
	}
	return spec
}

func defaultStyle(in string) string {
	switch in {
	case "query", "cookie":
		return "form"
	case "path", "header":
		return "simple"
	default:
		return ""
	}
}

func newSchemaSpec(schema *base.Schema) SchemaSpec {
	var spec SchemaSpec
	if schema == nil {
		return spec
	}
	spec.Type = schemaType(schema)
	spec.Minimum = schema.Minimum
	spec.Maximum = schema.Maximum
	spec.MinItems = schema.MinItems
	spec.MaxItems = schema.MaxItems
	if schema.Items != nil && schema.Items.IsA() && schema.Items.A != nil {
		spec.ItemsType = schemaType(schema.Items.A.Schema())
	}
	if schema.Default != nil {
		spec.Default = schema.Default.Value
		spec.HasDefault = true
	}
	return spec
}

// schemaType returns the first non-null type; 3.1 documents declare a list
func schemaType(schema *base.Schema) string {
	if schema == nil {
		return ""
	}
	for _, t := range schema.Type {
		if t != "null" {
			return t
		}
	}
	return ""
}

// ParameterProfile is the contract a parameter must declare. Nil bounds and
// empty strings are not compared.
type ParameterProfile struct {
	Name      string
	In        string
	Required  bool
	Style     string
	Explode   bool
	Type      string
	Minimum   *float64
	Maximum   *float64
	MinItems  *int64
	MaxItems  *int64
	ItemsType string
	// PositiveDefault requires a declared default to be an integer above zero
	PositiveDefault bool
}

func float64Ptr(v float64) *float64 { return &v }
func int64Ptr(v int64) *int64       { return &v }

var (
	// LimitProfile is the limit contract of the items operation
	LimitProfile = ParameterProfile{
		Name:            "limit",
		In:              "query",
		Style:           "form",
		Type:            "integer",
		Minimum:         float64Ptr(1),
		PositiveDefault: true,
	}

	// BBoxProfile is the bbox contract of the items operation
	BBoxProfile = ParameterProfile{
		Name:      "bbox",
		In:        "query",
		Style:     "form",
		Type:      "array",
		MinItems:  int64Ptr(4),
		MaxItems:  int64Ptr(6),
		ItemsType: "number",
	}

	// TimeProfile is the WFS 3.0 time contract of the items operation
	TimeProfile = ParameterProfile{
		Name:  "time",
		In:    "query",
		Style: "form",
		Type:  "string",
	}

	// DateTimeProfile is the OGC API Features 1.0 name of the time contract
	DateTimeProfile = ParameterProfile{
		Name:  "datetime",
		In:    "query",
		Style: "form",
		Type:  "string",
	}
)

// CompareParameter checks a declared parameter against a profile and reports
// the first field that differs.
func CompareParameter(spec ParameterSpec, profile ParameterProfile) error {
	if spec.Name != profile.Name {
		return mismatch(spec, "name", profile.Name, spec.Name)
	}
	if spec.In != profile.In {
		return mismatch(spec, "in", profile.In, spec.In)
	}
	if spec.Required != profile.Required {
		return mismatch(spec, "required", profile.Required, spec.Required)
	}
	if profile.Style != "" && spec.Style != profile.Style {
		return mismatch(spec, "style", profile.Style, spec.Style)
	}
	if spec.Explode != profile.Explode {
		return mismatch(spec, "explode", profile.Explode, spec.Explode)
	}

	schema := spec.Schema
	if profile.Type != "" && schema.Type != profile.Type {
		return mismatch(spec, "schema.type", profile.Type, schema.Type)
	}
	if profile.Minimum != nil && !floatEqual(schema.Minimum, *profile.Minimum) {
		return mismatch(spec, "schema.minimum", *profile.Minimum, floatString(schema.Minimum))
	}
	if profile.Maximum != nil && !floatEqual(schema.Maximum, *profile.Maximum) {
		return mismatch(spec, "schema.maximum", *profile.Maximum, floatString(schema.Maximum))
	}
	if profile.MinItems != nil && !intEqual(schema.MinItems, *profile.MinItems) {
		return mismatch(spec, "schema.minItems", *profile.MinItems, intString(schema.MinItems))
	}
	if profile.MaxItems != nil && !intEqual(schema.MaxItems, *profile.MaxItems) {
		return mismatch(spec, "schema.maxItems", *profile.MaxItems, intString(schema.MaxItems))
	}
	if profile.ItemsType != "" && schema.ItemsType != profile.ItemsType {
		return mismatch(spec, "schema.items.type", profile.ItemsType, schema.ItemsType)
	}
	if profile.PositiveDefault && schema.HasDefault {
		if n, err := strconv.Atoi(schema.Default); err != nil || n <= 0 {
			return mismatch(spec, "schema.default", "integer greater than 0", schema.Default)
		}
	}
	return nil
}

func mismatch(spec ParameterSpec, field string, expected, actual interface{}) error {
	return errors.Newf(errors.ErrorTypeSpecMismatch,
		"parameter %s: expected %s %v but was %v", spec.Name, field, expected, actual).
		WithContext("field", field).
		WithContext("expected", fmt.Sprint(expected)).
		WithContext("actual", fmt.Sprint(actual))
}

func floatEqual(v *float64, want float64) bool {
	return v != nil && *v == want
}

func intEqual(v *int64, want int64) bool {
	return v != nil && *v == want
}

func floatString(v *float64) string {
	if v == nil {
		return "absent"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func intString(v *int64) string {
	if v == nil {
		return "absent"
	}
	return strconv.FormatInt(*v, 10)
}

// LimitRequestValues returns the limit values to request: the declared minimum
// and, when a larger maximum is declared, the midpoint between the two.
func LimitRequestValues(spec ParameterSpec) []int {
	if spec.Schema.Minimum == nil {
		return nil
	}
	lower := schemaBound(*spec.Schema.Minimum)
	if spec.Schema.Maximum == nil {
		return []int{lower}
	}
	upper := schemaBound(*spec.Schema.Maximum)
	if upper <= lower {
		return []int{lower}
	}
	return []int{lower, lower + (upper-lower)/2}
}

// schemaBound converts a declared schema bound to an int, clamped to the
// int32 range.
func schemaBound(v float64) int {
	switch {
	case math.IsNaN(v):
		return 0
	case v > math.MaxInt32:
		return math.MaxInt32
	case v < math.MinInt32:
		return math.MinInt32
	}
	return int(v)
}
