package conformance

import (
	"sort"
	"strings"
)

const (
	MediaTypeJSON    = "application/json"
	MediaTypeGeoJSON = "application/geo+json"
	MediaTypeHTML    = "text/html"
	MediaTypeGML     = "application/gml+xml"
	MediaTypeXML     = "application/xml"
)

// conformance class leaves and the encodings they imply, for feature
// documents and for every other resource
var (
	featureEncodings = map[string]string{
		"geojson": MediaTypeGeoJSON,
		"html":    MediaTypeHTML,
		"gmlsf0":  MediaTypeGML,
		"gmlsf2":  MediaTypeGML,
	}
	resourceEncodings = map[string]string{
		"geojson": MediaTypeJSON,
		"html":    MediaTypeHTML,
		"gmlsf0":  MediaTypeXML,
		"gmlsf2":  MediaTypeXML,
	}
)

// classLeaf returns the segment after /conf/ or /req/ of a conformance class URI
func classLeaf(class string) string {
	for _, marker := range []string{"/conf/", "/req/"} {
		if i := strings.LastIndex(class, marker); i >= 0 {
			return strings.Trim(class[i+len(marker):], "/")
		}
	}
	return ""
}

func mediaTypesFor(classes []string, table map[string]string) []string {
	seen := make(map[string]bool)
	var types []string
	for _, class := range classes {
		if t, ok := table[classLeaf(class)]; ok && !seen[t] {
			seen[t] = true
			types = append(types, t)
		}
	}
	sort.Strings(types)
	return types
}

// FeatureMediaTypes returns the encodings feature collections must offer for
// the advertised conformance classes.
func FeatureMediaTypes(classes []string) []string {
	return mediaTypesFor(classes, featureEncodings)
}

// OtherResourceMediaTypes returns the encodings non-feature resources such as
// /collections must offer for the advertised conformance classes.
func OtherResourceMediaTypes(classes []string) []string {
	return mediaTypesFor(classes, resourceEncodings)
}

// RequiredAlternateTypes removes the document's own type from the supported set.
func RequiredAlternateTypes(supported []string, selfType string) []string {
	required := make([]string, 0, len(supported))
	for _, t := range supported {
		if t != selfType {
			required = append(required, t)
		}
	}
	return required
}
