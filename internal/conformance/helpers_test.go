package conformance

import (
	"net/url"
	"testing"

	"github.com/brendan.keane/featcheck/pkg/document"
	"github.com/brendan.keane/featcheck/pkg/openapi"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
	"github.com/stretchr/testify/require"
)

func loadDescription(t *testing.T, description string) *v3.Document {
	t.Helper()
	p := openapi.NewParser()
	require.NoError(t, p.LoadFromBytes([]byte(description)))
	doc, err := p.Model()
	require.NoError(t, err)
	return doc
}

func mustDecode(t *testing.T, raw string) document.Value {
	t.Helper()
	v, err := document.Decode([]byte(raw))
	require.NoError(t, err)
	return v
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}
