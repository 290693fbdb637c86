package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const collectionBody = `{
  "id": "buildings",
  "title": "Buildings",
  "links": [
    {"rel": "self", "type": "application/json", "href": "http://example.com/collections/buildings"},
    {"rel": "items", "type": "application/geo+json", "href": "http://example.com/collections/buildings/items"}
  ],
  "extent": {"spatial": {"bbox": [[-180, -90, 180, 90]]}},
  "numberMatched": 10.0
}`

func TestDecode(t *testing.T) {
	v, err := Decode([]byte(collectionBody))
	require.NoError(t, err)

	assert.Equal(t, Object, v.Kind())
	assert.Equal(t, []string{"id", "title", "links", "extent", "numberMatched"}, v.Keys())

	id, err := v.GetString("id")
	require.NoError(t, err)
	assert.Equal(t, "buildings", id)

	links, err := v.GetArray("links")
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "$.links[1]", links[1].Path())
	assert.Equal(t, "items", links[1].OptionalString("rel"))

	n, err := v.Get("numberMatched")
	require.NoError(t, err)
	count, err := n.AsInt()
	require.NoError(t, err)
	assert.Equal(t, 10, count)
}

func TestDecodeRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty", body: ""},
		{name: "truncated", body: `{"a": [1, 2`},
		{name: "trailing data", body: `{"a": 1} {"b": 2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.body))
			assert.Error(t, err)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	v, err := Decode([]byte(collectionBody))
	require.NoError(t, err)

	_, err = v.Get("timeStamp")
	require.Error(t, err)
	assert.True(t, IsMissing(err))
	assert.Equal(t, "decode $.timeStamp: missing", err.Error())

	title, err := v.Get("title")
	require.NoError(t, err)
	_, err = title.AsArray()
	var dErr *DecodeError
	require.ErrorAs(t, err, &dErr)
	assert.False(t, dErr.Missing)
	assert.Equal(t, "$.title", dErr.Path)
	assert.Equal(t, "array", dErr.Expected)
	assert.Equal(t, "string", dErr.Actual)

	_, err = title.Get("x")
	require.ErrorAs(t, err, &dErr)
	assert.Equal(t, "object", dErr.Expected)
}

func TestAsIntRejectsFractions(t *testing.T) {
	v, err := Decode([]byte(`[1.5, 3]`))
	require.NoError(t, err)

	items, err := v.AsArray()
	require.NoError(t, err)

	_, err = items[0].AsInt()
	assert.Error(t, err)

	n, err := items[1].AsInt()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestEqual(t *testing.T) {
	a, err := Decode([]byte(`{"id": "a", "n": 1, "links": [{"rel": "self"}]}`))
	require.NoError(t, err)
	b, err := Decode([]byte(`{"links": [{"rel": "self"}], "n": 1.0, "id": "a"}`))
	require.NoError(t, err)
	c, err := Decode([]byte(`{"links": [{"rel": "alternate"}], "n": 1, "id": "a"}`))
	require.NoError(t, err)

	assert.True(t, a.Equal(b), "member order and number spelling are ignored")
	assert.False(t, a.Equal(c))
}

func TestMarshalJSONKeepsOrder(t *testing.T) {
	v, err := Decode([]byte(`{"z": 1, "a": [true, null, "x"]}`))
	require.NoError(t, err)

	out, err := v.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":[true,null,"x"]}`, string(out))
}

func TestAsBool(t *testing.T) {
	v, err := Decode([]byte(`{"required": true, "explode": "false"}`))
	require.NoError(t, err)

	required, err := v.Get("required")
	require.NoError(t, err)
	b, err := required.AsBool()
	require.NoError(t, err)
	assert.True(t, b)

	explode, err := v.Get("explode")
	require.NoError(t, err)
	_, err = explode.AsBool()
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "$.explode", decodeErr.Path)
}
