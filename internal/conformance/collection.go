package conformance

import (
	"github.com/brendan.keane/featcheck/pkg/document"
)

// Collection is one entry of the collections member.
type Collection struct {
	ID       string         `json:"id"`
	Title    string         `json:"title,omitempty"`
	Links    []Link         `json:"links,omitempty"`
	Document document.Value `json:"-"`
}

// Name returns the identifier, falling back to the WFS 3.0 draft name member.
func (c Collection) Name() string {
	if c.ID != "" {
		return c.ID
	}
	return c.Document.OptionalString("name")
}

// NewCollection reads a collection document. Links are optional.
func NewCollection(doc document.Value) (Collection, error) {
	if doc.Kind() != document.Object {
		return Collection{}, &document.DecodeError{Path: doc.Path(), Expected: "object", Actual: doc.Kind().String()}
	}
	c := Collection{
		ID:       doc.OptionalString("id"),
		Title:    doc.OptionalString("title"),
		Document: doc,
	}
	links, err := LinksOf(doc)
	if err != nil {
		return Collection{}, err
	}
	c.Links = links
	if c.Name() == "" {
		return Collection{}, &document.DecodeError{Path: doc.Path() + ".id", Missing: true}
	}
	return c, nil
}

// ParseCollections reads the collections member of a /collections document,
// keeping at most limit entries in document order when limit is above zero.
func ParseCollections(body document.Value, limit int) ([]Collection, error) {
	items, err := body.GetArray("collections")
	if err != nil {
		return nil, err
	}
	collections := make([]Collection, 0, len(items))
	for _, item := range items {
		if limit > 0 && len(collections) >= limit {
			break
		}
		c, err := NewCollection(item)
		if err != nil {
			return nil, err
		}
		collections = append(collections, c)
	}
	return collections, nil
}

// ItemsLink returns the GeoJSON items link of a collection. OGC API Features
// 1.0 uses rel=items, the WFS 3.0 draft rel=item.
func (c Collection) ItemsLink() (Link, bool) {
	for _, rel := range []string{"items", "item"} {
		if l, ok := FindLink(c.Links, rel, MediaTypeGeoJSON); ok && l.Href != "" {
			return l, true
		}
	}
	return Link{}, false
}
