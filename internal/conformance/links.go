package conformance

import (
	"fmt"
	"sort"
	"strings"

	"github.com/brendan.keane/featcheck/pkg/document"
)

// Link is one entry of a document's links member.
type Link struct {
	Rel   string `json:"rel"`
	Type  string `json:"type,omitempty"`
	Href  string `json:"href"`
	Title string `json:"title,omitempty"`
}

// ParseLinks reads a links array. Non-object entries are kept as empty links
// so they surface as malformed.
func ParseLinks(v document.Value) ([]Link, error) {
	items, err := v.AsArray()
	if err != nil {
		return nil, err
	}
	links := make([]Link, 0, len(items))
	for _, item := range items {
		links = append(links, Link{
			Rel:   item.OptionalString("rel"),
			Type:  item.OptionalString("type"),
			Href:  item.OptionalString("href"),
			Title: item.OptionalString("title"),
		})
	}
	return links, nil
}

// LinksOf returns the links member of a document. An absent member yields no links.
func LinksOf(doc document.Value) ([]Link, error) {
	v, ok := doc.Lookup("links")
	if !ok {
		return nil, nil
	}
	return ParseLinks(v)
}

// FindLink returns the first link with the given relation and, when typ is
// not empty, the given type.
func FindLink(links []Link, rel, typ string) (Link, bool) {
	for _, l := range links {
		if l.Rel == rel && (typ == "" || l.Type == typ) {
			return l, true
		}
	}
	return Link{}, false
}

// ViolationSet lists what a link list lacks. The zero value means no violation.
type ViolationSet struct {
	MissingSelfLink       bool     `json:"missingSelfLink,omitempty"`
	MissingAlternateTypes []string `json:"missingAlternateTypes,omitempty"`
	MalformedLinks        []string `json:"malformedLinks,omitempty"`
	DuplicateSelfLinks    int      `json:"duplicateSelfLinks,omitempty"`
}

// Empty reports whether no violation was found.
func (v ViolationSet) Empty() bool {
	return !v.MissingSelfLink &&
		len(v.MissingAlternateTypes) == 0 &&
		len(v.MalformedLinks) == 0 &&
		v.DuplicateSelfLinks == 0
}

// Messages renders each violation as one line.
func (v ViolationSet) Messages() []string {
	var msgs []string
	if v.MissingSelfLink {
		msgs = append(msgs, "no link with rel=self")
	}
	if v.DuplicateSelfLinks > 0 {
		msgs = append(msgs, fmt.Sprintf("%d links with rel=self, expected exactly one", v.DuplicateSelfLinks+1))
	}
	for _, t := range v.MissingAlternateTypes {
		msgs = append(msgs, fmt.Sprintf("no link with rel=alternate and type %s", t))
	}
	msgs = append(msgs, v.MalformedLinks...)
	return msgs
}

// ValidateLinks checks that exactly one typed self link exists and that an
// alternate link of every required type exists. Without a self link nothing
// else is reported.
func ValidateLinks(links []Link, requiredAlternateTypes []string) ViolationSet {
	var v ViolationSet

	selfLinks := 0
	for _, l := range links {
		if l.Rel == "self" {
			selfLinks++
		}
	}
	if selfLinks == 0 {
		v.MissingSelfLink = true
		return v
	}
	v.DuplicateSelfLinks = selfLinks - 1

	alternates := make(map[string]bool)
	for i, l := range links {
		if l.Rel != "self" && l.Rel != "alternate" {
			continue
		}
		var missing []string
		if strings.TrimSpace(l.Type) == "" {
			missing = append(missing, "type")
		}
		if strings.TrimSpace(l.Href) == "" {
			missing = append(missing, "href")
		}
		if len(missing) > 0 {
			v.MalformedLinks = append(v.MalformedLinks,
				fmt.Sprintf("link %d (rel=%s) has no %s", i, l.Rel, strings.Join(missing, " or ")))
		}
		if l.Rel == "alternate" && l.Type != "" {
			alternates[l.Type] = true
		}
	}

	seen := make(map[string]bool)
	for _, t := range requiredAlternateTypes {
		if !alternates[t] && !seen[t] {
			seen[t] = true
			v.MissingAlternateTypes = append(v.MissingAlternateTypes, t)
		}
	}
	sort.Strings(v.MissingAlternateTypes)

	return v
}

// MissingRelTypes returns the types in want that no link with relation rel carries.
func MissingRelTypes(links []Link, rel string, want []string) []string {
	have := make(map[string]bool)
	for _, l := range links {
		if l.Rel == rel {
			have[l.Type] = true
		}
	}
	var missing []string
	for _, t := range want {
		if !have[t] {
			missing = append(missing, t)
		}
	}
	sort.Strings(missing)
	return missing
}
