package openapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/brendan.keane/featcheck/pkg/document"
)

// DescriptionRels are the landing page link relations that point at an API
// description, in preference order
var DescriptionRels = []string{"service-desc", "service"}

// DiscoverDescriptionURL reads the landing page and returns the API description
// link. OpenAPI typed links win over other types; when the landing page carries
// no usable link the conventional {landing}/api location is returned.
func DiscoverDescriptionURL(ctx context.Context, client HTTPClient, landing string) (string, error) {
	base, err := url.Parse(landing)
	if err != nil {
		return "", fmt.Errorf("parsing landing page URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", landing, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching landing page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("reading landing page: %w", err)
		}
		if href, ok := descriptionLink(body); ok {
			ref, err := url.Parse(href)
			if err != nil {
				return "", fmt.Errorf("parsing description link %q: %w", href, err)
			}
			return base.ResolveReference(ref).String(), nil
		}
	}

	return strings.TrimSuffix(landing, "/") + "/api", nil
}

func descriptionLink(body []byte) (string, bool) {
	doc, err := document.Decode(body)
	if err != nil {
		return "", false
	}
	links, err := doc.GetArray("links")
	if err != nil {
		return "", false
	}

	for _, rel := range DescriptionRels {
		fallback := ""
		for _, link := range links {
			if link.OptionalString("rel") != rel {
				continue
			}
			href := link.OptionalString("href")
			if href == "" {
				continue
			}
			typ := link.OptionalString("type")
			if strings.Contains(typ, "openapi") {
				return href, true
			}
			if fallback == "" {
				fallback = href
			}
		}
		if fallback != "" {
			return fallback, true
		}
	}
	return "", false
}

// Load parses the API description of a Features API. An empty description URL
// is discovered from the landing page first.
func Load(ctx context.Context, client HTTPClient, landing, description string) (*Parser, error) {
	if description == "" {
		var err error
		if description, err = DiscoverDescriptionURL(ctx, client, landing); err != nil {
			return nil, err
		}
	}

	p := NewParserWithClient(client)
	if err := p.LoadFromURL(ctx, description); err != nil {
		return nil, err
	}
	return p, nil
}
