package http

import (
	"net/url"
	"strings"

	"github.com/brendan.keane/featcheck/internal/errors"
)

// ApplyQueryParameters merges query values into a target URL
func ApplyQueryParameters(targetURL string, query url.Values) (string, error) {
	if len(query) == 0 {
		return targetURL, nil
	}

	parsedURL, err := url.Parse(targetURL)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse target URL for query parameters").
			WithContext("url", targetURL)
	}

	merged := parsedURL.Query()
	for key, values := range query {
		merged.Del(key)
		for _, value := range values {
			merged.Add(key, value)
		}
	}

	// Commas in bbox and slashes in time intervals stay literal
	encoded := merged.Encode()
	encoded = strings.NewReplacer("%2C", ",", "%2F", "/", "%3A", ":").Replace(encoded)
	parsedURL.RawQuery = encoded
	return parsedURL.String(), nil
}

// ParseHeaders turns "Name: value" flag entries into a header map.
// Entries without a name are ignored.
func ParseHeaders(entries []string) map[string]string {
	headers := make(map[string]string, len(entries))
	for _, entry := range entries {
		parts := strings.SplitN(entry, ":", 2)
		name := strings.TrimSpace(parts[0])
		if name == "" {
			continue
		}
		value := ""
		if len(parts) == 2 {
			value = strings.TrimSpace(parts[1])
		}
		headers[name] = value
	}
	return headers
}
