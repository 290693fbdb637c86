package mcp

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/brendan.keane/featcheck/internal/errors"
	"github.com/jmespath/go-jmespath"
	"github.com/rs/zerolog"
)

// FilterResult is a report narrowed down for a tool response
type FilterResult struct {
	Content string                 `json:"content"`
	Meta    map[string]interface{} `json:"_meta"`
}

// filterOptions selects at most one of the two filters
type filterOptions struct {
	Regex        string
	JMESPath     string
	ContextLines int
}

// estimateTokens approximates token count using chars/4 heuristic
func estimateTokens(data string) int {
	return len(data) / 4
}

func sizeMeta(body, content string) map[string]interface{} {
	return map[string]interface{}{
		"tokens": map[string]interface{}{
			"returned": estimateTokens(content),
			"source":   estimateTokens(body),
		},
		"bytes": map[string]interface{}{
			"returned": len(content),
			"source":   len(body),
		},
	}
}

// applyFilter runs the requested filter over body. It returns nil when no
// filter was requested.
func applyFilter(body string, opts filterOptions, log zerolog.Logger) (*FilterResult, error) {
	switch {
	case opts.Regex != "" && opts.JMESPath != "":
		return nil, errors.New(errors.ErrorTypeMCP, "regex and jmespath cannot be combined")
	case opts.Regex != "":
		return filterRegex(body, opts.Regex, opts.ContextLines, log)
	case opts.JMESPath != "":
		return filterJMESPath(body, opts.JMESPath)
	default:
		return nil, nil
	}
}

// filterRegex searches text using regex and returns matches with context characters
func filterRegex(body string, pattern string, contextLines int, log zerolog.Logger) (*FilterResult, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeMCP, "invalid regex pattern").
			WithContext("pattern", pattern)
	}

	// ~80 characters per line, never less than 100
	contextChars := max(contextLines*80, 100)

	log.Debug().
		Int("input_bytes", len(body)).
		Str("pattern", pattern).
		Int("context_chars", contextChars).
		Msg("filterRegex: starting")

	matches := re.FindAllStringIndex(body, -1)
	if len(matches) == 0 {
		meta := sizeMeta(body, "")
		meta["filter"] = map[string]interface{}{
			"type":          "regex",
			"pattern":       pattern,
			"total_matches": 0,
		}
		return &FilterResult{Content: "", Meta: meta}, nil
	}

	type contextWindow struct {
		start int
		end   int
	}

	// matches are ordered, so overlapping windows are always adjacent
	var merged []contextWindow
	for _, match := range matches {
		curr := contextWindow{
			start: max(0, match[0]-contextChars),
			end:   min(len(body), match[1]+contextChars),
		}
		if n := len(merged); n > 0 && curr.start <= merged[n-1].end {
			merged[n-1].end = max(merged[n-1].end, curr.end)
			continue
		}
		merged = append(merged, curr)
	}

	log.Debug().
		Int("total_matches", len(matches)).
		Int("merged_windows", len(merged)).
		Msg("filterRegex: finished merging")

	blocks := make([]string, 0, len(merged))
	for i, window := range merged {
		excerpt := body[window.start:window.end]
		if window.start > 0 {
			excerpt = "..." + excerpt
		}
		if window.end < len(body) {
			excerpt += "..."
		}
		header := fmt.Sprintf("=== Context Window %d (bytes %d-%d) ===", i+1, window.start, window.end)
		blocks = append(blocks, header+"\n"+excerpt)
	}

	content := strings.Join(blocks, "\n\n")
	meta := sizeMeta(body, content)
	meta["filter"] = map[string]interface{}{
		"type":           "regex",
		"pattern":        pattern,
		"total_matches":  len(matches),
		"merged_windows": len(merged),
	}
	return &FilterResult{Content: content, Meta: meta}, nil
}

// filterJMESPath filters JSON using a JMESPath expression
func filterJMESPath(body string, expression string) (*FilterResult, error) {
	var data interface{}
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeDecode, "invalid JSON document")
	}

	result, err := jmespath.Search(expression, data)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeMCP, "invalid jmespath expression").
			WithContext("expression", expression)
	}

	filtered, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to marshal filtered result")
	}

	resultCount := 0
	if arr, ok := result.([]interface{}); ok {
		resultCount = len(arr)
	} else if result != nil {
		resultCount = 1
	}

	content := string(filtered)
	meta := sizeMeta(body, content)
	meta["filter"] = map[string]interface{}{
		"type":         "jmespath",
		"expression":   expression,
		"result_count": resultCount,
	}
	return &FilterResult{Content: content, Meta: meta}, nil
}
