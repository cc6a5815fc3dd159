// Package extract pulls the user's utterance out of the loosely shaped JSON
// payload the messaging platform delivers. Different platform versions and
// tutorials place the text under different keys, so extraction is a fixed
// priority search over the known candidates rather than a schema decode.
package extract

import (
	"encoding/json"
	"strings"
)

// candidate names a location to probe in the inbound payload. An empty
// parent means a top-level key; otherwise the key is looked up inside the
// named object.
type candidate struct {
	parent string
	key    string
}

// candidates is the fixed priority order. Earlier entries win when several
// locations hold text.
var candidates = []candidate{
	{"", "query"},
	{"", "text"},
	{"", "content"},
	{"message", "text"},
	{"nlpResult", "text"},
}

// Query returns the first candidate field that holds a non-empty string,
// trimmed of surrounding whitespace. Missing keys and type mismatches are
// tolerated; a non-object parent simply means the nested candidate is
// absent.
//
// When no candidate qualifies, Query falls back to the JSON serialization
// of the whole payload. That is a deliberate debugging aid, not an error:
// it lets the platform's test console show what actually arrived.
func Query(payload map[string]any) string {
	for _, c := range candidates {
		source := payload
		if c.parent != "" {
			nested, ok := payload[c.parent].(map[string]any)
			if !ok {
				continue
			}
			source = nested
		}
		if s, ok := source[c.key].(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed
			}
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		// Marshal of a decoded JSON object cannot fail, but don't panic
		// on principle.
		return ""
	}
	return string(raw)
}

// Truncate cuts s to at most n characters. It is a plain prefix cut, not
// word-aware; both the query and reply caps use it. The limit counts runes,
// not bytes: most traffic through the relay is Chinese, and a byte cut
// would both shrink the effective budget and risk splitting a rune.
func Truncate(s string, n int) string {
	if n < 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
