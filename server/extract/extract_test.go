package extract

import (
	"encoding/json"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{
			name:    "top-level query",
			payload: `{"query":"what time is it"}`,
			want:    "what time is it",
		},
		{
			name:    "top-level text",
			payload: `{"text":"hello"}`,
			want:    "hello",
		},
		{
			name:    "top-level content",
			payload: `{"content":"tell me a joke"}`,
			want:    "tell me a joke",
		},
		{
			name:    "nested message.text",
			payload: `{"message":{"text":"weather today"}}`,
			want:    "weather today",
		},
		{
			name:    "nested nlpResult.text",
			payload: `{"nlpResult":{"text":"translate this"}}`,
			want:    "translate this",
		},
		{
			name:    "query wins over text",
			payload: `{"text":"second","query":"first"}`,
			want:    "first",
		},
		{
			name:    "text wins over nested message",
			payload: `{"message":{"text":"nested"},"text":"flat"}`,
			want:    "flat",
		},
		{
			name:    "surrounding whitespace trimmed",
			payload: `{"text":"  hello  "}`,
			want:    "hello",
		},
		{
			name:    "whitespace-only candidate skipped",
			payload: `{"query":"   ","text":"fallthrough"}`,
			want:    "fallthrough",
		},
		{
			name:    "non-string candidate skipped",
			payload: `{"query":42,"text":"still here"}`,
			want:    "still here",
		},
		{
			name:    "non-object parent tolerated",
			payload: `{"message":"not an object","nlpResult":{"text":"deep"}}`,
			want:    "deep",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var payload map[string]any
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &payload))
			assert.Equal(t, tt.want, Query(payload))
		})
	}
}

func TestQueryFallbackSerializesPayload(t *testing.T) {
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"event":"subscribe","userId":"u1"}`), &payload))

	got := Query(payload)

	// The fallback must be the JSON serialization of the full payload.
	var roundTrip map[string]any
	require.NoError(t, json.Unmarshal([]byte(got), &roundTrip))
	assert.Equal(t, payload, roundTrip)
}

func TestQueryEmptyObjectFallsBack(t *testing.T) {
	assert.Equal(t, "{}", Query(map[string]any{}))
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"shorter than limit", "abc", 10, "abc"},
		{"exactly at limit", "abc", 3, "abc"},
		{"prefix cut", "abcdef", 3, "abc"},
		{"zero limit", "abc", 0, ""},
		{"negative limit keeps input", "abc", -1, "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truncate(tt.in, tt.n))
		})
	}
}

func TestTruncateCountsCharactersNotBytes(t *testing.T) {
	s := "今天天气晴朗"

	got := Truncate(s, 4)
	assert.Equal(t, "今天天气", got)
	assert.Equal(t, 4, utf8.RuneCountInString(got))
	assert.True(t, utf8.ValidString(got))

	// At or above the rune count the string is untouched.
	assert.Equal(t, s, Truncate(s, 6))
	assert.Equal(t, s, Truncate(s, 100))

	// Mixed-width input still cuts on character boundaries.
	assert.Equal(t, "ab天", Truncate("ab天气", 3))
}

func TestTruncateIsPrefixOfExtraction(t *testing.T) {
	payload := map[string]any{"text": "a moderately long utterance for the prefix property"}
	full := Query(payload)
	for _, n := range []int{0, 1, 5, 10, len(full), len(full) + 10} {
		got := Truncate(full, n)
		assert.True(t, len(got) <= n || n > len(full))
		assert.Equal(t, full[:min(n, len(full))], got)
	}
}
