package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/lorekeep/pkg/glossary"
)

func TestFindMatches_OrderByFirstOccurrence(t *testing.T) {
	text := "Alice met Bob at the Tower"

	orders := [][]string{
		{"Bob", "Tower", "Alice"},
		{"Tower", "Alice", "Bob"},
		{"Alice", "Bob", "Tower"},
	}
	for _, keys := range orders {
		assert.Equal(t, []string{"Alice", "Bob", "Tower"}, FindMatches(text, keys), "keys %v", keys)
	}
}

func TestFindMatches_Exclusion(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		keys     []string
		expected []string
	}{
		{
			name:     "absent key",
			text:     "Alice met Bob",
			keys:     []string{"Alice", "Carol"},
			expected: []string{"Alice"},
		},
		{
			name:     "empty key never matches",
			text:     "anything",
			keys:     []string{"", "thing"},
			expected: []string{"thing"},
		},
		{
			name:     "case sensitive",
			text:     "alice met bob",
			keys:     []string{"Alice", "bob"},
			expected: []string{"bob"},
		},
		{
			name:     "no word boundary",
			text:     "Bobby waved",
			keys:     []string{"Bob"},
			expected: []string{"Bob"},
		},
		{
			name:     "empty text",
			text:     "",
			keys:     []string{"Alice"},
			expected: nil,
		},
		{
			name:     "no keys",
			text:     "Alice",
			keys:     nil,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindMatches(tt.text, tt.keys)
			if tt.expected == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestFindMatches_UsesFirstOccurrence(t *testing.T) {
	// "Tower" appears late once and "Bob" appears twice; only the first
	// occurrence counts.
	text := "Bob walked. Later the Tower fell on Bob."
	assert.Equal(t, []string{"Bob", "Tower"}, FindMatches(text, []string{"Tower", "Bob"}))
}

func TestFindMatches_OverlappingKeys(t *testing.T) {
	text := "The Dark Tower stood over the Tower Gate"
	got := FindMatches(text, []string{"Tower Gate", "Tower", "Dark Tower"})
	require.Len(t, got, 3)
	assert.Equal(t, "Dark Tower", got[0])
	assert.Equal(t, "Tower", got[1])
	assert.Equal(t, "Tower Gate", got[2])
}

func TestFindMatches_MultiByte(t *testing.T) {
	text := "สมชาย เดินไปที่ หอคอย กับ 山田"
	got := FindMatches(text, []string{"山田", "หอคอย", "สมชาย"})
	assert.Equal(t, []string{"สมชาย", "หอคอย", "山田"}, got)
}

func TestMatcher_Reuse(t *testing.T) {
	m := New([]string{"Alice", "Bob", "Alice"})
	assert.Equal(t, []string{"Alice", "Bob"}, m.Keys(), "duplicates dropped")

	assert.Equal(t, []string{"Bob", "Alice"}, m.FindMatches("Bob and Alice"))
	assert.Equal(t, []string{"Alice"}, m.FindMatches("only Alice"))
}

func TestScan_Spans(t *testing.T) {
	m := New([]string{"Bob", "Tower"})
	spans := m.Scan("Bob saw the Tower and Bob left")

	require.Len(t, spans, 3)
	assert.Equal(t, Span{From: 0, To: 3, Key: "Bob"}, spans[0])
	assert.Equal(t, Span{From: 12, To: 17, Key: "Tower"}, spans[1])
	assert.Equal(t, Span{From: 22, To: 25, Key: "Bob"}, spans[2])
}

func TestEntriesFor(t *testing.T) {
	memory := glossary.Memory{
		"Alice": {Type: "character", Desc: "a knight"},
		"Tower": {Type: "location", Desc: "tall"},
	}

	got := EntriesFor(memory, []string{"Tower", "Ghost", "Alice", "Tower"})
	require.Len(t, got, 2)
	assert.Equal(t, "Tower", got[0].Name)
	assert.Equal(t, "location", got[0].Type)
	assert.Equal(t, "Alice", got[1].Name)

	assert.Empty(t, EntriesFor(memory, nil))
}

func TestUTF16Offsets(t *testing.T) {
	assert.Equal(t, []int{0}, UTF16Offsets(""))
	assert.Equal(t, []int{0, 1, 2}, UTF16Offsets("ab"))

	// é is 2 bytes / 1 unit, 😀 is 4 bytes / 2 units
	assert.Equal(t, []int{0, 1, 1, 2, 2, 2, 2, 4, 5}, UTF16Offsets("aé😀b"))

	// Each invalid byte is one unit
	assert.Equal(t, []int{0, 1, 2, 3}, UTF16Offsets("a\xffb"))
	assert.Equal(t, []int{0, 1, 2, 3}, UTF16Offsets("\xe2\x82b"))
}

func TestUTF16Offsets_Spans(t *testing.T) {
	text := "😀 Alice\xff met Éowyn"
	spans := New([]string{"Alice", "Éowyn"}).Scan(text)
	require.Len(t, spans, 2)

	offs := UTF16Offsets(text)
	assert.Equal(t, 3, offs[spans[0].From])
	assert.Equal(t, 8, offs[spans[0].To])
	assert.Equal(t, 14, offs[spans[1].From])
	assert.Equal(t, 19, offs[spans[1].To])
}
