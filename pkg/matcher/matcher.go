// Package matcher finds which glossary names occur verbatim in story text.
// A single Aho-Corasick automaton scans the text once for every name.
package matcher

import (
	"sort"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"

	"github.com/kittclouds/lorekeep/pkg/glossary"
)

// Span is one occurrence of a key in text, as byte offsets.
type Span struct {
	From int    `json:"from"`
	To   int    `json:"to"`
	Key  string `json:"key"`
}

// Matcher is compiled once per key set and reused across texts.
type Matcher struct {
	ac   ahocorasick.AhoCorasick
	keys []string // index-aligned with AC patterns
}

// New compiles a matcher. Empty and repeated keys are dropped: the empty
// string is contained in every text and carries no meaning.
func New(keys []string) *Matcher {
	m := &Matcher{}
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		m.keys = append(m.keys, k)
	}
	if len(m.keys) == 0 {
		return m
	}

	b := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		AsciiCaseInsensitive: false,
		MatchOnlyWholeWords:  false,
		MatchKind:            ahocorasick.StandardMatch, // required for IterOverlapping
		DFA:                  false,
	})
	m.ac = b.Build(m.keys)
	return m
}

// Keys returns the compiled key set in compile order.
func (m *Matcher) Keys() []string {
	return append([]string(nil), m.keys...)
}

// Scan returns every occurrence of every key, overlapping ones included,
// ordered by start offset then by longer match first.
func (m *Matcher) Scan(text string) []Span {
	if len(m.keys) == 0 || text == "" {
		return nil
	}

	var spans []Span
	iter := m.ac.IterOverlapping(text)
	for {
		hit := iter.Next()
		if hit == nil {
			break
		}
		idx := hit.Pattern()
		if idx >= len(m.keys) {
			continue
		}
		spans = append(spans, Span{From: hit.Start(), To: hit.End(), Key: m.keys[idx]})
	}

	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].From != spans[j].From {
			return spans[i].From < spans[j].From
		}
		return spans[i].To > spans[j].To
	})
	return spans
}

// FindMatches returns the keys that occur in text, ordered by the offset of
// their first occurrence. Keys sharing a first offset keep compile order.
func (m *Matcher) FindMatches(text string) []string {
	if len(m.keys) == 0 || text == "" {
		return nil
	}

	first := make([]int, len(m.keys))
	for i := range first {
		first[i] = -1
	}

	iter := m.ac.IterOverlapping(text)
	for {
		hit := iter.Next()
		if hit == nil {
			break
		}
		idx := hit.Pattern()
		if idx >= len(first) {
			continue
		}
		if start := hit.Start(); first[idx] < 0 || start < first[idx] {
			first[idx] = start
		}
	}

	found := make([]int, 0, len(m.keys))
	for i, off := range first {
		if off >= 0 {
			found = append(found, i)
		}
	}
	sort.SliceStable(found, func(a, b int) bool {
		return first[found[a]] < first[found[b]]
	})

	out := make([]string, len(found))
	for i, idx := range found {
		out[i] = m.keys[idx]
	}
	return out
}

// FindMatches is the one-shot form of (*Matcher).FindMatches.
func FindMatches(text string, keys []string) []string {
	return New(keys).FindMatches(text)
}

// EntriesFor resolves keys against memory, keeping key order. Keys missing
// from memory are dropped; they may come from an older snapshot.
func EntriesFor(memory glossary.Memory, keys []string) []glossary.NamedEntry {
	out := make([]glossary.NamedEntry, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		e, ok := memory[k]
		if !ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, glossary.NamedEntry{Name: k, Entry: e})
	}
	return out
}
