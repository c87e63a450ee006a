package library

import (
	"fmt"

	"github.com/kittclouds/lorekeep/pkg/glossary"
	"github.com/kittclouds/lorekeep/pkg/matcher"
	"github.com/kittclouds/lorekeep/pkg/merge"
	"github.com/kittclouds/lorekeep/pkg/prompt"
)

// =============================================================================
// Entries of the active story
// =============================================================================

// Entries returns a copy of the active story's entries.
func (l *Library) Entries() glossary.Memory {
	return l.activeMemory().Clone()
}

// Keys returns the active story's entry names, sorted.
func (l *Library) Keys() []string {
	return l.activeMemory().Names()
}

// Entry looks up one entry of the active story.
func (l *Library) Entry(name string) (glossary.Entry, bool) {
	e, ok := l.activeMemory()[name]
	return e, ok
}

// Types returns the distinct lowercased types in the active story.
func (l *Library) Types() []string {
	return l.activeMemory().Types()
}

// GroupedByType buckets the active story's entries by lowercased type.
func (l *Library) GroupedByType() map[string][]glossary.NamedEntry {
	return l.activeMemory().GroupByType()
}

// SetEntry adds or replaces one entry.
func (l *Library) SetEntry(name, typ, desc string) error {
	if name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidEntry)
	}
	e := glossary.Entry{Type: typ, Desc: desc}
	if err := e.Validate(); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidEntry, name, err)
	}
	return l.mutateActive(func(m glossary.Memory) {
		m[name] = e
	})
}

// DeleteEntry removes one entry. Missing names are not an error.
func (l *Library) DeleteEntry(name string) error {
	return l.mutateActive(func(m glossary.Memory) {
		delete(m, name)
	})
}

// ClearEntries removes every entry of the active story.
func (l *Library) ClearEntries() error {
	return l.mutateActive(func(m glossary.Memory) {
		for k := range m {
			delete(m, k)
		}
	})
}

// ReplaceEntries overwrites the active story's entries as a whole.
func (l *Library) ReplaceEntries(memory glossary.Memory) error {
	return l.mutateActive(func(m glossary.Memory) {
		for k := range m {
			delete(m, k)
		}
		for k, v := range memory {
			m[k] = v
		}
	})
}

func (l *Library) activeMemory() glossary.Memory {
	return l.doc.Stories[l.doc.ActiveStoryID].Memory
}

// mutateActive applies fn to a copy of the active story's entries and
// commits the result as one write.
func (l *Library) mutateActive(fn func(glossary.Memory)) error {
	next := l.doc.Clone()
	s := next.Stories[next.ActiveStoryID]
	fn(s.Memory)
	s.Updated = l.now().UTC()
	return l.commit(next)
}

// =============================================================================
// Matching and prompts
// =============================================================================

// FindMatches returns the active story's entry names found in text, in
// order of first occurrence.
func (l *Library) FindMatches(text string) []string {
	return matcher.FindMatches(text, l.Keys())
}

// MatchedEntries resolves names against the active story, keeping order and
// dropping names that no longer exist.
func (l *Library) MatchedEntries(names []string) []glossary.NamedEntry {
	return matcher.EntriesFor(l.activeMemory(), names)
}

// BuildPrompt matches story against the active glossary and assembles the
// augmented prompt. It also returns the matched names.
func (l *Library) BuildPrompt(story, instruction string) (string, []string, error) {
	names := l.FindMatches(story)
	text, err := prompt.BuildAugmented(story, l.MatchedEntries(names), instruction)
	if err != nil {
		return "", nil, err
	}
	return text, names, nil
}

// =============================================================================
// Merge
// =============================================================================

// Classify compares a proposal against the active story.
func (l *Library) Classify(proposed []glossary.NamedEntry) merge.Classification {
	return merge.Classify(l.activeMemory(), proposed)
}

// ApplyMerge writes the selected items of c into the active story with a
// single save. On ErrNotDurable the returned counts still describe the
// in-memory change.
func (l *Library) ApplyMerge(c merge.Classification, selectedNew, selectedUpdate []string) (merge.Result, error) {
	var res merge.Result
	err := l.mutateActive(func(m glossary.Memory) {
		res = merge.Apply(m, c, selectedNew, selectedUpdate)
	})
	return res, err
}
