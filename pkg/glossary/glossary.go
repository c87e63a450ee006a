// Package glossary holds the story memory data model: named entries with a
// type and a narrative description, and their JSON encoding.
//
// Entries are persisted as {"type": ..., "desc": ...}. Decoding also accepts
// "description" for the narrative text.
package glossary

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidGlossary is returned for structurally invalid glossary JSON.
var ErrInvalidGlossary = errors.New("invalid glossary")

// Entry is a single glossary record. The name lives in the enclosing map.
type Entry struct {
	Type string `json:"type"`
	Desc string `json:"desc"`
}

// UnmarshalJSON accepts both "desc" and "description".
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type        string  `json:"type"`
		Desc        *string `json:"desc"`
		Description *string `json:"description"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Type = raw.Type
	e.Desc = ""
	switch {
	case raw.Desc != nil:
		e.Desc = *raw.Desc
	case raw.Description != nil:
		e.Desc = *raw.Description
	}
	return nil
}

// Validate reports whether the entry carries a type and a description.
func (e Entry) Validate() error {
	if e.Type == "" || e.Desc == "" {
		return errors.New(`each entry must have "type" and "desc"`)
	}
	return nil
}

// NamedEntry pairs an entry with its name, for ordered sequences.
type NamedEntry struct {
	Name string
	Entry
}

// Memory is the entry mapping of one story.
type Memory map[string]Entry

// Clone returns a shallow copy. Entries are values, so this is a full copy.
func (m Memory) Clone() Memory {
	out := make(Memory, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Names returns the entry names in ascending order.
func (m Memory) Names() []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Types returns the distinct lowercased entry types, sorted.
func (m Memory) Types() []string {
	seen := make(map[string]struct{})
	for _, e := range m {
		if e.Type != "" {
			seen[strings.ToLower(e.Type)] = struct{}{}
		}
	}
	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// GroupByType buckets entries by lowercased type ("other" when empty),
// each bucket sorted by name.
func (m Memory) GroupByType() map[string][]NamedEntry {
	grouped := make(map[string][]NamedEntry)
	for name, e := range m {
		t := strings.ToLower(e.Type)
		if t == "" {
			t = "other"
		}
		grouped[t] = append(grouped[t], NamedEntry{Name: name, Entry: e})
	}
	for _, bucket := range grouped {
		sort.Slice(bucket, func(i, j int) bool { return bucket[i].Name < bucket[j].Name })
	}
	return grouped
}

// Parse decodes a glossary object preserving key order and validates every
// entry. A repeated key keeps its first position and its last value.
func Parse(data []byte) ([]NamedEntry, error) {
	entries, err := ParseLoose(data)
	if err != nil {
		return nil, err
	}
	for _, ne := range entries {
		if err := ne.Validate(); err != nil {
			return nil, fmt.Errorf("%w: entry %q: %v", ErrInvalidGlossary, ne.Name, err)
		}
	}
	return entries, nil
}

// ParseLoose is Parse without per-entry validation. Values must still be
// objects.
func ParseLoose(data []byte) ([]NamedEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: json parse error: %v", ErrInvalidGlossary, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("%w: expected an object with keys", ErrInvalidGlossary)
	}

	var out []NamedEntry
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: json parse error: %v", ErrInvalidGlossary, err)
		}
		name := tok.(string) // object keys are always strings

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: json parse error: %v", ErrInvalidGlossary, err)
		}
		if len(raw) == 0 || raw[0] != '{' {
			return nil, fmt.Errorf("%w: entry %q must be an object", ErrInvalidGlossary, name)
		}
		var e Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("%w: entry %q: %v", ErrInvalidGlossary, name, err)
		}

		if i, dup := index[name]; dup {
			out[i].Entry = e
			continue
		}
		index[name] = len(out)
		out = append(out, NamedEntry{Name: name, Entry: e})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: json parse error: %v", ErrInvalidGlossary, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after object", ErrInvalidGlossary)
	}
	return out, nil
}

// ToMemory collects an ordered sequence into a mapping.
func ToMemory(entries []NamedEntry) Memory {
	m := make(Memory, len(entries))
	for _, ne := range entries {
		m[ne.Name] = ne.Entry
	}
	return m
}

// MarshalOrdered renders entries as an indented JSON object in the given
// order, two-space indentation, no HTML escaping.
func MarshalOrdered(entries []NamedEntry) ([]byte, error) {
	if len(entries) == 0 {
		return []byte("{}"), nil
	}

	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, ne := range entries {
		key, err := encode(ne.Name, "")
		if err != nil {
			return nil, err
		}
		val, err := encode(ne.Entry, "  ")
		if err != nil {
			return nil, err
		}
		buf.WriteString("  ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(val)
		if i < len(entries)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalMemory renders a mapping as indented JSON with names sorted.
func MarshalMemory(m Memory) ([]byte, error) {
	entries := make([]NamedEntry, 0, len(m))
	for _, name := range m.Names() {
		entries = append(entries, NamedEntry{Name: name, Entry: m[name]})
	}
	return MarshalOrdered(entries)
}

func encode(v any, prefix string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if prefix != "" {
		enc.SetIndent(prefix, "  ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
