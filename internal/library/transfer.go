package library

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/kittclouds/lorekeep/internal/store"
	"github.com/kittclouds/lorekeep/pkg/glossary"
)

// ImportMode selects how a full backup is applied.
type ImportMode int

const (
	// ImportMerge adds every backup story under a fresh id and a suffixed name.
	ImportMerge ImportMode = iota
	// ImportReplace overwrites the whole collection.
	ImportReplace
)

// ParseImportMode maps "merge"/"replace" to a mode.
func ParseImportMode(s string) (ImportMode, error) {
	switch s {
	case "", "merge":
		return ImportMerge, nil
	case "replace":
		return ImportReplace, nil
	}
	return ImportMerge, fmt.Errorf("unknown import mode %q", s)
}

func (m ImportMode) String() string {
	if m == ImportReplace {
		return "replace"
	}
	return "merge"
}

// storyFile is the single-story export format.
type storyFile struct {
	Name    string          `json:"name"`
	Created time.Time       `json:"created"`
	Updated time.Time       `json:"updated"`
	Memory  glossary.Memory `json:"memory"`
}

// =============================================================================
// Export
// =============================================================================

// ExportEntries renders the active story's entries as indented JSON.
func (l *Library) ExportEntries() ([]byte, error) {
	return glossary.MarshalMemory(l.activeMemory())
}

// ExportStory renders one story as {name, created, updated, memory}.
func (l *Library) ExportStory(id string) ([]byte, error) {
	s, ok := l.doc.Stories[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStoryNotFound, id)
	}
	return json.MarshalIndent(storyFile{
		Name:    s.Name,
		Created: s.Created,
		Updated: s.Updated,
		Memory:  s.Memory,
	}, "", "  ")
}

// ExportAll renders the whole document as a backup.
func (l *Library) ExportAll() ([]byte, error) {
	return store.EncodeDocument(l.doc.Clone())
}

// =============================================================================
// Import
// =============================================================================

// ImportStory adds a story from a single-story export under a new id, with
// " (Imported)" appended to its name, and makes it active. Invalid input
// leaves the library untouched.
func (l *Library) ImportStory(data []byte) (string, error) {
	s, err := parseStory(data, "")
	if err != nil {
		return "", err
	}

	now := l.now().UTC()
	id := l.newID()
	s.ID = id
	s.Name += ImportedSuffix
	if s.Created.IsZero() {
		s.Created = now
	}
	s.Updated = now

	next := l.doc.Clone()
	next.Stories[id] = s
	next.ActiveStoryID = id

	l.log.Debug("library_story_imported", "story_id", id, "entries", len(s.Memory))
	return id, l.commit(next)
}

// ImportAll applies a full backup and returns how many stories it held.
// Invalid input leaves the library untouched.
func (l *Library) ImportAll(data []byte, mode ImportMode) (int, error) {
	var raw struct {
		Stories       json.RawMessage `json:"stories"`
		ActiveStoryID string          `json:"activeStoryId"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return 0, fmt.Errorf("%w: json parse error: %v", ErrInvalidImport, err)
	}
	if !isObject(raw.Stories) {
		return 0, fmt.Errorf(`%w: invalid backup format, missing "stories" object`, ErrInvalidImport)
	}

	var rawStories map[string]json.RawMessage
	if err := json.Unmarshal(raw.Stories, &rawStories); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}

	ids := make([]string, 0, len(rawStories))
	for id := range rawStories {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	parsed := make([]*store.Story, 0, len(ids))
	for _, id := range ids {
		s, err := parseStory(rawStories[id], id)
		if err != nil {
			return 0, err
		}
		parsed = append(parsed, s)
	}

	var next *store.Document
	switch mode {
	case ImportReplace:
		if len(parsed) == 0 {
			return 0, fmt.Errorf("%w: backup contains no stories", ErrInvalidImport)
		}
		next = store.NewDocument()
		for i, s := range parsed {
			s.ID = ids[i]
			next.Stories[s.ID] = s
		}
		next.ActiveStoryID = raw.ActiveStoryID
	default:
		now := l.now().UTC()
		next = l.doc.Clone()
		for _, s := range parsed {
			s.ID = l.newID()
			s.Name += ImportedSuffix
			if s.Updated.IsZero() {
				s.Updated = now
			}
			if s.Created.IsZero() {
				s.Created = s.Updated
			}
			next.Stories[s.ID] = s
		}
	}

	l.log.Info("library_backup_imported", "mode", mode.String(), "stories", len(parsed))
	return len(parsed), l.commit(next)
}

// parseStory validates one story object: name must be a non-empty string
// and memory an object of valid entries. ref names the story in errors.
func parseStory(data []byte, ref string) (*store.Story, error) {
	label := "story"
	if ref != "" {
		label = fmt.Sprintf("story %q", ref)
	}

	var raw struct {
		Name    json.RawMessage `json:"name"`
		Memory  json.RawMessage `json:"memory"`
		Created json.RawMessage `json:"created"`
		Updated json.RawMessage `json:"updated"`
	}
	if !isObject(data) {
		return nil, fmt.Errorf("%w: invalid %s, expected an object", ErrInvalidImport, label)
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: json parse error: %v", ErrInvalidImport, err)
	}

	var name string
	if err := json.Unmarshal(raw.Name, &name); err != nil || name == "" {
		return nil, fmt.Errorf("%w: invalid %s, missing name or memory", ErrInvalidImport, label)
	}
	if !isObject(raw.Memory) {
		return nil, fmt.Errorf("%w: invalid %s, missing name or memory", ErrInvalidImport, label)
	}
	memory, err := parseMemory(raw.Memory, true)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s: %v", ErrInvalidImport, label, err)
	}

	created, err := parseTime(raw.Created)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s created time: %v", ErrInvalidImport, label, err)
	}
	updated, err := parseTime(raw.Updated)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s updated time: %v", ErrInvalidImport, label, err)
	}

	return &store.Story{
		Name:    name,
		Created: created,
		Updated: updated,
		Memory:  memory,
	}, nil
}

// parseMemory decodes an entry mapping. strict validates every entry.
func parseMemory(data []byte, strict bool) (glossary.Memory, error) {
	parse := glossary.ParseLoose
	if strict {
		parse = glossary.Parse
	}
	entries, err := parse(data)
	if err != nil {
		return nil, err
	}
	return glossary.ToMemory(entries), nil
}

// parseTime accepts whatever the stored document accepts; only a present
// but unreadable value is an error.
func parseTime(raw json.RawMessage) (time.Time, error) {
	t, ok := store.ParseTimestamp(raw)
	if !ok {
		return time.Time{}, fmt.Errorf("unrecognized timestamp %s", raw)
	}
	return t, nil
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

// =============================================================================
// History
// =============================================================================

// History lists retained versions of the document, newest first. Backends
// without history return nil.
func (l *Library) History() ([]*store.Version, error) {
	return l.docs.History()
}

// RestoreVersion replaces the collection with a retained document version.
// The restore is itself a new write.
func (l *Library) RestoreVersion(version int) error {
	doc, err := l.docs.LoadVersion(version)
	if err != nil {
		return err
	}
	l.log.Info("library_version_restored", "version", version)
	return l.commit(doc)
}
