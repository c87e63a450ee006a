// Package library manages the story collection: which story is active, its
// glossary entries, and import/export of stories and backups.
//
// The whole document is held in memory and written back as one value after
// every mutation. A Library is meant for a single user in a single process;
// two writers on the same backend overwrite each other (last write wins).
package library

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kittclouds/lorekeep/internal/store"
	"github.com/kittclouds/lorekeep/pkg/glossary"
)

// Story names assigned by the library.
const (
	DefaultStoryName  = "Default Story"
	UntitledStoryName = "Untitled Story"
	MigratedStoryName = "My Story (Migrated)"
	ImportedSuffix    = " (Imported)"
)

var (
	ErrStoryNotFound = errors.New("story not found")
	ErrLastStory     = errors.New("cannot delete the only story")
	ErrInvalidEntry  = errors.New("invalid entry")
	ErrInvalidImport = errors.New("invalid import")

	// ErrNotDurable wraps persistence failures. The in-memory state already
	// holds the change; callers may retry with Save or warn the user.
	ErrNotDurable = errors.New("change not persisted")
)

// Library is the story collection bound to a document store.
type Library struct {
	docs  *store.DocumentStore
	doc   *store.Document
	now   func() time.Time
	newID func() string
	log   *slog.Logger
}

// Option configures a Library.
type Option func(*Library)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Library) { l.now = now }
}

// WithIDGenerator overrides story id generation.
func WithIDGenerator(gen func() string) Option {
	return func(l *Library) { l.newID = gen }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(l *Library) {
		if log != nil {
			l.log = log
		}
	}
}

// NewStoryID returns "story_" followed by a random UUID.
func NewStoryID() string {
	return "story_" + uuid.NewString()
}

// Open loads the document, migrating the legacy single-glossary format and
// synthesizing a default story when none exists. A non-nil error wraps
// ErrNotDurable; the returned Library is usable either way.
func Open(docs *store.DocumentStore, opts ...Option) (*Library, error) {
	l := &Library{
		docs:  docs,
		now:   time.Now,
		newID: NewStoryID,
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}

	migrateErr := l.migrateLegacy()

	l.doc = docs.LoadDocument()
	if l.restoreInvariants(l.doc) {
		if err := l.save(); err != nil {
			return l, err
		}
	}
	return l, migrateErr
}

// migrateLegacy converts a bare entry mapping stored under the legacy key
// into a story, when the current key is still empty.
func (l *Library) migrateLegacy() error {
	raw, ok, err := l.docs.LoadLegacy()
	if err != nil {
		l.log.Warn("library_legacy_read_failed", "error", err.Error())
		return nil
	}
	if !ok {
		return nil
	}
	has, err := l.docs.HasDocument()
	if err != nil || has {
		return nil
	}

	memory, err := parseMemory(raw, false)
	if err != nil {
		l.log.Error("library_migration_failed", "error", err.Error())
		return nil
	}

	now := l.now().UTC()
	id := l.newID()
	doc := store.NewDocument()
	doc.Stories[id] = &store.Story{
		ID:      id,
		Name:    MigratedStoryName,
		Created: now,
		Updated: now,
		Memory:  memory,
	}
	doc.ActiveStoryID = id

	if err := l.docs.SaveDocument(doc); err != nil {
		return fmt.Errorf("%w: %w", ErrNotDurable, err)
	}
	if err := l.docs.RemoveLegacy(); err != nil {
		l.log.Warn("library_legacy_remove_failed", "error", err.Error())
	}
	l.log.Info("library_migrated_legacy", "story_id", id, "entries", len(memory))
	return nil
}

// restoreInvariants keeps the collection non-empty and the active pointer
// valid. It reports whether doc changed.
func (l *Library) restoreInvariants(doc *store.Document) bool {
	changed := false
	if doc.Stories == nil {
		doc.Stories = make(map[string]*store.Story)
		changed = true
	}

	for id, s := range doc.Stories {
		if s.ID != id {
			s.ID = id
			changed = true
		}
		if s.Memory == nil {
			s.Memory = glossary.Memory{}
			changed = true
		}
	}

	if len(doc.Stories) == 0 {
		now := l.now().UTC()
		id := l.newID()
		doc.Stories[id] = &store.Story{
			ID:      id,
			Name:    DefaultStoryName,
			Created: now,
			Updated: now,
			Memory:  glossary.Memory{},
		}
		doc.ActiveStoryID = id
		l.log.Info("library_default_story_created", "story_id", id)
		return true
	}

	if _, ok := doc.Stories[doc.ActiveStoryID]; !ok {
		prev := doc.ActiveStoryID
		doc.ActiveStoryID = sortedStories(doc)[0].ID
		l.log.Warn("library_active_pointer_repaired", "from", prev, "to", doc.ActiveStoryID)
		changed = true
	}
	return changed
}

// commit swaps in next, restores invariants and persists it.
func (l *Library) commit(next *store.Document) error {
	l.restoreInvariants(next)
	l.doc = next
	return l.save()
}

// Save writes the in-memory document. Use it to retry after ErrNotDurable.
func (l *Library) Save() error {
	return l.save()
}

func (l *Library) save() error {
	if err := l.docs.SaveDocument(l.doc); err != nil {
		return fmt.Errorf("%w: %w", ErrNotDurable, err)
	}
	return nil
}

// Reload discards in-memory state and reads the document again.
func (l *Library) Reload() error {
	l.doc = l.docs.LoadDocument()
	if l.restoreInvariants(l.doc) {
		return l.save()
	}
	return nil
}

// Document returns a copy of the whole document.
func (l *Library) Document() *store.Document {
	return l.doc.Clone()
}

// =============================================================================
// Stories
// =============================================================================

// sortedStories orders by Updated descending, then by id.
func sortedStories(doc *store.Document) []*store.Story {
	out := make([]*store.Story, 0, len(doc.Stories))
	for _, s := range doc.Stories {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Updated.Equal(out[j].Updated) {
			return out[i].Updated.After(out[j].Updated)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Stories returns copies of all stories, most recently updated first.
func (l *Library) Stories() []*store.Story {
	sorted := sortedStories(l.doc)
	for i, s := range sorted {
		sorted[i] = s.Clone()
	}
	return sorted
}

// Count returns the number of stories.
func (l *Library) Count() int {
	return len(l.doc.Stories)
}

// Story returns a copy of the story with id.
func (l *Library) Story(id string) (*store.Story, error) {
	s, ok := l.doc.Stories[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStoryNotFound, id)
	}
	return s.Clone(), nil
}

// ActiveStoryID returns the id of the active story.
func (l *Library) ActiveStoryID() string {
	return l.doc.ActiveStoryID
}

// ActiveStory returns a copy of the active story.
func (l *Library) ActiveStory() *store.Story {
	return l.doc.Stories[l.doc.ActiveStoryID].Clone()
}

// SetActiveStory switches the active story.
func (l *Library) SetActiveStory(id string) error {
	if _, ok := l.doc.Stories[id]; !ok {
		return fmt.Errorf("%w: %s", ErrStoryNotFound, id)
	}
	next := l.doc.Clone()
	next.ActiveStoryID = id
	return l.commit(next)
}

// CreateStory adds an empty story, makes it active and returns its id.
func (l *Library) CreateStory(name string) (string, error) {
	if name == "" {
		name = UntitledStoryName
	}
	now := l.now().UTC()
	id := l.newID()

	next := l.doc.Clone()
	next.Stories[id] = &store.Story{
		ID:      id,
		Name:    name,
		Created: now,
		Updated: now,
		Memory:  glossary.Memory{},
	}
	next.ActiveStoryID = id

	l.log.Debug("library_story_created", "story_id", id, "name", name)
	return id, l.commit(next)
}

// RenameStory changes a story's name.
func (l *Library) RenameStory(id, name string) error {
	if _, ok := l.doc.Stories[id]; !ok {
		return fmt.Errorf("%w: %s", ErrStoryNotFound, id)
	}
	if name == "" {
		return fmt.Errorf("%w: story name must not be empty", ErrInvalidEntry)
	}
	next := l.doc.Clone()
	s := next.Stories[id]
	s.Name = name
	s.Updated = l.now().UTC()
	return l.commit(next)
}

// DeleteStory removes a story. The last remaining story cannot be deleted.
// Deleting the active story moves the pointer to another story.
func (l *Library) DeleteStory(id string) error {
	if _, ok := l.doc.Stories[id]; !ok {
		return fmt.Errorf("%w: %s", ErrStoryNotFound, id)
	}
	if len(l.doc.Stories) <= 1 {
		return ErrLastStory
	}
	next := l.doc.Clone()
	delete(next.Stories, id)

	l.log.Debug("library_story_deleted", "story_id", id)
	return l.commit(next)
}

// Stats summarizes one story.
type Stats struct {
	EntryCount int       `json:"entryCount"`
	Types      []string  `json:"types"`
	Created    time.Time `json:"created"`
	Updated    time.Time `json:"updated"`
}

// StoryStats returns entry count and distinct types of a story.
func (l *Library) StoryStats(id string) (*Stats, error) {
	s, ok := l.doc.Stories[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStoryNotFound, id)
	}
	return &Stats{
		EntryCount: len(s.Memory),
		Types:      s.Memory.Types(),
		Created:    s.Created,
		Updated:    s.Updated,
	}, nil
}
