package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/kittclouds/lorekeep/pkg/glossary"
)

// Storage keys used by the browser tool.
const (
	DefaultKey = "novel_stories"
	LegacyKey  = "novel_memory"

	// BackupSuffix is appended to the document key for the copy of a
	// document that could not be fully read.
	BackupSuffix = ".unreadable"
)

// ErrQuotaExceeded is returned when the serialized document is larger than
// the configured quota.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// DocumentStore reads and writes the whole story document as one value.
// There is no locking across processes: the last write wins.
type DocumentStore struct {
	backend Storer
	key     string
	quota   int
	log     *slog.Logger
}

// DocumentOption configures a DocumentStore.
type DocumentOption func(*DocumentStore)

// WithKey overrides the storage key.
func WithKey(key string) DocumentOption {
	return func(d *DocumentStore) {
		if key != "" {
			d.key = key
		}
	}
}

// WithQuota rejects writes whose payload exceeds n bytes. 0 disables it.
func WithQuota(n int) DocumentOption {
	return func(d *DocumentStore) { d.quota = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) DocumentOption {
	return func(d *DocumentStore) {
		if l != nil {
			d.log = l
		}
	}
}

// NewDocumentStore wraps a backend.
func NewDocumentStore(backend Storer, opts ...DocumentOption) *DocumentStore {
	d := &DocumentStore{
		backend: backend,
		key:     DefaultKey,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Key returns the storage key.
func (d *DocumentStore) Key() string { return d.key }

// Backend returns the underlying store.
func (d *DocumentStore) Backend() Storer { return d.backend }

// LoadDocument returns the persisted document. Missing data yields an
// empty document. Data that is not a JSON document also yields an empty
// document; a story or entry that cannot be read is dropped. In both lossy
// cases the raw bytes are first copied to BackupKey.
func (d *DocumentStore) LoadDocument() *Document {
	raw, err := d.backend.Get(d.key)
	if err != nil {
		d.log.Warn("store_read_failed", "key", d.key, "error", err.Error())
		return NewDocument()
	}
	if raw == nil {
		return NewDocument()
	}

	doc, dropped, err := decodeDocument(raw)
	if err != nil {
		d.log.Warn("store_document_corrupt", "key", d.key, "error", err.Error())
		d.preserve(raw)
		return NewDocument()
	}
	if len(dropped) > 0 {
		d.log.Warn("store_document_partial", "key", d.key, "dropped", dropped)
		d.preserve(raw)
	}
	return doc
}

// BackupKey is where LoadDocument copies a document it could not fully read.
func (d *DocumentStore) BackupKey() string { return d.key + BackupSuffix }

func (d *DocumentStore) preserve(raw []byte) {
	if err := d.backend.Put(d.BackupKey(), raw); err != nil {
		d.log.Error("store_backup_failed", "key", d.BackupKey(), "error", err.Error())
		return
	}
	d.log.Info("store_backup_written", "key", d.BackupKey(), "size", len(raw))
}

// SaveDocument serializes and writes the document in one Put.
func (d *DocumentStore) SaveDocument(doc *Document) error {
	raw, err := EncodeDocument(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if d.quota > 0 && len(raw) > d.quota {
		d.log.Warn("store_quota_exceeded", "key", d.key, "size", len(raw), "quota", d.quota)
		return fmt.Errorf("%w: %d bytes > %d", ErrQuotaExceeded, len(raw), d.quota)
	}
	if err := d.backend.Put(d.key, raw); err != nil {
		d.log.Warn("store_write_failed", "key", d.key, "error", err.Error())
		return fmt.Errorf("failed to write document: %w", err)
	}
	d.log.Debug("store_document_saved", "key", d.key, "size", len(raw), "stories", len(doc.Stories))
	return nil
}

// LoadLegacy reads the pre-story format: a bare entry mapping under
// LegacyKey. ok is false when nothing is stored there.
func (d *DocumentStore) LoadLegacy() (raw []byte, ok bool, err error) {
	raw, err = d.backend.Get(LegacyKey)
	if err != nil {
		return nil, false, err
	}
	return raw, raw != nil, nil
}

// HasDocument reports whether a value exists under the document key.
func (d *DocumentStore) HasDocument() (bool, error) {
	raw, err := d.backend.Get(d.key)
	if err != nil {
		return false, err
	}
	return raw != nil, nil
}

// RemoveLegacy deletes the legacy key.
func (d *DocumentStore) RemoveLegacy() error {
	return d.backend.Delete(LegacyKey)
}

// History lists retained document versions when the backend keeps them.
func (d *DocumentStore) History() ([]*Version, error) {
	v, ok := d.backend.(Versioner)
	if !ok {
		return nil, nil
	}
	return v.ListVersions(d.key)
}

// LoadVersion decodes a retained document version.
func (d *DocumentStore) LoadVersion(version int) (*Document, error) {
	v, ok := d.backend.(Versioner)
	if !ok {
		return nil, errors.New("backend does not keep history")
	}
	raw, err := v.GetVersion(d.key, version)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("version %d not found", version)
	}
	return DecodeDocument(raw)
}

// EncodeDocument renders the document as indented JSON.
func EncodeDocument(doc *Document) ([]byte, error) {
	if doc.Stories == nil {
		doc.Stories = make(map[string]*Story)
	}
	return json.MarshalIndent(doc, "", "  ")
}

// DecodeDocument parses a document leniently. Only input that is not a
// JSON document is an error: a story or entry that cannot be read is
// skipped, and unreadable timestamps become the zero time.
func DecodeDocument(raw []byte) (*Document, error) {
	doc, _, err := decodeDocument(raw)
	return doc, err
}

// decodeDocument also reports what was dropped or zeroed.
func decodeDocument(raw []byte) (*Document, []string, error) {
	var top struct {
		Stories       json.RawMessage `json:"stories"`
		ActiveStoryID json.RawMessage `json:"activeStoryId"`
	}
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, nil, err
	}

	doc := NewDocument()
	doc.ActiveStoryID = jsonString(top.ActiveStoryID)

	var stories map[string]json.RawMessage
	if !isNull(top.Stories) {
		if err := json.Unmarshal(top.Stories, &stories); err != nil {
			return nil, nil, fmt.Errorf("stories: %w", err)
		}
	}

	var dropped []string
	for id, rawStory := range stories {
		if isNull(rawStory) {
			continue
		}
		s, issues, ok := decodeStory(id, rawStory)
		for _, issue := range issues {
			dropped = append(dropped, id+": "+issue)
		}
		if !ok {
			continue
		}
		doc.Stories[id] = s
	}
	sort.Strings(dropped)
	return doc, dropped, nil
}

func decodeStory(id string, raw json.RawMessage) (*Story, []string, bool) {
	var fields struct {
		ID      json.RawMessage `json:"id"`
		Name    json.RawMessage `json:"name"`
		Created json.RawMessage `json:"created"`
		Updated json.RawMessage `json:"updated"`
		Memory  json.RawMessage `json:"memory"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, []string{"story: " + err.Error()}, false
	}

	var issues []string
	s := &Story{
		ID:     jsonString(fields.ID),
		Name:   jsonString(fields.Name),
		Memory: glossary.Memory{},
	}
	if s.ID == "" {
		s.ID = id
	}

	var ok bool
	if s.Created, ok = ParseTimestamp(fields.Created); !ok {
		issues = append(issues, "created: "+string(fields.Created))
	}
	if s.Updated, ok = ParseTimestamp(fields.Updated); !ok {
		issues = append(issues, "updated: "+string(fields.Updated))
	}

	if isNull(fields.Memory) {
		return s, issues, true
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(fields.Memory, &entries); err != nil {
		return s, append(issues, "memory: "+err.Error()), true
	}
	for name, rawEntry := range entries {
		var e glossary.Entry
		if err := json.Unmarshal(rawEntry, &e); err != nil || isNull(rawEntry) {
			issues = append(issues, "entry "+name)
			continue
		}
		s.Memory[name] = e
	}
	return s, issues, true
}

// timestampLayouts are the textual forms a browser Date can be saved in.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	time.DateTime,
	time.DateOnly,
	time.RFC1123,
	time.RFC1123Z,
}

// ParseTimestamp reads an absent/null value, an ISO-8601 or RFC 1123
// string, or a number of Unix milliseconds. ok is false when the value is
// present but unreadable; t is then the zero time.
func ParseTimestamp(raw json.RawMessage) (t time.Time, ok bool) {
	if isNull(raw) {
		return time.Time{}, true
	}
	var ms float64
	if err := json.Unmarshal(raw, &ms); err == nil {
		return time.UnixMilli(int64(ms)).UTC(), true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, true
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// jsonString returns a JSON string's value, a number's text, or "".
func jsonString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
