// Package store provides persistence for lorekeep.
// Every backend is a byte-blob key-value store; the whole story document is
// read and written as one value under a fixed key.
package store

import (
	"time"

	"github.com/kittclouds/lorekeep/pkg/glossary"
)

// Story is a named collection of glossary entries.
// The JSON shape matches what the browser tool has always persisted.
type Story struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Created time.Time       `json:"created"`
	Updated time.Time       `json:"updated"`
	Memory  glossary.Memory `json:"memory"`
}

// Clone returns a deep copy.
func (s *Story) Clone() *Story {
	c := *s
	c.Memory = s.Memory.Clone()
	return &c
}

// Document is the single persisted value: all stories plus the active pointer.
type Document struct {
	Stories       map[string]*Story `json:"stories"`
	ActiveStoryID string            `json:"activeStoryId"`
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{Stories: make(map[string]*Story)}
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	c := &Document{
		Stories:       make(map[string]*Story, len(d.Stories)),
		ActiveStoryID: d.ActiveStoryID,
	}
	for id, s := range d.Stories {
		c.Stories[id] = s.Clone()
	}
	return c
}

// Version is one historical write of a key (SQLite backend only).
type Version struct {
	Key       string `json:"key"`
	Version   int    `json:"version"`
	Size      int    `json:"size"`
	ValidFrom int64  `json:"validFrom"`
	ValidTo   *int64 `json:"validTo,omitempty"`
	IsCurrent bool   `json:"isCurrent"`
}

// Storer is a byte-blob key-value store.
// Get returns (nil, nil) for a missing key.
type Storer interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error

	// Lifecycle
	Close() error
}

// Versioner is implemented by backends that keep write history.
type Versioner interface {
	ListVersions(key string) ([]*Version, error)
	GetVersion(key string, version int) ([]byte, error)
}
