package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/hack-pad/hackpadfs/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/lorekeep/pkg/glossary"
)

// =============================================================================
// Store Factory for Testing All Implementations
// =============================================================================

// storeFactory creates a store for testing.
// We test MemStore, SQLiteStore and FSStore with the same test suite.
type storeFactory func() (Storer, error)

func memStoreFactory() (Storer, error) {
	return NewMemStore(), nil
}

func sqliteStoreFactory() (Storer, error) {
	return NewSQLiteStore()
}

func fsStoreFactory() (Storer, error) {
	fs, err := mem.NewFS()
	if err != nil {
		return nil, err
	}
	return NewFSStore(fs, "lorekeep")
}

// runTestsForAllStores runs a test function against every store implementation.
func runTestsForAllStores(t *testing.T, testName string, testFn func(t *testing.T, store Storer)) {
	factories := map[string]storeFactory{
		"MemStore":    memStoreFactory,
		"SQLiteStore": sqliteStoreFactory,
		"FSStore":     fsStoreFactory,
	}

	for name, factory := range factories {
		t.Run(name+"/"+testName, func(t *testing.T) {
			store, err := factory()
			require.NoError(t, err, "Failed to create store")
			defer store.Close()
			testFn(t, store)
		})
	}
}

// =============================================================================
// Key-Value Tests
// =============================================================================

func TestStoreCreation(t *testing.T) {
	runTestsForAllStores(t, "Creation", func(t *testing.T, store Storer) {
		require.NotNil(t, store, "Store should not be nil")
	})
}

func TestPutAndGet(t *testing.T) {
	runTestsForAllStores(t, "PutAndGet", func(t *testing.T, store Storer) {
		err := store.Put("novel_stories", []byte(`{"stories":{}}`))
		require.NoError(t, err, "Put should not error")

		got, err := store.Get("novel_stories")
		require.NoError(t, err, "Get should not error")
		assert.Equal(t, `{"stories":{}}`, string(got))

		// Overwrite
		err = store.Put("novel_stories", []byte(`{"stories":{"a":{}}}`))
		require.NoError(t, err)

		got, err = store.Get("novel_stories")
		require.NoError(t, err)
		assert.Equal(t, `{"stories":{"a":{}}}`, string(got))
	})
}

func TestGetNotFound(t *testing.T) {
	runTestsForAllStores(t, "GetNotFound", func(t *testing.T, store Storer) {
		got, err := store.Get("nonexistent")
		require.NoError(t, err, "Get for nonexistent should not error")
		assert.Nil(t, got, "Should return nil for nonexistent key")
	})
}

func TestDelete(t *testing.T) {
	runTestsForAllStores(t, "Delete", func(t *testing.T, store Storer) {
		require.NoError(t, store.Put("novel_memory", []byte(`{}`)))

		require.NoError(t, store.Delete("novel_memory"))

		got, err := store.Get("novel_memory")
		require.NoError(t, err)
		assert.Nil(t, got)

		// Deleting again is fine
		assert.NoError(t, store.Delete("novel_memory"))
	})
}

func TestKeysAreIndependent(t *testing.T) {
	runTestsForAllStores(t, "KeysIndependent", func(t *testing.T, store Storer) {
		require.NoError(t, store.Put("a", []byte("1")))
		require.NoError(t, store.Put("b", []byte("2")))

		a, err := store.Get("a")
		require.NoError(t, err)
		b, err := store.Get("b")
		require.NoError(t, err)
		assert.Equal(t, "1", string(a))
		assert.Equal(t, "2", string(b))
	})
}

func TestReturnedBytesAreCopies(t *testing.T) {
	runTestsForAllStores(t, "Copies", func(t *testing.T, store Storer) {
		value := []byte("abc")
		require.NoError(t, store.Put("k", value))
		value[0] = 'X'

		got, err := store.Get("k")
		require.NoError(t, err)
		assert.Equal(t, "abc", string(got))
	})
}

// =============================================================================
// Document Tests
// =============================================================================

func sampleDocument() *Document {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &Document{
		Stories: map[string]*Story{
			"story_1": {
				ID:      "story_1",
				Name:    "The Tower",
				Created: now,
				Updated: now,
				Memory: glossary.Memory{
					"Alice": {Type: "character", Desc: "a knight"},
				},
			},
		},
		ActiveStoryID: "story_1",
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	runTestsForAllStores(t, "DocumentRoundTrip", func(t *testing.T, store Storer) {
		ds := NewDocumentStore(store)

		require.NoError(t, ds.SaveDocument(sampleDocument()))

		doc := ds.LoadDocument()
		require.Len(t, doc.Stories, 1)
		assert.Equal(t, "story_1", doc.ActiveStoryID)

		s := doc.Stories["story_1"]
		require.NotNil(t, s)
		assert.Equal(t, "The Tower", s.Name)
		assert.Equal(t, glossary.Entry{Type: "character", Desc: "a knight"}, s.Memory["Alice"])
		assert.True(t, s.Created.Equal(sampleDocument().Stories["story_1"].Created))
	})
}

func TestLoadDocument_MissingOrCorrupt(t *testing.T) {
	runTestsForAllStores(t, "MissingOrCorrupt", func(t *testing.T, store Storer) {
		ds := NewDocumentStore(store)

		doc := ds.LoadDocument()
		require.NotNil(t, doc)
		assert.Empty(t, doc.Stories)
		assert.Empty(t, doc.ActiveStoryID)

		require.NoError(t, store.Put(DefaultKey, []byte("{not json")))
		doc = ds.LoadDocument()
		assert.Empty(t, doc.Stories)

		backup, err := store.Get(ds.BackupKey())
		require.NoError(t, err)
		assert.Equal(t, "{not json", string(backup), "unreadable bytes are kept aside")
	})
}

func TestLoadDocument_DropsOnlyUnreadableParts(t *testing.T) {
	raw := `{
		"stories": {
			"epic": {
				"id": "epic",
				"name": "Epic",
				"created": "2024-01-05",
				"updated": 1704412800000,
				"memory": {
					"Alice": {"type": "character", "desc": "a knight"},
					"Broken": "not an entry"
				}
			},
			"saga": {"id": "saga", "name": "Saga", "created": "sometime", "memory": []},
			"junk": 42
		},
		"activeStoryId": "epic"
	}`

	backend := NewMemStore()
	require.NoError(t, backend.Put(DefaultKey, []byte(raw)))
	ds := NewDocumentStore(backend)

	doc := ds.LoadDocument()
	require.Len(t, doc.Stories, 2)
	assert.Equal(t, "epic", doc.ActiveStoryID)

	epic := doc.Stories["epic"]
	assert.Equal(t, "Epic", epic.Name)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), epic.Created)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), epic.Updated)
	assert.Equal(t, glossary.Memory{"Alice": {Type: "character", Desc: "a knight"}}, epic.Memory)

	saga := doc.Stories["saga"]
	assert.Equal(t, "Saga", saga.Name)
	assert.True(t, saga.Created.IsZero())
	assert.NotNil(t, saga.Memory)

	backup, err := backend.Get(ds.BackupKey())
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(backup))
}

func TestLoadDocument_CleanDocumentWritesNoBackup(t *testing.T) {
	backend := NewMemStore()
	ds := NewDocumentStore(backend)
	require.NoError(t, ds.SaveDocument(sampleDocument()))

	ds.LoadDocument()
	backup, err := backend.Get(ds.BackupKey())
	require.NoError(t, err)
	assert.Nil(t, backup)
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 5, 6, 12, 53, 20, 0, time.UTC)
	tests := []struct {
		raw  string
		want time.Time
		ok   bool
	}{
		{``, time.Time{}, true},
		{`null`, time.Time{}, true},
		{`""`, time.Time{}, true},
		{`"2024-05-06T12:53:20.000Z"`, want, true},
		{`"2024-05-06T14:53:20+02:00"`, want, true},
		{`"2024-05-06T12:53:20"`, want, true},
		{`"2024-05-06 12:53:20"`, want, true},
		{`"Mon, 06 May 2024 12:53:20 GMT"`, want, true},
		{`1715000000000`, want, true},
		{`"2024-05-06"`, time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), true},
		{`"yesterday"`, time.Time{}, false},
		{`true`, time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseTimestamp(json.RawMessage(tt.raw))
			assert.Equal(t, tt.ok, ok)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}

func TestDecodeDocument_BrowserFormat(t *testing.T) {
	raw := `{
		"stories": {
			"story_1715000000000_abc123xyz": {
				"id": "story_1715000000000_abc123xyz",
				"name": "Default Story",
				"created": "2024-05-06T12:53:20.000Z",
				"updated": "2024-05-06T12:53:20.000Z",
				"memory": {"Alice": {"type": "character", "desc": "a knight"}}
			},
			"story_empty": {"id": "story_empty", "name": "Empty", "memory": null},
			"story_nil": null
		},
		"activeStoryId": "story_1715000000000_abc123xyz"
	}`

	doc, err := DecodeDocument([]byte(raw))
	require.NoError(t, err)
	require.Len(t, doc.Stories, 2)
	assert.NotNil(t, doc.Stories["story_empty"].Memory)
	assert.Equal(t, 2024, doc.Stories["story_1715000000000_abc123xyz"].Created.Year())
}

func TestSaveDocument_Quota(t *testing.T) {
	ds := NewDocumentStore(NewMemStore(), WithQuota(64))

	err := ds.SaveDocument(sampleDocument())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	has, err := ds.HasDocument()
	require.NoError(t, err)
	assert.False(t, has, "nothing is written when the quota is exceeded")
}

func TestDocumentStore_CustomKeyAndLegacy(t *testing.T) {
	backend := NewMemStore()
	ds := NewDocumentStore(backend, WithKey("custom"))
	assert.Equal(t, "custom", ds.Key())

	require.NoError(t, backend.Put(LegacyKey, []byte(`{"Alice":{"type":"character","desc":"x"}}`)))

	raw, ok, err := ds.LoadLegacy()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, string(raw), "Alice")

	require.NoError(t, ds.RemoveLegacy())
	_, ok, err = ds.LoadLegacy()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFSStore_InvalidKey(t *testing.T) {
	s, err := fsStoreFactory()
	require.NoError(t, err)

	for _, key := range []string{"", "..", "a/b", `a\b`} {
		assert.Error(t, s.Put(key, []byte("x")), "key %q", key)
	}
}
