package main

import (
	"fmt"
	"log"

	"github.com/hack-pad/hackpadfs/mem"

	"github.com/kittclouds/lorekeep/internal/library"
	"github.com/kittclouds/lorekeep/internal/store"
)

func main() {
	fmt.Println("Testing MemStore...")
	testBackend(store.NewMemStore())

	fmt.Println("\nTesting SQLiteStore...")
	sqlite, err := store.NewSQLiteStore()
	if err != nil {
		log.Fatalf("NewSQLiteStore failed: %v", err)
	}
	testBackend(sqlite)

	fmt.Println("\nTesting FSStore...")
	fsys, err := mem.NewFS()
	if err != nil {
		log.Fatalf("mem.NewFS failed: %v", err)
	}
	fsStore, err := store.NewFSStore(fsys, "stories")
	if err != nil {
		log.Fatalf("NewFSStore failed: %v", err)
	}
	testBackend(fsStore)

	fmt.Println("\n✅ All tests passed!")
}

func testBackend(s store.Storer) {
	defer s.Close()

	lib, err := library.Open(store.NewDocumentStore(s))
	if err != nil {
		log.Fatalf("Open failed: %v", err)
	}
	if lib.Count() != 1 || lib.ActiveStory().Name != library.DefaultStoryName {
		log.Fatalf("expected one default story, got %d", lib.Count())
	}
	fmt.Println("  ✓ Open creates the default story")

	if err := lib.SetEntry("Alice", "character", "a knight"); err != nil {
		log.Fatalf("SetEntry failed: %v", err)
	}
	fmt.Println("  ✓ SetEntry works")

	reopened, err := library.Open(store.NewDocumentStore(s))
	if err != nil {
		log.Fatalf("reopen failed: %v", err)
	}
	if _, ok := reopened.Entry("Alice"); !ok {
		log.Fatal("entry not persisted")
	}
	fmt.Println("  ✓ Document persists across Open")

	names := reopened.FindMatches("Alice rode on.")
	if len(names) != 1 || names[0] != "Alice" {
		log.Fatalf("FindMatches expected [Alice], got %v", names)
	}
	fmt.Println("  ✓ FindMatches works")

	versions, err := reopened.History()
	if err != nil {
		log.Fatalf("History failed: %v", err)
	}
	fmt.Printf("  ✓ History: %d versions\n", len(versions))
}
