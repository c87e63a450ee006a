//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"syscall/js"

	"github.com/hack-pad/hackpadfs/indexeddb"

	"github.com/kittclouds/lorekeep/internal/library"
	"github.com/kittclouds/lorekeep/internal/store"
	"github.com/kittclouds/lorekeep/pkg/matcher"
	"github.com/kittclouds/lorekeep/pkg/merge"
	"github.com/kittclouds/lorekeep/pkg/prompt"
)

// Version info
const Version = "0.3.0"

const (
	defaultDBName = "lorekeep"
	storeDir      = "stories"
	quotaBytes    = 5 * 1024 * 1024
)

// Global state. Every call touching lib holds mu: callbacks run on their
// own goroutines once they are wrapped in promises.
var (
	mu  sync.Mutex
	lib *library.Library
)

func main() {
	println("[Lorekeep] WASM Ready v" + Version)

	js.Global().Set("Lorekeep", js.ValueOf(map[string]interface{}{
		"version":    js.FuncOf(getVersion),
		"initialize": asyncFunc(initialize),

		// Stories
		"listStories":    asyncFunc(listStories),
		"createStory":    asyncFunc(createStory),
		"renameStory":    asyncFunc(renameStory),
		"deleteStory":    asyncFunc(deleteStory),
		"setActiveStory": asyncFunc(setActiveStory),
		"storyStats":     asyncFunc(storyStats),

		// Entries of the active story
		"getEntries":   asyncFunc(getEntries),
		"getGrouped":   asyncFunc(getGrouped),
		"getTypes":     asyncFunc(getTypes),
		"setEntry":     asyncFunc(setEntry),
		"deleteEntry":  asyncFunc(deleteEntry),
		"clearEntries": asyncFunc(clearEntries),

		// Matching and prompts
		"findMatches":     asyncFunc(findMatches),
		"scanImplicit":    asyncFunc(scanImplicit),
		"buildPrompt":     asyncFunc(buildPrompt),
		"buildExtraction": js.FuncOf(buildExtraction),
		"estimateTokens":  js.FuncOf(estimateTokens),

		// Extraction merge
		"analyzeImport": asyncFunc(analyzeImport),
		"applyImport":   asyncFunc(applyImport),

		// Import / export
		"exportStory": asyncFunc(exportStory),
		"importStory": asyncFunc(importStory),
		"exportAll":   asyncFunc(exportAll),
		"importAll":   asyncFunc(importAll),
	}))

	select {}
}

// asyncFunc wraps fn in a JS function returning a Promise of fn's JSON
// string. IndexedDB calls block on the JS event loop, so they cannot run
// on the callback goroutine itself.
func asyncFunc(fn func(args []js.Value) string) js.Func {
	return js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		handler := js.FuncOf(func(_ js.Value, p []js.Value) interface{} {
			resolve := p[0]
			go func() {
				resolve.Invoke(fn(args))
			}()
			return nil
		})
		defer handler.Release()
		return js.Global().Get("Promise").New(handler)
	})
}

// withLibrary serializes access to the library.
func withLibrary(fn func(l *library.Library) string) string {
	mu.Lock()
	defer mu.Unlock()
	if lib == nil {
		return errorResult("not initialized")
	}
	return fn(lib)
}

// getVersion returns the module version
func getVersion(this js.Value, args []js.Value) interface{} {
	return Version
}

// initialize opens the story document from IndexedDB, falling back to
// memory when IndexedDB is unavailable (private windows).
// Args: [dbName string] optional
func initialize(args []js.Value) string {
	dbName := defaultDBName
	if len(args) > 0 && args[0].Type() == js.TypeString && args[0].String() != "" {
		dbName = args[0].String()
	}

	var backend store.Storer
	fs, err := indexeddb.NewFS(context.Background(), dbName, indexeddb.Options{})
	if err == nil {
		backend, err = store.NewFSStore(fs, storeDir)
	}
	durable := err == nil
	if !durable {
		println("[Lorekeep] IndexedDB unavailable, using memory:", err.Error())
		backend = store.NewMemStore()
	}

	docs := store.NewDocumentStore(backend, store.WithQuota(quotaBytes))
	l, err := library.Open(docs)

	mu.Lock()
	lib = l
	mu.Unlock()

	if err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(map[string]interface{}{
		"durable":       durable,
		"stories":       l.Count(),
		"activeStoryId": l.ActiveStoryID(),
	})
}

// =============================================================================
// Stories
// =============================================================================

func listStories(args []js.Value) string {
	return withLibrary(func(l *library.Library) string {
		return jsonResult(map[string]interface{}{
			"stories":       l.Stories(),
			"activeStoryId": l.ActiveStoryID(),
		})
	})
}

// Args: [name string]
func createStory(args []js.Value) string {
	name := argString(args, 0)
	return withLibrary(func(l *library.Library) string {
		id, err := l.CreateStory(name)
		return mutationResult(map[string]interface{}{"id": id}, err)
	})
}

// Args: [id string, name string]
func renameStory(args []js.Value) string {
	id, name := argString(args, 0), argString(args, 1)
	if id == "" {
		return errorResult("requires 2 string args: id, name")
	}
	return withLibrary(func(l *library.Library) string {
		return mutationResult("renamed", l.RenameStory(id, name))
	})
}

// Args: [id string]
func deleteStory(args []js.Value) string {
	id := argString(args, 0)
	if id == "" {
		return errorResult("requires 1 string arg: id")
	}
	return withLibrary(func(l *library.Library) string {
		err := l.DeleteStory(id)
		return mutationResult(map[string]interface{}{"activeStoryId": l.ActiveStoryID()}, err)
	})
}

// Args: [id string]
func setActiveStory(args []js.Value) string {
	id := argString(args, 0)
	if id == "" {
		return errorResult("requires 1 string arg: id")
	}
	return withLibrary(func(l *library.Library) string {
		return mutationResult("active", l.SetActiveStory(id))
	})
}

// Args: [id string] optional, defaults to the active story
func storyStats(args []js.Value) string {
	id := argString(args, 0)
	return withLibrary(func(l *library.Library) string {
		if id == "" {
			id = l.ActiveStoryID()
		}
		stats, err := l.StoryStats(id)
		if err != nil {
			return errorResult(err.Error())
		}
		return jsonResult(stats)
	})
}

// =============================================================================
// Entries
// =============================================================================

func getEntries(args []js.Value) string {
	return withLibrary(func(l *library.Library) string {
		return jsonResult(l.Entries())
	})
}

func getGrouped(args []js.Value) string {
	return withLibrary(func(l *library.Library) string {
		return jsonResult(l.GroupedByType())
	})
}

func getTypes(args []js.Value) string {
	return withLibrary(func(l *library.Library) string {
		return jsonResult(l.Types())
	})
}

// Args: [name string, type string, desc string]
func setEntry(args []js.Value) string {
	name, typ, desc := argString(args, 0), argString(args, 1), argString(args, 2)
	if name == "" {
		return errorResult("requires 3 string args: name, type, desc")
	}
	return withLibrary(func(l *library.Library) string {
		return mutationResult("saved", l.SetEntry(name, typ, desc))
	})
}

// Args: [name string]
func deleteEntry(args []js.Value) string {
	name := argString(args, 0)
	if name == "" {
		return errorResult("requires 1 string arg: name")
	}
	return withLibrary(func(l *library.Library) string {
		return mutationResult("deleted", l.DeleteEntry(name))
	})
}

func clearEntries(args []js.Value) string {
	return withLibrary(func(l *library.Library) string {
		return mutationResult("cleared", l.ClearEntries())
	})
}

// =============================================================================
// Matching and prompts
// =============================================================================

// findMatches returns glossary names found in text, in order of first
// occurrence. Args: [text string]
func findMatches(args []js.Value) string {
	text := argString(args, 0)
	return withLibrary(func(l *library.Library) string {
		names := l.FindMatches(text)
		if names == nil {
			names = []string{}
		}
		return jsonResult(names)
	})
}

// scanImplicit returns every occurrence of every glossary name as editor
// decoration spans. Offsets are UTF-16 code units, as the editor counts them.
// Args: [text string]
func scanImplicit(args []js.Value) string {
	text := argString(args, 0)
	return withLibrary(func(l *library.Library) string {
		memory := l.Entries()
		spans := matcher.New(memory.Names()).Scan(text)
		offs := matcher.UTF16Offsets(text)

		out := make([]map[string]interface{}, 0, len(spans))
		for _, s := range spans {
			out = append(out, map[string]interface{}{
				"type":  "entry_implicit",
				"from":  offs[s.From],
				"to":    offs[s.To],
				"label": s.Key,
				"kind":  memory[s.Key].Type,
			})
		}
		return jsonResult(out)
	})
}

// buildPrompt assembles the augmented prompt for the active story.
// Args: [story string, instruction string]
func buildPrompt(args []js.Value) string {
	story, instruction := argString(args, 0), argString(args, 1)
	return withLibrary(func(l *library.Library) string {
		text, names, err := l.BuildPrompt(story, instruction)
		if err != nil {
			return errorResult(err.Error())
		}
		if names == nil {
			names = []string{}
		}
		m := prompt.Measure(text)
		return jsonResult(map[string]interface{}{
			"prompt":  text,
			"matches": names,
			"chars":   m.Chars,
			"tokens":  m.Tokens,
		})
	})
}

// buildExtraction needs no stored state.
// Args: [story string, typesJSON string] types optional
func buildExtraction(this js.Value, args []js.Value) interface{} {
	story := argString(args, 0)
	var types []string
	if raw := argString(args, 1); raw != "" {
		if err := json.Unmarshal([]byte(raw), &types); err != nil {
			return errorResult("invalid types json: " + err.Error())
		}
	}
	return prompt.BuildExtraction(story, types)
}

// Args: [text string]
func estimateTokens(this js.Value, args []js.Value) interface{} {
	return prompt.EstimateTokens(argString(args, 0))
}

// =============================================================================
// Extraction merge
// =============================================================================

// analyzeImport classifies an extraction result against the active story.
// Args: [proposalJSON string]
func analyzeImport(args []js.Value) string {
	proposal, err := merge.ParseProposal([]byte(argString(args, 0)))
	if err != nil {
		return errorResult(err.Error())
	}
	return withLibrary(func(l *library.Library) string {
		c := l.Classify(proposal)
		return jsonResult(map[string]interface{}{
			"classification": c,
			"summary":        c.Summary(),
		})
	})
}

// applyImport writes the selected items of a classification.
// Args: [classificationJSON string, selectedNewJSON string, selectedUpdateJSON string]
func applyImport(args []js.Value) string {
	if len(args) < 3 {
		return errorResult("requires 3 args: classificationJSON, selectedNewJSON, selectedUpdateJSON")
	}
	var c merge.Classification
	if err := json.Unmarshal([]byte(argString(args, 0)), &c); err != nil {
		return errorResult("invalid classification json: " + err.Error())
	}
	var selNew, selUpdate []string
	if err := json.Unmarshal([]byte(argString(args, 1)), &selNew); err != nil {
		return errorResult("invalid selection json: " + err.Error())
	}
	if err := json.Unmarshal([]byte(argString(args, 2)), &selUpdate); err != nil {
		return errorResult("invalid selection json: " + err.Error())
	}
	return withLibrary(func(l *library.Library) string {
		res, err := l.ApplyMerge(c, selNew, selUpdate)
		return mutationResult(res, err)
	})
}

// =============================================================================
// Import / export
// =============================================================================

// Args: [id string] optional, defaults to the active story
func exportStory(args []js.Value) string {
	id := argString(args, 0)
	return withLibrary(func(l *library.Library) string {
		if id == "" {
			id = l.ActiveStoryID()
		}
		data, err := l.ExportStory(id)
		if err != nil {
			return errorResult(err.Error())
		}
		return string(data)
	})
}

// Args: [storyJSON string]
func importStory(args []js.Value) string {
	data := []byte(argString(args, 0))
	return withLibrary(func(l *library.Library) string {
		id, err := l.ImportStory(data)
		return mutationResult(map[string]interface{}{"id": id}, err)
	})
}

func exportAll(args []js.Value) string {
	return withLibrary(func(l *library.Library) string {
		data, err := l.ExportAll()
		if err != nil {
			return errorResult(err.Error())
		}
		return string(data)
	})
}

// Args: [backupJSON string, mode string] mode is "merge" (default) or "replace"
func importAll(args []js.Value) string {
	data := []byte(argString(args, 0))
	mode, err := library.ParseImportMode(argString(args, 1))
	if err != nil {
		return errorResult(err.Error())
	}
	return withLibrary(func(l *library.Library) string {
		n, err := l.ImportAll(data, mode)
		return mutationResult(map[string]interface{}{"imported": n}, err)
	})
}

// =============================================================================
// Helpers
// =============================================================================

func argString(args []js.Value, i int) string {
	if i >= len(args) || args[i].Type() != js.TypeString {
		return ""
	}
	return args[i].String()
}

// mutationResult reports success, or a not-persisted warning alongside the
// value when the change only lives in memory.
func mutationResult(v interface{}, err error) string {
	if err == nil {
		return successResult(v)
	}
	if errors.Is(err, library.ErrNotDurable) {
		return jsonResult(map[string]interface{}{
			"success": v,
			"warning": err.Error(),
		})
	}
	return errorResult(err.Error())
}

// Helper: Create error result
func errorResult(msg string) string {
	result := map[string]interface{}{
		"error": msg,
	}
	jsonBytes, _ := json.Marshal(result)
	return string(jsonBytes)
}

// Helper: Create success result
func successResult(v interface{}) string {
	result := map[string]interface{}{
		"success": v,
	}
	jsonBytes, _ := json.Marshal(result)
	return string(jsonBytes)
}

func jsonResult(v interface{}) string {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return errorResult(err.Error())
	}
	return string(jsonBytes)
}
