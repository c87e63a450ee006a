//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgString(t *testing.T) {
	args := []js.Value{js.ValueOf("Alice"), js.ValueOf(5), js.Null()}
	assert.Equal(t, "Alice", argString(args, 0))
	assert.Equal(t, "", argString(args, 1), "numbers are not coerced")
	assert.Equal(t, "", argString(args, 2))
	assert.Equal(t, "", argString(args, 3))
}

func TestNonStringIDsRejected(t *testing.T) {
	calls := map[string]func([]js.Value) string{
		"renameStory":    renameStory,
		"deleteStory":    deleteStory,
		"setActiveStory": setActiveStory,
		"setEntry":       setEntry,
		"deleteEntry":    deleteEntry,
	}
	args := []js.Value{js.ValueOf(5), js.ValueOf("x"), js.ValueOf("y")}
	for name, fn := range calls {
		t.Run(name, func(t *testing.T) {
			var res map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(fn(args)), &res))
			assert.Contains(t, res["error"], "string arg")
		})
	}
}
