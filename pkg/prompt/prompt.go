// Package prompt formats the text sent to an external generation service.
// It only builds strings; calling the service is left to the caller.
package prompt

import (
	"strings"

	"github.com/kittclouds/lorekeep/pkg/glossary"
)

// DefaultInstruction is used when the caller supplies no instruction.
const DefaultInstruction = "Continue this story. Maintain consistency with the characters, locations, and details provided in MEMORY CONTEXT."

// Section headers, in output order.
const (
	HeaderMemory      = "[MEMORY CONTEXT]"
	HeaderStory       = "[STORY INPUT]"
	HeaderInstruction = "[INSTRUCTION]"
)

// BuildAugmented assembles memory context, story input and instruction,
// separated by blank lines. The memory section is omitted when entries is
// empty and the story section when the trimmed story is empty. The
// instruction section is always present.
//
// entries are expected in match order, usually from matcher.EntriesFor.
func BuildAugmented(story string, entries []glossary.NamedEntry, instruction string) (string, error) {
	var parts []string

	if len(entries) > 0 {
		ctx, err := glossary.MarshalOrdered(entries)
		if err != nil {
			return "", err
		}
		parts = append(parts, HeaderMemory, string(ctx), "")
	}

	if s := strings.TrimSpace(story); s != "" {
		parts = append(parts, HeaderStory, s, "")
	}

	inst := strings.TrimSpace(instruction)
	if inst == "" {
		inst = DefaultInstruction
	}
	parts = append(parts, HeaderInstruction, inst)

	return strings.Join(parts, "\n"), nil
}
