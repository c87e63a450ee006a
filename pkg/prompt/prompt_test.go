package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/lorekeep/pkg/glossary"
)

func TestBuildAugmented_InstructionOnly(t *testing.T) {
	got, err := BuildAugmented("", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "[INSTRUCTION]\n"+DefaultInstruction, got)
}

func TestBuildAugmented_StoryWithoutMemory(t *testing.T) {
	got, err := BuildAugmented("hello", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "[STORY INPUT]\nhello\n\n[INSTRUCTION]\n"+DefaultInstruction, got)
	assert.NotContains(t, got, HeaderMemory)
}

func TestBuildAugmented_AllSections(t *testing.T) {
	entries := []glossary.NamedEntry{
		{Name: "Alice", Entry: glossary.Entry{Type: "character", Desc: "a knight"}},
		{Name: "Tower", Entry: glossary.Entry{Type: "location", Desc: "tall"}},
	}

	got, err := BuildAugmented("  Alice climbed the Tower.\n", entries, "  Write the next scene. ")
	require.NoError(t, err)

	want := `[MEMORY CONTEXT]
{
  "Alice": {
    "type": "character",
    "desc": "a knight"
  },
  "Tower": {
    "type": "location",
    "desc": "tall"
  }
}

[STORY INPUT]
Alice climbed the Tower.

[INSTRUCTION]
Write the next scene.`
	assert.Equal(t, want, got)
}

func TestBuildAugmented_WhitespaceInstructionUsesDefault(t *testing.T) {
	got, err := BuildAugmented("   ", nil, " \n\t ")
	require.NoError(t, err)
	assert.Equal(t, "[INSTRUCTION]\n"+DefaultInstruction, got)
}

func TestBuildExtraction_DefaultTypes(t *testing.T) {
	got := BuildExtraction("Once upon a time.", nil)

	assert.True(t, strings.HasPrefix(got, "Analyze the following story and extract all character, location, item, event.\n\n"))
	assert.Contains(t, got, `- "type" should be one of: character, location, item, event`)
	assert.Contains(t, got, "- Extract ALL relevant character, location, item, event mentioned in the story")
	assert.True(t, strings.HasSuffix(got, "Story:\nOnce upon a time."))
}

func TestBuildExtraction_CustomTypes(t *testing.T) {
	story := "  The Guild met at dawn.  \n"
	got := BuildExtraction(story, []string{"faction", "event"})

	assert.Contains(t, got, "extract all faction, event.")
	assert.Contains(t, got, "For CHARACTERS/PERSONS:")
	assert.Contains(t, got, "For EVENTS:")
	assert.True(t, strings.HasSuffix(got, "Story:\n"+story), "story is embedded verbatim")
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected int
	}{
		{"empty string", "", 0},
		{"single char", "a", 1},
		{"four chars = 1 token", "test", 1},
		{"five chars = 2 tokens", "tests", 2},
		{"eight chars = 2 tokens", "testtest", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EstimateTokens(tt.text))
		})
	}
}

func TestMeasure(t *testing.T) {
	s := Measure("山田")
	assert.Equal(t, 2, s.Chars)
	assert.Equal(t, 2, s.Tokens) // 6 bytes -> (6+3)/4
}
