package glossary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_PreservesOrder(t *testing.T) {
	input := `{
		"Zed": {"type": "character", "desc": "last letter"},
		"Alice": {"type": "character", "desc": "first letter"},
		"Tower": {"type": "location", "description": "tall"}
	}`

	entries, err := Parse([]byte(input))
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "Zed", entries[0].Name)
	assert.Equal(t, "Alice", entries[1].Name)
	assert.Equal(t, "Tower", entries[2].Name)
	assert.Equal(t, "tall", entries[2].Desc, "description should alias desc")
}

func TestParse_DuplicateKeyKeepsFirstPosition(t *testing.T) {
	input := `{"A": {"type": "item", "desc": "one"}, "B": {"type": "item", "desc": "two"}, "A": {"type": "item", "desc": "three"}}`

	entries, err := Parse([]byte(input))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "A", entries[0].Name)
	assert.Equal(t, "three", entries[0].Desc)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", `{"A": `},
		{"array", `[{"type": "x", "desc": "y"}]`},
		{"scalar", `42`},
		{"empty input", ``},
		{"value not object", `{"A": "character"}`},
		{"missing type", `{"A": {"desc": "y"}}`},
		{"missing desc", `{"A": {"type": "x"}}`},
		{"empty desc", `{"A": {"type": "x", "desc": ""}}`},
		{"type not string", `{"A": {"type": 3, "desc": "y"}}`},
		{"trailing data", `{} {}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidGlossary)
		})
	}
}

func TestParse_EmptyObject(t *testing.T) {
	entries, err := Parse([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestParseLoose_AllowsEmptyFields(t *testing.T) {
	entries, err := ParseLoose([]byte(`{"A": {}}`))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, Entry{}, entries[0].Entry)
}

func TestMarshalOrdered(t *testing.T) {
	out, err := MarshalOrdered([]NamedEntry{
		{Name: "Bob", Entry: Entry{Type: "character", Desc: "a <baker>"}},
		{Name: "Alice", Entry: Entry{Type: "character", Desc: "a knight"}},
	})
	require.NoError(t, err)

	want := `{
  "Bob": {
    "type": "character",
    "desc": "a <baker>"
  },
  "Alice": {
    "type": "character",
    "desc": "a knight"
  }
}`
	assert.Equal(t, want, string(out))

	empty, err := MarshalOrdered(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(empty))
}

func TestMarshalMemory_RoundTrip(t *testing.T) {
	m := Memory{
		"Tower": {Type: "location", Desc: "tall"},
		"Alice": {Type: "character", Desc: "brave"},
	}
	out, err := MarshalMemory(m)
	require.NoError(t, err)

	entries, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, m, ToMemory(entries))
	assert.Equal(t, "Alice", entries[0].Name, "names are sorted")
}

func TestMemory_TypesAndGroups(t *testing.T) {
	m := Memory{
		"Alice": {Type: "Character", Desc: "x"},
		"Bob":   {Type: "character", Desc: "y"},
		"Tower": {Type: "location", Desc: "z"},
		"Thing": {Type: "", Desc: "w"},
	}

	assert.Equal(t, []string{"character", "location"}, m.Types())

	grouped := m.GroupByType()
	require.Len(t, grouped["character"], 2)
	assert.Equal(t, "Alice", grouped["character"][0].Name)
	assert.Equal(t, "Bob", grouped["character"][1].Name)
	require.Len(t, grouped["other"], 1)
	assert.Equal(t, "Thing", grouped["other"][0].Name)

	clone := m.Clone()
	clone["New"] = Entry{Type: "item", Desc: "n"}
	assert.NotContains(t, m, "New")
}
