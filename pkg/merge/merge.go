// Package merge reconciles a freshly extracted glossary with the entries a
// story already has. Classify sorts every proposed entry into new, update or
// skip; Apply writes back the entries the writer chose to keep.
package merge

import (
	"github.com/kittclouds/lorekeep/pkg/glossary"
)

// Item is one classified candidate. OldType/OldDesc are set for updates only.
type Item struct {
	Key     string `json:"key"`
	Type    string `json:"type"`
	Desc    string `json:"desc"`
	OldType string `json:"oldType,omitempty"`
	OldDesc string `json:"oldDesc,omitempty"`
}

// Classification is the three-bucket result of Classify. Bucket order
// follows the order of the proposal.
type Classification struct {
	New    []Item `json:"new"`
	Update []Item `json:"update"`
	Skip   []Item `json:"skip"`
}

// Summary holds bucket sizes.
type Summary struct {
	New    int `json:"new"`
	Update int `json:"update"`
	Skip   int `json:"skip"`
}

// Summary is derived from the buckets on every call.
func (c Classification) Summary() Summary {
	return Summary{New: len(c.New), Update: len(c.Update), Skip: len(c.Skip)}
}

// Total is the number of classified candidates.
func (c Classification) Total() int {
	return len(c.New) + len(c.Update) + len(c.Skip)
}

// Result reports what Apply did.
type Result struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// ParseProposal decodes an extraction result ({name: {type, desc}}) in
// document order. Any invalid entry rejects the whole proposal.
func ParseProposal(data []byte) ([]glossary.NamedEntry, error) {
	return glossary.Parse(data)
}

// Classify compares proposed entries against current. Comparison is exact:
// whitespace or case differences count as updates.
func Classify(current glossary.Memory, proposed []glossary.NamedEntry) Classification {
	c := Classification{
		New:    []Item{},
		Update: []Item{},
		Skip:   []Item{},
	}

	for _, p := range proposed {
		item := Item{Key: p.Name, Type: p.Type, Desc: p.Desc}

		existing, ok := current[p.Name]
		switch {
		case !ok:
			c.New = append(c.New, item)
		case existing.Type != p.Type || existing.Desc != p.Desc:
			item.OldType = existing.Type
			item.OldDesc = existing.Desc
			c.Update = append(c.Update, item)
		default:
			c.Skip = append(c.Skip, item)
		}
	}
	return c
}

// Apply inserts the selected new items and overwrites the selected updates
// in current, in place. Selected names that are not in the matching bucket
// are ignored. The caller persists current as a single write.
func Apply(current glossary.Memory, c Classification, selectedNew, selectedUpdate []string) Result {
	newSet := toSet(selectedNew)
	updateSet := toSet(selectedUpdate)

	var res Result
	for _, item := range c.New {
		if _, ok := newSet[item.Key]; !ok {
			continue
		}
		current[item.Key] = glossary.Entry{Type: item.Type, Desc: item.Desc}
		res.Added++
	}
	for _, item := range c.Update {
		if _, ok := updateSet[item.Key]; !ok {
			continue
		}
		current[item.Key] = glossary.Entry{Type: item.Type, Desc: item.Desc}
		res.Updated++
	}

	res.Skipped = len(c.Skip) + (len(c.New) - res.Added) + (len(c.Update) - res.Updated)
	return res
}

// SelectAll returns every key of a bucket, for "accept all" flows.
func SelectAll(items []Item) []string {
	keys := make([]string, len(items))
	for i, item := range items {
		keys[i] = item.Key
	}
	return keys
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
