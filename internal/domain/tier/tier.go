// Package tier maps ratings to rank labels.
package tier

import "strings"

// Tier is one band of the rank table.
type Tier struct {
	Name  string `json:"name"`
	Min   int    `json:"min"`
	Color string `json:"color"`
}

// Table is a fixed ascending list of tiers. The first tier's Min is ignored;
// it catches everything below the second tier.
type Table []Tier

// Default is the built-in rank table.
var Default = Table{
	{Name: "Newbie", Min: 0, Color: "#808080"},
	{Name: "Beginner", Min: 800, Color: "#008000"},
	{Name: "Pupil", Min: 1000, Color: "#03a89e"},
	{Name: "Specialist", Min: 1200, Color: "#0000ff"},
	{Name: "Expert", Min: 1400, Color: "#aa00aa"},
	{Name: "Candidate Master", Min: 1600, Color: "#ff8c00"},
	{Name: "Master", Min: 1900, Color: "#ff0000"},
}

// Index returns the position of the tier holding rating.
func (t Table) Index(rating int) int {
	idx := 0
	for i := 1; i < len(t); i++ {
		if rating >= t[i].Min {
			idx = i
		}
	}
	return idx
}

// For returns the tier holding rating.
func (t Table) For(rating int) Tier {
	if len(t) == 0 {
		return Tier{}
	}
	return t[t.Index(rating)]
}

// Lookup finds a tier by name, case-insensitively.
func (t Table) Lookup(name string) (int, bool) {
	for i, tr := range t {
		if strings.EqualFold(tr.Name, strings.TrimSpace(name)) {
			return i, true
		}
	}
	return 0, false
}

// Steps returns how many tiers rating sits above (positive) or below
// (negative) the tier at index ref.
func (t Table) Steps(ref, rating int) int {
	return t.Index(rating) - ref
}
