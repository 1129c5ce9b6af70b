package rename

import (
	"strings"

	"github.com/google/uuid"
)

// Ruleset is one batch-rename step. An empty FilePaths scope applies it to
// every item.
type Ruleset struct {
	ID            string   `toml:"id"`
	FilePaths     []string `toml:"file_paths"`
	TrimStart     int      `toml:"trim_start"`
	TrimEnd       int      `toml:"trim_end"`
	Prefix        string   `toml:"prefix"`
	Suffix        string   `toml:"suffix"`
	InsertText    string   `toml:"insert_text"`
	InsertAt      int      `toml:"insert_at"`
	FindString    string   `toml:"find"`
	ReplaceString string   `toml:"replace"`
}

// NewRuleset returns an empty ruleset with a fresh id.
func NewRuleset() Ruleset {
	return Ruleset{ID: uuid.NewString()}
}

// AppliesTo reports whether the ruleset is in scope for filePath.
func (r Ruleset) AppliesTo(filePath string) bool {
	if len(r.FilePaths) == 0 {
		return true
	}
	for _, p := range r.FilePaths {
		if p == filePath {
			return true
		}
	}
	return false
}

// Apply runs the ruleset's operations on name in fixed order: trim start,
// trim end, prefix, suffix, insert, replace. Counts and positions are in
// runes.
func (r Ruleset) Apply(name string) string {
	runes := []rune(name)
	if r.TrimStart > 0 {
		runes = runes[min(r.TrimStart, len(runes)):]
	}
	if r.TrimEnd > 0 {
		runes = runes[:len(runes)-min(r.TrimEnd, len(runes))]
	}
	out := r.Prefix + string(runes) + r.Suffix
	if r.InsertText != "" && r.InsertAt >= 0 {
		current := []rune(out)
		at := min(r.InsertAt, len(current))
		out = string(current[:at]) + r.InsertText + string(current[at:])
	}
	if r.FindString != "" {
		out = strings.ReplaceAll(out, r.FindString, r.ReplaceString)
	}
	return out
}

// Pipeline is an ordered sequence of rulesets.
type Pipeline []Ruleset

// NewName folds every in-scope ruleset over name.
func (p Pipeline) NewName(filePath, name string) string {
	for _, r := range p {
		if r.AppliesTo(filePath) {
			name = r.Apply(name)
		}
	}
	return name
}

// Append returns a copy with r added, assigning an id when r has none.
func (p Pipeline) Append(r Ruleset) Pipeline {
	if strings.TrimSpace(r.ID) == "" {
		r.ID = uuid.NewString()
	}
	out := make(Pipeline, 0, len(p)+1)
	out = append(out, p...)
	return append(out, r)
}

// Remove returns a copy without the ruleset identified by id.
func (p Pipeline) Remove(id string) (Pipeline, bool) {
	out := make(Pipeline, 0, len(p))
	found := false
	for _, r := range p {
		if r.ID == id {
			found = true
			continue
		}
		out = append(out, r)
	}
	return out, found
}
