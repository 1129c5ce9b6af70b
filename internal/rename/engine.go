package rename

import (
	"errors"
	"fmt"
	"strings"

	"fieldingest/internal/media"
)

// ErrConflicts is returned when two original names in one subfolder map to
// the same new name.
var ErrConflicts = errors.New("rename produces duplicate names")

// Conflict is one duplicate output name within a group.
type Conflict struct {
	Group    string
	NewName  string
	OldNames []string
}

// String renders the conflict as "old, old → new".
func (c Conflict) String() string {
	return strings.Join(c.OldNames, ", ") + " → " + c.NewName
}

// Result is the outcome of applying a pipeline to every group.
type Result struct {
	Groups    []media.Group
	Conflicts []Conflict
}

// Validated reports whether the rename produced no conflicts.
func (r Result) Validated() bool {
	return len(r.Conflicts) == 0
}

// Examples returns up to n conflicts formatted for display.
func (r Result) Examples(n int) []string {
	if n <= 0 || len(r.Conflicts) == 0 {
		return nil
	}
	out := make([]string, 0, min(n, len(r.Conflicts)))
	for _, c := range r.Conflicts {
		if len(out) == n {
			break
		}
		out = append(out, c.String())
	}
	return out
}

// Err summarizes the conflicts as an ErrConflicts error, or nil.
func (r Result) Err(examples int) error {
	if r.Validated() {
		return nil
	}
	return fmt.Errorf("%w: %d conflicting names (%s)", ErrConflicts, len(r.Conflicts), strings.Join(r.Examples(examples), "; "))
}

// Apply computes new names for every item and collects duplicates per
// subfolder. Input groups are not modified.
func Apply(p Pipeline, groups []media.Group) Result {
	result := Result{Groups: make([]media.Group, 0, len(groups))}
	for _, g := range groups {
		next := g
		next.Items = make([]media.Item, len(g.Items))
		seen := make(map[string][]string)
		var order []string
		for i, item := range g.Items {
			item.NewName = p.NewName(item.FilePath, item.FileName)
			item.RenameApplied = true
			next.Items[i] = item
			olds, ok := seen[item.NewName]
			if !ok {
				order = append(order, item.NewName)
			}
			if !containsString(olds, item.FileName) {
				seen[item.NewName] = append(olds, item.FileName)
			}
		}
		for _, newName := range order {
			if olds := seen[newName]; len(olds) > 1 {
				result.Conflicts = append(result.Conflicts, Conflict{Group: g.Subfolder, NewName: newName, OldNames: olds})
			}
		}
		result.Groups = append(result.Groups, next)
	}
	return result
}

func containsString(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
