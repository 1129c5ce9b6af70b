package media

import (
	"errors"
	"fmt"
)

// ErrNotSuppressible is returned when an error-severity code is ignored.
var ErrNotSuppressible = errors.New("only warnings can be ignored")

// IgnoreList holds warning codes the operator chose to suppress.
type IgnoreList struct {
	codes []IssueCode
}

// Add suppresses code. Errors are never suppressible.
func (l *IgnoreList) Add(code IssueCode) error {
	issue, ok := Lookup(code)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownIssue, code)
	}
	if issue.Severity != StatusWarning {
		return fmt.Errorf("%w: %s", ErrNotSuppressible, code)
	}
	if !containsCode(l.codes, code) {
		l.codes = append(l.codes, code)
	}
	return nil
}

// Remove stops suppressing code.
func (l *IgnoreList) Remove(code IssueCode) {
	for i, c := range l.codes {
		if c == code {
			l.codes = append(l.codes[:i], l.codes[i+1:]...)
			return
		}
	}
}

// Contains reports whether code is suppressed. A nil list suppresses nothing.
func (l *IgnoreList) Contains(code IssueCode) bool {
	return l != nil && containsCode(l.codes, code)
}

// Codes returns the suppressed codes in insertion order.
func (l *IgnoreList) Codes() []IssueCode {
	if l == nil {
		return nil
	}
	return append([]IssueCode(nil), l.codes...)
}

// Clone copies the list.
func (l *IgnoreList) Clone() *IgnoreList {
	return &IgnoreList{codes: l.Codes()}
}

// NameValidator returns the errors a rename from old to new introduces.
type NameValidator func(oldName, newName string) []IssueCode

// Derive builds the display view of groups. For every renamed item the
// validator's codes are merged into its errors and stale name errors the new
// name no longer has are dropped; ignored warnings are removed; item and
// group statuses are recomputed. A non-empty filter is applied last.
func Derive(groups []Group, ignore *IgnoreList, filter IssueCode, validate NameValidator) []Group {
	out := make([]Group, 0, len(groups))
	for _, g := range groups {
		next := Group{Subfolder: g.Subfolder, Issues: append([]IssueCode(nil), g.Issues...)}
		status, text := groupStatus(g.Issues, ignore)
		for _, item := range g.Items {
			item = deriveItem(item, ignore, validate)
			status = Worst(status, item.Status)
			next.Items = append(next.Items, item)
		}
		next.Status, next.StatusText = status, text
		out = append(out, next)
	}
	if filter == "" {
		return out
	}
	return applyFilter(out, filter)
}

func deriveItem(item Item, ignore *IgnoreList, validate NameValidator) Item {
	var warnings []IssueCode
	for _, code := range item.Warnings {
		if !ignore.Contains(code) {
			warnings = append(warnings, code)
		}
	}
	errs := append([]IssueCode(nil), item.Errors...)
	if item.Renamed() && validate != nil {
		synth := validate(item.FileName, item.NewName)
		for _, code := range synth {
			if !containsCode(errs, code) {
				errs = append(errs, code)
			}
		}
		kept := errs[:0]
		for _, code := range errs {
			if isRenameCode(code) && !containsCode(synth, code) {
				continue
			}
			kept = append(kept, code)
		}
		errs = kept
	}
	if len(errs) == 0 {
		errs = nil
	}
	item.Warnings = warnings
	item.Errors = errs
	item.Status = CalculateStatus(errs, warnings)
	return item
}

func applyFilter(groups []Group, filter IssueCode) []Group {
	issue, ok := Lookup(filter)
	if !ok {
		return groups
	}
	var out []Group
	for _, g := range groups {
		if issue.GroupLevel {
			if g.StatusText == issue.Message {
				out = append(out, g)
			}
			continue
		}
		var items []Item
		for _, item := range g.Items {
			if containsCode(item.Warnings, filter) || containsCode(item.Errors, filter) {
				items = append(items, item)
			}
		}
		if len(items) > 0 {
			g.Items = items
			out = append(out, g)
		}
	}
	return out
}

// CountIssues tallies codes across items. Group-level codes count once per
// group that carries them.
func CountIssues(groups []Group) map[IssueCode]int {
	counts := make(map[IssueCode]int)
	for _, g := range groups {
		for _, code := range g.Issues {
			counts[code]++
		}
		for _, item := range g.Items {
			for _, code := range item.Warnings {
				counts[code]++
			}
			for _, code := range item.Errors {
				counts[code]++
			}
		}
	}
	return counts
}

// TotalSize sums file sizes across all groups.
func TotalSize(groups []Group) int64 {
	var total int64
	for _, g := range groups {
		total += g.TotalSize()
	}
	return total
}

// Blocking reports whether any group or item is in error.
func Blocking(groups []Group) bool {
	for _, g := range groups {
		if g.Status == StatusError {
			return true
		}
		for _, item := range g.Items {
			if item.Status == StatusError {
				return true
			}
		}
	}
	return false
}

// Items flattens groups in display order.
func Items(groups []Group) []Item {
	var out []Item
	for _, g := range groups {
		out = append(out, g.Items...)
	}
	return out
}

func isRenameCode(code IssueCode) bool {
	return code == CodeNameTooLong || code == CodeNameWhitespace || code == CodeNameEmpty
}
