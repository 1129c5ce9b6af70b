package media

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// RootFolder is the group key for items that sit directly in the source folder.
const RootFolder = "__ROOT__"

// Status is the validation state of an item or group.
type Status string

const (
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

func (s Status) rank() int {
	switch s {
	case StatusError:
		return 2
	case StatusWarning:
		return 1
	default:
		return 0
	}
}

// Worst returns the more severe of two statuses.
func Worst(a, b Status) Status {
	if b.rank() > a.rank() {
		return b
	}
	if a == "" {
		return StatusSuccess
	}
	return a
}

// CalculateStatus derives a status from error and warning lists.
func CalculateStatus(errs, warnings []IssueCode) Status {
	switch {
	case len(errs) > 0:
		return StatusError
	case len(warnings) > 0:
		return StatusWarning
	default:
		return StatusSuccess
	}
}

// IssueCode identifies a validation issue reported by the backend or
// synthesized locally.
type IssueCode string

const (
	CodeNestedFolder   IssueCode = "VIDEO_PATH_WARNING"
	CodeCreatedTime    IssueCode = "INCORRECT_CREATED_TIME"
	CodeDeepNesting    IssueCode = "VIDEO_PATH_ERROR"
	CodeNameTooLong    IssueCode = "LENGTH_ERROR"
	CodeNameWhitespace IssueCode = "WHITESPACE_ERROR"
	CodeNameEmpty      IssueCode = "EMPTY_NAME_ERROR"
)

// Issue describes one catalog entry.
type Issue struct {
	Code       IssueCode
	Severity   Status
	Message    string
	Summary    string
	GroupLevel bool
}

var catalog = map[IssueCode]Issue{
	CodeNestedFolder: {
		Code:       CodeNestedFolder,
		Severity:   StatusWarning,
		Message:    "this is a nested folder",
		Summary:    "Nested folder",
		GroupLevel: true,
	},
	CodeCreatedTime: {
		Code:     CodeCreatedTime,
		Severity: StatusWarning,
		Message:  "file date does not match source folder",
		Summary:  "File/Folder date mismatch",
	},
	CodeDeepNesting: {
		Code:       CodeDeepNesting,
		Severity:   StatusError,
		Message:    "subfolder is too deeply nested",
		Summary:    "Subfolder too deep",
		GroupLevel: true,
	},
	CodeNameTooLong: {
		Code:     CodeNameTooLong,
		Severity: StatusError,
		Message:  "filename is too long",
		Summary:  "Filename too long",
	},
	CodeNameWhitespace: {
		Code:     CodeNameWhitespace,
		Severity: StatusError,
		Message:  "filename has leading or trailing whitespace",
		Summary:  "Filename whitespace",
	},
	CodeNameEmpty: {
		Code:     CodeNameEmpty,
		Severity: StatusError,
		Message:  "filename is empty after renaming",
		Summary:  "Empty filename",
	},
}

// ErrUnknownIssue reports a code missing from the catalog.
var ErrUnknownIssue = errors.New("unknown issue code")

// Lookup returns the catalog entry for code.
func Lookup(code IssueCode) (Issue, bool) {
	issue, ok := catalog[code]
	return issue, ok
}

// ParseIssueCode accepts a code in any case.
func ParseIssueCode(value string) (IssueCode, error) {
	code := IssueCode(strings.ToUpper(strings.TrimSpace(value)))
	if _, ok := catalog[code]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownIssue, value)
	}
	return code, nil
}

// Catalog lists every known issue, errors first, then by code.
func Catalog() []Issue {
	out := make([]Issue, 0, len(catalog))
	for _, issue := range catalog {
		out = append(out, issue)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Severity.rank() != out[j].Severity.rank() {
			return out[i].Severity.rank() > out[j].Severity.rank()
		}
		return out[i].Code < out[j].Code
	})
	return out
}

func isGroupLevel(code IssueCode) bool {
	issue, ok := catalog[code]
	return ok && issue.GroupLevel
}

func containsCode(codes []IssueCode, code IssueCode) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
