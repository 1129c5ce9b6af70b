package rename

import (
	"strings"
	"unicode/utf8"

	"fieldingest/internal/media"
)

// DefaultMaxLength is the longest accepted output name, in characters.
const DefaultMaxLength = 20

// Validate returns the issues a rename from oldName to newName introduces.
// Unchanged names are never flagged here.
func Validate(oldName, newName string, maxLen int) []media.IssueCode {
	if newName == oldName {
		return nil
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}
	if newName == "" {
		return []media.IssueCode{media.CodeNameEmpty}
	}
	var issues []media.IssueCode
	if utf8.RuneCountInString(newName) > maxLen {
		issues = append(issues, media.CodeNameTooLong)
	}
	if strings.TrimSpace(newName) != newName {
		issues = append(issues, media.CodeNameWhitespace)
	}
	return issues
}

// Validator binds maxLen for use with media.Derive.
func Validator(maxLen int) media.NameValidator {
	return func(oldName, newName string) []media.IssueCode {
		return Validate(oldName, newName, maxLen)
	}
}
