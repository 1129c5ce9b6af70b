// Package folder parses the DATE-OBSERVER naming convention used for field
// collection folders, e.g. "2024-06-03-JB".
package folder

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// ErrInvalidName reports a folder name that does not follow DATE-OBSERVER.
var ErrInvalidName = errors.New("folder name does not match YYYY-MM-DD-observer_code")

var namePattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-(.*)$`)

// Name is a parsed source folder name.
type Name struct {
	Date     time.Time
	Observer string
}

// DateString returns the date part as written in the folder name.
func (n Name) DateString() string {
	return n.Date.Format(dateLayout)
}

// CatalogFolder returns the folder name the backend files this collection
// under, with the observer code made path safe.
func (n Name) CatalogFolder() string {
	return n.DateString() + "-" + SafeObserverCode(n.Observer)
}

// Base returns the last element of a path, accepting either separator since
// collection folders often come from Windows shares.
func Base(path string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(path), `/\`)
	if idx := strings.LastIndexAny(trimmed, `/\`); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}

// Parse validates the base name of path against DATE-OBSERVER.
func Parse(path string) (Name, error) {
	base := Base(path)
	match := namePattern.FindStringSubmatch(base)
	if match == nil {
		return Name{}, fmt.Errorf("%w: %q", ErrInvalidName, base)
	}
	date, err := time.Parse(dateLayout, match[1])
	if err != nil {
		return Name{}, fmt.Errorf("%w: %q: %v", ErrInvalidName, base, err)
	}
	observer := strings.TrimSpace(match[2])
	if observer == "" {
		return Name{}, fmt.Errorf("%w: %q has no observer code", ErrInvalidName, base)
	}
	return Name{Date: date, Observer: observer}, nil
}

var observerReplacer = strings.NewReplacer(
	"/", "-",
	`\`, "-",
	":", "-",
	"*", "",
	"?", "",
	`"`, "-",
	">", "-",
	"<", "-",
	"|", "-",
)

// SafeObserverCode replaces characters that are not allowed in Windows path
// components. It must stay in step with the backend's safe_observer_code.
func SafeObserverCode(code string) string {
	return observerReplacer.Replace(code)
}
