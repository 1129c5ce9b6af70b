package folder_test

import (
	"errors"
	"testing"

	"fieldingest/internal/folder"
)

func TestParseAcceptsDateObserver(t *testing.T) {
	cases := []struct {
		path     string
		date     string
		observer string
	}{
		{path: "/mnt/field/2024-06-03-JB", date: "2024-06-03", observer: "JB"},
		{path: `D:\Field\2023-12-31-AB-CD`, date: "2023-12-31", observer: "AB-CD"},
		{path: "2024-02-29-XY/", date: "2024-02-29", observer: "XY"},
	}
	for _, tc := range cases {
		name, err := folder.Parse(tc.path)
		if err != nil {
			t.Fatalf("Parse(%q) returned error: %v", tc.path, err)
		}
		if name.DateString() != tc.date || name.Observer != tc.observer {
			t.Fatalf("Parse(%q) = %s/%s, want %s/%s", tc.path, name.DateString(), name.Observer, tc.date, tc.observer)
		}
	}
}

func TestParseRejectsMalformedNames(t *testing.T) {
	for _, path := range []string{
		"/mnt/field/photos",
		"/mnt/field/2024-06-03",
		"/mnt/field/2024-06-03-",
		"/mnt/field/2024-13-03-JB",
		"/mnt/field/2023-02-29-JB",
		"/mnt/field/24-06-03-JB",
	} {
		if _, err := folder.Parse(path); !errors.Is(err, folder.ErrInvalidName) {
			t.Fatalf("Parse(%q) error = %v, want ErrInvalidName", path, err)
		}
	}
}

func TestSafeObserverCodeReplacesEveryOccurrence(t *testing.T) {
	got := folder.SafeObserverCode(`A/B/C:D*?"E<F>G|H\I`)
	want := "A-B-C-D-E-F-G-H-I"
	if got != want {
		t.Fatalf("SafeObserverCode = %q, want %q", got, want)
	}
}

func TestCatalogFolderUsesSafeObserver(t *testing.T) {
	name, err := folder.Parse("/field/2024-06-03-J:B")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if got := name.CatalogFolder(); got != "2024-06-03-J-B" {
		t.Fatalf("CatalogFolder = %q", got)
	}
}
