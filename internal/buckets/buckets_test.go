package buckets_test

import (
	"errors"
	"math/rand"
	"testing"

	"fieldingest/internal/buckets"
)

func defaultSet(t *testing.T) *buckets.Set {
	t.Helper()
	set, err := buckets.NewSet(buckets.DefaultThresholds(), buckets.MaxQuality)
	if err != nil {
		t.Fatalf("NewSet returned error: %v", err)
	}
	return set
}

// matches counts buckets satisfying the assignment predicate directly.
func matches(set *buckets.Set, pixels int64) []string {
	var out []string
	all := set.Buckets()
	for i, b := range all {
		if pixels < b.BottomThreshold {
			continue
		}
		if b.Above != "" && pixels >= all[i+1].BottomThreshold {
			continue
		}
		out = append(out, b.Name)
	}
	return out
}

func TestAssignPartitionsPixelDomain(t *testing.T) {
	set := defaultSet(t)
	samples := []int64{0, 1, 8_999_999, 9_000_000, 9_000_001, 21_999_999, 22_000_000, 35_999_999, 36_000_000, 1 << 40}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		samples = append(samples, rng.Int63n(60_000_000))
	}
	for _, pixels := range samples {
		hits := matches(set, pixels)
		if len(hits) != 1 {
			t.Fatalf("pixels %d matched %v, want exactly one bucket", pixels, hits)
		}
		got, ok := buckets.Assign(set, pixels)
		if !ok || got != hits[0] {
			t.Fatalf("Assign(%d) = %q,%v want %q", pixels, got, ok, hits[0])
		}
	}
}

func TestAssignBoundaryBelongsToHigherBucket(t *testing.T) {
	set := defaultSet(t)
	cases := map[int64]string{
		8_999_999:  "small",
		9_000_000:  "medium",
		21_999_999: "medium",
		22_000_000: "large",
		36_000_000: "xlarge",
	}
	for pixels, want := range cases {
		if got, _ := buckets.Assign(set, pixels); got != want {
			t.Fatalf("Assign(%d) = %q, want %q", pixels, got, want)
		}
	}
}

func TestAssignRejectsNegativePixels(t *testing.T) {
	if _, ok := buckets.Assign(defaultSet(t), -1); ok {
		t.Fatal("expected negative pixel count to have no bucket")
	}
}

func TestSeedAssignsScenarioImages(t *testing.T) {
	set := defaultSet(t)
	set.Seed([]buckets.Member{
		{Path: "/in/a.jpg", Width: 2000, Height: 1000, FileSize: 1_000_000},
		{Path: "/in/b.jpg", Width: 5000, Height: 3000, FileSize: 8_000_000},
		{Path: "/in/c.jpg", Width: 8000, Height: 5000, FileSize: 20_000_000},
	})

	want := map[string]string{"/in/a.jpg": "small", "/in/b.jpg": "medium", "/in/c.jpg": "xlarge"}
	for path, name := range want {
		b, ok := set.BucketOf(path)
		if !ok || b.Name != name {
			t.Fatalf("%s assigned to %q, want %q", path, b.Name, name)
		}
	}
	large, _ := set.Bucket("large")
	if large.Len() != 0 {
		t.Fatalf("expected large bucket to be empty, got %v", large.Images)
	}
	reps := set.Representatives(nil)
	if len(reps) != 3 {
		t.Fatalf("expected one representative per non-empty bucket, got %v", reps)
	}
}

func TestSeedClearsPreviousMembersButKeepsSelection(t *testing.T) {
	set := defaultSet(t)
	if err := set.SetSelection("small", 50); err != nil {
		t.Fatalf("SetSelection: %v", err)
	}
	set.Seed([]buckets.Member{{Path: "/a.jpg", Width: 10, Height: 10}})
	set.Seed([]buckets.Member{{Path: "/b.jpg", Width: 10, Height: 10}})

	small, _ := set.Bucket("small")
	if len(small.Images) != 1 || small.Images[0] != "/b.jpg" {
		t.Fatalf("expected only the second seed, got %v", small.Images)
	}
	if small.Selection != 50 {
		t.Fatalf("expected selection to survive reseed, got %d", small.Selection)
	}
}

func TestNewSetValidatesPartition(t *testing.T) {
	if _, err := buckets.NewSet([]buckets.Threshold{{Name: "medium", BottomThreshold: 5}}, 100); err == nil {
		t.Fatal("expected error when lowest bucket does not start at zero")
	}
	if _, err := buckets.NewSet([]buckets.Threshold{{Name: "a", BottomThreshold: 0}, {Name: "b", BottomThreshold: 0}}, 100); err == nil {
		t.Fatal("expected error for shared thresholds")
	}
	if _, err := buckets.NewSet(buckets.DefaultThresholds(), 75); !errors.Is(err, buckets.ErrUnsupportedQuality) {
		t.Fatalf("expected unsupported quality error, got %v", err)
	}

	set, err := buckets.NewSet([]buckets.Threshold{{Name: "big", BottomThreshold: 100}, {Name: "tiny", BottomThreshold: 0}}, 90)
	if err != nil {
		t.Fatalf("NewSet returned error: %v", err)
	}
	all := set.Buckets()
	if all[0].Name != "tiny" || all[0].Above != "big" || all[1].Above != "" {
		t.Fatalf("unexpected ordering or links: %+v", all)
	}
}

func TestSetSelectionRejectsUnknownValues(t *testing.T) {
	set := defaultSet(t)
	if err := set.SetSelection("huge", 50); !errors.Is(err, buckets.ErrUnknownBucket) {
		t.Fatalf("expected unknown bucket error, got %v", err)
	}
	if err := set.SetSelection("small", 42); !errors.Is(err, buckets.ErrUnsupportedQuality) {
		t.Fatalf("expected unsupported quality error, got %v", err)
	}
}

func TestEstimatedSavings(t *testing.T) {
	set := defaultSet(t)
	set.Seed([]buckets.Member{
		{Path: "/a.jpg", Width: 4000, Height: 2000, FileSize: 4_000_000},
		{Path: "/b.jpg", Width: 1000, Height: 1000, FileSize: 10_000},
	})
	if got := set.TotalSavings(); got != 0 {
		t.Fatalf("expected no savings without compression, got %d", got)
	}
	if err := set.SetSelection("small", 20); err != nil {
		t.Fatalf("SetSelection: %v", err)
	}
	// 8MP * 0.17 / 8 = 170000 bytes; the second image is already smaller
	// than its estimate and contributes nothing.
	if got, want := set.TotalSavings(), int64(4_000_000-170_000); got != want {
		t.Fatalf("TotalSavings = %d, want %d", got, want)
	}
}

func TestRepresentativesSkipExcludedPaths(t *testing.T) {
	set := defaultSet(t)
	set.Seed([]buckets.Member{
		{Path: "/dark1.jpg", Width: 10, Height: 10},
		{Path: "/ok.jpg", Width: 10, Height: 10},
		{Path: "/dark2.jpg", Width: 4000, Height: 3000},
	})
	exclude := map[string]bool{"/dark1.jpg": true, "/dark2.jpg": true}
	reps := set.Representatives(exclude)
	if reps["small"] != "/ok.jpg" {
		t.Fatalf("expected non-dark representative, got %q", reps["small"])
	}
	if reps["medium"] != "/dark2.jpg" {
		t.Fatalf("expected fallback to the only member, got %q", reps["medium"])
	}
}

func TestNextRepresentativeWrapsAndSkips(t *testing.T) {
	set := defaultSet(t)
	set.Seed([]buckets.Member{
		{Path: "/1.jpg", Width: 10, Height: 10},
		{Path: "/2.jpg", Width: 10, Height: 10},
		{Path: "/3.jpg", Width: 10, Height: 10},
	})
	next, err := set.NextRepresentative("small", "/3.jpg", nil)
	if err != nil || next != "/1.jpg" {
		t.Fatalf("expected wrap to first image, got %q %v", next, err)
	}
	next, _ = set.NextRepresentative("small", "/1.jpg", map[string]bool{"/2.jpg": true})
	if next != "/3.jpg" {
		t.Fatalf("expected excluded image to be skipped, got %q", next)
	}
	all := map[string]bool{"/1.jpg": true, "/2.jpg": true, "/3.jpg": true}
	next, _ = set.NextRepresentative("small", "/1.jpg", all)
	if next != "/2.jpg" {
		t.Fatalf("expected literal next image when all excluded, got %q", next)
	}
	if _, err := set.NextRepresentative("medium", "", nil); err == nil {
		t.Fatal("expected error for empty bucket")
	}
}

func TestOptionsAscending(t *testing.T) {
	opts := buckets.Options()
	want := []int{20, 50, 90, 100}
	if len(opts) != len(want) {
		t.Fatalf("unexpected options: %+v", opts)
	}
	for i, q := range want {
		if opts[i].Quality != q {
			t.Fatalf("option %d = %d, want %d", i, opts[i].Quality, q)
		}
	}
}
