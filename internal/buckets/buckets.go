package buckets

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnknownBucket reports a bucket name that is not part of the set.
	ErrUnknownBucket = errors.New("unknown bucket")
	// ErrUnsupportedQuality reports a quality that is not a compression option.
	ErrUnsupportedQuality = errors.New("unsupported quality")
)

// Threshold defines a bucket by its inclusive lower pixel bound.
type Threshold struct {
	Name            string
	BottomThreshold int64
}

// DefaultThresholds are the bucket bounds shared with the transcode worker.
func DefaultThresholds() []Threshold {
	return []Threshold{
		{Name: "small", BottomThreshold: 0},
		{Name: "medium", BottomThreshold: 9_000_000},
		{Name: "large", BottomThreshold: 22_000_000},
		{Name: "xlarge", BottomThreshold: 36_000_000},
	}
}

// Bucket is one compression bucket with its accumulated members.
type Bucket struct {
	Name            string
	BottomThreshold int64
	// Above names the next bucket up; empty for the topmost bucket.
	Above       string
	Selection   int
	Images      []string
	Resolutions [][2]int
	FileSizes   []int64
}

// Len returns the number of member images.
func (b Bucket) Len() int { return len(b.Images) }

// TotalSize returns the summed source size of the members.
func (b Bucket) TotalSize() int64 {
	var total int64
	for _, size := range b.FileSizes {
		total += size
	}
	return total
}

// EstimatedSavings returns the bytes expected to be saved by the current selection.
func (b Bucket) EstimatedSavings() int64 {
	opt, ok := LookupOption(b.Selection)
	if !ok {
		return 0
	}
	var saved int64
	for i, res := range b.Resolutions {
		pixels := int64(res[0]) * int64(res[1])
		size := b.FileSizes[i]
		if delta := size - opt.EstimatedSize(pixels, size); delta > 0 {
			saved += delta
		}
	}
	return saved
}

// Member is an image to be classified.
type Member struct {
	Path     string
	Width    int
	Height   int
	FileSize int64
}

// Pixels returns the total pixel count.
func (m Member) Pixels() int64 { return int64(m.Width) * int64(m.Height) }

// Set is an ordered bucket list that partitions [0, inf) pixel counts.
type Set struct {
	buckets []Bucket
	index   map[string]int
}

// NewSet orders thresholds, links each bucket to the one above it, and checks
// that they form a total partition.
func NewSet(thresholds []Threshold, defaultQuality int) (*Set, error) {
	if len(thresholds) == 0 {
		return nil, errors.New("buckets: at least one bucket is required")
	}
	if _, ok := LookupOption(defaultQuality); !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedQuality, defaultQuality)
	}
	ordered := append([]Threshold(nil), thresholds...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].BottomThreshold < ordered[j].BottomThreshold })

	set := &Set{buckets: make([]Bucket, len(ordered)), index: make(map[string]int, len(ordered))}
	for i, th := range ordered {
		name := strings.TrimSpace(th.Name)
		if name == "" {
			return nil, fmt.Errorf("buckets: bucket %d has no name", i)
		}
		if _, dup := set.index[name]; dup {
			return nil, fmt.Errorf("buckets: duplicate bucket %q", name)
		}
		if i == 0 && th.BottomThreshold != 0 {
			return nil, fmt.Errorf("buckets: lowest bucket %q must start at 0", name)
		}
		if i > 0 && th.BottomThreshold == ordered[i-1].BottomThreshold {
			return nil, fmt.Errorf("buckets: %q and %q share threshold %d", ordered[i-1].Name, name, th.BottomThreshold)
		}
		set.index[name] = i
		set.buckets[i] = Bucket{Name: name, BottomThreshold: th.BottomThreshold, Selection: defaultQuality}
		if i > 0 {
			set.buckets[i-1].Above = name
		}
	}
	return set, nil
}

// Assign returns the bucket whose range contains pixels. It walks the
// buckets in order and takes the first b with pixels >= b.BottomThreshold and
// either no bucket above or pixels below the next threshold.
func Assign(set *Set, pixels int64) (string, bool) {
	if set == nil {
		return "", false
	}
	for _, b := range set.buckets {
		largerThanMin := pixels >= b.BottomThreshold
		if b.Above == "" {
			if largerThanMin {
				return b.Name, true
			}
			continue
		}
		above := set.buckets[set.index[b.Above]]
		if largerThanMin && pixels < above.BottomThreshold {
			return b.Name, true
		}
	}
	return "", false
}

// Seed clears membership and classifies every member. Selections are kept.
func (s *Set) Seed(members []Member) {
	for i := range s.buckets {
		s.buckets[i].Images = nil
		s.buckets[i].Resolutions = nil
		s.buckets[i].FileSizes = nil
	}
	for _, m := range members {
		name, ok := Assign(s, m.Pixels())
		if !ok {
			continue
		}
		b := &s.buckets[s.index[name]]
		b.Images = append(b.Images, m.Path)
		b.Resolutions = append(b.Resolutions, [2]int{m.Width, m.Height})
		b.FileSizes = append(b.FileSizes, m.FileSize)
	}
}

// Buckets returns a copy of the buckets in threshold order.
func (s *Set) Buckets() []Bucket {
	return s.Clone().buckets
}

// Names returns bucket names in threshold order.
func (s *Set) Names() []string {
	names := make([]string, len(s.buckets))
	for i, b := range s.buckets {
		names[i] = b.Name
	}
	return names
}

// Bucket returns one bucket by name.
func (s *Set) Bucket(name string) (Bucket, bool) {
	idx, ok := s.index[name]
	if !ok {
		return Bucket{}, false
	}
	return s.Clone().buckets[idx], true
}

// BucketOf returns the bucket holding path.
func (s *Set) BucketOf(path string) (Bucket, bool) {
	for _, b := range s.buckets {
		for _, img := range b.Images {
			if img == path {
				return b, true
			}
		}
	}
	return Bucket{}, false
}

// SetSelection records the chosen quality for a bucket.
func (s *Set) SetSelection(name string, quality int) error {
	idx, ok := s.index[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownBucket, name)
	}
	if _, ok := LookupOption(quality); !ok {
		return fmt.Errorf("%w: %d", ErrUnsupportedQuality, quality)
	}
	s.buckets[idx].Selection = quality
	return nil
}

// Selections returns the chosen quality per bucket.
func (s *Set) Selections() map[string]int {
	out := make(map[string]int, len(s.buckets))
	for _, b := range s.buckets {
		out[b.Name] = b.Selection
	}
	return out
}

// ApplySelections copies known selections onto the set, ignoring unknown
// buckets and unsupported qualities.
func (s *Set) ApplySelections(selections map[string]int) {
	for name, quality := range selections {
		_ = s.SetSelection(name, quality)
	}
}

// AllImages returns every member path in bucket order.
func (s *Set) AllImages() []string {
	var out []string
	for _, b := range s.buckets {
		out = append(out, b.Images...)
	}
	return out
}

// TotalSavings sums the estimated savings of every bucket.
func (s *Set) TotalSavings() int64 {
	var total int64
	for _, b := range s.buckets {
		total += b.EstimatedSavings()
	}
	return total
}

// Representatives picks one member per non-empty bucket, preferring paths not
// in exclude and falling back to the first member when every one is excluded.
func (s *Set) Representatives(exclude map[string]bool) map[string]string {
	out := make(map[string]string, len(s.buckets))
	for _, b := range s.buckets {
		if len(b.Images) == 0 {
			continue
		}
		pick := b.Images[0]
		for _, img := range b.Images {
			if !exclude[img] {
				pick = img
				break
			}
		}
		out[b.Name] = pick
	}
	return out
}

// NextRepresentative returns the member after current (wrapping), skipping
// excluded paths when another candidate exists.
func (s *Set) NextRepresentative(name, current string, exclude map[string]bool) (string, error) {
	idx, ok := s.index[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownBucket, name)
	}
	images := s.buckets[idx].Images
	if len(images) == 0 {
		return "", fmt.Errorf("buckets: bucket %q has no images", name)
	}
	start := -1
	for i, img := range images {
		if img == current {
			start = i
			break
		}
	}
	literalNext := images[(start+1)%len(images)]
	for step := 1; step <= len(images); step++ {
		candidate := images[(start+step)%len(images)]
		if !exclude[candidate] {
			return candidate, nil
		}
	}
	return literalNext, nil
}

// Clone returns a deep copy.
func (s *Set) Clone() *Set {
	if s == nil {
		return nil
	}
	out := &Set{buckets: make([]Bucket, len(s.buckets)), index: make(map[string]int, len(s.index))}
	for name, idx := range s.index {
		out.index[name] = idx
	}
	for i, b := range s.buckets {
		b.Images = append([]string(nil), b.Images...)
		b.Resolutions = append([][2]int(nil), b.Resolutions...)
		b.FileSizes = append([]int64(nil), b.FileSizes...)
		out.buckets[i] = b
	}
	return out
}
