package buckets

import "sort"

// MaxQuality is the "no compression" quality level.
const MaxQuality = 100

// CompressionOption describes one selectable JPEG quality.
type CompressionOption struct {
	Quality           int
	CompressionAmount string
	FileSize          string
	// BitsPerPixel estimates output size; zero when the option keeps the source size.
	BitsPerPixel float64
}

// This list must match the JPEG qualities the transcode worker accepts.
var compressionOptions = map[int]CompressionOption{
	20:         {Quality: 20, CompressionAmount: "High", FileSize: "Small", BitsPerPixel: 0.17},
	50:         {Quality: 50, CompressionAmount: "Medium", FileSize: "Medium", BitsPerPixel: 0.4},
	90:         {Quality: 90, CompressionAmount: "Low", FileSize: "Large", BitsPerPixel: 2.0},
	MaxQuality: {Quality: MaxQuality, CompressionAmount: "No", FileSize: "Largest"},
}

// Options returns the selectable qualities in ascending order.
func Options() []CompressionOption {
	out := make([]CompressionOption, 0, len(compressionOptions))
	for _, opt := range compressionOptions {
		out = append(out, opt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Quality < out[j].Quality })
	return out
}

// LookupOption returns the option for a quality level.
func LookupOption(quality int) (CompressionOption, bool) {
	opt, ok := compressionOptions[quality]
	return opt, ok
}

// EstimatedSize returns the expected output size in bytes of an image with
// the given pixel count, or the source size when the option does not compress.
func (o CompressionOption) EstimatedSize(pixels, sourceSize int64) int64 {
	if o.BitsPerPixel <= 0 {
		return sourceSize
	}
	return int64(float64(pixels) * o.BitsPerPixel / 8)
}
