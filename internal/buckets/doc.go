// Package buckets classifies images into compression buckets by total pixel
// count and tracks the JPEG quality chosen for each bucket.
//
// Assign must produce the same bucket as the transcode worker's
// determine_bucket_for_resolution for every input: bucket membership decides
// which quality the worker applies, so the two implementations are a shared
// contract rather than independent heuristics.
package buckets
