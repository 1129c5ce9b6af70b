// Package media models parsed ingest items and the subfolder groups they are
// displayed in.
//
// Items arrive from the parse job as jobapi.MediaMetadata. GroupBySubfolder
// buckets them by their folder relative to the source directory and lifts
// group-level issue codes (nesting) from the items onto the group. Derive
// produces the operator-facing view: synthesized rename errors merged in,
// ignored warnings dropped, and an optional issue filter applied. It is a
// pure function; callers recompute it whenever any input changes.
package media
