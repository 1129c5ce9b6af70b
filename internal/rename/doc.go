// Package rename applies ordered batch-rename rulesets to item names and
// detects duplicate output names within a subfolder.
package rename
