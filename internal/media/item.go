package media

import (
	"path"
	"strings"

	"fieldingest/internal/jobapi"
)

// Item is one parsed media file.
type Item struct {
	FilePath    string
	FileName    string
	Extension   string
	NewName     string
	Width       int
	Height      int
	Resolution  int64
	FileSize    int64
	FrameRate   float64
	NumFrames   int64
	Duration    float64
	CreatedDate string
	Warnings    []IssueCode
	Errors      []IssueCode
	Status      Status

	// RenameApplied is set once a rename pipeline has produced NewName, so
	// an empty NewName means the rules removed every character.
	RenameApplied bool
}

// FromMetadata converts a parse job record. FileName loses its extension so
// rename rules operate on the stem only.
func FromMetadata(md jobapi.MediaMetadata) Item {
	name := strings.TrimSpace(md.FileName)
	if name == "" {
		name = baseName(md.FilePath)
	}
	ext := strings.TrimPrefix(strings.TrimSpace(md.Extension), ".")
	if ext == "" {
		ext = strings.TrimPrefix(path.Ext(name), ".")
	}
	stem := name
	if ext != "" && strings.HasSuffix(strings.ToLower(stem), "."+strings.ToLower(ext)) {
		stem = stem[:len(stem)-len(ext)-1]
	}
	item := Item{
		FilePath:    md.FilePath,
		FileName:    stem,
		Extension:   ext,
		Width:       md.Width,
		Height:      md.Height,
		Resolution:  int64(md.Width) * int64(md.Height),
		FileSize:    md.FileSize,
		FrameRate:   md.FrameRate,
		NumFrames:   md.NumFrames,
		Duration:    md.Duration,
		CreatedDate: md.CreatedDate,
		Warnings:    toCodes(md.Warnings),
		Errors:      toCodes(md.Errors),
	}
	item.Status = CalculateStatus(item.Errors, item.Warnings)
	return item
}

// OutputName is the name the item will be written under, without extension.
func (i Item) OutputName() string {
	if i.RenameApplied || i.NewName != "" {
		return i.NewName
	}
	return i.FileName
}

// Renamed reports whether the rename pipeline changed the name.
func (i Item) Renamed() bool {
	if i.RenameApplied {
		return i.NewName != i.FileName
	}
	return i.NewName != "" && i.NewName != i.FileName
}

func toCodes(values []string) []IssueCode {
	if len(values) == 0 {
		return nil
	}
	out := make([]IssueCode, 0, len(values))
	for _, v := range values {
		v = strings.ToUpper(strings.TrimSpace(v))
		if v == "" || containsCode(out, IssueCode(v)) {
			continue
		}
		out = append(out, IssueCode(v))
	}
	return out
}

func baseName(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	return path.Base(p)
}
