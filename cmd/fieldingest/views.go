package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"fieldingest/internal/buckets"
	"fieldingest/internal/media"
	"fieldingest/internal/workflow"
)

func groupLabel(g media.Group) string {
	if g.IsRoot() {
		return "(root)"
	}
	return g.Subfolder
}

func renderGroups(snap workflow.Snapshot) string {
	rows := make([][]string, 0, len(snap.Groups))
	for _, g := range snap.Groups {
		rows = append(rows, []string{
			groupLabel(g),
			strconv.Itoa(len(g.Items)),
			formatBytes(g.TotalSize()),
			titleLabel(string(g.Status)),
			g.StatusText,
		})
	}
	return renderTable(
		[]string{"Folder", "Files", "Size", "Status", "Note"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft, alignLeft},
	)
}

func renderIssues(snap workflow.Snapshot) string {
	codes := make([]media.IssueCode, 0, len(snap.IssueCounts))
	for code, count := range snap.IssueCounts {
		if count > 0 {
			codes = append(codes, code)
		}
	}
	if len(codes) == 0 {
		return ""
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	rows := make([][]string, 0, len(codes))
	for _, code := range codes {
		severity, summary := "", ""
		if issue, ok := media.Lookup(code); ok {
			severity = titleLabel(string(issue.Severity))
			summary = issue.Summary
		}
		rows = append(rows, []string{string(code), severity, strconv.Itoa(snap.IssueCounts[code]), summary})
	}
	return renderTable(
		[]string{"Code", "Severity", "Count", "Summary"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func renderItemsWithIssues(snap workflow.Snapshot) string {
	var rows [][]string
	for _, g := range snap.Groups {
		for _, item := range g.Items {
			if item.Status == media.StatusSuccess {
				continue
			}
			codes := make([]string, 0, len(item.Errors)+len(item.Warnings))
			for _, code := range item.Errors {
				codes = append(codes, string(code))
			}
			for _, code := range item.Warnings {
				codes = append(codes, string(code))
			}
			rows = append(rows, []string{groupLabel(g), item.FileName, item.OutputName(), strings.Join(codes, ", ")})
		}
	}
	if len(rows) == 0 {
		return ""
	}
	return renderTable([]string{"Folder", "File", "Output name", "Issues"}, rows, nil)
}

func renderRenames(snap workflow.Snapshot) string {
	var rows [][]string
	for _, g := range snap.Groups {
		for _, item := range g.Items {
			if !item.Renamed() {
				continue
			}
			rows = append(rows, []string{groupLabel(g), item.FileName, item.NewName})
		}
	}
	if len(rows) == 0 {
		return ""
	}
	return renderTable([]string{"Folder", "Old name", "New name"}, rows, nil)
}

func renderConflicts(snap workflow.Snapshot) string {
	rows := make([][]string, 0, len(snap.Conflicts))
	for _, c := range snap.Conflicts {
		group := c.Group
		if group == media.RootFolder {
			group = "(root)"
		}
		rows = append(rows, []string{group, strings.Join(c.OldNames, ", "), c.NewName})
	}
	return renderTable([]string{"Folder", "Old names", "New name"}, rows, nil)
}

func renderBucketViews(views []workflow.BucketView) string {
	rows := make([][]string, 0, len(views))
	for _, b := range views {
		rows = append(rows, []string{
			titleLabel(b.Name),
			formatCount(b.BottomThreshold),
			strconv.Itoa(b.Count),
			formatBytes(b.TotalSize),
			qualityLabel(b.Selection),
			formatBytes(b.EstimatedSavings),
		})
	}
	return renderTable(
		[]string{"Bucket", "From pixels", "Images", "Size", "Quality", "Est. savings"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft, alignRight},
	)
}

func renderSamples(views []workflow.BucketView) string {
	var rows [][]string
	for _, b := range views {
		for _, img := range b.Samples {
			rows = append(rows, []string{titleLabel(b.Name), qualityLabel(img.Quality), formatBytes(img.FileSize), img.FilePath})
		}
	}
	if len(rows) == 0 {
		return ""
	}
	return renderTable(
		[]string{"Bucket", "Quality", "Size", "Sample"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func qualityLabel(quality int) string {
	opt, ok := buckets.LookupOption(quality)
	if !ok {
		return strconv.Itoa(quality)
	}
	return fmt.Sprintf("%d (%s compression)", opt.Quality, strings.ToLower(opt.CompressionAmount))
}

func printParseSummary(out io.Writer, snap workflow.Snapshot, colorize bool) {
	fmt.Fprintf(out, "%d files, %s in %d folders\n", snap.ItemCount, formatBytes(snap.TotalSize), len(snap.Groups))
	fmt.Fprintln(out, renderGroups(snap))
	if issues := renderIssues(snap); issues != "" {
		printSection(out, "Issues", colorize)
		fmt.Fprintln(out, issues)
	}
	if items := renderItemsWithIssues(snap); items != "" {
		printSection(out, "Files needing attention", colorize)
		fmt.Fprintln(out, items)
	}
	if len(snap.Conflicts) > 0 {
		printSection(out, "Rename conflicts", colorize)
		fmt.Fprintln(out, renderConflicts(snap))
	}
}
