package media

import (
	"path"
	"sort"
	"strings"
)

// Group is the set of items sharing one subfolder of the source folder.
type Group struct {
	Subfolder  string
	Items      []Item
	Issues     []IssueCode
	Status     Status
	StatusText string
}

// IsRoot reports whether the group holds top-level items.
func (g Group) IsRoot() bool {
	return g.Subfolder == RootFolder
}

// TotalSize sums the file sizes of the group's items.
func (g Group) TotalSize() int64 {
	var total int64
	for _, item := range g.Items {
		total += item.FileSize
	}
	return total
}

// GroupBySubfolder groups items by their directory relative to sourceDir.
// The root group sorts first, the rest by name. Group-level codes are moved
// off the items and onto the group.
func GroupBySubfolder(sourceDir string, items []Item) []Group {
	root := normalizeDir(sourceDir)
	index := make(map[string]int)
	var groups []Group
	for _, item := range items {
		key := subfolderOf(root, item.FilePath)
		idx, ok := index[key]
		if !ok {
			idx = len(groups)
			index[key] = idx
			groups = append(groups, Group{Subfolder: key})
		}
		g := &groups[idx]
		item.Warnings = liftGroupCodes(g, item.Warnings)
		item.Errors = liftGroupCodes(g, item.Errors)
		item.Status = CalculateStatus(item.Errors, item.Warnings)
		g.Items = append(g.Items, item)
	}
	for i := range groups {
		groups[i].Status, groups[i].StatusText = groupStatus(groups[i].Issues, nil)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].IsRoot() != groups[j].IsRoot() {
			return groups[i].IsRoot()
		}
		return groups[i].Subfolder < groups[j].Subfolder
	})
	return groups
}

func liftGroupCodes(g *Group, codes []IssueCode) []IssueCode {
	if len(codes) == 0 {
		return codes
	}
	kept := codes[:0:0]
	for _, code := range codes {
		if !isGroupLevel(code) {
			kept = append(kept, code)
			continue
		}
		if !containsCode(g.Issues, code) {
			g.Issues = append(g.Issues, code)
		}
	}
	return kept
}

// groupStatus picks the most severe remaining group-level issue. Its
// message becomes the status text.
func groupStatus(issues []IssueCode, ignore *IgnoreList) (Status, string) {
	status := StatusSuccess
	text := ""
	for _, code := range issues {
		if ignore.Contains(code) {
			continue
		}
		issue, ok := Lookup(code)
		if !ok {
			continue
		}
		if issue.Severity.rank() > status.rank() {
			status = issue.Severity
			text = issue.Message
		}
	}
	return status, text
}

func normalizeDir(dir string) string {
	dir = strings.ReplaceAll(strings.TrimSpace(dir), `\`, "/")
	if dir == "" {
		return ""
	}
	return strings.TrimRight(path.Clean(dir), "/")
}

func subfolderOf(root, filePath string) string {
	dir := path.Dir(strings.ReplaceAll(filePath, `\`, "/"))
	if root != "" {
		if dir == root {
			return RootFolder
		}
		if strings.HasPrefix(dir, root+"/") {
			return strings.TrimPrefix(dir, root+"/")
		}
	}
	if dir == "." || dir == "/" || dir == "" {
		return RootFolder
	}
	return dir
}
