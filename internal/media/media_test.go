package media_test

import (
	"errors"
	"testing"

	"fieldingest/internal/jobapi"
	"fieldingest/internal/media"
)

func lengthValidator(oldName, newName string) []media.IssueCode {
	if len(newName) > 20 {
		return []media.IssueCode{media.CodeNameTooLong}
	}
	return nil
}

func sampleItems() []media.Item {
	return []media.Item{
		media.FromMetadata(jobapi.MediaMetadata{FilePath: "/src/2024-06-03-JB/b/IMG_2.JPG", FileName: "IMG_2.JPG", Extension: "JPG", FileSize: 20}),
		media.FromMetadata(jobapi.MediaMetadata{FilePath: "/src/2024-06-03-JB/IMG_1.JPG", FileName: "IMG_1.JPG", Extension: "JPG", FileSize: 10, Warnings: []string{"INCORRECT_CREATED_TIME"}}),
		media.FromMetadata(jobapi.MediaMetadata{FilePath: "/src/2024-06-03-JB/a/IMG_3.JPG", FileName: "IMG_3.JPG", Extension: "JPG", FileSize: 30, Warnings: []string{"VIDEO_PATH_WARNING"}}),
	}
}

func TestFromMetadataStripsExtension(t *testing.T) {
	item := media.FromMetadata(jobapi.MediaMetadata{FilePath: `C:\field\clip.mov`, FileName: "clip.MOV", Extension: ".mov", Width: 1920, Height: 1080})
	if item.FileName != "clip" || item.Extension != "mov" {
		t.Fatalf("unexpected name split: %q %q", item.FileName, item.Extension)
	}
	if item.Resolution != 1920*1080 {
		t.Fatalf("unexpected resolution %d", item.Resolution)
	}
	if item.Status != media.StatusSuccess {
		t.Fatalf("expected success status, got %s", item.Status)
	}
}

func TestGroupBySubfolderOrdersRootFirstAndLiftsGroupCodes(t *testing.T) {
	groups := media.GroupBySubfolder("/src/2024-06-03-JB/", sampleItems())
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	if groups[0].Subfolder != media.RootFolder || groups[1].Subfolder != "a" || groups[2].Subfolder != "b" {
		t.Fatalf("unexpected group order: %s %s %s", groups[0].Subfolder, groups[1].Subfolder, groups[2].Subfolder)
	}
	nested := groups[1]
	if nested.Status != media.StatusWarning || nested.StatusText != "this is a nested folder" {
		t.Fatalf("expected nested folder warning on group, got %s %q", nested.Status, nested.StatusText)
	}
	if len(nested.Items[0].Warnings) != 0 || nested.Items[0].Status != media.StatusSuccess {
		t.Fatalf("expected group-level code lifted off the item, got %+v", nested.Items[0])
	}
}

func TestGroupBySubfolderHandlesWindowsPaths(t *testing.T) {
	items := []media.Item{
		media.FromMetadata(jobapi.MediaMetadata{FilePath: `D:\field\2024-06-03-JB\x.jpg`, FileName: "x.jpg"}),
		media.FromMetadata(jobapi.MediaMetadata{FilePath: `D:\field\2024-06-03-JB\sub\y.jpg`, FileName: "y.jpg"}),
	}
	groups := media.GroupBySubfolder(`D:\field\2024-06-03-JB`, items)
	if len(groups) != 2 || !groups[0].IsRoot() || groups[1].Subfolder != "sub" {
		t.Fatalf("unexpected groups: %+v", groups)
	}
}

func TestIgnoreListRejectsErrors(t *testing.T) {
	var list media.IgnoreList
	if err := list.Add(media.CodeNameTooLong); !errors.Is(err, media.ErrNotSuppressible) {
		t.Fatalf("expected ErrNotSuppressible, got %v", err)
	}
	if err := list.Add("BOGUS"); !errors.Is(err, media.ErrUnknownIssue) {
		t.Fatalf("expected ErrUnknownIssue, got %v", err)
	}
	if err := list.Add(media.CodeCreatedTime); err != nil {
		t.Fatalf("Add warning: %v", err)
	}
	_ = list.Add(media.CodeCreatedTime)
	if got := list.Codes(); len(got) != 1 {
		t.Fatalf("expected deduplicated list, got %v", got)
	}
	list.Remove(media.CodeCreatedTime)
	if list.Contains(media.CodeCreatedTime) {
		t.Fatal("expected code removed")
	}
}

func TestDeriveAppliesIgnoresToItemsAndGroups(t *testing.T) {
	groups := media.GroupBySubfolder("/src/2024-06-03-JB", sampleItems())
	ignore := &media.IgnoreList{}
	if err := ignore.Add(media.CodeNestedFolder); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := ignore.Add(media.CodeCreatedTime); err != nil {
		t.Fatalf("Add: %v", err)
	}
	view := media.Derive(groups, ignore, "", lengthValidator)
	for _, g := range view {
		if g.Status != media.StatusSuccess {
			t.Fatalf("group %s: expected success after ignores, got %s", g.Subfolder, g.Status)
		}
	}
	if groups[0].Items[0].Status != media.StatusWarning {
		t.Fatal("Derive must not mutate its input")
	}
}

func TestDeriveSynthesizesRenameErrors(t *testing.T) {
	groups := media.GroupBySubfolder("/src/2024-06-03-JB", sampleItems())
	groups[0].Items[0].NewName = "this_name_is_far_too_long"
	view := media.Derive(groups, nil, "", lengthValidator)
	item := view[0].Items[0]
	if item.Status != media.StatusError || len(item.Errors) != 1 || item.Errors[0] != media.CodeNameTooLong {
		t.Fatalf("expected synthesized LENGTH_ERROR, got %+v", item)
	}
	if view[0].Status != media.StatusError || !media.Blocking(view) {
		t.Fatal("expected synthesized error to propagate to the group")
	}

	ignore := &media.IgnoreList{}
	_ = ignore.Add(media.CodeCreatedTime)
	view = media.Derive(groups, ignore, "", lengthValidator)
	if view[0].Items[0].Status != media.StatusError {
		t.Fatal("ignore list must not suppress synthesized errors")
	}
}

func TestDeriveClearsBackendLengthErrorWhenRenameFixesIt(t *testing.T) {
	item := media.FromMetadata(jobapi.MediaMetadata{FilePath: "/src/d/a_very_long_original_file_name.jpg", FileName: "a_very_long_original_file_name.jpg", Errors: []string{"LENGTH_ERROR"}})
	groups := media.GroupBySubfolder("/src/d", []media.Item{item})
	if media.Derive(groups, nil, "", lengthValidator)[0].Items[0].Status != media.StatusError {
		t.Fatal("expected backend error to stand without a rename")
	}
	groups[0].Items[0].NewName = "short"
	if got := media.Derive(groups, nil, "", lengthValidator)[0].Items[0]; got.Status != media.StatusSuccess {
		t.Fatalf("expected rename to clear LENGTH_ERROR, got %+v", got)
	}
}

func TestDeriveFilter(t *testing.T) {
	groups := media.GroupBySubfolder("/src/2024-06-03-JB", sampleItems())

	nested := media.Derive(groups, nil, media.CodeNestedFolder, nil)
	if len(nested) != 1 || nested[0].Subfolder != "a" {
		t.Fatalf("expected only the nested group, got %+v", nested)
	}

	dated := media.Derive(groups, nil, media.CodeCreatedTime, nil)
	if len(dated) != 1 || len(dated[0].Items) != 1 || dated[0].Items[0].FileName != "IMG_1" {
		t.Fatalf("expected only the mismatched item, got %+v", dated)
	}
}

func TestCountsAndTotals(t *testing.T) {
	groups := media.GroupBySubfolder("/src/2024-06-03-JB", sampleItems())
	counts := media.CountIssues(groups)
	if counts[media.CodeNestedFolder] != 1 || counts[media.CodeCreatedTime] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
	if media.TotalSize(groups) != 60 {
		t.Fatalf("expected total 60, got %d", media.TotalSize(groups))
	}
	if len(media.Items(groups)) != 3 {
		t.Fatal("expected three flattened items")
	}
}

func TestParseIssueCodeAndCatalog(t *testing.T) {
	code, err := media.ParseIssueCode("length_error")
	if err != nil || code != media.CodeNameTooLong {
		t.Fatalf("ParseIssueCode = %q, %v", code, err)
	}
	cat := media.Catalog()
	if len(cat) != 6 || cat[0].Severity != media.StatusError || cat[len(cat)-1].Severity != media.StatusWarning {
		t.Fatalf("unexpected catalog order: %+v", cat)
	}
}
