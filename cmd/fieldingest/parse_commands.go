package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"fieldingest/internal/buckets"
	"fieldingest/internal/media"
	"fieldingest/internal/rename"
	"fieldingest/internal/workflow"
)

type parseSummary struct {
	CatalogFolder string                  `json:"catalog_folder"`
	ObserverCode  string                  `json:"observer_code"`
	Items         int                     `json:"items"`
	TotalSize     int64                   `json:"total_size"`
	Blocked       bool                    `json:"blocked"`
	IssueCounts   map[media.IssueCode]int `json:"issue_counts"`
	Groups        []groupSummary          `json:"groups"`
	Conflicts     []string                `json:"conflicts,omitempty"`
}

type groupSummary struct {
	Subfolder  string       `json:"subfolder"`
	Status     media.Status `json:"status"`
	StatusText string       `json:"status_text,omitempty"`
	Files      int          `json:"files"`
	TotalSize  int64        `json:"total_size"`
}

func summarizeParse(snap workflow.Snapshot) parseSummary {
	summary := parseSummary{
		CatalogFolder: snap.CatalogFolder,
		ObserverCode:  snap.ObserverCode,
		Items:         snap.ItemCount,
		TotalSize:     snap.TotalSize,
		Blocked:       snap.Blocked,
		IssueCounts:   snap.IssueCounts,
	}
	for _, g := range snap.Groups {
		summary.Groups = append(summary.Groups, groupSummary{
			Subfolder:  g.Subfolder,
			Status:     g.Status,
			StatusText: g.StatusText,
			Files:      len(g.Items),
			TotalSize:  g.TotalSize(),
		})
	}
	for _, c := range snap.Conflicts {
		summary.Conflicts = append(summary.Conflicts, c.String())
	}
	return summary
}

// parseOnly runs a session up to the parse result for one folder.
func parseOnly(cmd *cobra.Command, ctx *commandContext, flags *sessionFlags, source string, extra ...rename.Ruleset) (*session, workflow.Snapshot, error) {
	s, err := openSession(cmd, ctx, true)
	if err != nil {
		return nil, workflow.Snapshot{}, err
	}
	if err := s.applyRules(flags); err != nil {
		s.Close()
		return nil, workflow.Snapshot{}, err
	}
	for _, r := range extra {
		if _, err := s.ctrl.AddRuleset(r); err != nil {
			s.Close()
			return nil, workflow.Snapshot{}, err
		}
	}
	if err := s.prepare(cmd.Context(), flags, source, false); err != nil {
		s.Close()
		return nil, workflow.Snapshot{}, err
	}
	snap, err := s.parse(cmd.Context())
	if err != nil {
		s.Close()
		return nil, snap, err
	}
	return s, snap, nil
}

func newParseCommand(ctx *commandContext) *cobra.Command {
	var flags sessionFlags
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "parse <source>",
		Short: "Parse a source folder and report its issues",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, snap, err := parseOnly(cmd, ctx, &flags, args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			if jsonOutput {
				return writeJSON(cmd, summarizeParse(snap))
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			printSection(out, "Parsed "+snap.CatalogFolder, colorize)
			printParseSummary(out, snap, colorize)
			if err := s.ctrl.CanAdvance(); err != nil {
				fmt.Fprintln(out, renderStatusLine("Ready", statusError, err.Error(), colorize))
				return nil
			}
			fmt.Fprintln(out, renderStatusLine("Ready", statusOK, "no blocking issues", colorize))
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the summary as JSON")
	return cmd
}

func newBucketsCommand(ctx *commandContext) *cobra.Command {
	var flags sessionFlags
	var qualities map[string]int

	cmd := &cobra.Command{
		Use:   "buckets <source>",
		Short: "Show how a folder's images fall into compression buckets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.mode = "image"
			s, snap, err := parseOnly(cmd, ctx, &flags, args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			thresholds := make([]buckets.Threshold, 0, len(s.cfg.Buckets))
			for _, b := range s.cfg.Buckets {
				thresholds = append(thresholds, buckets.Threshold{Name: b.Name, BottomThreshold: b.BottomThreshold})
			}
			set, err := buckets.NewSet(thresholds, s.cfg.Workflow.DefaultQuality)
			if err != nil {
				return err
			}
			for name, quality := range parseQualities(qualities) {
				if err := set.SetSelection(name, quality); err != nil {
					return err
				}
			}
			var members []buckets.Member
			for _, item := range media.Items(snap.Groups) {
				members = append(members, buckets.Member{Path: item.FilePath, Width: item.Width, Height: item.Height, FileSize: item.FileSize})
			}
			set.Seed(members)

			views := make([]workflow.BucketView, 0, len(set.Names()))
			for _, b := range set.Buckets() {
				views = append(views, workflow.BucketView{
					Name:             b.Name,
					BottomThreshold:  b.BottomThreshold,
					Count:            b.Len(),
					Selection:        b.Selection,
					TotalSize:        b.TotalSize(),
					EstimatedSavings: b.EstimatedSavings(),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderBucketViews(views))
			fmt.Fprintf(out, "Estimated savings: %s\n", formatBytes(set.TotalSavings()))
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringToIntVar(&qualities, "quality", nil, "JPEG quality per bucket, e.g. small=50,xlarge=20")
	return cmd
}

func newRenameCommand(ctx *commandContext) *cobra.Command {
	renameCmd := &cobra.Command{
		Use:   "rename",
		Short: "Batch rename utilities",
	}
	renameCmd.AddCommand(newRenamePreviewCommand(ctx))
	return renameCmd
}

func newRenamePreviewCommand(ctx *commandContext) *cobra.Command {
	var flags sessionFlags
	var rule rename.Ruleset
	var savePath string

	cmd := &cobra.Command{
		Use:   "preview <source>",
		Short: "Show the names rename rules would produce",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var extra []rename.Ruleset
			if ruleChanged(cmd) {
				extra = append(extra, rule)
			}
			s, snap, err := parseOnly(cmd, ctx, &flags, args[0], extra...)
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			if table := renderRenames(snap); table != "" {
				fmt.Fprintln(out, table)
			} else {
				fmt.Fprintln(out, "No files are renamed.")
			}
			if len(snap.Conflicts) > 0 {
				printSection(out, "Conflicts", colorize)
				fmt.Fprintln(out, renderConflicts(snap))
			}
			if n := snap.IssueCounts[media.CodeNameTooLong] + snap.IssueCounts[media.CodeNameWhitespace] + snap.IssueCounts[media.CodeNameEmpty]; n > 0 {
				fmt.Fprintln(out, renderStatusLine("Names", statusError, strconv.Itoa(n)+" new names are invalid", colorize))
			}
			if savePath != "" {
				if err := rename.SaveFile(savePath, snap.Rulesets); err != nil {
					return err
				}
				fmt.Fprintf(out, "Saved %d rulesets to %s\n", len(snap.Rulesets), savePath)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&rule.TrimStart, "trim-start", 0, "Characters to remove from the start")
	cmd.Flags().IntVar(&rule.TrimEnd, "trim-end", 0, "Characters to remove from the end")
	cmd.Flags().StringVar(&rule.Prefix, "prefix", "", "Text to prepend")
	cmd.Flags().StringVar(&rule.Suffix, "suffix", "", "Text to append")
	cmd.Flags().StringVar(&rule.InsertText, "insert", "", "Text to insert")
	cmd.Flags().IntVar(&rule.InsertAt, "insert-at", 0, "Character position for --insert")
	cmd.Flags().StringVar(&rule.FindString, "find", "", "Text to replace")
	cmd.Flags().StringVar(&rule.ReplaceString, "replace", "", "Replacement for --find")
	cmd.Flags().StringVar(&savePath, "save", "", "Write the combined rulesets to this TOML file")
	return cmd
}

func ruleChanged(cmd *cobra.Command) bool {
	for _, name := range []string{"trim-start", "trim-end", "prefix", "suffix", "insert", "find"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}
