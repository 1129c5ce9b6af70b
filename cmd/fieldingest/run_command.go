package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"fieldingest/internal/darkimage"
	"fieldingest/internal/folder"
	"fieldingest/internal/gate"
	"fieldingest/internal/workflow"
)

type runFlags struct {
	session      sessionFlags
	sources      []string
	qualities    map[string]int
	dark         bool
	notDark      []string
	colorCorrect bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run [source...]",
		Short: "Parse, review and submit source folders for transcoding",
		Long: `Run takes each source folder through parse, validation, compression
options (images only) and transcode submission. With several sources the
mode, observer code, output folders, rename rules, bucket qualities and
colour correction carry over from one folder to the next.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sources := append(append([]string(nil), flags.sources...), args...)
			if len(sources) == 0 {
				return errors.New("at least one source folder is required (use --source)")
			}

			s, err := openSession(cmd, ctx, flags.session.assumeYes)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.applyRules(&flags.session); err != nil {
				return err
			}
			s.ctrl.SetMultiDay(len(sources) > 1)
			if cmd.Flags().Changed("color-correct") {
				s.ctrl.SetColorCorrect(flags.colorCorrect)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, source := range sources {
				jobID, err := runSource(cmd.Context(), out, colorize, s, &flags, source)
				if err != nil {
					fmt.Fprintln(out, renderStatusLine(folder.Base(source), statusError, err.Error(), colorize))
					return fmt.Errorf("%s: %w", source, err)
				}
				fmt.Fprintln(out, renderStatusLine(folder.Base(source), statusOK, "transcode job "+jobID, colorize))
			}
			return nil
		},
	}

	flags.session.register(cmd)
	cmd.Flags().StringSliceVarP(&flags.sources, "source", "s", nil, "Source folder (repeat for a multi-day ingest)")
	cmd.Flags().StringToIntVar(&flags.qualities, "quality", nil, "JPEG quality per bucket, e.g. small=50,xlarge=20")
	cmd.Flags().BoolVar(&flags.dark, "dark", false, "Run dark image detection before submitting")
	cmd.Flags().StringSliceVar(&flags.notDark, "not-dark", nil, "Dark sample file names to leave out of dark handling")
	cmd.Flags().BoolVar(&flags.colorCorrect, "color-correct", false, "Transcode selected dark images with colour correction")
	return cmd
}

func runSource(ctx context.Context, out io.Writer, colorize bool, s *session, flags *runFlags, source string) (string, error) {
	if err := s.prepare(ctx, &flags.session, source, true); err != nil {
		return "", err
	}
	if err := s.ctrl.CheckInputs(); err != nil {
		return "", err
	}
	lock, err := acquireSessionLock(s.cfg, s.ctrl.View().CatalogFolder)
	if err != nil {
		return "", err
	}
	defer lock.Release()

	if counts, err := s.ctrl.CountFiles(ctx); err != nil {
		fmt.Fprintln(out, renderStatusLine("Files", statusWarn, err.Error(), colorize))
	} else {
		message := fmt.Sprintf("%s images, %s videos", formatCount(int64(counts.Images)), formatCount(int64(counts.Videos)))
		fmt.Fprintln(out, renderStatusLine("Files", statusInfo, message, colorize))
	}

	snap, err := s.parse(ctx)
	if err != nil {
		return "", err
	}
	printSection(out, "Parsed "+snap.CatalogFolder, colorize)
	printParseSummary(out, snap, colorize)

	if err := s.ctrl.Advance(ctx); err != nil {
		if errors.Is(err, gate.ErrCollisionDeclined) {
			return "", fmt.Errorf("cancelled: %w", err)
		}
		return "", err
	}

	if s.ctrl.Phase() == workflow.PhaseChooseOptions {
		if err := chooseOptions(ctx, out, colorize, s, flags); err != nil {
			return "", err
		}
	}
	return s.ctrl.Execute(ctx)
}

func chooseOptions(ctx context.Context, out io.Writer, colorize bool, s *session, flags *runFlags) error {
	if _, err := s.waitForSamples(ctx); err != nil {
		fmt.Fprintln(out, renderStatusLine("Samples", statusWarn, err.Error(), colorize))
	}
	for name, quality := range parseQualities(flags.qualities) {
		if err := s.ctrl.SetSelection(name, quality); err != nil {
			return err
		}
	}

	if flags.dark {
		if err := s.ctrl.StartDarkDetection(ctx); err != nil {
			return err
		}
		snap, err := s.ctrl.WaitFor(ctx, func(v workflow.Snapshot) bool {
			return v.Dark.Stage == darkimage.StageDone || v.Dark.Stage == darkimage.StageFailed
		})
		if err != nil {
			return err
		}
		if snap.Dark.Stage == darkimage.StageFailed {
			return fmt.Errorf("dark detection: %w", snap.Dark.Err)
		}
		for _, name := range flags.notDark {
			if err := s.ctrl.ToggleDark(strings.TrimSpace(name)); err != nil {
				return err
			}
		}
		printSection(out, "Dark images", colorize)
		fmt.Fprintln(out, renderDark(s.ctrl.View()))
	}

	snap := s.ctrl.View()
	printSection(out, "Compression", colorize)
	fmt.Fprintln(out, renderBucketViews(snap.Buckets))
	fmt.Fprintf(out, "Estimated savings: %s\n", formatBytes(snap.TotalSavings))
	if samples := renderSamples(snap.Buckets); samples != "" {
		fmt.Fprintln(out, samples)
	}
	return nil
}

func renderDark(snap workflow.Snapshot) string {
	selected := make(map[string]bool, len(snap.Dark.Selected))
	for _, name := range snap.Dark.Selected {
		selected[name] = true
	}
	rows := make([][]string, 0, len(snap.Dark.Samples))
	for _, img := range snap.Dark.Samples {
		rows = append(rows, []string{img.FileName, yesNo(selected[img.FileName]), yesNo(snap.ColorCorrect && selected[img.FileName])})
	}
	return renderTable([]string{"Sample", "Selected", "Colour corrected"}, rows, nil)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
