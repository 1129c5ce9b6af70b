package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fieldingest/internal/config"
	"fieldingest/internal/jobapi"
	"fieldingest/internal/media"
	"fieldingest/internal/rename"
	"fieldingest/internal/settings"
	"fieldingest/internal/workflow"
)

// sessionFlags are the inputs shared by commands that parse a folder.
type sessionFlags struct {
	mode      string
	observer  string
	output    string
	reportDir string
	rulesPath string
	ignore    []string
	filter    string
	assumeYes bool
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.mode, "mode", "m", "image", "Media type: image or video")
	cmd.Flags().StringVar(&f.observer, "observer", "", "Observer code (defaults to the one in the folder name)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Local output folder for transcoded images")
	cmd.Flags().StringVar(&f.reportDir, "report-dir", "", "Directory for the transcode report")
	cmd.Flags().StringVar(&f.rulesPath, "rules", "", "TOML file of [[rules]] rename rulesets")
	cmd.Flags().StringSliceVar(&f.ignore, "ignore", nil, "Warning codes to ignore")
	cmd.Flags().StringVar(&f.filter, "filter", "", "Only show items with this issue code")
	cmd.Flags().BoolVarP(&f.assumeYes, "yes", "y", false, "Accept defaults and confirm overwrites without prompting")
}

func (f *sessionFlags) parsedMode() (jobapi.Mode, error) {
	mode, ok := jobapi.ParseMode(f.mode)
	if !ok {
		return "", fmt.Errorf("unsupported mode %q (use image or video)", f.mode)
	}
	return mode, nil
}

// session owns a controller and the resources it borrows.
type session struct {
	cfg      *config.Config
	ctrl     *workflow.Controller
	store    *settings.Store
	prompter *prompter
	backend  jobapi.Backend
}

func openSession(cmd *cobra.Command, cc *commandContext, assumeYes bool) (*session, error) {
	cfg, err := cc.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := cc.ensureLogger()
	if err != nil {
		return nil, err
	}
	backend, err := cc.backend()
	if err != nil {
		return nil, err
	}
	store, err := settings.Open(cfg)
	if err != nil {
		return nil, err
	}
	p := newPrompter(cmd, assumeYes)
	ctrl, err := workflow.New(cfg, backend,
		workflow.WithLogger(logger),
		workflow.WithPicker(p),
		workflow.WithSettings(store),
		workflow.WithConfirmer(p.Confirm),
	)
	if err != nil {
		store.Close()
		return nil, err
	}
	return &session{cfg: cfg, ctrl: ctrl, store: store, prompter: p, backend: backend}, nil
}

func (s *session) Close() {
	s.ctrl.Close()
	_ = s.store.Close()
}

// applyRules loads the rename rulesets. They survive a multi-day reset.
func (s *session) applyRules(flags *sessionFlags) error {
	if flags.rulesPath == "" {
		return nil
	}
	pipeline, err := rename.LoadFile(flags.rulesPath)
	if err != nil {
		return err
	}
	for _, r := range pipeline {
		if _, err := s.ctrl.AddRuleset(r); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) applyIssueView(flags *sessionFlags) error {
	for _, raw := range flags.ignore {
		code, err := media.ParseIssueCode(raw)
		if err != nil {
			return err
		}
		if err := s.ctrl.IgnoreIssue(code); err != nil {
			return err
		}
	}
	if flags.filter == "" {
		return nil
	}
	code, err := media.ParseIssueCode(flags.filter)
	if err != nil {
		return err
	}
	return s.ctrl.SetFilter(code)
}

// prepare fills the inputs phase for one source folder.
func (s *session) prepare(ctx context.Context, flags *sessionFlags, source string, needOutput bool) error {
	mode, err := flags.parsedMode()
	if err != nil {
		return err
	}
	if err := s.ctrl.SetMode(mode); err != nil {
		return err
	}
	if err := s.ctrl.SetSourceFolder(source); err != nil {
		return err
	}
	if flags.observer != "" {
		if err := s.ctrl.SetObserverCode(flags.observer); err != nil {
			return err
		}
	}
	snap := s.ctrl.View()
	if flags.output != "" {
		if err := s.ctrl.SetLocalOutputFolder(flags.output); err != nil {
			return err
		}
	} else if needOutput && mode == jobapi.ModeImage && snap.LocalOutputFolder == "" {
		if _, err := s.ctrl.ChooseLocalOutputFolder(ctx); err != nil {
			return err
		}
	}
	if flags.reportDir != "" {
		if err := s.ctrl.SetReportDir(flags.reportDir); err != nil {
			return err
		}
	} else if needOutput && snap.ReportDir == "" {
		if _, err := s.ctrl.ChooseReportDir(ctx); err != nil {
			return err
		}
	}
	if err := s.applyIssueView(flags); err != nil {
		return err
	}
	if !needOutput && mode == jobapi.ModeImage && s.ctrl.View().LocalOutputFolder == "" {
		// Parse-only commands write nothing; the state dir satisfies the
		// inputs guard.
		if err := s.ctrl.SetLocalOutputFolder(s.cfg.Paths.StateDir); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) parse(ctx context.Context) (workflow.Snapshot, error) {
	if err := s.ctrl.StartParse(ctx); err != nil {
		return workflow.Snapshot{}, err
	}
	snap, err := s.ctrl.WaitFor(ctx, func(v workflow.Snapshot) bool {
		return v.Parsed || v.Notices[workflow.SlotParse] != ""
	})
	if err != nil {
		return snap, err
	}
	if !snap.Parsed {
		return snap, fmt.Errorf("parse failed: %s", snap.Notices[workflow.SlotParse])
	}
	return snap, nil
}

func (s *session) waitForSamples(ctx context.Context) (workflow.Snapshot, error) {
	snap, err := s.ctrl.WaitFor(ctx, func(v workflow.Snapshot) bool { return !v.Sampling })
	if err != nil {
		return snap, err
	}
	if msg := snap.Notices[workflow.SlotSample]; msg != "" {
		return snap, errors.New(msg)
	}
	return snap, nil
}

func parseQualities(raw map[string]int) map[string]int {
	out := make(map[string]int, len(raw))
	for name, quality := range raw {
		out[strings.ToLower(strings.TrimSpace(name))] = quality
	}
	return out
}
