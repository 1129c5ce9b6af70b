package workflow

import (
	"context"
	"fmt"

	"fieldingest/internal/gate"
	"fieldingest/internal/jobapi"
	"fieldingest/internal/logging"
	"fieldingest/internal/media"
	"fieldingest/internal/poller"
	"fieldingest/internal/rename"
	"fieldingest/internal/services"
)

// StartParse leaves the inputs phase and submits the parse job. Calling it
// again from the parse phase re-runs the parse.
func (c *Controller) StartParse(ctx context.Context) error {
	ctx = c.transitionContext(ctx, PhaseParse)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requirePhaseLocked("start parse", PhaseInputs, PhaseParse); err != nil {
		return err
	}
	if err := c.checkInputsLocked(); err != nil {
		return err
	}

	c.slots.CancelAll()
	c.clearJobsLocked()
	c.dark.Cancel(ctx)
	c.deleteSamples(ctx)

	jobID, err := c.backend.SubmitParse(ctx, c.mode, c.sourceFolder, c.observerCode)
	if err != nil {
		err = services.Wrap(services.ErrExternalTool, string(PhaseParse), "submit parse", "Failed to start parsing", err)
		c.setNoticeLocked(SlotParse, err)
		c.notify()
		return err
	}
	from := c.phase
	c.phase = PhaseParse
	c.parseJobID = jobID
	c.parsing = true
	c.logJobSubmitted(ctx, SlotParse, jobID)
	c.logTransition(ctx, from, PhaseParse, "parse submitted")

	gen := c.slots.Next(SlotParse)
	opts := c.pollOptions()
	opts.TrackTasks = true
	opts.OnProgress = func(completed, total int) {
		c.onProgress(SlotParse, gen, &c.parseProgress, completed, total)
	}
	h := poller.Watch(ctx, c.backend, jobID, c.backend.ParsedMedia, func(o poller.Outcome[[]jobapi.MediaMetadata]) {
		c.onParsed(gen, o)
	}, opts)
	c.slots.Bind(SlotParse, gen, h)
	c.notify()
	return nil
}

func (c *Controller) onProgress(slot string, gen uint64, target *Progress, completed, total int) {
	c.mu.Lock()
	if !c.slots.Current(slot, gen) {
		c.mu.Unlock()
		return
	}
	*target = Progress{Completed: completed, Total: total}
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) onParsed(gen uint64, o poller.Outcome[[]jobapi.MediaMetadata]) {
	c.mu.Lock()
	defer c.notify()
	defer c.mu.Unlock()
	if !c.slots.Current(SlotParse, gen) || c.phase != PhaseParse {
		return
	}
	c.slots.Release(SlotParse, gen)
	c.parsing = false
	if o.Err != nil {
		c.setNoticeLocked(SlotParse, o.Err)
		c.warnJobFailed(SlotParse, o.Err)
		return
	}
	items := make([]media.Item, 0, len(o.Value))
	for _, md := range o.Value {
		items = append(items, media.FromMetadata(md))
	}
	c.groups = media.GroupBySubfolder(c.sourceFolder, items)
	c.parsed = true
	c.applyRenamesLocked()
	c.logger.Info("parse completed",
		logging.String(logging.FieldEventType, "parse_completed"),
		logging.String(logging.FieldJobID, o.JobID),
		logging.Int("items", len(items)),
		logging.Int("groups", len(c.groups)),
	)
}

func (c *Controller) applyRenamesLocked() {
	c.renames = rename.Apply(c.pipeline, c.groups)
}

// AddRuleset appends a rename ruleset and re-applies the pipeline.
func (c *Controller) AddRuleset(r rename.Ruleset) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requirePhaseLocked("add ruleset", PhaseInputs, PhaseParse); err != nil {
		return "", err
	}
	if r.TrimStart < 0 || r.TrimEnd < 0 {
		return "", services.Wrap(services.ErrValidation, string(c.phase), "add ruleset", "trim counts must not be negative", nil)
	}
	c.pipeline = c.pipeline.Append(r)
	c.applyRenamesLocked()
	c.notify()
	return c.pipeline[len(c.pipeline)-1].ID, nil
}

// RemoveRuleset drops a ruleset by id.
func (c *Controller) RemoveRuleset(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requirePhaseLocked("remove ruleset", PhaseInputs, PhaseParse); err != nil {
		return err
	}
	next, ok := c.pipeline.Remove(id)
	if !ok {
		return services.Wrap(services.ErrNotFound, string(c.phase), "remove ruleset", fmt.Sprintf("no ruleset %q", id), nil)
	}
	c.pipeline = next
	c.applyRenamesLocked()
	c.notify()
	return nil
}

// ClearRulesets removes every ruleset.
func (c *Controller) ClearRulesets() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requirePhaseLocked("clear rulesets", PhaseInputs, PhaseParse); err != nil {
		return err
	}
	c.pipeline = nil
	c.applyRenamesLocked()
	c.notify()
	return nil
}

// IgnoreIssue suppresses a warning code in the view.
func (c *Controller) IgnoreIssue(code media.IssueCode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ignore.Add(code); err != nil {
		return services.Wrap(services.ErrValidation, string(c.phase), "ignore issue", string(code), err)
	}
	c.notify()
	return nil
}

// UnignoreIssue stops suppressing a code.
func (c *Controller) UnignoreIssue(code media.IssueCode) {
	c.mu.Lock()
	c.ignore.Remove(code)
	c.mu.Unlock()
	c.notify()
}

// SetFilter limits the view to one issue code. An empty code clears it.
func (c *Controller) SetFilter(code media.IssueCode) error {
	if code != "" {
		if _, ok := media.Lookup(code); !ok {
			return services.Wrap(services.ErrValidation, "", "set filter", string(code), media.ErrUnknownIssue)
		}
	}
	c.mu.Lock()
	c.filter = code
	c.mu.Unlock()
	c.notify()
	return nil
}

// CanAdvance reports why the parse phase cannot be left, or nil.
func (c *Controller) CanAdvance() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canAdvanceLocked()
}

func (c *Controller) canAdvanceLocked() error {
	if err := c.requirePhaseLocked("advance", PhaseParse); err != nil {
		return err
	}
	if !c.parsed {
		return services.Wrap(services.ErrValidation, string(PhaseParse), "advance", "waiting for parse results", ErrParseIncomplete)
	}
	if err := c.renames.Err(c.cfg.Workflow.ConflictExamples); err != nil {
		return services.Wrap(services.ErrValidation, string(PhaseParse), "advance", "resolve rename conflicts", err)
	}
	derived := media.Derive(c.renames.Groups, c.ignore, "", rename.Validator(c.cfg.Workflow.MaxNameLength))
	if media.Blocking(derived) {
		return services.Wrap(services.ErrValidation, string(PhaseParse), "advance", "fix items in error", ErrBlockingIssues)
	}
	return nil
}

func (c *Controller) validationRequestLocked() jobapi.ValidationRequest {
	items := media.Items(c.renames.Groups)
	files := make([]jobapi.PathRename, 0, len(items))
	for _, item := range items {
		files = append(files, jobapi.PathRename{FilePath: item.FilePath, NewName: item.OutputName()})
	}
	return jobapi.ValidationRequest{
		Mode:         c.mode,
		SourceDir:    c.sourceFolder,
		ObserverCode: c.observerCode,
		Files:        files,
	}
}

// Advance leaves the current phase. From the parse phase it runs the
// advance guard and the backend validation gate, then enters the options
// phase for images or the execute phase for videos. From the options phase
// it enters the execute phase.
func (c *Controller) Advance(ctx context.Context) error {
	c.mu.Lock()
	if c.phase == PhaseChooseOptions {
		defer c.mu.Unlock()
		ctx = c.transitionContext(ctx, PhaseExecute)
		c.enterExecuteLocked(ctx, "options confirmed")
		c.notify()
		return nil
	}
	if err := c.canAdvanceLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	parseJobID := c.parseJobID
	req := c.validationRequestLocked()
	rules := len(c.pipeline)
	c.mu.Unlock()

	// The confirmer may prompt the operator, so the gate runs unlocked.
	if err := gate.Check(ctx, c.backend, req, rules, c.confirm); err != nil {
		logging.WarnWithContext(c.logger, "validation gate blocked advance", "gate_blocked",
			logging.String(logging.FieldPhase, string(PhaseParse)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "shorten names or confirm overwriting existing output"),
		)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseParse || c.parseJobID != parseJobID {
		return services.Wrap(services.ErrValidation, string(c.phase), "advance", "session changed during validation", ErrWrongPhase)
	}
	if c.mode == jobapi.ModeImage {
		if err := c.enterChooseOptionsLocked(c.transitionContext(ctx, PhaseChooseOptions)); err != nil {
			return err
		}
	} else {
		c.enterExecuteLocked(c.transitionContext(ctx, PhaseExecute), "validation passed")
	}
	c.notify()
	return nil
}
