package workflow

import (
	"context"
	"math"

	"fieldingest/internal/jobapi"
	"fieldingest/internal/media"
	"fieldingest/internal/services"
)

func (c *Controller) enterExecuteLocked(ctx context.Context, reason string) {
	c.cancelSampleSlotsLocked()
	c.dark.Stop()
	from := c.phase
	c.phase = PhaseExecute
	c.logTransition(ctx, from, PhaseExecute, reason)
}

// Execute submits the transcode job and returns its id. Called from the
// options phase it first enters the execute phase. A failed submission
// stays in the execute phase so it can be retried. On success the session
// resets, keeping the template when multi-day is on. The controller lock
// is released while the backend is called, so View stays responsive and a
// second Execute is rejected until the first returns.
func (c *Controller) Execute(ctx context.Context) (string, error) {
	ctx = c.transitionContext(ctx, PhaseExecute)
	c.mu.Lock()
	if err := c.requirePhaseLocked("execute", PhaseChooseOptions, PhaseExecute); err != nil {
		c.mu.Unlock()
		return "", err
	}
	if c.submitting {
		c.mu.Unlock()
		return "", services.Wrap(services.ErrValidation, string(PhaseExecute), "execute", "transcode submission already in progress", ErrBusy)
	}
	if c.phase == PhaseChooseOptions {
		c.enterExecuteLocked(ctx, "execute requested")
	}
	req := jobapi.TranscodeRequest{
		Mode:            c.mode,
		SourceDir:       c.sourceFolder,
		LocalExportPath: c.localOutput,
		ReportDir:       c.reportDir,
		ObserverCode:    c.observerCode,
		Settings:        c.transcodeSettingsLocked(),
	}
	token := c.parseJobID
	c.submitting = true
	c.mu.Unlock()
	c.notify()
	defer c.notify()

	c.deleteSamples(ctx)
	jobID, err := c.backend.SubmitTranscode(ctx, req)

	c.mu.Lock()
	current := c.phase == PhaseExecute && c.parseJobID == token
	if current {
		c.submitting = false
	}
	if err != nil {
		err = services.Wrap(services.ErrExternalTool, string(PhaseExecute), "submit transcode", "Failed to start transcoding", err)
		if current {
			c.setNoticeLocked(SlotTranscode, err)
		}
		c.mu.Unlock()
		c.warnJobFailed(SlotTranscode, err)
		return "", err
	}
	c.logJobSubmitted(ctx, SlotTranscode, jobID)
	if !current {
		c.mu.Unlock()
		return jobID, nil
	}

	c.slots.CancelAll()
	if c.multiDay {
		c.resetLocked(c.templateLocked())
		c.logTransition(ctx, PhaseExecute, PhaseInputs, "transcode submitted, next day")
	} else {
		c.resetLocked(nil)
		c.logTransition(ctx, PhaseExecute, PhaseInputs, "transcode submitted")
	}
	c.transcodeJobID = jobID
	c.mu.Unlock()

	c.dark.Cancel(ctx)
	return jobID, nil
}

func (c *Controller) transcodeSettingsLocked() any {
	items := media.Items(c.renames.Groups)
	if c.mode == jobapi.ModeVideo {
		out := make([]jobapi.VideoSettings, 0, len(items))
		for _, item := range items {
			out = append(out, jobapi.VideoSettings{
				FilePath:        item.FilePath,
				NewName:         item.OutputName(),
				InputHeight:     item.Height,
				NumFrames:       item.NumFrames,
				OutputFramerate: int(math.Round(item.FrameRate)),
			})
		}
		return out
	}
	out := make([]jobapi.ImageSettings, 0, len(items))
	for _, item := range items {
		quality := c.cfg.Workflow.DefaultQuality
		if c.set != nil {
			if b, ok := c.set.BucketOf(item.FilePath); ok {
				quality = b.Selection
			}
		}
		out = append(out, jobapi.ImageSettings{
			FilePath:    item.FilePath,
			NewName:     item.OutputName(),
			JPEGQuality: quality,
			IsDark:      c.dark.IsDark(item.FilePath, c.colorCorrect),
		})
	}
	return out
}
