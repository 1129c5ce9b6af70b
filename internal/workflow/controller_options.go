package workflow

import (
	"context"
	"sort"

	"fieldingest/internal/buckets"
	"fieldingest/internal/jobapi"
	"fieldingest/internal/logging"
	"fieldingest/internal/media"
	"fieldingest/internal/poller"
	"fieldingest/internal/services"
)

func (c *Controller) enterChooseOptionsLocked(ctx context.Context) error {
	set, err := buckets.NewSet(c.thresholds, c.cfg.Workflow.DefaultQuality)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, string(PhaseParse), "seed buckets", "Invalid bucket thresholds", err)
	}
	set.ApplySelections(c.selections)
	items := media.Items(c.groups)
	members := make([]buckets.Member, 0, len(items))
	for _, item := range items {
		members = append(members, buckets.Member{Path: item.FilePath, Width: item.Width, Height: item.Height, FileSize: item.FileSize})
	}
	set.Seed(members)
	c.set = set

	from := c.phase
	c.phase = PhaseChooseOptions
	c.logTransition(ctx, from, PhaseChooseOptions, "validation passed")
	if err := c.submitSamplesLocked(ctx); err != nil {
		c.warnJobFailed(SlotSample, err)
	}
	return nil
}

func (c *Controller) darkExclusions() map[string]bool {
	exclude := make(map[string]bool)
	for _, p := range c.dark.Flagged() {
		exclude[p] = true
	}
	return exclude
}

func (c *Controller) cancelSampleSlotsLocked() {
	c.slots.Cancel(SlotSample)
	if c.set != nil {
		for _, name := range c.set.Names() {
			c.slots.Cancel(ResampleSlot(name))
		}
	}
	c.sampling = false
	c.resampling = make(map[string]bool)
}

// submitSamplesLocked requests one sample per non-empty bucket, replacing
// any samples already shown.
func (c *Controller) submitSamplesLocked(ctx context.Context) error {
	c.cancelSampleSlotsLocked()
	reps := c.set.Representatives(c.darkExclusions())
	c.representatives = reps
	c.samples = make(map[string][]jobapi.SampleImage)
	c.sampleJobID = ""
	c.sampleProgress = Progress{}
	if len(reps) == 0 {
		return nil
	}

	jobID, err := c.backend.SubmitSampleImages(ctx, reps)
	if err != nil {
		err = services.Wrap(services.ErrExternalTool, string(PhaseChooseOptions), "submit samples", "Failed to create sample images", err)
		c.setNoticeLocked(SlotSample, err)
		return err
	}
	c.setNoticeLocked(SlotSample, nil)
	c.sampleJobID = jobID
	c.sampling = true
	c.logJobSubmitted(ctx, SlotSample, jobID)

	gen := c.slots.Next(SlotSample)
	opts := c.pollOptions()
	opts.TrackTasks = true
	opts.OnProgress = func(completed, total int) {
		c.onProgress(SlotSample, gen, &c.sampleProgress, completed, total)
	}
	h := poller.Watch(ctx, c.backend, jobID, c.backend.SampleData, func(o poller.Outcome[[]jobapi.SampleImage]) {
		c.onSamples(SlotSample, gen, "", o)
	}, opts)
	c.slots.Bind(SlotSample, gen, h)
	return nil
}

// onSamples stores a sample result. An empty bucket replaces every bucket's
// samples; otherwise only that bucket's.
func (c *Controller) onSamples(slot string, gen uint64, bucket string, o poller.Outcome[[]jobapi.SampleImage]) {
	c.mu.Lock()
	defer c.notify()
	defer c.mu.Unlock()
	if !c.slots.Current(slot, gen) || c.phase != PhaseChooseOptions {
		return
	}
	c.slots.Release(slot, gen)
	if bucket == "" {
		c.sampling = false
	} else {
		delete(c.resampling, bucket)
	}
	if o.Err != nil {
		c.setNoticeLocked(slot, o.Err)
		c.warnJobFailed(slot, o.Err)
		return
	}
	c.setNoticeLocked(slot, nil)

	byBucket := make(map[string][]jobapi.SampleImage)
	for _, img := range o.Value {
		name := img.BucketName
		if bucket != "" {
			name = bucket
		}
		byBucket[name] = append(byBucket[name], img)
	}
	for _, imgs := range byBucket {
		sort.SliceStable(imgs, func(i, j int) bool { return imgs[i].Quality < imgs[j].Quality })
	}
	if bucket == "" {
		c.samples = byBucket
		return
	}
	c.samples[bucket] = byBucket[bucket]
}

// SetSelection chooses the JPEG quality of a bucket.
func (c *Controller) SetSelection(bucket string, quality int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requirePhaseLocked("set selection", PhaseChooseOptions); err != nil {
		return err
	}
	if err := c.set.SetSelection(bucket, quality); err != nil {
		return services.Wrap(services.ErrValidation, string(PhaseChooseOptions), "set selection", bucket, err)
	}
	c.notify()
	return nil
}

// ResampleBucket moves a bucket's representative to its next member and
// requests samples for that bucket alone.
func (c *Controller) ResampleBucket(ctx context.Context, bucket string) error {
	ctx = c.transitionContext(ctx, PhaseChooseOptions)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requirePhaseLocked("resample bucket", PhaseChooseOptions); err != nil {
		return err
	}
	next, err := c.set.NextRepresentative(bucket, c.representatives[bucket], c.darkExclusions())
	if err != nil {
		return services.Wrap(services.ErrValidation, string(PhaseChooseOptions), "resample bucket", bucket, err)
	}

	slot := ResampleSlot(bucket)
	jobID, err := c.backend.SubmitSampleImages(ctx, map[string]string{bucket: next})
	if err != nil {
		err = services.Wrap(services.ErrExternalTool, string(PhaseChooseOptions), "resample bucket", "Failed to create sample images", err)
		c.setNoticeLocked(slot, err)
		c.notify()
		return err
	}
	c.setNoticeLocked(slot, nil)
	c.representatives[bucket] = next
	c.resampling[bucket] = true
	c.logJobSubmitted(ctx, slot, jobID)

	gen := c.slots.Next(slot)
	h := poller.Watch(ctx, c.backend, jobID, c.backend.SampleData, func(o poller.Outcome[[]jobapi.SampleImage]) {
		c.onSamples(slot, gen, bucket, o)
	}, c.pollOptions())
	c.slots.Bind(slot, gen, h)
	c.notify()
	return nil
}

// RecreateSamples re-runs the sample job, skipping images flagged dark.
func (c *Controller) RecreateSamples(ctx context.Context) error {
	ctx = c.transitionContext(ctx, PhaseChooseOptions)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requirePhaseLocked("recreate samples", PhaseChooseOptions); err != nil {
		return err
	}
	defer c.notify()
	return c.submitSamplesLocked(ctx)
}

// StartDarkDetection runs dark detection over every bucketed image.
func (c *Controller) StartDarkDetection(ctx context.Context) error {
	ctx = c.transitionContext(ctx, PhaseChooseOptions)
	c.mu.Lock()
	if err := c.requirePhaseLocked("start dark detection", PhaseChooseOptions); err != nil {
		c.mu.Unlock()
		return err
	}
	paths := c.set.AllImages()
	c.mu.Unlock()
	if len(paths) == 0 {
		return services.Wrap(services.ErrValidation, string(PhaseChooseOptions), "start dark detection", "no images to check", nil)
	}
	if err := c.dark.Start(ctx, paths); err != nil {
		c.mu.Lock()
		c.setNoticeLocked("dark", err)
		c.mu.Unlock()
		c.notify()
		return err
	}
	c.logger.Info("dark detection started",
		logging.String(logging.FieldEventType, "dark_detection_started"),
		logging.Int("images", len(paths)),
	)
	return nil
}

// ToggleDark flips whether a dark sample is transcoded with dark handling.
func (c *Controller) ToggleDark(name string) error {
	if err := c.dark.Toggle(name); err != nil {
		return services.Wrap(services.ErrValidation, "", "toggle dark", name, err)
	}
	return nil
}

// SetColorCorrect enables dark handling for selected samples.
func (c *Controller) SetColorCorrect(enabled bool) {
	c.mu.Lock()
	c.colorCorrect = enabled
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) deleteSamples(ctx context.Context) {
	if err := c.backend.DeleteSampleImages(ctx); err != nil {
		logging.WarnWithContext(c.logger, "sample cleanup failed", "sample_cleanup_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "sample images remain on the backend"),
		)
	}
}
