package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"fieldingest/internal/buckets"
	"fieldingest/internal/config"
	"fieldingest/internal/darkimage"
	"fieldingest/internal/folder"
	"fieldingest/internal/gate"
	"fieldingest/internal/jobapi"
	"fieldingest/internal/logging"
	"fieldingest/internal/media"
	"fieldingest/internal/poller"
	"fieldingest/internal/rename"
	"fieldingest/internal/services"
)

// Controller coordinates one operator session.
type Controller struct {
	cfg      *config.Config
	backend  jobapi.Backend
	picker   Picker
	settings SettingsReader
	confirm  gate.Confirmer
	clock    poller.Clock
	logger   *slog.Logger
	slots    *poller.Slots
	dark     *darkimage.Workflow

	thresholds []buckets.Threshold

	changeMu sync.Mutex
	changed  chan struct{}

	mu    sync.Mutex
	phase Phase

	mode             jobapi.Mode
	sourceFolder     string
	folderName       folder.Name
	folderErr        error
	observerCode     string
	observerExplicit bool
	localOutput      string
	reportDir        string
	multiDay         bool
	counts           *jobapi.FileCounts

	parseJobID    string
	parsing       bool
	parsed        bool
	parseProgress Progress
	groups        []media.Group
	pipeline      rename.Pipeline
	renames       rename.Result
	ignore        *media.IgnoreList
	filter        media.IssueCode

	set             *buckets.Set
	selections      map[string]int
	representatives map[string]string
	samples         map[string][]jobapi.SampleImage
	sampleJobID     string
	sampling        bool
	sampleProgress  Progress
	resampling      map[string]bool
	colorCorrect    bool

	submitting     bool
	transcodeJobID string
	notices        map[string]string
}

// Option customizes a Controller.
type Option func(*Controller)

// WithPicker sets the folder picker.
func WithPicker(p Picker) Option {
	return func(c *Controller) { c.picker = p }
}

// WithSettings sets the source of picker defaults.
func WithSettings(s SettingsReader) Option {
	return func(c *Controller) { c.settings = s }
}

// WithConfirmer sets the collision confirmation prompt.
func WithConfirmer(confirm gate.Confirmer) Option {
	return func(c *Controller) { c.confirm = confirm }
}

// WithClock overrides the poll clock.
func WithClock(clock poller.Clock) Option {
	return func(c *Controller) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New constructs a controller in the inputs phase.
func New(cfg *config.Config, backend jobapi.Backend, opts ...Option) (*Controller, error) {
	if cfg == nil {
		return nil, fmt.Errorf("workflow: config is required")
	}
	if backend == nil {
		return nil, fmt.Errorf("workflow: backend is required")
	}
	c := &Controller{
		cfg:     cfg,
		backend: backend,
		clock:   poller.RealClock{},
		logger:  logging.NewNop(),
		slots:   poller.NewSlots(),
		changed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "workflow")

	for _, b := range cfg.Buckets {
		c.thresholds = append(c.thresholds, buckets.Threshold{Name: b.Name, BottomThreshold: b.BottomThreshold})
	}
	if _, err := buckets.NewSet(c.thresholds, cfg.Workflow.DefaultQuality); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "buckets", "Invalid bucket thresholds", err)
	}

	c.dark = darkimage.New(backend, c.pollOptions(), c.notify)
	c.resetLocked(nil)
	return c, nil
}

func (c *Controller) pollOptions() poller.Options {
	return poller.Options{
		Interval: c.cfg.PollInterval(),
		Clock:    c.clock,
		Logger:   c.logger,
	}
}

// notify wakes every WaitFor caller. It never takes c.mu.
func (c *Controller) notify() {
	c.changeMu.Lock()
	close(c.changed)
	c.changed = make(chan struct{})
	c.changeMu.Unlock()
}

func (c *Controller) changes() <-chan struct{} {
	c.changeMu.Lock()
	defer c.changeMu.Unlock()
	return c.changed
}

// WaitFor blocks until pred holds for the current snapshot or ctx ends.
func (c *Controller) WaitFor(ctx context.Context, pred func(Snapshot) bool) (Snapshot, error) {
	for {
		ch := c.changes()
		snap := c.View()
		if pred(snap) {
			return snap, nil
		}
		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-ch:
		}
	}
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Close stops every poll and discards dark samples.
func (c *Controller) Close() {
	c.slots.CancelAll()
	ctx, cancel := c.requestTimeoutContext(context.Background())
	defer cancel()
	c.dark.Cancel(ctx)
}

// Reset returns to the inputs phase, discarding all state.
func (c *Controller) Reset() {
	ctx, cancel := c.requestTimeoutContext(context.Background())
	defer cancel()
	ctx = c.transitionContext(ctx, PhaseInputs)

	c.mu.Lock()
	from := c.phase
	c.slots.CancelAll()
	c.resetLocked(nil)
	c.mu.Unlock()

	c.dark.Cancel(ctx)
	c.logTransition(ctx, from, PhaseInputs, "reset")
	c.notify()
}

// resetLocked clears session state. A non-nil template is re-applied.
func (c *Controller) resetLocked(t *template) {
	c.phase = PhaseInputs
	c.mode = ""
	c.sourceFolder = ""
	c.folderName = folder.Name{}
	c.folderErr = nil
	c.observerCode = ""
	c.observerExplicit = false
	c.localOutput = ""
	c.reportDir = ""
	c.counts = nil
	c.clearJobsLocked()
	c.pipeline = nil
	c.renames = rename.Result{}
	c.ignore = &media.IgnoreList{}
	c.filter = ""
	c.selections = nil
	c.colorCorrect = c.cfg.Workflow.ColorCorrect
	c.submitting = false
	c.transcodeJobID = ""

	if t == nil {
		c.multiDay = false
		return
	}
	c.mode = t.mode
	c.observerCode = t.observerCode
	c.observerExplicit = t.observerExplicit
	c.localOutput = t.localOutput
	c.reportDir = t.reportDir
	c.pipeline = t.pipeline
	c.selections = t.selections
	c.colorCorrect = t.colorCorrect
}

// clearJobsLocked drops every job id and its results. Poll slots must be
// cancelled by the caller.
func (c *Controller) clearJobsLocked() {
	c.parseJobID = ""
	c.parsing = false
	c.parsed = false
	c.parseProgress = Progress{}
	c.groups = nil
	c.renames = rename.Result{}
	c.set = nil
	c.representatives = make(map[string]string)
	c.samples = make(map[string][]jobapi.SampleImage)
	c.sampleJobID = ""
	c.sampling = false
	c.sampleProgress = Progress{}
	c.resampling = make(map[string]bool)
	c.notices = make(map[string]string)
}

func (c *Controller) templateLocked() *template {
	selections := c.selections
	if c.set != nil {
		selections = c.set.Selections()
	}
	return &template{
		mode:             c.mode,
		observerCode:     c.observerCode,
		observerExplicit: c.observerExplicit,
		localOutput:      c.localOutput,
		reportDir:        c.reportDir,
		pipeline:         c.pipeline,
		selections:       selections,
		colorCorrect:     c.colorCorrect,
	}
}

func (c *Controller) requirePhaseLocked(op string, allowed ...Phase) error {
	for _, p := range allowed {
		if c.phase == p {
			return nil
		}
	}
	return services.Wrap(services.ErrValidation, string(c.phase), op, fmt.Sprintf("not allowed in %s", c.phase), ErrWrongPhase)
}

func (c *Controller) setNoticeLocked(slot string, err error) {
	if err == nil {
		delete(c.notices, slot)
		return
	}
	c.notices[slot] = err.Error()
}

// transitionContext tags ctx with a fresh correlation id and the phase the
// operation runs in.
func (c *Controller) transitionContext(ctx context.Context, phase Phase) context.Context {
	ctx = services.WithRequestID(ctx, uuid.NewString())
	return services.WithPhase(ctx, string(phase))
}

func (c *Controller) logTransition(ctx context.Context, from, to Phase, reason string) {
	logging.WithContext(ctx, c.logger).Info("phase transition",
		logging.String(logging.FieldEventType, "phase_transition"),
		logging.String("from", string(from)),
		logging.String("to", string(to)),
		logging.String("reason", reason),
	)
}

func (c *Controller) logJobSubmitted(ctx context.Context, slot, jobID string) {
	logging.WithContext(ctx, c.logger).Info("job submitted",
		logging.String(logging.FieldEventType, "job_submitted"),
		logging.String(logging.FieldSlot, slot),
		logging.String(logging.FieldJobID, jobID),
	)
}

func (c *Controller) warnJobFailed(slot string, err error) {
	logging.WarnWithContext(c.logger, "job did not complete", "job_failed",
		logging.String(logging.FieldSlot, slot),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "retry the step once the backend issue is resolved"),
		logging.String(logging.FieldImpact, "the phase keeps its previous results"),
	)
}

func (c *Controller) requestTimeoutContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := c.cfg.RequestTimeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}
