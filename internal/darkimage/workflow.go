package darkimage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"

	"fieldingest/internal/jobapi"
	"fieldingest/internal/logging"
	"fieldingest/internal/poller"
	"fieldingest/internal/services"
)

const (
	slotDetect = "dark_detect"
	slotSample = "dark_sample"

	colorCorrectedSuffix = "_color_corrected"
)

// ErrUnknownSample is returned when toggling a name with no sample.
var ErrUnknownSample = errors.New("no dark sample with that name")

// Backend is the subset of the job service the workflow drives.
type Backend interface {
	poller.Source
	SubmitDarkDetect(ctx context.Context, paths []string) (string, error)
	DarkData(ctx context.Context, jobID string) ([]string, error)
	SubmitDarkSample(ctx context.Context, paths []string) (string, error)
	SampleData(ctx context.Context, jobID string) ([]jobapi.SampleImage, error)
	DeleteDarkSampleImages(ctx context.Context, jobID string) error
}

// Stage is the workflow position.
type Stage string

const (
	StageIdle      Stage = "idle"
	StageDetecting Stage = "detecting"
	StageSampling  Stage = "sampling"
	StageDone      Stage = "done"
	StageFailed    Stage = "failed"
)

// Progress counts completed sub-tasks of a running job.
type Progress struct {
	Completed int
	Total     int
}

// State is a copy of the workflow's observable state.
type State struct {
	Stage          Stage
	DetectJobID    string
	SampleJobID    string
	Flagged        []string
	Samples        []jobapi.SampleImage
	Selected       []string
	DetectProgress Progress
	SampleProgress Progress
	Err            error
}

// Workflow is one dark detection session.
type Workflow struct {
	backend  Backend
	opts     poller.Options
	logger   *slog.Logger
	onChange func()
	slots    *poller.Slots

	mu       sync.Mutex
	ctx      context.Context
	gen      uint64
	stage    Stage
	detectID string
	sampleID string
	flagged  []string
	samples  []jobapi.SampleImage
	selected map[string]bool
	detectPr Progress
	samplePr Progress
	err      error
}

// New builds an idle workflow. onChange is called after every state change,
// outside the workflow's lock.
func New(backend Backend, opts poller.Options, onChange func()) *Workflow {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Workflow{
		backend:  backend,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "darkimage"),
		onChange: onChange,
		slots:    poller.NewSlots(),
		stage:    StageIdle,
		selected: make(map[string]bool),
	}
}

// Start submits detection over paths. Any previous run is discarded.
func (w *Workflow) Start(ctx context.Context, paths []string) error {
	w.discard(ctx)

	jobID, err := w.backend.SubmitDarkDetect(ctx, paths)
	if err != nil {
		err = services.Wrap(services.ErrExternalTool, "darkimage", "submit dark detect", "Failed to start dark detection", err)
		w.fail(err)
		return err
	}

	w.mu.Lock()
	w.ctx = ctx
	w.gen++
	gen := w.gen
	w.stage = StageDetecting
	w.detectID = jobID
	slotGen := w.slots.Next(slotDetect)
	opts := w.opts
	opts.TrackTasks = true
	opts.OnProgress = func(completed, total int) { w.progress(gen, true, completed, total) }
	h := poller.Watch(w.ctx, w.backend, jobID, w.backend.DarkData, func(o poller.Outcome[[]string]) {
		w.slots.Release(slotDetect, slotGen)
		w.detected(gen, o)
	}, opts)
	w.slots.Bind(slotDetect, slotGen, h)
	w.mu.Unlock()

	w.logger.Info("dark detection submitted",
		logging.String(logging.FieldEventType, "dark_detect_submitted"),
		logging.String(logging.FieldJobID, jobID),
		logging.Int("images", len(paths)),
	)
	w.changed()
	return nil
}

func (w *Workflow) detected(gen uint64, o poller.Outcome[[]string]) {
	w.mu.Lock()
	if gen != w.gen {
		w.mu.Unlock()
		return
	}
	if o.Err != nil {
		w.stage = StageFailed
		w.err = o.Err
		w.mu.Unlock()
		logging.WarnWithContext(w.logger, "dark detection failed", "dark_detect_failed", logging.Error(o.Err))
		w.changed()
		return
	}
	w.flagged = append([]string(nil), o.Value...)
	if len(w.flagged) == 0 {
		w.stage = StageDone
		w.mu.Unlock()
		w.logger.Info("no dark images found", logging.String(logging.FieldEventType, "dark_detect_empty"))
		w.changed()
		return
	}
	ctx := w.ctx
	flagged := append([]string(nil), w.flagged...)
	w.mu.Unlock()

	jobID, err := w.backend.SubmitDarkSample(ctx, flagged)

	w.mu.Lock()
	if gen != w.gen {
		w.mu.Unlock()
		if err == nil {
			_ = w.backend.DeleteDarkSampleImages(ctx, jobID)
		}
		return
	}
	if err != nil {
		w.stage = StageFailed
		w.err = services.Wrap(services.ErrExternalTool, "darkimage", "submit dark sample", "Failed to start dark sampling", err)
		w.mu.Unlock()
		w.changed()
		return
	}
	w.stage = StageSampling
	w.sampleID = jobID
	slotGen := w.slots.Next(slotSample)
	opts := w.opts
	opts.TrackTasks = true
	opts.OnProgress = func(completed, total int) { w.progress(gen, false, completed, total) }
	h := poller.Watch(ctx, w.backend, jobID, w.backend.SampleData, func(o poller.Outcome[[]jobapi.SampleImage]) {
		w.slots.Release(slotSample, slotGen)
		w.sampled(gen, o)
	}, opts)
	w.slots.Bind(slotSample, slotGen, h)
	w.mu.Unlock()

	w.logger.Info("dark sample submitted",
		logging.String(logging.FieldEventType, "dark_sample_submitted"),
		logging.String(logging.FieldJobID, jobID),
		logging.Int("flagged", len(flagged)),
	)
	w.changed()
}

func (w *Workflow) sampled(gen uint64, o poller.Outcome[[]jobapi.SampleImage]) {
	w.mu.Lock()
	if gen != w.gen {
		w.mu.Unlock()
		return
	}
	if o.Err != nil {
		w.stage = StageFailed
		w.err = o.Err
		w.mu.Unlock()
		logging.WarnWithContext(w.logger, "dark sampling failed", "dark_sample_failed", logging.Error(o.Err))
		w.changed()
		return
	}
	w.samples = append([]jobapi.SampleImage(nil), o.Value...)
	w.selected = make(map[string]bool, len(w.samples))
	for _, s := range w.samples {
		w.selected[s.FileName] = true
	}
	w.stage = StageDone
	w.mu.Unlock()
	w.changed()
}

func (w *Workflow) progress(gen uint64, detect bool, completed, total int) {
	w.mu.Lock()
	if gen != w.gen {
		w.mu.Unlock()
		return
	}
	if detect {
		w.detectPr = Progress{Completed: completed, Total: total}
	} else {
		w.samplePr = Progress{Completed: completed, Total: total}
	}
	w.mu.Unlock()
	w.changed()
}

// Toggle flips the selection of one sample.
func (w *Workflow) Toggle(name string) error {
	w.mu.Lock()
	selected, ok := w.selected[name]
	if !ok {
		w.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownSample, name)
	}
	w.selected[name] = !selected
	w.mu.Unlock()
	w.changed()
	return nil
}

// Selected returns the selected sample file names, sorted.
func (w *Workflow) Selected() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.selectedLocked()
}

func (w *Workflow) selectedLocked() []string {
	var out []string
	for name, on := range w.selected {
		if on {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Flagged returns the paths detection marked dark.
func (w *Workflow) Flagged() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.flagged...)
}

// IsDark reports whether fileName should be transcoded with dark handling.
// It holds only when colour correction is on and the matching sample is
// selected.
func (w *Workflow) IsDark(fileName string, colorCorrect bool) bool {
	if !colorCorrect {
		return false
	}
	want := BaseName(fileName)
	w.mu.Lock()
	defer w.mu.Unlock()
	for name, on := range w.selected {
		if on && BaseName(name) == want {
			return true
		}
	}
	return false
}

// State returns a copy of the workflow state.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return State{
		Stage:          w.stage,
		DetectJobID:    w.detectID,
		SampleJobID:    w.sampleID,
		Flagged:        append([]string(nil), w.flagged...),
		Samples:        append([]jobapi.SampleImage(nil), w.samples...),
		Selected:       w.selectedLocked(),
		DetectProgress: w.detectPr,
		SampleProgress: w.samplePr,
		Err:            w.err,
	}
}

// Cancel stops both polls and deletes any stage-two sample images.
func (w *Workflow) Cancel(ctx context.Context) {
	w.discard(ctx)
	w.changed()
}

// Stop abandons any detection or sampling job still polling. The current
// selection, samples and stage are kept so IsDark keeps answering.
func (w *Workflow) Stop() {
	w.mu.Lock()
	w.gen++
	w.slots.CancelAll()
	w.mu.Unlock()
	w.changed()
}

func (w *Workflow) discard(ctx context.Context) {
	w.mu.Lock()
	w.gen++
	w.slots.CancelAll()
	sampleID := w.sampleID
	w.stage = StageIdle
	w.detectID = ""
	w.sampleID = ""
	w.flagged = nil
	w.samples = nil
	w.selected = make(map[string]bool)
	w.detectPr = Progress{}
	w.samplePr = Progress{}
	w.err = nil
	w.mu.Unlock()

	if sampleID == "" {
		return
	}
	if err := w.backend.DeleteDarkSampleImages(ctx, sampleID); err != nil {
		logging.WarnWithContext(w.logger, "dark sample cleanup failed", "dark_sample_cleanup_failed",
			logging.String(logging.FieldJobID, sampleID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "sample images remain on the backend"),
		)
	}
}

func (w *Workflow) fail(err error) {
	w.mu.Lock()
	w.stage = StageFailed
	w.err = err
	w.mu.Unlock()
	w.changed()
}

func (w *Workflow) changed() {
	if w.onChange != nil {
		w.onChange()
	}
}

// BaseName strips directory, extension and the colour-corrected suffix.
func BaseName(name string) string {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	return strings.TrimSuffix(base, colorCorrectedSuffix)
}
