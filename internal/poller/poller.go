package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fieldingest/internal/jobapi"
	"fieldingest/internal/logging"
	"fieldingest/internal/services"
)

// DefaultInterval is the status query period.
const DefaultInterval = time.Second

// ErrJobFailed marks a job that reported an error while incomplete.
var ErrJobFailed = errors.New("job failed")

// Source is the subset of the backend the poller queries.
type Source interface {
	JobStatus(ctx context.Context, jobID string) (jobapi.StatusReport, error)
	JobTasks(ctx context.Context, jobID string) ([]jobapi.Task, error)
}

// FetchFunc retrieves the result of a completed job.
type FetchFunc[T any] func(ctx context.Context, jobID string) (T, error)

// Outcome is the terminal result of a watched job.
type Outcome[T any] struct {
	JobID string
	Value T
	Err   error
}

// Options tune a watch.
type Options struct {
	Interval time.Duration
	Clock    Clock
	// TrackTasks queries sub-task progress while the job is incomplete.
	TrackTasks bool
	OnProgress func(completed, total int)
	Logger     *slog.Logger
}

// Handle controls one watch.
type Handle[T any] struct {
	jobID  string
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	cancelled bool
	outcome   *Outcome[T]
}

// Watch polls jobID until it completes, fails, or the handle is cancelled.
// notify is invoked at most once, from the watch goroutine.
func Watch[T any](ctx context.Context, source Source, jobID string, fetch FetchFunc[T], notify func(Outcome[T]), opts Options) *Handle[T] {
	runCtx, cancel := context.WithCancel(services.WithJobID(ctx, jobID))
	h := &Handle[T]{
		jobID:  jobID,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "poller").With(logging.String(logging.FieldJobID, jobID))

	ticker := opts.Clock.NewTicker(opts.Interval)
	go h.loop(runCtx, ticker, source, fetch, notify, opts, logger)
	return h
}

// JobID returns the watched job id.
func (h *Handle[T]) JobID() string { return h.jobID }

// Cancel stops the watch without waiting for the goroutine. A notification
// already past its cancellation check may still run after Cancel returns;
// receivers that must drop it compare their Slots generation. Cancel may be
// called from inside notify or while holding a lock notify takes.
func (h *Handle[T]) Cancel() {
	if h == nil {
		return
	}
	h.mu.Lock()
	h.cancelled = true
	h.mu.Unlock()
	h.cancel()
}

// Done is closed when the watch goroutine exits.
func (h *Handle[T]) Done() <-chan struct{} { return h.done }

// Outcome returns the terminal outcome once one was reached.
func (h *Handle[T]) Outcome() (Outcome[T], bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.outcome == nil {
		return Outcome[T]{}, false
	}
	return *h.outcome, true
}

func (h *Handle[T]) loop(ctx context.Context, ticker Ticker, source Source, fetch FetchFunc[T], notify func(Outcome[T]), opts Options, logger *slog.Logger) {
	defer close(h.done)
	defer ticker.Stop()
	defer h.cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
		}

		report, err := source.JobStatus(ctx, h.jobID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logging.WarnWithContext(logger, "job status query failed", "job_status_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "polling continues; check the backend is reachable"),
			)
			continue
		}

		switch report.Status {
		case jobapi.StatusQueued:
			continue
		case jobapi.StatusIncomplete:
			if report.Error != "" {
				logger.Info("job reported failure",
					logging.String(logging.FieldEventType, "job_failed"),
					logging.String("job_error", report.Error),
				)
				h.deliver(Outcome[T]{JobID: h.jobID, Err: fmt.Errorf("%w: %s", ErrJobFailed, report.Error)}, notify)
				return
			}
			if opts.TrackTasks && opts.OnProgress != nil {
				h.reportProgress(ctx, source, opts.OnProgress, logger)
			}
		case jobapi.StatusCompleted:
			value, err := fetch(ctx, h.jobID)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				err = services.Wrap(services.ErrExternalTool, "poller", "fetch result", "Failed to fetch job result", err)
			}
			logger.Debug("job completed", logging.String(logging.FieldEventType, "job_completed"))
			h.deliver(Outcome[T]{JobID: h.jobID, Value: value, Err: err}, notify)
			return
		default:
			logger.Warn("unknown job status",
				logging.String(logging.FieldEventType, "job_status_unknown"),
				logging.String("status", string(report.Status)),
				logging.String(logging.FieldErrorHint, "polling continues"),
			)
		}
	}
}

func (h *Handle[T]) reportProgress(ctx context.Context, source Source, onProgress func(int, int), logger *slog.Logger) {
	tasks, err := source.JobTasks(ctx, h.jobID)
	if err != nil {
		if ctx.Err() == nil {
			logger.Debug("job task query failed", logging.Error(err))
		}
		return
	}
	completed := 0
	for _, task := range tasks {
		if task.Status == jobapi.StatusCompleted {
			completed++
		}
	}
	h.mu.Lock()
	cancelled := h.cancelled
	h.mu.Unlock()
	if !cancelled {
		onProgress(completed, len(tasks))
	}
}

func (h *Handle[T]) deliver(outcome Outcome[T], notify func(Outcome[T])) {
	h.mu.Lock()
	if h.cancelled {
		h.mu.Unlock()
		return
	}
	h.outcome = &outcome
	h.mu.Unlock()
	if notify != nil {
		notify(outcome)
	}
}
