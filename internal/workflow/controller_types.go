package workflow

import (
	"context"
	"errors"

	"fieldingest/internal/darkimage"
	"fieldingest/internal/jobapi"
	"fieldingest/internal/media"
	"fieldingest/internal/rename"
)

// Phase is a controller state.
type Phase string

const (
	PhaseInputs        Phase = "inputs"
	PhaseParse         Phase = "parse"
	PhaseChooseOptions Phase = "choose_options"
	PhaseExecute       Phase = "execute"
)

// Poll slot names.
const (
	SlotParse          = "parse"
	SlotSample         = "sample"
	slotResamplePrefix = "resample:"
	SlotTranscode      = "transcode"
)

// ResampleSlot names the slot of a single-bucket resample.
func ResampleSlot(bucket string) string {
	return slotResamplePrefix + bucket
}

var (
	// ErrWrongPhase rejects an operation in a phase that does not allow it.
	ErrWrongPhase = errors.New("operation not allowed in the current phase")
	// ErrBlockingIssues means an item or group is in error.
	ErrBlockingIssues = errors.New("media has blocking errors")
	// ErrParseIncomplete means the parse result has not arrived.
	ErrParseIncomplete = errors.New("parse has not completed")
	// ErrInputs groups every inputs guard failure.
	ErrInputs = errors.New("inputs incomplete")
	// ErrBusy rejects Execute while an earlier submission is still waiting on the backend.
	ErrBusy = errors.New("transcode submission in progress")
)

// PathKind tells the picker what is being chosen.
type PathKind string

const (
	PathSource      PathKind = "source_folder"
	PathLocalOutput PathKind = "local_output_folder"
	PathReportDir   PathKind = "report_dir"
)

// Picker asks the operator for a path. An empty result is a cancellation.
type Picker interface {
	SelectPath(ctx context.Context, kind PathKind, defaultPath string) (string, error)
}

// SettingsReader supplies picker defaults.
type SettingsReader interface {
	Get(ctx context.Context, key string) (string, bool, error)
}

// Progress counts completed sub-tasks of a running job.
type Progress struct {
	Completed int
	Total     int
}

// BucketView summarizes one compression bucket.
type BucketView struct {
	Name             string
	BottomThreshold  int64
	Count            int
	Selection        int
	TotalSize        int64
	EstimatedSavings int64
	Representative   string
	Samples          []jobapi.SampleImage
	Resampling       bool
}

// Snapshot is the derived, read-only view of the controller.
type Snapshot struct {
	Phase             Phase
	Mode              jobapi.Mode
	SourceFolder      string
	FolderError       string
	ObserverCode      string
	CatalogFolder     string
	LocalOutputFolder string
	ReportDir         string
	MultiDay          bool
	FileCounts        *jobapi.FileCounts

	ParseJobID    string
	Parsing       bool
	Parsed        bool
	ParseProgress Progress

	Groups           []media.Group
	IssueCounts      map[media.IssueCode]int
	TotalSize        int64
	ItemCount        int
	Ignored          []media.IssueCode
	Filter           media.IssueCode
	Blocked          bool
	Rulesets         []rename.Ruleset
	RenamesValidated bool
	Conflicts        []rename.Conflict
	ConflictExamples []string

	Buckets        []BucketView
	TotalSavings   int64
	SampleJobID    string
	Sampling       bool
	SampleProgress Progress

	Dark         darkimage.State
	ColorCorrect bool

	Submitting     bool
	TranscodeJobID string
	Notices        map[string]string
}

// Bucket returns the view of one bucket.
func (s Snapshot) Bucket(name string) (BucketView, bool) {
	for _, b := range s.Buckets {
		if b.Name == name {
			return b, true
		}
	}
	return BucketView{}, false
}

// template is the state carried into the next folder of a multi-day ingest.
type template struct {
	mode             jobapi.Mode
	observerCode     string
	observerExplicit bool
	localOutput      string
	reportDir        string
	pipeline         rename.Pipeline
	selections       map[string]int
	colorCorrect     bool
}
