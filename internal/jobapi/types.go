package jobapi

import (
	"context"
	"strings"
)

// Mode selects the media type of an ingest.
type Mode string

const (
	ModeImage Mode = "image"
	ModeVideo Mode = "video"
)

// Valid reports whether m is a supported mode.
func (m Mode) Valid() bool {
	return m == ModeImage || m == ModeVideo
}

// ParseMode accepts "image(s)" or "video(s)" in any case.
func ParseMode(value string) (Mode, bool) {
	switch strings.TrimSuffix(strings.ToLower(strings.TrimSpace(value)), "s") {
	case "image":
		return ModeImage, true
	case "video":
		return ModeVideo, true
	default:
		return "", false
	}
}

// Status is the lifecycle state of a backend job.
type Status string

const (
	StatusQueued     Status = "QUEUED"
	StatusIncomplete Status = "INCOMPLETE"
	StatusCompleted  Status = "COMPLETED"
)

// NormalizeStatus upper-cases a status reported by the service.
func NormalizeStatus(value string) Status {
	return Status(strings.ToUpper(strings.TrimSpace(value)))
}

// StatusReport is the job_status payload.
type StatusReport struct {
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Task is one sub-task of a job.
type Task struct {
	ID       string `json:"id"`
	Status   Status `json:"status"`
	Progress int    `json:"progress"`
}

// MediaMetadata is one parsed file as reported by the parse job.
type MediaMetadata struct {
	FilePath    string   `json:"file_path"`
	FileName    string   `json:"file_name"`
	Extension   string   `json:"extension"`
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	FileSize    int64    `json:"file_size"`
	FrameRate   float64  `json:"frame_rate"`
	NumFrames   int64    `json:"num_frames"`
	Duration    float64  `json:"duration"`
	CreatedDate string   `json:"created_date"`
	Warnings    []string `json:"warnings"`
	Errors      []string `json:"errors"`
}

// SampleImage is one generated preview.
type SampleImage struct {
	BucketName string `json:"bucket_name"`
	FileName   string `json:"file_name"`
	FilePath   string `json:"file_path"`
	Quality    int    `json:"quality"`
	FileSize   int64  `json:"file_size"`
}

// FileCounts is the count_files payload.
type FileCounts struct {
	Images int `json:"images"`
	Videos int `json:"videos"`
}

// JobSummary is one entry of the job listing.
type JobSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Status    Status `json:"status"`
	CreatedAt string `json:"created_at"`
}

// PathRename pairs a source path with the name it will be written under.
type PathRename struct {
	FilePath string `json:"file_path"`
	NewName  string `json:"new_name"`
}

// ValidationRequest is shared by the path-length and non-existence checks.
type ValidationRequest struct {
	Mode         Mode         `json:"-"`
	SourceDir    string       `json:"source_dir"`
	ObserverCode string       `json:"observer_code"`
	Files        []PathRename `json:"file_path_list"`
}

// VideoSettings is the per-file transcode payload for videos.
type VideoSettings struct {
	FilePath        string `json:"file_path"`
	NewName         string `json:"new_name"`
	InputHeight     int    `json:"input_height"`
	NumFrames       int64  `json:"num_frames"`
	OutputFramerate int    `json:"output_framerate"`
}

// ImageSettings is the per-file transcode payload for images.
type ImageSettings struct {
	FilePath    string `json:"file_path"`
	NewName     string `json:"new_name"`
	JPEGQuality int    `json:"jpeg_quality"`
	IsDark      bool   `json:"is_dark"`
}

// TranscodeRequest submits the final job. Settings holds either
// []VideoSettings or []ImageSettings depending on Mode.
type TranscodeRequest struct {
	Mode            Mode   `json:"media_type"`
	SourceDir       string `json:"source_dir"`
	LocalExportPath string `json:"local_export_path"`
	ReportDir       string `json:"report_dir"`
	Settings        any    `json:"transcode_list"`
	ObserverCode    string `json:"observer_code"`
}

// Backend is the ingest job service as seen by the workflow.
type Backend interface {
	SubmitParse(ctx context.Context, mode Mode, sourceDir, observerCode string) (string, error)
	JobStatus(ctx context.Context, jobID string) (StatusReport, error)
	JobTasks(ctx context.Context, jobID string) ([]Task, error)
	ParsedMedia(ctx context.Context, jobID string) ([]MediaMetadata, error)

	SubmitSampleImages(ctx context.Context, representatives map[string]string) (string, error)
	SampleData(ctx context.Context, jobID string) ([]SampleImage, error)
	DeleteSampleImages(ctx context.Context) error

	SubmitDarkDetect(ctx context.Context, paths []string) (string, error)
	DarkData(ctx context.Context, jobID string) ([]string, error)
	SubmitDarkSample(ctx context.Context, paths []string) (string, error)
	DeleteDarkSampleImages(ctx context.Context, jobID string) error

	SubmitTranscode(ctx context.Context, req TranscodeRequest) (string, error)
	ValidatePathLengths(ctx context.Context, req ValidationRequest) (bool, error)
	ValidateNonExistence(ctx context.Context, req ValidationRequest) ([]string, error)

	CountFiles(ctx context.Context, sourceDir string) (FileCounts, error)
	Jobs(ctx context.Context, completed bool) ([]JobSummary, error)
}
