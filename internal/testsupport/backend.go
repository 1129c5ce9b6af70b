package testsupport

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"fieldingest/internal/buckets"
	"fieldingest/internal/jobapi"
)

// Job kinds recorded by FakeBackend.
const (
	KindParse      = "parse"
	KindSample     = "sample"
	KindDark       = "dark"
	KindDarkSample = "dark_sample"
	KindTranscode  = "transcode"
)

// FakeBackend is a scripted in-memory jobapi.Backend. Every job completes on
// its first status query unless a script was queued for its kind.
type FakeBackend struct {
	mu sync.Mutex

	nextID  int
	kinds   map[string]string
	scripts map[string][][]jobapi.StatusReport
	running map[string][]jobapi.StatusReport
	calls   map[string]int
	payload map[string][]string

	// Canned results.
	Media       []jobapi.MediaMetadata
	Tasks       []jobapi.Task
	DarkPaths   []string
	PathTooLong bool
	Existing    []string
	Counts      jobapi.FileCounts
	JobList     []jobapi.JobSummary

	// BeforeSubmit, when set, runs ahead of every submission without the
	// fake's lock held. Tests use it to hold a submission open.
	BeforeSubmit func(kind string)

	// Failure injection.
	SubmitErr map[string]error
	StatusErr error
	FetchErr  map[string]error

	// Recorded requests.
	SampleRequests     []map[string]string
	DarkRequests       [][]string
	DarkSampleRequests [][]string
	Transcodes         []jobapi.TranscodeRequest
	Validations        []jobapi.ValidationRequest
	DeletedDarkSamples []string
}

var _ jobapi.Backend = (*FakeBackend)(nil)

// NewFakeBackend returns an empty fake.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		kinds:     make(map[string]string),
		scripts:   make(map[string][][]jobapi.StatusReport),
		running:   make(map[string][]jobapi.StatusReport),
		calls:     make(map[string]int),
		payload:   make(map[string][]string),
		SubmitErr: make(map[string]error),
		FetchErr:  make(map[string]error),
	}
}

// Script queues the status sequence for the next job of kind. The last
// status repeats once the sequence is exhausted.
func (f *FakeBackend) Script(kind string, statuses ...jobapi.StatusReport) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[kind] = append(f.scripts[kind], statuses)
}

// Calls returns how often op was invoked.
func (f *FakeBackend) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Kind returns the kind of a submitted job.
func (f *FakeBackend) Kind(jobID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.kinds[jobID]
}

// Queued is shorthand for a QUEUED report.
func Queued() jobapi.StatusReport { return jobapi.StatusReport{Status: jobapi.StatusQueued} }

// Incomplete is shorthand for an INCOMPLETE report.
func Incomplete() jobapi.StatusReport { return jobapi.StatusReport{Status: jobapi.StatusIncomplete} }

// Failed is an INCOMPLETE report carrying an error.
func Failed(msg string) jobapi.StatusReport {
	return jobapi.StatusReport{Status: jobapi.StatusIncomplete, Error: msg}
}

// Completed is shorthand for a COMPLETED report.
func Completed() jobapi.StatusReport { return jobapi.StatusReport{Status: jobapi.StatusCompleted} }

func (f *FakeBackend) submit(kind string) (string, error) {
	if f.BeforeSubmit != nil {
		f.BeforeSubmit(kind)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["submit_"+kind]++
	if err := f.SubmitErr[kind]; err != nil {
		return "", err
	}
	f.nextID++
	id := fmt.Sprintf("%s-%d", kind, f.nextID)
	f.kinds[id] = kind
	script := []jobapi.StatusReport{Completed()}
	if queued := f.scripts[kind]; len(queued) > 0 {
		script = queued[0]
		f.scripts[kind] = queued[1:]
	}
	f.running[id] = script
	return id, nil
}

func (f *FakeBackend) fetch(op, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	if _, ok := f.kinds[jobID]; !ok {
		return &jobapi.Error{StatusCode: 404, Method: "GET", Path: op, Message: "no such job"}
	}
	return f.FetchErr[op]
}

func (f *FakeBackend) SubmitParse(_ context.Context, mode jobapi.Mode, _, _ string) (string, error) {
	if !mode.Valid() {
		return "", errors.New("unsupported mode")
	}
	return f.submit(KindParse)
}

func (f *FakeBackend) JobStatus(_ context.Context, jobID string) (jobapi.StatusReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["job_status"]++
	if f.StatusErr != nil {
		return jobapi.StatusReport{}, f.StatusErr
	}
	script, ok := f.running[jobID]
	if !ok || len(script) == 0 {
		return jobapi.StatusReport{}, &jobapi.Error{StatusCode: 404, Method: "GET", Path: "/job_status/" + jobID}
	}
	report := script[0]
	if len(script) > 1 {
		f.running[jobID] = script[1:]
	}
	return report, nil
}

func (f *FakeBackend) JobTasks(_ context.Context, _ string) ([]jobapi.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["job_tasks"]++
	return append([]jobapi.Task(nil), f.Tasks...), nil
}

func (f *FakeBackend) ParsedMedia(_ context.Context, jobID string) ([]jobapi.MediaMetadata, error) {
	if err := f.fetch("job_data", jobID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]jobapi.MediaMetadata(nil), f.Media...), nil
}

func (f *FakeBackend) SubmitSampleImages(_ context.Context, representatives map[string]string) (string, error) {
	f.mu.Lock()
	copied := make(map[string]string, len(representatives))
	for k, v := range representatives {
		copied[k] = v
	}
	f.SampleRequests = append(f.SampleRequests, copied)
	f.mu.Unlock()
	id, err := f.submit(KindSample)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for bucket, p := range copied {
		f.payload[id] = append(f.payload[id], bucket+"="+p)
	}
	return id, nil
}

// SampleData returns one preview per compression option for every bucket of
// the job's sample request.
func (f *FakeBackend) SampleData(_ context.Context, jobID string) ([]jobapi.SampleImage, error) {
	if err := f.fetch("sample_file_data", jobID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.kinds[jobID] {
	case KindDarkSample:
		return f.darkSamples(jobID), nil
	case KindSample:
	default:
		return nil, fmt.Errorf("job %s has no samples", jobID)
	}
	entries := append([]string(nil), f.payload[jobID]...)
	sort.Strings(entries)
	var out []jobapi.SampleImage
	for _, entry := range entries {
		bucket, p, _ := strings.Cut(entry, "=")
		stem := stemOf(p)
		for _, opt := range buckets.Options() {
			out = append(out, jobapi.SampleImage{
				BucketName: bucket,
				FileName:   fmt.Sprintf("%s_%d.jpg", stem, opt.Quality),
				FilePath:   fmt.Sprintf("/samples/%s/%s_%d.jpg", bucket, stem, opt.Quality),
				Quality:    opt.Quality,
				FileSize:   int64(opt.Quality) * 1000,
			})
		}
	}
	return out, nil
}

func (f *FakeBackend) darkSamples(jobID string) []jobapi.SampleImage {
	paths := f.payload[jobID]
	out := make([]jobapi.SampleImage, 0, len(paths))
	for _, p := range paths {
		name := stemOf(p) + "_color_corrected.jpg"
		out = append(out, jobapi.SampleImage{BucketName: "dark", FileName: name, FilePath: "/dark_samples/" + name})
	}
	return out
}

func (f *FakeBackend) DeleteSampleImages(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["delete_samples"]++
	return nil
}

func (f *FakeBackend) SubmitDarkDetect(_ context.Context, paths []string) (string, error) {
	f.mu.Lock()
	f.DarkRequests = append(f.DarkRequests, append([]string(nil), paths...))
	f.mu.Unlock()
	return f.submit(KindDark)
}

func (f *FakeBackend) DarkData(_ context.Context, jobID string) ([]string, error) {
	if err := f.fetch("dark", jobID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.DarkPaths...), nil
}

func (f *FakeBackend) SubmitDarkSample(_ context.Context, paths []string) (string, error) {
	f.mu.Lock()
	f.DarkSampleRequests = append(f.DarkSampleRequests, append([]string(nil), paths...))
	f.mu.Unlock()
	id, err := f.submit(KindDarkSample)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	f.payload[id] = append([]string(nil), paths...)
	f.mu.Unlock()
	return id, nil
}

func (f *FakeBackend) DeleteDarkSampleImages(_ context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["delete_dark_samples"]++
	f.DeletedDarkSamples = append(f.DeletedDarkSamples, jobID)
	return nil
}

func (f *FakeBackend) SubmitTranscode(_ context.Context, req jobapi.TranscodeRequest) (string, error) {
	f.mu.Lock()
	f.Transcodes = append(f.Transcodes, req)
	f.mu.Unlock()
	return f.submit(KindTranscode)
}

func (f *FakeBackend) ValidatePathLengths(_ context.Context, req jobapi.ValidationRequest) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["validate_path_lengths"]++
	f.Validations = append(f.Validations, req)
	return f.PathTooLong, nil
}

func (f *FakeBackend) ValidateNonExistence(_ context.Context, _ jobapi.ValidationRequest) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["validate_non_existence"]++
	return append([]string(nil), f.Existing...), nil
}

func (f *FakeBackend) CountFiles(_ context.Context, _ string) (jobapi.FileCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["count_files"]++
	return f.Counts, nil
}

func (f *FakeBackend) Jobs(_ context.Context, completed bool) ([]jobapi.JobSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["jobs"]++
	var out []jobapi.JobSummary
	for _, job := range f.JobList {
		if (job.Status == jobapi.StatusCompleted) == completed {
			out = append(out, job)
		}
	}
	return out, nil
}

func stemOf(p string) string {
	base := path.Base(strings.ReplaceAll(p, `\`, "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}
