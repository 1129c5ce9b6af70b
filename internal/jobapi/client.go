package jobapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"fieldingest/internal/logging"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	ingestPrefix       = "/ingest"
	maxErrorBody       = 4 << 10
)

// Error is a non-2xx response from the job service.
type Error struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *Error) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, msg)
}

// IsNotFound reports whether err is a 404 from the job service.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Config captures the runtime settings required to talk to the job service.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client talks to the job service over HTTP/JSON.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger attaches a logger for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "jobapi")
	}
}

// NewClient constructs a job service client.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.Token = strings.TrimSpace(cfg.Token)
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// flexibleID accepts numeric or string identifiers.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*f = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}

type jobIDResponse struct {
	JobID flexibleID `json:"job_id"`
}

func (r jobIDResponse) id(path string) (string, error) {
	id := strings.TrimSpace(string(r.JobID))
	if id == "" {
		return "", fmt.Errorf("%s: response missing job_id", path)
	}
	return id, nil
}

func (c *Client) SubmitParse(ctx context.Context, mode Mode, sourceDir, observerCode string) (string, error) {
	if !mode.Valid() {
		return "", fmt.Errorf("submit parse: unsupported mode %q", mode)
	}
	path := fmt.Sprintf("/parse_%ss", mode)
	var resp jobIDResponse
	body := map[string]string{"source_dir": sourceDir, "observer_code": observerCode}
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return "", err
	}
	return resp.id(path)
}

func (c *Client) JobStatus(ctx context.Context, jobID string) (StatusReport, error) {
	var report StatusReport
	if err := c.do(ctx, http.MethodGet, "/job_status/"+url.PathEscape(jobID), nil, &report); err != nil {
		return StatusReport{}, err
	}
	report.Status = NormalizeStatus(string(report.Status))
	return report, nil
}

func (c *Client) JobTasks(ctx context.Context, jobID string) ([]Task, error) {
	var byID map[string]Task
	if err := c.do(ctx, http.MethodGet, "/job/"+url.PathEscape(jobID)+"/tasks", nil, &byID); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	tasks := make([]Task, 0, len(ids))
	for _, id := range ids {
		task := byID[id]
		task.ID = id
		task.Status = NormalizeStatus(string(task.Status))
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (c *Client) ParsedMedia(ctx context.Context, jobID string) ([]MediaMetadata, error) {
	var media []MediaMetadata
	if err := c.do(ctx, http.MethodGet, "/job_data/"+url.PathEscape(jobID), nil, &media); err != nil {
		return nil, err
	}
	return media, nil
}

func (c *Client) SubmitSampleImages(ctx context.Context, representatives map[string]string) (string, error) {
	if len(representatives) == 0 {
		return "", errors.New("submit sample images: no representatives")
	}
	body := make(map[string]string, len(representatives))
	for bucket, path := range representatives {
		body[bucket+"_image_file_path"] = path
	}
	var resp jobIDResponse
	if err := c.do(ctx, http.MethodPost, "/sample", body, &resp); err != nil {
		return "", err
	}
	return resp.id("/sample")
}

func (c *Client) SampleData(ctx context.Context, jobID string) ([]SampleImage, error) {
	var samples []SampleImage
	if err := c.do(ctx, http.MethodGet, "/job/"+url.PathEscape(jobID)+"/sample_file_data", nil, &samples); err != nil {
		return nil, err
	}
	return samples, nil
}

func (c *Client) DeleteSampleImages(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/sample/000", nil, nil)
}

func (c *Client) SubmitDarkDetect(ctx context.Context, paths []string) (string, error) {
	var resp jobIDResponse
	if err := c.do(ctx, http.MethodPost, "/dark", map[string][]string{"image_paths": paths}, &resp); err != nil {
		return "", err
	}
	return resp.id("/dark")
}

func (c *Client) DarkData(ctx context.Context, jobID string) ([]string, error) {
	var paths []string
	if err := c.do(ctx, http.MethodGet, "/job/"+url.PathEscape(jobID)+"/dark", nil, &paths); err != nil {
		return nil, err
	}
	return paths, nil
}

func (c *Client) SubmitDarkSample(ctx context.Context, paths []string) (string, error) {
	var resp jobIDResponse
	if err := c.do(ctx, http.MethodPost, "/dark_sample", map[string][]string{"image_paths": paths}, &resp); err != nil {
		return "", err
	}
	return resp.id("/dark_sample")
}

func (c *Client) DeleteDarkSampleImages(ctx context.Context, jobID string) error {
	return c.do(ctx, http.MethodDelete, "/dark_sample/"+url.PathEscape(jobID), nil, nil)
}

func (c *Client) SubmitTranscode(ctx context.Context, req TranscodeRequest) (string, error) {
	var resp jobIDResponse
	if err := c.do(ctx, http.MethodPost, "/transcode", req, &resp); err != nil {
		return "", err
	}
	return resp.id("/transcode")
}

func (c *Client) ValidatePathLengths(ctx context.Context, req ValidationRequest) (bool, error) {
	var tooLong bool
	if err := c.do(ctx, http.MethodPost, "/validate_path_lengths/"+string(req.Mode), req, &tooLong); err != nil {
		return false, err
	}
	return tooLong, nil
}

func (c *Client) ValidateNonExistence(ctx context.Context, req ValidationRequest) ([]string, error) {
	var existing []string
	if err := c.do(ctx, http.MethodPost, "/validate_non_existence/"+string(req.Mode), req, &existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (c *Client) CountFiles(ctx context.Context, sourceDir string) (FileCounts, error) {
	var counts FileCounts
	if err := c.do(ctx, http.MethodGet, "/count_files/"+url.PathEscape(sourceDir), nil, &counts); err != nil {
		return FileCounts{}, err
	}
	return counts, nil
}

func (c *Client) Jobs(ctx context.Context, completed bool) ([]JobSummary, error) {
	var raw []struct {
		ID        flexibleID `json:"id"`
		Name      string     `json:"name"`
		Status    string     `json:"status"`
		CreatedAt string     `json:"created_at"`
	}
	if err := c.do(ctx, http.MethodGet, "/job?completed="+strconv.FormatBool(completed), nil, &raw); err != nil {
		return nil, err
	}
	jobs := make([]JobSummary, 0, len(raw))
	for _, r := range raw {
		jobs = append(jobs, JobSummary{
			ID:        string(r.ID),
			Name:      r.Name,
			Status:    NormalizeStatus(r.Status),
			CreatedAt: r.CreatedAt,
		})
	}
	return jobs, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+ingestPrefix+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("job service request",
		logging.String("method", method),
		logging.String("path", path),
		logging.Int("status", resp.StatusCode),
		logging.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode >= http.StatusMultipleChoices {
		return decodeError(resp, method, path)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response, method, path string) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &Error{StatusCode: resp.StatusCode, Method: method, Path: path}
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		apiErr.Message = payload.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}
