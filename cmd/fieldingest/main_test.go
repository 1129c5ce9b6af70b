package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fieldingest/internal/config"
	"fieldingest/internal/jobapi"
	"fieldingest/internal/testsupport"
)

type cliTestEnv struct {
	t          *testing.T
	baseDir    string
	configPath string
	backend    *testsupport.FakeBackend
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
state_dir = %q
log_dir = %q
env_file = %q

[backend]
base_url = "http://127.0.0.1:5000"
api_token = "secret-token"

[workflow]
poll_interval_ms = 10

[logging]
level = "error"
`, filepath.Join(base, "state"), filepath.Join(base, "logs"), filepath.Join(base, "missing.env"))
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{
		t:          t,
		baseDir:    base,
		configPath: configPath,
		backend:    testsupport.NewFakeBackend(),
	}
}

func (e *cliTestEnv) run(args ...string) (string, string, error) {
	e.t.Helper()
	cmd := newRootCommandWith(func(*config.Config, *slog.Logger) jobapi.Backend { return e.backend })
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := cmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func (e *cliTestEnv) source(name string) string {
	e.t.Helper()
	dir := filepath.Join(e.baseDir, "field", name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		e.t.Fatalf("mkdir source: %v", err)
	}
	return dir
}

func (e *cliTestEnv) dir(name string) string {
	e.t.Helper()
	dir := filepath.Join(e.baseDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		e.t.Fatalf("mkdir %s: %v", name, err)
	}
	return dir
}

func image(dir, name string, width, height int, size int64) jobapi.MediaMetadata {
	return jobapi.MediaMetadata{
		FilePath:  filepath.Join(dir, name),
		FileName:  name,
		Extension: "jpg",
		Width:     width,
		Height:    height,
		FileSize:  size,
	}
}

func TestFolderCheckReportsInvalidNames(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := env.run("folder", "check", "/data/2024-06-03-JB", "/data/holiday")
	if err == nil {
		t.Fatal("expected error for invalid folder name")
	}
	if !strings.Contains(out, "2024-06-03-JB") || !strings.Contains(out, "holiday") {
		t.Fatalf("expected both folders in output, got %q", out)
	}
	if !strings.Contains(out, "observer JB") {
		t.Fatalf("expected parsed observer, got %q", out)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := env.run("settings", "set", "report_dir", "/reports"); err != nil {
		t.Fatalf("settings set: %v", err)
	}
	out, _, err := env.run("settings", "get", "REPORT_DIR")
	if err != nil {
		t.Fatalf("settings get: %v", err)
	}
	if strings.TrimSpace(out) != "/reports" {
		t.Fatalf("unexpected value %q", out)
	}
	out, _, err = env.run("settings", "list")
	if err != nil {
		t.Fatalf("settings list: %v", err)
	}
	if !strings.Contains(out, "local_output_folder") || !strings.Contains(out, "/reports") {
		t.Fatalf("unexpected listing %q", out)
	}
	if _, _, err := env.run("settings", "unset", "report_dir"); err != nil {
		t.Fatalf("settings unset: %v", err)
	}
	if _, _, err := env.run("settings", "get", "report_dir"); err == nil {
		t.Fatal("expected unset key to report an error")
	}
	if _, _, err := env.run("settings", "set", "colour", "blue"); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestRunImageIngest(t *testing.T) {
	env := setupCLITestEnv(t)
	source := env.source("2024-06-03-JB")
	output := env.dir("out")
	env.backend.Media = []jobapi.MediaMetadata{
		image(source, "small.jpg", 2000, 1000, 2_000_000),
		image(source, "huge.jpg", 8000, 5000, 20_000_000),
	}

	out, _, err := env.run("run", source, "--yes", "-o", output, "--quality", "small=20")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	if !strings.Contains(out, "transcode job transcode-") {
		t.Fatalf("expected job id in output, got %q", out)
	}
	if len(env.backend.Transcodes) != 1 {
		t.Fatalf("expected one transcode, got %d", len(env.backend.Transcodes))
	}
	if env.backend.Calls("count_files") != 1 {
		t.Fatalf("expected file count before parse, got %d calls", env.backend.Calls("count_files"))
	}
	req := env.backend.Transcodes[0]
	if req.LocalExportPath != output || req.ObserverCode != "JB" {
		t.Fatalf("unexpected request %+v", req)
	}
	settings, ok := req.Settings.([]jobapi.ImageSettings)
	if !ok || len(settings) != 2 {
		t.Fatalf("unexpected settings %#v", req.Settings)
	}
	for _, s := range settings {
		want := 100
		if s.NewName == "small" {
			want = 20
		}
		if s.JPEGQuality != want {
			t.Fatalf("%s: quality %d, want %d", s.NewName, s.JPEGQuality, want)
		}
	}
}

func TestRunMultiDayVideo(t *testing.T) {
	env := setupCLITestEnv(t)
	first := env.source("2024-06-03-JB")
	second := env.source("2024-06-04-JB")
	env.backend.Media = []jobapi.MediaMetadata{{
		FilePath:  filepath.Join(first, "clip.mp4"),
		FileName:  "clip.mp4",
		Extension: "mp4",
		Height:    720,
		NumFrames: 100,
		FrameRate: 25,
	}}

	out, _, err := env.run("run", "--yes", "--mode", "video", "--report-dir", env.dir("reports"), "-s", first, "-s", second)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	if len(env.backend.Transcodes) != 2 {
		t.Fatalf("expected two transcodes, got %d", len(env.backend.Transcodes))
	}
	if env.backend.Transcodes[0].SourceDir != first || env.backend.Transcodes[1].SourceDir != second {
		t.Fatalf("unexpected sources %q, %q", env.backend.Transcodes[0].SourceDir, env.backend.Transcodes[1].SourceDir)
	}
	for _, req := range env.backend.Transcodes {
		if req.Mode != jobapi.ModeVideo {
			t.Fatalf("mode not carried over: %+v", req)
		}
	}
}

func TestRunRequiresSource(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := env.run("run", "--yes"); err == nil {
		t.Fatal("expected error without sources")
	}
	if env.backend.Calls("submit_parse") != 0 {
		t.Fatal("nothing should be submitted")
	}
}

func TestParseJSONSummary(t *testing.T) {
	env := setupCLITestEnv(t)
	source := env.source("2024-06-03-JB")
	nested := image(filepath.Join(source, "a", "b"), "deep.jpg", 100, 100, 10)
	nested.Errors = []string{"VIDEO_PATH_ERROR"}
	env.backend.Media = []jobapi.MediaMetadata{
		image(source, "top.jpg", 100, 100, 10),
		nested,
	}

	out, _, err := env.run("parse", source, "--json")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for _, want := range []string{`"catalog_folder": "2024-06-03-JB"`, `"items": 2`, `"blocked": true`, `"VIDEO_PATH_ERROR": 1`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %s", want, out)
		}
	}
	if env.backend.Calls("submit_transcode") != 0 {
		t.Fatal("parse must not transcode")
	}
}

func TestRenamePreviewSavesRules(t *testing.T) {
	env := setupCLITestEnv(t)
	source := env.source("2024-06-03-JB")
	env.backend.Media = []jobapi.MediaMetadata{
		image(source, "IMG_0001.jpg", 100, 100, 10),
		image(source, "IMG_0002.jpg", 100, 100, 10),
	}
	rules := filepath.Join(env.baseDir, "rules.toml")

	out, _, err := env.run("rename", "preview", source, "--find", "IMG_", "--replace", "site_", "--save", rules)
	if err != nil {
		t.Fatalf("rename preview: %v", err)
	}
	if !strings.Contains(out, "site_0001") {
		t.Fatalf("expected renamed file in %q", out)
	}
	data, err := os.ReadFile(rules)
	if err != nil {
		t.Fatalf("read saved rules: %v", err)
	}
	if !strings.Contains(string(data), "site_") {
		t.Fatalf("saved rules missing replacement: %s", data)
	}
}

func TestJobsAndCount(t *testing.T) {
	env := setupCLITestEnv(t)
	env.backend.JobList = []jobapi.JobSummary{
		{ID: "7", Name: "parse", Status: jobapi.StatusIncomplete},
		{ID: "8", Name: "transcode", Status: jobapi.StatusCompleted},
	}
	env.backend.Counts = jobapi.FileCounts{Images: 1200, Videos: 3}

	out, _, err := env.run("jobs")
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	if !strings.Contains(out, "parse") || strings.Contains(out, "transcode") {
		t.Fatalf("expected only incomplete jobs, got %q", out)
	}
	out, _, err = env.run("jobs", "--completed")
	if err != nil {
		t.Fatalf("jobs --completed: %v", err)
	}
	if !strings.Contains(out, "transcode") {
		t.Fatalf("expected completed job, got %q", out)
	}
	out, _, err = env.run("count", env.source("2024-06-03-JB"))
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if !strings.Contains(out, "Images: 1,200") || !strings.Contains(out, "Videos: 3") {
		t.Fatalf("unexpected counts %q", out)
	}
}

func TestConfigCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := env.run("config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") || !strings.Contains(out, env.configPath) {
		t.Fatalf("unexpected validate output %q", out)
	}

	out, _, err = env.run("config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "secret-token") || !strings.Contains(out, "poll_interval_ms = 10") {
		t.Fatalf("unexpected show output %q", out)
	}

	target := filepath.Join(env.baseDir, "new", "config.toml")
	if _, _, err := env.run("config", "init", "--path", target); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config not written: %v", err)
	}
	if _, _, err := env.run("config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}
}
