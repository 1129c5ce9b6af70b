package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"fieldingest/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("FIELDINGEST_API_TOKEN", "env-token")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "fieldingest")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.SettingsDBPath() != filepath.Join(wantState, "settings.db") {
		t.Fatalf("unexpected settings db path: %q", cfg.SettingsDBPath())
	}
	if cfg.Backend.BaseURL != "http://127.0.0.1:5000" {
		t.Fatalf("unexpected backend url: %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.APIToken != "env-token" {
		t.Fatalf("expected api token from env, got %q", cfg.Backend.APIToken)
	}
	if cfg.PollInterval().Milliseconds() != 1000 {
		t.Fatalf("expected 1s poll interval, got %s", cfg.PollInterval())
	}
	if cfg.Workflow.MaxNameLength != 20 {
		t.Fatalf("expected max name length 20, got %d", cfg.Workflow.MaxNameLength)
	}
	if len(cfg.Buckets) != 4 || cfg.Buckets[3].Name != "xlarge" || cfg.Buckets[3].BottomThreshold != 36_000_000 {
		t.Fatalf("unexpected default buckets: %+v", cfg.Buckets)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	custom := config.Default()
	custom.Paths.StateDir = "~/ingest-state"
	custom.Backend.BaseURL = "https://ingest.example.test/"
	custom.Workflow.DefaultQuality = 90
	custom.Buckets = []config.Bucket{
		{Name: "Large", BottomThreshold: 20_000_000},
		{Name: "small", BottomThreshold: 0},
	}
	custom.Logging.Format = "JSON"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be found, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.StateDir != filepath.Join(tempHome, "ingest-state") {
		t.Fatalf("unexpected state dir: %q", cfg.Paths.StateDir)
	}
	if cfg.Backend.BaseURL != "https://ingest.example.test" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Backend.BaseURL)
	}
	if cfg.Workflow.DefaultQuality != 90 {
		t.Fatalf("unexpected default quality: %d", cfg.Workflow.DefaultQuality)
	}
	if cfg.Buckets[0].Name != "small" || cfg.Buckets[1].Name != "large" {
		t.Fatalf("expected buckets sorted by threshold and lowercased, got %+v", cfg.Buckets)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json format, got %q", cfg.Logging.Format)
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("FIELDINGEST_API_TOKEN", "")
	os.Unsetenv("FIELDINGEST_API_TOKEN")
	t.Setenv("FIELDINGEST_BACKEND_URL", "")
	os.Unsetenv("FIELDINGEST_BACKEND_URL")

	dir := t.TempDir()
	envPath := filepath.Join(dir, "ingest.env")
	envBody := "FIELDINGEST_API_TOKEN=dotenv-token\nFIELDINGEST_BACKEND_URL=http://backend.local:8080\n"
	if err := os.WriteFile(envPath, []byte(envBody), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	custom := config.Default()
	custom.Paths.EnvFile = envPath
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	configPath := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Backend.APIToken != "dotenv-token" {
		t.Fatalf("expected token from env file, got %q", cfg.Backend.APIToken)
	}
	if cfg.Backend.BaseURL != "http://backend.local:8080" {
		t.Fatalf("expected backend url from env file, got %q", cfg.Backend.BaseURL)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "FIELDINGEST_API_TOKEN") {
		t.Fatalf("sample config missing token hint: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if len(cfg.Buckets) != len(config.DefaultBuckets()) {
		t.Fatalf("expected sample to list default buckets, got %+v", cfg.Buckets)
	}
	for i, bucket := range config.DefaultBuckets() {
		if cfg.Buckets[i] != bucket {
			t.Fatalf("sample bucket %d = %+v, want %+v", i, cfg.Buckets[i], bucket)
		}
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}

	cfg = config.Default()
	cfg.Workflow.PollIntervalMillis = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive poll interval")
	}

	cfg = config.Default()
	cfg.Workflow.DefaultQuality = 75
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unsupported quality")
	}

	cfg = config.Default()
	cfg.Backend.BaseURL = "ftp://example.test"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-http backend url")
	}

	cfg = config.Default()
	cfg.Buckets = []config.Bucket{{Name: "medium", BottomThreshold: 9_000_000}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when lowest bucket does not start at zero")
	}

	cfg = config.Default()
	cfg.Buckets = []config.Bucket{{Name: "small", BottomThreshold: 0}, {Name: "small2", BottomThreshold: 0}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for equal thresholds")
	}

	cfg = config.Default()
	cfg.Buckets = []config.Bucket{{Name: "small", BottomThreshold: 0}, {Name: "small", BottomThreshold: 5}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for duplicate names")
	}
}
