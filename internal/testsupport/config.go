package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"fieldingest/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Backend.APIToken = "test"
	cfgVal.Workflow.PollIntervalMillis = 10

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithBackendURL points the config at a test server.
func WithBackendURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Backend.BaseURL = url
	}
}

// WithBuckets overrides the bucket thresholds.
func WithBuckets(buckets ...config.Bucket) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Buckets = buckets
	}
}

// WithColorCorrect sets the default colour correction flag.
func WithColorCorrect(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.ColorCorrect = enabled
	}
}

// WithDirectories creates the state and log directories.
func WithDirectories() ConfigOption {
	return func(b *configBuilder) {
		if err := b.cfg.EnsureDirectories(); err != nil {
			b.t.Fatalf("ensure directories: %v", err)
		}
	}
}

// BaseDir returns the temp root used for this config's directories.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}

// SourceFolder creates a DATE-OBSERVER folder under the config's temp root.
func SourceFolder(t testing.TB, cfg *config.Config, name string) string {
	t.Helper()
	dir := filepath.Join(BaseDir(cfg), "field", name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	return dir
}
