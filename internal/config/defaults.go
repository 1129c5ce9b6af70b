package config

const (
	defaultConfigPath         = "~/.config/fieldingest/config.toml"
	defaultStateDir           = "~/.local/share/fieldingest"
	defaultLogDir             = "~/.local/share/fieldingest/logs"
	defaultBackendBaseURL     = "http://127.0.0.1:5000"
	defaultRequestTimeout     = 30
	defaultPollIntervalMillis = 1000
	defaultMaxNameLength      = 20
	defaultQuality            = 100
	defaultConflictExamples   = 3
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	apiTokenEnv               = "FIELDINGEST_API_TOKEN"
	baseURLEnv                = "FIELDINGEST_BACKEND_URL"
)

// DefaultBuckets mirrors the thresholds the transcode worker uses.
func DefaultBuckets() []Bucket {
	return []Bucket{
		{Name: "small", BottomThreshold: 0},
		{Name: "medium", BottomThreshold: 9_000_000},
		{Name: "large", BottomThreshold: 22_000_000},
		{Name: "xlarge", BottomThreshold: 36_000_000},
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Backend: Backend{
			BaseURL:        defaultBackendBaseURL,
			RequestTimeout: defaultRequestTimeout,
		},
		Workflow: Workflow{
			PollIntervalMillis: defaultPollIntervalMillis,
			MaxNameLength:      defaultMaxNameLength,
			DefaultQuality:     defaultQuality,
			ConflictExamples:   defaultConflictExamples,
		},
		Buckets: DefaultBuckets(),
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
