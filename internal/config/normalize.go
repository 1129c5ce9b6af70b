package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeBackend()
	c.normalizeWorkflow()
	c.normalizeBuckets()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeBackend() {
	c.Backend.BaseURL = strings.TrimSpace(c.Backend.BaseURL)
	if value, ok := os.LookupEnv(baseURLEnv); ok && strings.TrimSpace(value) != "" {
		c.Backend.BaseURL = strings.TrimSpace(value)
	}
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = defaultBackendBaseURL
	}
	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")
	c.Backend.APIToken = strings.TrimSpace(c.Backend.APIToken)
	if c.Backend.APIToken == "" {
		if value, ok := os.LookupEnv(apiTokenEnv); ok {
			c.Backend.APIToken = strings.TrimSpace(value)
		}
	}
	if c.Backend.RequestTimeout == 0 {
		c.Backend.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.PollIntervalMillis == 0 {
		c.Workflow.PollIntervalMillis = defaultPollIntervalMillis
	}
	if c.Workflow.MaxNameLength == 0 {
		c.Workflow.MaxNameLength = defaultMaxNameLength
	}
	if c.Workflow.DefaultQuality == 0 {
		c.Workflow.DefaultQuality = defaultQuality
	}
	if c.Workflow.ConflictExamples <= 0 {
		c.Workflow.ConflictExamples = defaultConflictExamples
	}
}

func (c *Config) normalizeBuckets() {
	if len(c.Buckets) == 0 {
		c.Buckets = DefaultBuckets()
		return
	}
	for i := range c.Buckets {
		c.Buckets[i].Name = strings.ToLower(strings.TrimSpace(c.Buckets[i].Name))
	}
	sort.SliceStable(c.Buckets, func(i, j int) bool {
		return c.Buckets[i].BottomThreshold < c.Buckets[j].BottomThreshold
	})
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
