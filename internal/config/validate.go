package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// qualityOptions must match the JPEG qualities the transcode worker accepts.
var qualityOptions = map[int]struct{}{20: {}, 50: {}, 90: {}, 100: {}}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateBuckets(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateBackend() error {
	parsed, err := url.Parse(c.Backend.BaseURL)
	if err != nil {
		return fmt.Errorf("backend.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("backend.base_url must use http or https, got %q", c.Backend.BaseURL)
	}
	if parsed.Host == "" {
		return errors.New("backend.base_url must include a host")
	}
	if c.Backend.RequestTimeout <= 0 {
		return errors.New("backend.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.poll_interval_ms":  c.Workflow.PollIntervalMillis,
		"workflow.max_name_length":   c.Workflow.MaxNameLength,
		"workflow.conflict_examples": c.Workflow.ConflictExamples,
	}); err != nil {
		return err
	}
	if _, ok := qualityOptions[c.Workflow.DefaultQuality]; !ok {
		return fmt.Errorf("workflow.default_quality must be one of 20, 50, 90, 100, got %d", c.Workflow.DefaultQuality)
	}
	return nil
}

// validateBuckets checks that the thresholds partition [0, inf): the first
// bucket starts at zero and each following bucket starts strictly higher.
func (c *Config) validateBuckets() error {
	if len(c.Buckets) == 0 {
		return errors.New("buckets must define at least one bucket")
	}
	seen := make(map[string]struct{}, len(c.Buckets))
	for i, bucket := range c.Buckets {
		if bucket.Name == "" {
			return fmt.Errorf("buckets[%d].name must be set", i)
		}
		if _, dup := seen[bucket.Name]; dup {
			return fmt.Errorf("buckets: duplicate bucket name %q", bucket.Name)
		}
		seen[bucket.Name] = struct{}{}
		if i == 0 {
			if bucket.BottomThreshold != 0 {
				return fmt.Errorf("buckets: lowest bucket %q must start at 0, got %d", bucket.Name, bucket.BottomThreshold)
			}
			continue
		}
		if bucket.BottomThreshold <= c.Buckets[i-1].BottomThreshold {
			return fmt.Errorf("buckets: %q threshold %d must be greater than %q threshold %d",
				bucket.Name, bucket.BottomThreshold, c.Buckets[i-1].Name, c.Buckets[i-1].BottomThreshold)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", strings.TrimSpace(c.Logging.Level))
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
