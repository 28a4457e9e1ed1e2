package config

import (
	"errors"
	"fmt"

	"golang.org/x/text/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateScheduler(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateServices(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.WorkDir == "" {
		return errors.New("paths.work_dir must be set")
	}
	if c.Paths.ChunksDir == "" {
		return errors.New("paths.chunks_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateScheduler() error {
	if c.Scheduler.Workers < 1 {
		return errors.New("scheduler.workers must be at least 1")
	}
	if c.Scheduler.StatusIntervalSecs < 1 {
		return errors.New("scheduler.status_interval_seconds must be at least 1")
	}
	if c.Scheduler.ActiveWindowSeconds < 1 {
		return errors.New("scheduler.active_window_seconds must be at least 1")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	for key, tag := range map[string]string{
		"pipeline.source_language":        c.Pipeline.SourceLanguage,
		"pipeline.translation_a_language": c.Pipeline.TranslationA,
		"pipeline.translation_b_language": c.Pipeline.TranslationB,
	} {
		if tag == "" {
			return fmt.Errorf("%s must be set", key)
		}
		if _, err := language.Parse(tag); err != nil {
			return fmt.Errorf("%s: invalid language tag %q: %w", key, tag, err)
		}
	}
	if c.Pipeline.ChunkSegments < 1 {
		return errors.New("pipeline.chunk_segments must be at least 1")
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.Attempts < 1 {
		return errors.New("retry.attempts must be at least 1")
	}
	if c.Retry.DelaySeconds < 0 {
		return errors.New("retry.delay_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateServices() error {
	if c.LLM.BaseURL == "" {
		return errors.New("llm.base_url must be set")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	if c.Transcription.BaseURL == "" {
		return errors.New("transcription.base_url must be set")
	}
	if c.Transcription.MaxUploadMiB < 1 {
		return errors.New("transcription.max_upload_mib must be at least 1")
	}
	if c.Hosting.BaseURL == "" {
		return errors.New("hosting.base_url must be set")
	}
	if c.Downstream.Enabled && c.Downstream.BaseURL == "" {
		return errors.New("downstream.base_url must be set when downstream delivery is enabled")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
