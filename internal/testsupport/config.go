package testsupport

import (
	"path/filepath"
	"testing"

	"subforge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.ChunksDir = filepath.Join(base, "chunks")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.LLM.APIKey = "test"
	cfg.Transcription.APIKey = "test"
	cfg.Hosting.APIKey = "test"
	cfg.Scheduler.Workers = 2
	cfg.Scheduler.StatusIntervalSecs = 0
	cfg.Retry.Attempts = 1
	cfg.Retry.DelaySeconds = 0

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	return &cfg
}

// WithWorkers overrides the worker count on the test config.
func WithWorkers(n int) ConfigOption {
	return func(c *config.Config) {
		c.Scheduler.Workers = n
	}
}

// WithTranslationDisabled turns the translation stages off.
func WithTranslationDisabled() ConfigOption {
	return func(c *config.Config) {
		c.Pipeline.EnableTranslation = false
	}
}
