package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"subforge/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if resolved != path {
		t.Fatalf("expected resolved path %s, got %s", path, resolved)
	}
	if cfg.Scheduler.Workers != 4 {
		t.Fatalf("unexpected default workers: %d", cfg.Scheduler.Workers)
	}
	if cfg.Pipeline.SourceLanguage != "he" {
		t.Fatalf("unexpected default source language: %q", cfg.Pipeline.SourceLanguage)
	}
	if cfg.Retry.Attempts != 3 || cfg.Retry.DelaySeconds != 5 {
		t.Fatalf("unexpected retry defaults: %+v", cfg.Retry)
	}
}

func TestLoadOverlaysFileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[scheduler]\nworkers = 9\n\n[pipeline]\nsource_language = \"en\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Scheduler.Workers != 9 {
		t.Fatalf("expected workers from file, got %d", cfg.Scheduler.Workers)
	}
	if cfg.Pipeline.SourceLanguage != "en" {
		t.Fatalf("expected source language from file, got %q", cfg.Pipeline.SourceLanguage)
	}
	// Untouched sections keep defaults.
	if cfg.Pipeline.TranslationA != "ar" {
		t.Fatalf("expected default translation language, got %q", cfg.Pipeline.TranslationA)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("SUBFORGE_LLM_API_KEY", "env-llm-key")
	t.Setenv("SUBFORGE_HOSTING_API_KEY", "env-hosting-key")

	cfg, _, err := config.Load(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.APIKey != "env-llm-key" {
		t.Fatalf("expected env override for llm key, got %q", cfg.LLM.APIKey)
	}
	if cfg.Hosting.APIKey != "env-hosting-key" {
		t.Fatalf("expected env override for hosting key, got %q", cfg.Hosting.APIKey)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"zero workers", "[scheduler]\nworkers = 0\n"},
		{"bad language tag", "[pipeline]\nsource_language = \"not a tag\"\n"},
		{"zero retry attempts", "[retry]\nattempts = 0\n"},
		{"bad log format", "[logging]\nformat = \"xml\"\n"},
		{"zero chunk segments", "[pipeline]\nchunk_segments = 0\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("WriteFile failed: %v", err)
			}
			if _, _, err := config.Load(path); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestWriteSampleLoadsCleanly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected refusal to overwrite existing sample")
	}

	cfg, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load of sample failed: %v", err)
	}
	if cfg.Pipeline.ChunkSegments != 20 {
		t.Fatalf("unexpected sample chunk segments: %d", cfg.Pipeline.ChunkSegments)
	}
}

func TestEnsureDirectoriesAndPaths(t *testing.T) {
	base := t.TempDir()
	content := strings.Join([]string{
		"[paths]",
		"work_dir = \"" + filepath.Join(base, "work") + "\"",
		"chunks_dir = \"" + filepath.Join(base, "chunks") + "\"",
		"log_dir = \"" + filepath.Join(base, "logs") + "\"",
	}, "\n")
	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.WorkDir, cfg.Paths.ChunksDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
	if got := cfg.LedgerPath(); got != filepath.Join(cfg.Paths.WorkDir, "ledger.db") {
		t.Fatalf("unexpected ledger path: %s", got)
	}
	if got := cfg.LockPath(); got != filepath.Join(cfg.Paths.WorkDir, "scheduler.lock") {
		t.Fatalf("unexpected lock path: %s", got)
	}
}
