package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration for work artifacts.
type Paths struct {
	WorkDir   string `toml:"work_dir"`
	ChunksDir string `toml:"chunks_dir"`
	LogDir    string `toml:"log_dir"`
}

// Scheduler contains worker pool and reporting settings.
type Scheduler struct {
	Workers             int `toml:"workers"`
	StatusIntervalSecs  int `toml:"status_interval_seconds"`
	ActiveWindowSeconds int `toml:"active_window_seconds"`
}

// Pipeline contains per-item processing toggles and language settings.
type Pipeline struct {
	SourceLanguage    string `toml:"source_language"`
	TranslationA      string `toml:"translation_a_language"`
	TranslationB      string `toml:"translation_b_language"`
	EnableCorrection  bool   `toml:"enable_correction"`
	EnableTranslation bool   `toml:"enable_translation"`
	ChunkSegments     int    `toml:"chunk_segments"`
}

// Retry contains the shared retry budget for external transforms.
type Retry struct {
	Attempts     int `toml:"attempts"`
	DelaySeconds int `toml:"delay_seconds"`
}

// LLM contains settings for the chat-completion service used for grammar
// correction and translation.
type LLM struct {
	APIKey           string  `toml:"api_key"`
	BaseURL          string  `toml:"base_url"`
	CorrectionModel  string  `toml:"correction_model"`
	TranslationModel string  `toml:"translation_model"`
	Temperature      float64 `toml:"temperature"`
	TimeoutSeconds   int     `toml:"timeout_seconds"`
}

// Transcription contains settings for the speech-to-text service.
type Transcription struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	MaxUploadMiB   int    `toml:"max_upload_mib"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Hosting contains settings for the video hosting platform API.
type Hosting struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Downstream contains settings for the downstream content API that receives
// the primary-language captions.
type Downstream struct {
	Enabled        bool   `toml:"enabled"`
	BaseURL        string `toml:"base_url"`
	Token          string `toml:"token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Logging contains log output settings.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is the root configuration structure.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Scheduler     Scheduler     `toml:"scheduler"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Retry         Retry         `toml:"retry"`
	LLM           LLM           `toml:"llm"`
	Transcription Transcription `toml:"transcription"`
	Hosting       Hosting       `toml:"hosting"`
	Downstream    Downstream    `toml:"downstream"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the location probed when no --config flag is set.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "subforge", "config.toml"), nil
}

// Load reads the config file at path (or the default location when path is
// empty), overlays environment credentials, normalizes paths, and validates.
// A missing file yields the defaults.
func Load(path string) (*Config, string, error) {
	resolved := strings.TrimSpace(path)
	if resolved == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return nil, "", err
		}
		resolved = defaultPath
	}

	cfg := Default()
	data, err := os.ReadFile(resolved)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, resolved, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// Defaults plus env overrides; required keys are caught by Validate.
	default:
		return nil, resolved, fmt.Errorf("read config %s: %w", resolved, err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.normalize(); err != nil {
		return nil, resolved, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, resolved, err
	}
	return &cfg, resolved, nil
}

// WriteSample writes the embedded sample configuration to path.
func WriteSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o600)
}

func (c *Config) applyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv("SUBFORGE_LLM_API_KEY")); v != "" {
		c.LLM.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("SUBFORGE_TRANSCRIPTION_API_KEY")); v != "" {
		c.Transcription.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("SUBFORGE_HOSTING_API_KEY")); v != "" {
		c.Hosting.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("SUBFORGE_DOWNSTREAM_TOKEN")); v != "" {
		c.Downstream.Token = v
	}
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.ChunksDir, err = expandPath(c.Paths.ChunksDir); err != nil {
		return fmt.Errorf("paths.chunks_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.LLM.BaseURL = strings.TrimRight(strings.TrimSpace(c.LLM.BaseURL), "/")
	c.Transcription.BaseURL = strings.TrimRight(strings.TrimSpace(c.Transcription.BaseURL), "/")
	c.Hosting.BaseURL = strings.TrimRight(strings.TrimSpace(c.Hosting.BaseURL), "/")
	c.Downstream.BaseURL = strings.TrimRight(strings.TrimSpace(c.Downstream.BaseURL), "/")
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	return nil
}

// EnsureDirectories creates every directory the engine writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.ChunksDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// LedgerPath returns the location of the status ledger database.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.WorkDir, "ledger.db")
}

// LockPath returns the location of the scheduler work-directory lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.WorkDir, "scheduler.lock")
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Clean(trimmed), nil
}
