package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ExtractionConfig describes the vision LLM endpoint that turns a
// timetable document (photo or screenshot) into schedule JSON.
type ExtractionConfig struct {
	// Endpoint is an OpenAI-compatible chat-completions URL.
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	// Model is the model identifier sent with each request.
	Model string `yaml:"model" json:"model"`
	// APIKeyEnv names the environment variable holding the API key. The
	// key itself never lives in the config file.
	APIKeyEnv string `yaml:"api_key_env" json:"api_key_env"`
}

// CaptureConfig describes an HTML timetable page to screenshot as
// extraction input, for institutions that publish timetables on the web.
type CaptureConfig struct {
	URL string `yaml:"url" json:"url"`
	// WaitSelector is a CSS selector that must become visible before the
	// screenshot is taken.
	WaitSelector string `yaml:"wait_selector" json:"wait_selector"`
	Width        int    `yaml:"width" json:"width"`
	Height       int    `yaml:"height" json:"height"`
}

// GoogleConfig holds the Google Calendar sink settings.
type GoogleConfig struct {
	// CredentialsPath points at the OAuth client credentials JSON
	// downloaded from the Google Cloud console.
	CredentialsPath string `yaml:"credentials_path" json:"credentials_path"`
	// TokenPath is where the OAuth token is cached between runs.
	TokenPath string `yaml:"token_path" json:"token_path"`
	// CalendarName is the calendar to create or reuse for synced events.
	CalendarName string `yaml:"calendar_name" json:"calendar_name"`
	// CalendarColorID is the Google color id applied on creation.
	CalendarColorID string `yaml:"calendar_color_id" json:"calendar_color_id"`
}

// Config is the top-level application configuration.
type Config struct {
	// SchedulePath is the extracted schedule JSON document to expand.
	SchedulePath string `yaml:"schedule_path" json:"schedule_path"`

	// ICSOutputPath, if set, is where the expanded instances are written
	// as an ICS file.
	ICSOutputPath string `yaml:"ics_output_path" json:"ics_output_path"`

	// RefreshCron is a cron-style schedule (e.g. "0 6 * * *") used by
	// daemon mode to re-run the pipeline. Empty disables the schedule.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// MaxInstancesPerItem caps how many instances a single item may
	// expand into. Zero means the engine default.
	MaxInstancesPerItem int `yaml:"max_instances_per_item" json:"max_instances_per_item"`

	// LogLevel is one of debug/info/warn/error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// Extraction configures the vision LLM collaborator. Optional: with
	// no endpoint the tool only consumes already-extracted JSON.
	Extraction ExtractionConfig `yaml:"extraction" json:"extraction"`

	// Capture, if non-nil, enables webpage screenshot input.
	Capture *CaptureConfig `yaml:"capture,omitempty" json:"capture,omitempty"`

	// Google, if non-nil, enables the Google Calendar sink.
	Google *GoogleConfig `yaml:"google,omitempty" json:"google,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		SchedulePath: "schedule.json",
		LogLevel:     "info",
		Extraction: ExtractionConfig{
			Model:     "gpt-4o-mini",
			APIKeyEnv: "SCHEDULER_API_KEY",
		},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.SchedulePath == "" {
		c.SchedulePath = "schedule.json"
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		c.LogLevel = "info"
	}
	if c.Extraction.Model == "" {
		c.Extraction.Model = "gpt-4o-mini"
	}
	if c.Extraction.APIKeyEnv == "" {
		c.Extraction.APIKeyEnv = "SCHEDULER_API_KEY"
	}
	if c.Capture != nil {
		if c.Capture.Width <= 0 {
			c.Capture.Width = 1280
		}
		if c.Capture.Height <= 0 {
			c.Capture.Height = 1600
		}
	}
	if c.Google != nil {
		if c.Google.CalendarName == "" {
			c.Google.CalendarName = "Timetable"
		}
		if c.Google.CalendarColorID == "" {
			c.Google.CalendarColorID = "7"
		}
		if c.Google.TokenPath == "" {
			c.Google.TokenPath = "token.json"
		}
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist: create the parent directory if
//     needed, write a default config with 0600 perms, return defaults.
//   - If the file exists: read YAML, unmarshal, normalize defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the configuration to path atomically (temp file + rename)
// with 0600 permissions; the parent directory is created as needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".scheduler-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method delegating to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
