// Package config loads foresight configuration from YAML with defaults and
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all foresight configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Workspace holds runtime state: logs, governance ledger, artifacts.
	Workspace WorkspaceConfig `yaml:"workspace"`

	// Session building
	Session SessionConfig `yaml:"session"`

	// Vulnerability catalog access
	Catalog CatalogConfig `yaml:"catalog"`

	// Trajectory forecasting
	Forecast ForecastConfig `yaml:"forecast"`

	// Pipeline orchestration
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Terminal rendering
	Render RenderConfig `yaml:"render"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// WorkspaceConfig locates runtime state on disk.
type WorkspaceConfig struct {
	Root         string `yaml:"root"`
	ArtifactsDir string `yaml:"artifacts_dir"`
}

// SessionConfig controls sessionization.
type SessionConfig struct {
	// Window is the inactivity gap that closes a session.
	Window string `yaml:"window"`
	// HighConfidenceThreshold marks a session high priority when any
	// event confidence exceeds it.
	HighConfidenceThreshold float64 `yaml:"high_confidence_threshold"`
}

// CatalogConfig locates the read-only vulnerability catalog.
type CatalogConfig struct {
	DatabasePath string `yaml:"database_path"`
	QueryTimeout string `yaml:"query_timeout"`
}

// ForecastConfig bounds the trajectory search.
type ForecastConfig struct {
	MaxDepth         int     `yaml:"max_depth"`
	ProbabilityFloor float64 `yaml:"probability_floor"`
	MaxScenarios     int     `yaml:"max_scenarios"`
}

// PipelineConfig controls concurrency and watch mode.
type PipelineConfig struct {
	// Workers caps concurrent per-session analysis. Zero means
	// min(NumCPU, 8).
	Workers       int    `yaml:"workers"`
	WatchDebounce string `yaml:"watch_debounce"`
}

// RenderConfig controls terminal output.
type RenderConfig struct {
	// Color is "auto" (follow the terminal), "always", or "never".
	Color string `yaml:"color"`
}

// LoggingConfig configures the category file logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`  // debug, info, warn, error
	Format     string          `yaml:"format"` // json, text
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "foresight",
		Version: "4.1.0",

		Workspace: WorkspaceConfig{
			Root:         ".",
			ArtifactsDir: "artifacts",
		},

		Session: SessionConfig{
			Window:                  "60m",
			HighConfidenceThreshold: 0.8,
		},

		Catalog: CatalogConfig{
			DatabasePath: "data/vulnintel.db",
			QueryTimeout: "5s",
		},

		Forecast: ForecastConfig{
			MaxDepth:         3,
			ProbabilityFloor: 0.1,
			MaxScenarios:     5,
		},

		Pipeline: PipelineConfig{
			Workers:       0,
			WatchDebounce: "500ms",
		},

		Render: RenderConfig{
			Color: "auto",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; a malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("FORESIGHT_CATALOG_DB"); path != "" {
		c.Catalog.DatabasePath = path
	}
	if root := os.Getenv("FORESIGHT_WORKSPACE"); root != "" {
		c.Workspace.Root = root
	}
	if dir := os.Getenv("FORESIGHT_ARTIFACTS"); dir != "" {
		c.Workspace.ArtifactsDir = dir
	}
	if n := os.Getenv("FORESIGHT_WORKERS"); n != "" {
		if workers, err := strconv.Atoi(n); err == nil && workers >= 0 {
			c.Pipeline.Workers = workers
		}
	}
	// Honor the NO_COLOR convention.
	if os.Getenv("NO_COLOR") != "" {
		c.Render.Color = "never"
	}
}

// GetSessionWindow returns the sessionization gap as a duration.
func (c *Config) GetSessionWindow() time.Duration {
	d, err := time.ParseDuration(c.Session.Window)
	if err != nil {
		return 60 * time.Minute
	}
	return d
}

// GetCatalogTimeout returns the catalog query timeout as a duration.
func (c *Config) GetCatalogTimeout() time.Duration {
	d, err := time.ParseDuration(c.Catalog.QueryTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// ColorEnabled reports whether terminal output may use ANSI styling.
// "auto" defers to the terminal detection in the render layer.
func (c *Config) ColorEnabled() bool {
	return c.Render.Color != "never"
}

// GetWatchDebounce returns the watch-mode debounce as a duration.
func (c *Config) GetWatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Pipeline.WatchDebounce)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// GovernanceDBPath returns the governance database location under the
// workspace root. FORESIGHT_GOVERNANCE_DB overrides it.
func (c *Config) GovernanceDBPath() string {
	if path := os.Getenv("FORESIGHT_GOVERNANCE_DB"); path != "" {
		return path
	}
	return filepath.Join(c.Workspace.Root, ".foresight", "governance.db")
}

// ArtifactsPath returns the artifact output root.
func (c *Config) ArtifactsPath() string {
	if filepath.IsAbs(c.Workspace.ArtifactsDir) {
		return c.Workspace.ArtifactsDir
	}
	return filepath.Join(c.Workspace.Root, c.Workspace.ArtifactsDir)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if _, err := time.ParseDuration(c.Session.Window); err != nil {
		return fmt.Errorf("invalid session window %q: %w", c.Session.Window, err)
	}
	if c.Session.HighConfidenceThreshold < 0 || c.Session.HighConfidenceThreshold > 1 {
		return fmt.Errorf("high confidence threshold must be in [0,1], got %v", c.Session.HighConfidenceThreshold)
	}
	if c.Catalog.DatabasePath == "" {
		return fmt.Errorf("catalog database path not configured")
	}
	if c.Forecast.MaxDepth < 1 {
		return fmt.Errorf("forecast max depth must be at least 1, got %d", c.Forecast.MaxDepth)
	}
	if c.Forecast.ProbabilityFloor <= 0 || c.Forecast.ProbabilityFloor >= 1 {
		return fmt.Errorf("forecast probability floor must be in (0,1), got %v", c.Forecast.ProbabilityFloor)
	}
	if c.Forecast.MaxScenarios < 1 {
		return fmt.Errorf("forecast max scenarios must be at least 1, got %d", c.Forecast.MaxScenarios)
	}
	if c.Pipeline.Workers < 0 {
		return fmt.Errorf("pipeline workers must be non-negative, got %d", c.Pipeline.Workers)
	}
	switch c.Render.Color {
	case "", "auto", "always", "never":
	default:
		return fmt.Errorf("render color must be auto, always, or never, got %q", c.Render.Color)
	}
	return nil
}
