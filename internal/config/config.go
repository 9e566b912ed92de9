// Package config provides unified configuration loading for selfwatch.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nvandessel/selfwatch/internal/constants"
	"github.com/nvandessel/selfwatch/internal/logging"
	"gopkg.in/yaml.v3"
)

// DirName is the per-user directory holding config, events and the default database.
const DirName = ".selfwatch"

// SelfwatchConfig contains all selfwatch configuration settings.
type SelfwatchConfig struct {
	// Engine contains the analytics engine cadence settings.
	Engine EngineConfig `json:"engine" yaml:"engine"`

	// Simulation contains settings for the reference particle world.
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`

	// Logging contains settings for operational and event logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Store contains settings for the snapshot recorder.
	Store StoreConfig `json:"store" yaml:"store"`

	// Server contains settings for the HTTP snapshot API.
	Server ServerConfig `json:"server" yaml:"server"`
}

// EngineConfig configures the analytics engine.
type EngineConfig struct {
	// TickRate is the host tick rate in Hz. Tick-denominated cooldowns are
	// scaled by TickRate/60 so their wall-clock duration is preserved.
	TickRate int `json:"tick_rate" yaml:"tick_rate"`

	// CycleLength is the number of ticks in one round-robin analytics cycle.
	CycleLength int `json:"cycle_length" yaml:"cycle_length"`

	// HistorySize is the entropy history capacity.
	HistorySize int `json:"history_size" yaml:"history_size"`

	// GridSize is G for the G×G entropy occupancy grid.
	GridSize int `json:"grid_size" yaml:"grid_size"`
}

// SimulationConfig configures the reference particle simulation.
type SimulationConfig struct {
	// Entities is the number of particles.
	Entities int `json:"entities" yaml:"entities"`

	// Width and Height are the world bounds.
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`

	// Seed seeds the simulation RNG. Zero picks a time-based seed.
	Seed uint64 `json:"seed" yaml:"seed"`
}

// LoggingConfig configures selfwatch's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables event logging to <dir>/events.jsonl.
	// "trace" additionally logs every scheduled subsystem update.
	Level string `json:"level" yaml:"level"`

	// Dir is where events.jsonl is written. Supports ${VAR} expansion.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// StoreConfig configures snapshot recording.
type StoreConfig struct {
	// Path is the SQLite database file. Supports ${VAR} expansion.
	Path string `json:"path" yaml:"path"`

	// RecordEvery is the number of ticks between recorded snapshots.
	RecordEvery int `json:"record_every" yaml:"record_every"`
}

// ServerConfig configures the HTTP snapshot API.
type ServerConfig struct {
	// Addr is the listen address, e.g. "127.0.0.1:8470".
	Addr string `json:"addr" yaml:"addr"`
}

// Default returns a SelfwatchConfig with sensible defaults.
func Default() *SelfwatchConfig {
	dir := defaultDir()
	return &SelfwatchConfig{
		Engine: EngineConfig{
			TickRate:    constants.NominalTickRate,
			CycleLength: constants.DefaultCycleLength,
			HistorySize: constants.EntropyHistorySize,
			GridSize:    constants.EntropyGridSize,
		},
		Simulation: SimulationConfig{
			Entities: constants.DefaultEntityCount,
			Width:    constants.DefaultWorldWidth,
			Height:   constants.DefaultWorldHeight,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   dir,
		},
		Store: StoreConfig{
			Path:        filepath.Join(dir, "selfwatch.db"),
			RecordEvery: constants.DefaultCycleLength,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8470",
		},
	}
}

// DefaultPath returns ~/.selfwatch/config.yaml, or "" if the home directory is unknown.
func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, DirName, "config.yaml")
}

func defaultDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return DirName
	}
	return filepath.Join(homeDir, DirName)
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.selfwatch/config.yaml -> environment variables
func Load() (*SelfwatchConfig, error) {
	config := Default()

	if configPath := DefaultPath(); configPath != "" {
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadPath loads path, or the default locations when path is empty, and
// applies environment overrides either way.
func LoadPath(path string) (*SelfwatchConfig, error) {
	if path == "" {
		return Load()
	}
	config, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(config)
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*SelfwatchConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Store.Path = expandEnvVars(config.Store.Path)
	config.Logging.Dir = expandEnvVars(config.Logging.Dir)

	return config, nil
}

// WriteFile writes the configuration as YAML to path, creating parent directories.
func (c *SelfwatchConfig) WriteFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *SelfwatchConfig) Validate() error {
	if c.Engine.TickRate < 1 || c.Engine.TickRate > 1000 {
		return fmt.Errorf("tick_rate must be between 1 and 1000, got %d", c.Engine.TickRate)
	}
	if c.Engine.CycleLength < 4 {
		return fmt.Errorf("cycle_length must be at least 4, got %d", c.Engine.CycleLength)
	}
	if c.Engine.HistorySize < constants.SignatureWindow {
		return fmt.Errorf("history_size must be at least %d, got %d", constants.SignatureWindow, c.Engine.HistorySize)
	}
	if c.Engine.GridSize < 2 {
		return fmt.Errorf("grid_size must be at least 2, got %d", c.Engine.GridSize)
	}

	if c.Simulation.Entities < 1 {
		return fmt.Errorf("entities must be positive, got %d", c.Simulation.Entities)
	}
	if c.Simulation.Width <= 0 || c.Simulation.Height <= 0 {
		return fmt.Errorf("world bounds must be positive, got %gx%g", c.Simulation.Width, c.Simulation.Height)
	}

	if c.Store.RecordEvery < 1 {
		return fmt.Errorf("record_every must be positive, got %d", c.Store.RecordEvery)
	}

	if c.Logging.Level != "" && !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *SelfwatchConfig) {
	if v := os.Getenv("SELFWATCH_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	if v := os.Getenv("SELFWATCH_ENTITIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.Entities = n
		}
	}

	if v := os.Getenv("SELFWATCH_TICK_RATE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Engine.TickRate = n
		}
	}

	if v := os.Getenv("SELFWATCH_CYCLE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Engine.CycleLength = n
		}
	}

	if v := os.Getenv("SELFWATCH_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			config.Simulation.Seed = n
		}
	}

	if v := os.Getenv("SELFWATCH_DB"); v != "" {
		config.Store.Path = expandEnvVars(v)
	}

	if v := os.Getenv("SELFWATCH_ADDR"); v != "" {
		config.Server.Addr = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
