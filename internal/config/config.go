package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/roach88/brokersim/internal/engine"
	"github.com/roach88/brokersim/internal/logging"
)

const (
	configFile  = "config.toml"
	journalFile = "journal.db"
	envPrefix   = "BROKERSIM_"
)

// FileConfig is the TOML file structure.
type FileConfig struct {
	Journal string       `toml:"journal"`
	Engine  EngineConfig `toml:"engine"`
	Flows   FlowConfig   `toml:"flows"`
	Log     LogConfig    `toml:"log"`
}

// EngineConfig holds simulation settings.
type EngineConfig struct {
	TickIntervalMs int64 `toml:"tick_interval_ms"`
	// Pointer so that an explicit 0 can be told apart from "unset".
	RejectProbability *float64 `toml:"reject_probability"`
	EventLogCap       int      `toml:"event_log_cap"`
	// Seed makes rejection draws reproducible. 0 means unseeded.
	Seed uint64 `toml:"seed"`
}

// FlowConfig holds flow visualization durations in milliseconds.
type FlowConfig struct {
	ExchangeMs   int64 `toml:"exchange_ms"`
	QueueMs      int64 `toml:"queue_ms"`
	ConsumerMs   int64 `toml:"consumer_ms"`
	DeadLetterMs int64 `toml:"dead_letter_ms"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is the resolved runtime config after defaults and env overrides.
type Config struct {
	TickInterval      time.Duration
	RejectProbability float64
	EventLogCap       int
	Seed              uint64
	Flows             engine.FlowDurations

	LogLevel  logging.Level
	LogFormat logging.Format

	JournalPath string
	ConfigDir   string
}

// EngineOptions returns the engine options this config selects.
func (c Config) EngineOptions() []engine.EngineOption {
	opts := []engine.EngineOption{
		engine.WithRejectProbability(c.RejectProbability),
		engine.WithEventLogCap(c.EventLogCap),
		engine.WithFlowDurations(c.Flows),
	}
	if c.Seed != 0 {
		opts = append(opts, engine.WithRandom(engine.NewSeededRandom(c.Seed)))
	}
	return opts
}

// Logging returns the logging config this config selects.
func (c Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.LogLevel
	cfg.Format = c.LogFormat
	return cfg
}

// LoadFileConfig loads config.toml from configDir.
// Returns a zero-value FileConfig (no error) if the file doesn't exist.
func LoadFileConfig(configDir string) (*FileConfig, error) {
	path := filepath.Join(configDir, configFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &FileConfig{}, nil
		}
		return nil, err
	}

	var cfg FileConfig
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parse %s: unknown key %q", path, undecoded[0].String())
	}
	return &cfg, nil
}

// Resolve merges file settings with defaults and BROKERSIM_* environment
// variables into a runtime Config. Environment variables win over the file.
func (fc FileConfig) Resolve(configDir, dataDir string) (Config, error) {
	defaults := engine.DefaultFlowDurations()
	cfg := Config{
		TickInterval:      msOr(fc.Engine.TickIntervalMs, engine.DefaultTickInterval),
		RejectProbability: engine.DefaultRejectProbability,
		EventLogCap:       fc.Engine.EventLogCap,
		Seed:              fc.Engine.Seed,
		Flows: engine.FlowDurations{
			Exchange:   msOr(fc.Flows.ExchangeMs, defaults.Exchange),
			Queue:      msOr(fc.Flows.QueueMs, defaults.Queue),
			Consumer:   msOr(fc.Flows.ConsumerMs, defaults.Consumer),
			DeadLetter: msOr(fc.Flows.DeadLetterMs, defaults.DeadLetter),
		},
		LogLevel:    logging.LevelWarn,
		LogFormat:   logging.ParseFormat(fc.Log.Format),
		JournalPath: fc.Journal,
		ConfigDir:   configDir,
	}
	if fc.Engine.RejectProbability != nil {
		cfg.RejectProbability = *fc.Engine.RejectProbability
	}
	if cfg.EventLogCap <= 0 {
		cfg.EventLogCap = engine.DefaultEventLogCap
	}
	if fc.Log.Level != "" {
		cfg.LogLevel = logging.ParseLevel(fc.Log.Level)
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	if cfg.RejectProbability < 0 || cfg.RejectProbability > 1 {
		return Config{}, fmt.Errorf("reject_probability %v out of range [0, 1]", cfg.RejectProbability)
	}
	if cfg.JournalPath == "" && dataDir != "" {
		cfg.JournalPath = filepath.Join(dataDir, journalFile)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(envPrefix + "TICK_INTERVAL_MS"); v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil || ms <= 0 {
			return fmt.Errorf("%sTICK_INTERVAL_MS: invalid value %q", envPrefix, v)
		}
		c.TickInterval = time.Duration(ms) * time.Millisecond
	}
	if v := os.Getenv(envPrefix + "REJECT_PROBABILITY"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sREJECT_PROBABILITY: invalid value %q", envPrefix, v)
		}
		c.RejectProbability = p
	}
	if v := os.Getenv(envPrefix + "SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sSEED: invalid value %q", envPrefix, v)
		}
		c.Seed = seed
	}
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		c.LogLevel = logging.ParseLevel(v)
	}
	if v := os.Getenv(envPrefix + "LOG_FORMAT"); v != "" {
		c.LogFormat = logging.ParseFormat(v)
	}
	if v := os.Getenv(envPrefix + "JOURNAL"); v != "" {
		c.JournalPath = v
	}
	return nil
}

// Save writes fc to config.toml in configDir, creating the directory.
func Save(configDir string, fc *FileConfig) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(fc); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(configDir, configFile), buf.Bytes(), 0644)
}

func msOr(ms int64, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}
