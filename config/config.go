package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/tradejournal/journal"
)

// Config represents the complete journal configuration
type Config struct {
	Journal   JournalConfig   `json:"journal" yaml:"journal"`
	Calendar  CalendarConfig  `json:"calendar" yaml:"calendar"`
	Owners    []string        `json:"owners" yaml:"owners" env:"TRADEJOURNAL_OWNERS"`
	Reconcile ReconcileConfig `json:"reconcile" yaml:"reconcile"`
	Log       LogConfig       `json:"log" yaml:"log"`
}

// JournalConfig locates the ledger database
type JournalConfig struct {
	DBPath    string `json:"db_path" yaml:"db_path" env:"TRADEJOURNAL_DB_PATH"`
	SourceTag string `json:"source_tag,omitempty" yaml:"source_tag,omitempty"` // default tag for imports
}

// CalendarConfig fixes the reporting timezone for every day boundary
type CalendarConfig struct {
	Timezone string `json:"timezone" yaml:"timezone" env:"TRADEJOURNAL_TIMEZONE"` // IANA name, e.g. "America/New_York"
}

// ReconcileConfig drives scheduled reconciliation
type ReconcileConfig struct {
	Schedule     string `json:"schedule" yaml:"schedule"` // cron spec with seconds, e.g. "0 30 2 * * *"
	LookbackDays int    `json:"lookback_days" yaml:"lookback_days"`
}

type LogConfig struct {
	Level             string `json:"level" yaml:"level" env:"TRADEJOURNAL_LOG_LEVEL"`
	Encoding          string `json:"encoding" yaml:"encoding"` // "json" or "console"
	Development       bool   `json:"development" yaml:"development"`
	DisableCaller     bool   `json:"disable_caller,omitempty" yaml:"disable_caller,omitempty"`
	DisableStacktrace bool   `json:"disable_stacktrace,omitempty" yaml:"disable_stacktrace,omitempty"`
}

// LoadFromFile loads configuration from a file (YAML, falling back to JSON)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides fields from TRADEJOURNAL_* environment variables.
// Unset variables leave the current value alone.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	return nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Journal.DBPath == "" {
		return fmt.Errorf("journal.db_path is required")
	}
	if _, err := c.NewCalendar(); err != nil {
		return fmt.Errorf("calendar.timezone: %w", err)
	}
	for _, o := range c.Owners {
		if strings.TrimSpace(o) == "" {
			return fmt.Errorf("owners must not contain empty names")
		}
	}
	if c.Reconcile.LookbackDays < 0 {
		return fmt.Errorf("reconcile.lookback_days must not be negative")
	}
	if c.Reconcile.Schedule != "" {
		if _, err := CronParser.Parse(c.Reconcile.Schedule); err != nil {
			return fmt.Errorf("reconcile.schedule: %w", err)
		}
	}
	if c.Log.Level != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
	}
	if c.Log.Encoding != "" && c.Log.Encoding != "json" && c.Log.Encoding != "console" {
		return fmt.Errorf("log.encoding must be 'json' or 'console'")
	}
	return nil
}

// CronParser accepts the same specs as the scheduler: six fields with
// seconds, or descriptors such as "@daily".
var CronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// NewCalendar returns the reporting calendar for calendar.timezone.
func (c *Config) NewCalendar() (journal.Calendar, error) {
	return journal.NewCalendar(c.Calendar.Timezone)
}

// DefaultOwner is the first configured owner, or "" when none are set.
func (c *Config) DefaultOwner() string {
	if len(c.Owners) == 0 {
		return ""
	}
	return c.Owners[0]
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Journal: JournalConfig{
			DBPath:    "./journal.db",
			SourceTag: "import",
		},
		Calendar: CalendarConfig{
			Timezone: "UTC",
		},
		Owners: []string{"me"},
		Reconcile: ReconcileConfig{
			Schedule:     "0 30 2 * * *",
			LookbackDays: 30,
		},
		Log: LogConfig{
			Level:    "info",
			Encoding: "console",
		},
	}
}
