package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the client configuration
type Config struct {
	APIBase      string        `yaml:"api_base"`
	Timeout      time.Duration `yaml:"timeout"`
	PersistToken *bool         `yaml:"persist_token,omitempty"`
	DBPath       string        `yaml:"db_path"`
	LogLevel     string        `yaml:"log_level"`
	TimeZone     string        `yaml:"timezone"`
	Trace        bool          `yaml:"trace"`
	Styles       []StyleRule   `yaml:"styles"`
	DefaultStyle CalendarStyle `yaml:"default_style"`
}

// StyleRule maps a calendar to its display style. By default Calendar is an id or a
// case-insensitive name. With match "contains" the rule applies to any calendar whose
// name contains one of Keywords (or Calendar when no keywords are given).
type StyleRule struct {
	Calendar      string   `yaml:"calendar,omitempty"`
	Match         string   `yaml:"match,omitempty"`
	Keywords      []string `yaml:"keywords,omitempty"`
	CalendarStyle `yaml:",inline"`
}

const (
	MatchExact    = "exact"
	MatchContains = "contains"
)

// Overrides holds command-line flag values; empty fields leave the config untouched.
type Overrides struct {
	APIBase string
	Trace   bool
}

var DefaultCalendarStyle = CalendarStyle{Color: "#667eea", Border: "#4338ca", Icon: "📋"}

// DefaultStyles is the keyword palette for the usual calendar names, first match wins.
func DefaultStyles() []StyleRule {
	home := CalendarStyle{Color: "#10b981", Border: "#059669", Icon: "🏠"}
	return []StyleRule{
		{Match: MatchContains, Keywords: []string{"내 캘린더", "my calendar", "내캘린더"}, CalendarStyle: home},
		{Match: MatchContains, Keywords: []string{"개인", "personal", "private"}, CalendarStyle: CalendarStyle{Color: "#3b82f6", Border: "#1d4ed8", Icon: "👤"}},
		{Match: MatchContains, Keywords: []string{"업무", "work", "business", "office"}, CalendarStyle: CalendarStyle{Color: "#ec4899", Border: "#be185d", Icon: "💼"}},
		{Match: MatchContains, Keywords: []string{"조정부", "부서", "팀"}, CalendarStyle: home},
	}
}

func DefaultConfigPath() string {
	return filepath.Join(homeDir(), ".config", "calview", "config.yaml")
}

func DefaultDBPath() string {
	return filepath.Join(homeDir(), ".local", "share", "calview", "calview.db")
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &cfg, nil
}

// LoadConfig loads configuration with the following precedence (highest to lowest):
// 1. Command-line flags
// 2. Environment variables (a .env file in the working directory is loaded first)
// 3. Config file
// 4. Defaults
// A missing config file is only an error when the path was given explicitly.
func LoadConfig(path string, explicit bool, flags Overrides) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		fileCfg, err := LoadFromFile(path)
		switch {
		case err == nil:
			cfg = fileCfg
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		default:
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if v := os.Getenv("CALVIEW_API_BASE"); v != "" {
		cfg.APIBase = v
	}
	if v := os.Getenv("CALVIEW_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("CALVIEW_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CALVIEW_TIMEZONE"); v != "" {
		cfg.TimeZone = v
	}
	if v := os.Getenv("CALVIEW_PERSIST_TOKEN"); v != "" {
		persist, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid CALVIEW_PERSIST_TOKEN value: %w", err)
		}
		cfg.PersistToken = &persist
	}
	if v := os.Getenv("CALVIEW_TIMEOUT"); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid CALVIEW_TIMEOUT value: %w", err)
		}
		cfg.Timeout = timeout
	}

	if flags.APIBase != "" {
		cfg.APIBase = flags.APIBase
	}
	if flags.Trace {
		cfg.Trace = true
	}

	// defaults
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.PersistToken == nil {
		persist := true
		cfg.PersistToken = &persist
	}
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath()
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "warn"
	}
	if cfg.Styles == nil {
		cfg.Styles = DefaultStyles()
	}
	if cfg.DefaultStyle == (CalendarStyle{}) {
		cfg.DefaultStyle = DefaultCalendarStyle
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values the defaults cannot fix.
func (c *Config) Validate() error {
	if c.Timeout < time.Second {
		return fmt.Errorf("invalid timeout %s: must be at least 1s (use a unit, e.g. \"10s\")", c.Timeout)
	}
	for i, rule := range c.Styles {
		switch rule.Match {
		case "", MatchExact, MatchContains:
		default:
			return fmt.Errorf("invalid match %q in style rule %d", rule.Match, i+1)
		}
	}
	_, err := c.Location()
	return err
}

// Location returns the configured time zone, or the local zone when unset.
func (c *Config) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	// Windows fallback
	return os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
}
