package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Paintersrp/pman/internal/logging"
)

const (
	// DefaultPath is read when no config file is named explicitly.
	DefaultPath = "pman.yaml"

	DefaultPrompt   = "PMan:  >"
	DefaultProcRoot = "/proc"
	DefaultRefresh  = 500 * time.Millisecond

	// DefaultOutputLines bounds the TUI output pane history.
	DefaultOutputLines = 1000
)

// Duration wraps time.Duration for YAML unmarshalling.
type Duration struct {
	time.Duration
	explicit bool
}

// UnmarshalText parses a textual duration, accepting empty strings.
func (d *Duration) UnmarshalText(text []byte) error {
	d.explicit = true
	if len(text) == 0 {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = dur
	return nil
}

// MarshalText renders the duration using time.Duration formatting.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// IsSet reports whether the duration was explicitly provided or non-zero.
func (d Duration) IsSet() bool {
	return d.explicit || d.Duration != 0
}

// Config mirrors the pman.yaml document structure.
type Config struct {
	// Prompt is a pointer so an explicit empty prompt survives defaulting.
	Prompt   *string `yaml:"prompt"`
	ProcRoot string  `yaml:"procRoot"`
	// EventLog names a file receiving one JSON record per job status change.
	EventLog string         `yaml:"eventLog"`
	Logging  logging.Config `yaml:"logging"`
	Metrics  MetricsSpec    `yaml:"metrics"`
	TUI      TUISpec        `yaml:"tui"`
}

// MetricsSpec configures the optional HTTP endpoint.
type MetricsSpec struct {
	// Addr is the listen address. Empty disables the endpoint.
	Addr string `yaml:"addr"`
}

// TUISpec configures the terminal UI.
type TUISpec struct {
	Refresh     Duration `yaml:"refresh"`
	OutputLines int      `yaml:"outputLines"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// PromptText returns the configured prompt.
func (c *Config) PromptText() string {
	if c.Prompt == nil {
		return DefaultPrompt
	}
	return *c.Prompt
}

// SetPrompt overrides the prompt, including with an empty string.
func (c *Config) SetPrompt(prompt string) {
	c.Prompt = &prompt
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Prompt == nil {
		c.SetPrompt(DefaultPrompt)
	}
	c.ProcRoot = strings.TrimSpace(c.ProcRoot)
	if c.ProcRoot == "" {
		c.ProcRoot = DefaultProcRoot
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = "warn"
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	c.EventLog = strings.TrimSpace(c.EventLog)
	c.Metrics.Addr = strings.TrimSpace(c.Metrics.Addr)
	if !c.TUI.Refresh.IsSet() {
		c.TUI.Refresh = Duration{Duration: DefaultRefresh}
	}
	if c.TUI.OutputLines == 0 {
		c.TUI.OutputLines = DefaultOutputLines
	}
}

func fieldPath(parts ...string) string {
	return strings.Join(parts, ".")
}
