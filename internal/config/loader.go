package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables overriding file values.
const (
	EnvPrompt      = "PMAN_PROMPT"
	EnvProcRoot    = "PMAN_PROC_ROOT"
	EnvEventLog    = "PMAN_EVENT_LOG"
	EnvLogLevel    = "PMAN_LOG_LEVEL"
	EnvLogFormat   = "PMAN_LOG_FORMAT"
	EnvMetricsAddr = "PMAN_METRICS_ADDR"
	EnvTUIRefresh  = "PMAN_TUI_REFRESH"
	EnvTUILines    = "PMAN_TUI_OUTPUT_LINES"
)

// Load reads a config document from the provided path, applies defaults and
// validates it.
func Load(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	f, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	var doc Config
	if err := decoder.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: decode: %w", absPath, err)
	}
	doc.expand()

	doc.ApplyDefaults()
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", absPath, err)
	}
	return &doc, nil
}

// Resolve loads the config for a run. When explicit is false a missing file
// yields defaults. Environment overrides are applied after the file and the
// result is validated again.
func Resolve(path string, explicit bool, lookup func(string) (string, bool)) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	cfg, err := Load(path)
	switch {
	case err == nil:
	case !explicit && errors.Is(err, fs.ErrNotExist):
		cfg = Default()
	default:
		return nil, err
	}

	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from PMAN_* variables. A nil lookup uses the
// process environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookup(EnvPrompt); ok {
		c.SetPrompt(v)
	}
	if v, ok := lookup(EnvProcRoot); ok && strings.TrimSpace(v) != "" {
		c.ProcRoot = v
	}
	if v, ok := lookup(EnvEventLog); ok {
		c.EventLog = v
	}
	if v, ok := lookup(EnvLogLevel); ok && strings.TrimSpace(v) != "" {
		c.Logging.Level = v
	}
	if v, ok := lookup(EnvLogFormat); ok && strings.TrimSpace(v) != "" {
		c.Logging.Format = v
	}
	if v, ok := lookup(EnvMetricsAddr); ok {
		c.Metrics.Addr = v
	}
	if v, ok := lookup(EnvTUIRefresh); ok && strings.TrimSpace(v) != "" {
		var d Duration
		if err := d.UnmarshalText([]byte(strings.TrimSpace(v))); err != nil {
			return fmt.Errorf("%s: %w", EnvTUIRefresh, err)
		}
		c.TUI.Refresh = d
	}
	if v, ok := lookup(EnvTUILines); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTUILines, err)
		}
		c.TUI.OutputLines = n
	}
	return nil
}

func (c *Config) expand() {
	if c.Prompt != nil {
		c.SetPrompt(os.ExpandEnv(*c.Prompt))
	}
	c.ProcRoot = os.ExpandEnv(c.ProcRoot)
	c.EventLog = os.ExpandEnv(c.EventLog)
	c.Metrics.Addr = os.ExpandEnv(c.Metrics.Addr)
}
