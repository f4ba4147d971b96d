package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/Paintersrp/pman/internal/logging"
)

const minRefresh = 50 * time.Millisecond

// Validate enforces document invariants. Defaults must already be applied.
func (c *Config) Validate() error {
	if c.ProcRoot == "" {
		return fmt.Errorf("%s: is required", fieldPath("procRoot"))
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%s: %w", fieldPath("logging", "level"), err)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%s: must be one of text, json (got %q)", fieldPath("logging", "format"), c.Logging.Format)
	}
	if c.Metrics.Addr != "" {
		if err := validateListenAddr(c.Metrics.Addr); err != nil {
			return fmt.Errorf("%s: %w", fieldPath("metrics", "addr"), err)
		}
	}
	if c.TUI.Refresh.Duration < minRefresh {
		return fmt.Errorf("%s: must be at least %s", fieldPath("tui", "refresh"), minRefresh)
	}
	if c.TUI.OutputLines < 0 {
		return fmt.Errorf("%s: must not be negative (got %d)", fieldPath("tui", "outputLines"), c.TUI.OutputLines)
	}
	return nil
}

// validateListenAddr accepts host:port and bare :port forms.
func validateListenAddr(addr string) error {
	_, portText, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portText)
	if err != nil || port < 0 || port > 65535 {
		return fmt.Errorf("invalid port %q", portText)
	}
	return nil
}
