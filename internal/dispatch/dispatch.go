// Package dispatch sends operator signal requests to arbitrary processes.
//
// Requests go straight to the OS using the raw identifier; the target does
// not have to be a tracked job. The registry is never touched here: any
// resulting stop, continue or exit is observed later by the reaper.
package dispatch

import (
	"fmt"
	"log/slog"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/Paintersrp/pman/internal/job"
	"github.com/Paintersrp/pman/internal/logging"
	"github.com/Paintersrp/pman/internal/metrics"
)

// SendFunc delivers sig to pid.
type SendFunc func(pid int, sig syscall.Signal) error

// Dispatcher translates kill/stop/resume requests into signals.
type Dispatcher struct {
	send   SendFunc
	logger *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithSendFunc replaces the kill(2) based sender.
func WithSendFunc(fn SendFunc) Option {
	return func(d *Dispatcher) {
		if fn != nil {
			d.send = fn
		}
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New constructs a dispatcher.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		send:   unix.Kill,
		logger: logging.Module(nil, "dispatch"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// RequestTermination asks the process to terminate with SIGTERM.
func (d *Dispatcher) RequestTermination(idText string) (int, error) {
	return d.request(idText, unix.SIGTERM)
}

// RequestStop suspends the process with SIGSTOP.
func (d *Dispatcher) RequestStop(idText string) (int, error) {
	return d.request(idText, unix.SIGSTOP)
}

// RequestResume resumes a suspended process with SIGCONT.
func (d *Dispatcher) RequestResume(idText string) (int, error) {
	return d.request(idText, unix.SIGCONT)
}

func (d *Dispatcher) request(idText string, sig syscall.Signal) (int, error) {
	pid, err := job.ParsePID(idText)
	if err != nil {
		return 0, err
	}

	name := unix.SignalName(sig)
	err = d.send(pid, sig)
	metrics.ObserveSignal(name, err)
	if err != nil {
		d.logger.Debug("signal rejected", "pid", pid, "signal", name, "error", err)
		return pid, fmt.Errorf("%w: %s to %d: %w", job.ErrInvalidProcessID, name, pid, err)
	}
	d.logger.Info("signal sent", "pid", pid, "signal", name)
	return pid, nil
}
