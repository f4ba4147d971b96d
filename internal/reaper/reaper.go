// Package reaper consumes child status changes and applies them to the job
// registry.
//
// There is no background listener: callers drain after every operator
// command and after every launch. A drain polls with WNOHANG until nothing is
// pending, so it never blocks the caller.
package reaper

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/Paintersrp/pman/internal/job"
	"github.com/Paintersrp/pman/internal/logging"
	"github.com/Paintersrp/pman/internal/metrics"
)

// Kind tags a consumed status change.
type Kind string

const (
	KindExited    Kind = "exited"
	KindSignaled  Kind = "signaled"
	KindStopped   Kind = "stopped"
	KindContinued Kind = "continued"
)

// Event describes one consumed status change.
type Event struct {
	Timestamp time.Time
	PID       int
	Kind      Kind
	ExitCode  int
	Signal    syscall.Signal
	// Tracked reports whether the pid belonged to a registered job.
	Tracked bool
	// Command is the job's command text when Tracked is set.
	Command string
}

// Terminal reports whether the event ends the job's life.
func (e Event) Terminal() bool {
	return e.Kind == KindExited || e.Kind == KindSignaled
}

// WaitFunc polls once for any child whose state changed. It must not block;
// a zero pid means nothing is pending.
type WaitFunc func() (pid int, status unix.WaitStatus, err error)

// Option configures a Reaper.
type Option func(*Reaper)

// WithWaitFunc replaces the wait4 based poll.
func WithWaitFunc(fn WaitFunc) Option {
	return func(r *Reaper) {
		if fn != nil {
			r.wait = fn
		}
	}
}

// WithOutput sets the operator stream receiving termination notices.
func WithOutput(w io.Writer) Option {
	return func(r *Reaper) {
		if w != nil {
			r.out = w
		}
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reaper) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithObserver registers a callback invoked for every applied event, in
// order, while the drain lock is held.
func WithObserver(fn func(Event)) Option {
	return func(r *Reaper) {
		if fn != nil {
			r.observers = append(r.observers, fn)
		}
	}
}

// Reaper applies child status changes to a registry.
type Reaper struct {
	mu        sync.Mutex
	registry  *job.Registry
	wait      WaitFunc
	out       io.Writer
	logger    *slog.Logger
	observers []func(Event)
}

// New constructs a reaper bound to reg.
func New(reg *job.Registry, opts ...Option) *Reaper {
	r := &Reaper{
		registry: reg,
		wait:     PollAny,
		out:      io.Discard,
		logger:   logging.Module(nil, "reaper"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PollAny performs a non-blocking wait4 for any child, reporting exits,
// signals, stops and continues.
func PollAny() (int, unix.WaitStatus, error) {
	var status unix.WaitStatus
	for {
		pid, err := unix.Wait4(-1, &status, unix.WNOHANG|unix.WUNTRACED|unix.WCONTINUED, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return pid, status, err
	}
}

// Locked runs fn while holding the drain lock. Launchers start a child and
// register it inside fn so that no drain can reap the pid in between.
func (r *Reaper) Locked(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn()
}

// Drain consumes every status change pending at this instant and returns the
// events it applied, in the order they were observed.
func (r *Reaper) Drain() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var events []Event
	for {
		pid, status, err := r.wait()
		if err != nil {
			if !errors.Is(err, unix.ECHILD) {
				r.logger.Warn("wait for children failed", "error", err)
			}
			break
		}
		if pid <= 0 {
			break
		}
		evt, ok := classify(pid, status)
		if !ok {
			r.logger.Debug("ignoring unrecognised wait status", "pid", pid, "status", uint32(status))
			continue
		}
		r.apply(&evt)
		for _, observe := range r.observers {
			observe(evt)
		}
		events = append(events, evt)
	}

	metrics.SetJobCounts(r.registry.Len(), r.registry.Active())
	return events
}

func (r *Reaper) apply(evt *Event) {
	metrics.IncJobsReaped(string(evt.Kind))

	switch evt.Kind {
	case KindExited, KindSignaled:
		removed, err := r.registry.Remove(evt.PID)
		if err != nil {
			if errors.Is(err, job.ErrNotFound) {
				r.logger.Debug("untracked child terminated", "pid", evt.PID, "kind", evt.Kind)
				return
			}
			r.logger.Error("remove job", "pid", evt.PID, "error", err)
			return
		}
		evt.Tracked = true
		evt.Command = removed.Command
		fmt.Fprintf(r.out, "Process %d terminated\n", evt.PID)
		attrs := []any{"pid", evt.PID, "kind", evt.Kind}
		if evt.Kind == KindSignaled {
			attrs = append(attrs, "signal", evt.Signal.String())
		} else {
			attrs = append(attrs, "exit_code", evt.ExitCode)
		}
		r.logger.Info("job terminated", attrs...)
	case KindStopped:
		evt.Tracked = r.registry.SetStopped(evt.PID, true)
		evt.Command = r.commandOf(evt)
		r.logger.Info("job stopped", "pid", evt.PID, "tracked", evt.Tracked)
	case KindContinued:
		evt.Tracked = r.registry.SetStopped(evt.PID, false)
		evt.Command = r.commandOf(evt)
		r.logger.Info("job continued", "pid", evt.PID, "tracked", evt.Tracked)
	}
}

func (r *Reaper) commandOf(evt *Event) string {
	if !evt.Tracked {
		return ""
	}
	j, _ := r.registry.Find(evt.PID)
	return j.Command
}

func classify(pid int, status unix.WaitStatus) (Event, bool) {
	evt := Event{Timestamp: time.Now(), PID: pid, ExitCode: -1}
	switch {
	case status.Exited():
		evt.Kind = KindExited
		evt.ExitCode = status.ExitStatus()
	case status.Signaled():
		evt.Kind = KindSignaled
		evt.Signal = status.Signal()
	case status.Stopped():
		evt.Kind = KindStopped
		evt.Signal = status.StopSignal()
	case status.Continued():
		evt.Kind = KindContinued
	default:
		return Event{}, false
	}
	return evt, true
}
