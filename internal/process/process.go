package process

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/Paintersrp/pman/internal/job"
	"github.com/Paintersrp/pman/internal/logging"
	"github.com/Paintersrp/pman/internal/metrics"
	"github.com/Paintersrp/pman/internal/reaper"
)

var (
	// ErrSpawnFailure wraps every error that prevented a job from starting.
	ErrSpawnFailure = errors.New("can't run command")
	// ErrEmptyCommand is returned when no program was supplied.
	ErrEmptyCommand = errors.New("no program given")
)

// Drainer consumes pending child status changes. Locked must run fn while
// excluding Drain.
type Drainer interface {
	Drain() []reaper.Event
	Locked(fn func())
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithOutput sets the files children inherit as stdout and stderr. Nil means
// the null device. Only files are accepted because Launch never waits on the
// child, so nothing would finish copying a pipe.
func WithOutput(stdout, stderr *os.File) Option {
	return func(l *Launcher) {
		l.stdout = stdout
		l.stderr = stderr
	}
}

// WithEnv overrides the environment passed to children.
func WithEnv(env []string) Option {
	return func(l *Launcher) {
		l.env = append([]string(nil), env...)
	}
}

// WithDrainer sets the reaper pass triggered after every successful launch.
func WithDrainer(d Drainer) Option {
	return func(l *Launcher) {
		l.drainer = d
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Launcher) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Launcher starts background jobs and records them in a registry.
type Launcher struct {
	registry *job.Registry
	drainer  Drainer
	env      []string
	stdout   *os.File
	stderr   *os.File
	logger   *slog.Logger
}

// New constructs a launcher registering jobs in reg.
func New(reg *job.Registry, opts ...Option) *Launcher {
	l := &Launcher{
		registry: reg,
		env:      InheritEnv(os.Environ(), os.Getenv("PATH")),
		logger:   logging.Module(nil, "launcher"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Launch starts args[0] with args as its argument vector and registers the
// resulting job. The call does not wait for the child.
func (l *Launcher) Launch(args []string) (job.Job, error) {
	if len(args) == 0 {
		metrics.IncSpawnFailures()
		return job.Job{}, fmt.Errorf("%w: %w", ErrSpawnFailure, ErrEmptyCommand)
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Env = l.env
	if l.stdout != nil {
		cmd.Stdout = l.stdout
	}
	if l.stderr != nil {
		cmd.Stderr = l.stderr
	}
	configureCmdSysProcAttr(cmd)
	command := strings.Join(args, " ")

	var (
		j        job.Job
		pid      int
		startErr error
		err      error
	)
	// Start and Insert share the drain lock; a child that exits at once must
	// not be reaped before it is tracked.
	l.locked(func() {
		if startErr = cmd.Start(); startErr != nil {
			return
		}
		pid = cmd.Process.Pid
		// Reaping happens through wait4 in the reaper; drop the runtime handle.
		_ = cmd.Process.Release()
		j, err = l.registry.Insert(pid, command)
	})
	if startErr != nil {
		metrics.IncSpawnFailures()
		l.logger.Debug("launch failed", "program", args[0], "error", startErr)
		return job.Job{}, fmt.Errorf("%w: %w", ErrSpawnFailure, startErr)
	}
	if err != nil {
		l.logger.Error("registry rejected launched job", "pid", pid, "command", command, "error", err)
		if l.drainer != nil {
			l.drainer.Drain()
		}
		return job.Job{}, err
	}
	metrics.IncJobsLaunched()
	l.logger.Info("job launched", "pid", pid, "command", command)

	if l.drainer != nil {
		l.drainer.Drain()
	}
	return j, nil
}

func (l *Launcher) locked(fn func()) {
	if l.drainer == nil {
		fn()
		return
	}
	l.drainer.Locked(fn)
}

// InheritEnv returns env with PATH set to path, so children resolve programs
// through the same search path as the supervisor.
func InheritEnv(env []string, path string) []string {
	out := make([]string, 0, len(env)+1)
	for _, kv := range env {
		if strings.HasPrefix(kv, "PATH=") {
			continue
		}
		out = append(out, kv)
	}
	return append(out, "PATH="+path)
}
