// Package shell implements the interactive job-control command loop.
//
// Each line is tokenised on whitespace, the command word is matched case
// insensitively, and the command runs to completion before the reaper drains
// pending child status changes. Errors never end the loop; they are turned
// into operator messages.
package shell

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/Paintersrp/pman/internal/dispatch"
	"github.com/Paintersrp/pman/internal/job"
	"github.com/Paintersrp/pman/internal/logging"
	"github.com/Paintersrp/pman/internal/process"
	"github.com/Paintersrp/pman/internal/procinfo"
	"github.com/Paintersrp/pman/internal/reaper"
	"github.com/Paintersrp/pman/internal/report"
)

// DefaultPrompt is printed before every command.
const DefaultPrompt = "PMan:  >"

// Config controls construction of a Shell.
type Config struct {
	// Prompt is printed before each line read by Run. Empty disables it.
	Prompt string
	// Out receives operator output. Defaults to os.Stdout.
	Out io.Writer
	// ErrOut receives error messages. Defaults to Out.
	ErrOut io.Writer
	// ChildOut and ChildErr are inherited by launched jobs. Nil means the
	// null device.
	ChildOut *os.File
	ChildErr *os.File
	// ProcRoot is the proc filesystem mount used when Inspector is nil.
	ProcRoot  string
	Inspector procinfo.Inspector
	// Env is passed to launched jobs. Defaults to the supervisor environment
	// with PATH re-exported.
	Env []string
	// OnEvent is called for every applied child status change while the
	// drain lock is held. It must not block.
	OnEvent func(reaper.Event)
	Logger  *slog.Logger
}

type handler func(args []string) error

// Shell owns the job registry and the components operating on it.
type Shell struct {
	mu sync.Mutex

	registry   *job.Registry
	launcher   *process.Launcher
	reaper     *reaper.Reaper
	dispatcher *dispatch.Dispatcher
	reporter   *report.Reporter
	commands   map[string]handler

	prompt string
	out    io.Writer
	errOut io.Writer
	logger *slog.Logger
}

// New wires a registry, launcher, reaper, dispatcher and reporter together.
func New(cfg Config) (*Shell, error) {
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	errOut := cfg.ErrOut
	if errOut == nil {
		errOut = out
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	inspector := cfg.Inspector
	if inspector == nil {
		fs, err := procinfo.New(cfg.ProcRoot)
		if err != nil {
			return nil, err
		}
		inspector = fs
	}

	reg := job.NewRegistry()
	rp := reaper.New(reg,
		reaper.WithOutput(out),
		reaper.WithLogger(logging.Module(logger, "reaper")),
		reaper.WithObserver(cfg.OnEvent),
	)
	launchOpts := []process.Option{
		process.WithOutput(cfg.ChildOut, cfg.ChildErr),
		process.WithDrainer(rp),
		process.WithLogger(logging.Module(logger, "launcher")),
	}
	if cfg.Env != nil {
		launchOpts = append(launchOpts, process.WithEnv(cfg.Env))
	}

	s := &Shell{
		registry:   reg,
		launcher:   process.New(reg, launchOpts...),
		reaper:     rp,
		dispatcher: dispatch.New(dispatch.WithLogger(logging.Module(logger, "dispatch"))),
		reporter:   report.New(reg, inspector, out),
		prompt:     cfg.Prompt,
		out:        out,
		errOut:     errOut,
		logger:     logging.Module(logger, "shell"),
	}
	s.commands = map[string]handler{
		"bg":      s.launch,
		"bglist":  s.list,
		"bgkill":  s.signal(s.dispatcher.RequestTermination),
		"bgstop":  s.signal(s.dispatcher.RequestStop),
		"bgstart": s.signal(s.dispatcher.RequestResume),
		"pstat":   s.describe,
	}
	return s, nil
}

// Registry exposes the job registry for read-only consumers.
func (s *Shell) Registry() *job.Registry {
	return s.registry
}

// Jobs returns a snapshot of tracked jobs in launch order.
func (s *Shell) Jobs() []job.Job {
	return s.registry.Snapshot()
}

// Drain applies pending child status changes.
func (s *Shell) Drain() []reaper.Event {
	return s.reaper.Drain()
}

// Tokenize splits a command line on whitespace and lower-cases the command
// word. Arguments keep their case so program paths stay intact.
func Tokenize(line string) []string {
	tokens := strings.Fields(line)
	if len(tokens) > 0 {
		tokens[0] = strings.ToLower(tokens[0])
	}
	return tokens
}

// Execute runs a single command line and then drains the reaper.
func (s *Shell) Execute(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.reaper.Drain()

	tokens := Tokenize(line)
	if len(tokens) == 0 {
		return
	}

	name, args := tokens[0], tokens[1:]
	cmd, ok := s.commands[name]
	if !ok {
		fmt.Fprintf(s.out, "%s: command not found\n", name)
		return
	}
	if err := cmd(args); err != nil {
		s.reportError(err, args)
	}
}

func (s *Shell) launch(args []string) error {
	_, err := s.launcher.Launch(args)
	return err
}

func (s *Shell) list([]string) error {
	s.reporter.ListActive()
	return nil
}

func (s *Shell) describe(args []string) error {
	return s.reporter.Describe(firstArg(args))
}

func (s *Shell) signal(request func(string) (int, error)) handler {
	return func(args []string) error {
		_, err := request(firstArg(args))
		return err
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func (s *Shell) reportError(err error, args []string) {
	switch {
	case errors.Is(err, job.ErrMissingArgument):
		fmt.Fprintln(s.errOut, "Error: Process ID not provided")
	case errors.Is(err, job.ErrInvalidProcessID):
		s.logger.Debug("invalid process id", "args", args, "error", err)
		fmt.Fprintln(s.errOut, "Error: Process ID not valid")
	case errors.Is(err, procinfo.ErrProcessNotFound):
		fmt.Fprintf(s.errOut, "Error: Process %s does not exist\n", firstArg(args))
	case errors.Is(err, process.ErrSpawnFailure):
		cause := strings.TrimPrefix(err.Error(), process.ErrSpawnFailure.Error()+": ")
		fmt.Fprintf(s.errOut, "Error: Can't run command: %s\n", cause)
	case errors.Is(err, job.ErrDuplicateID), errors.Is(err, job.ErrNotFound):
		s.logger.Error("job registry inconsistency", "args", args, "error", err)
		fmt.Fprintf(s.errOut, "Error: internal: %v\n", err)
	default:
		fmt.Fprintf(s.errOut, "Error: %v\n", err)
	}
}
