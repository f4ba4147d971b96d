package cli

import (
	stdcontext "context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/pman/internal/api"
	httpapi "github.com/Paintersrp/pman/internal/api/http"
	"github.com/Paintersrp/pman/internal/config"
	"github.com/Paintersrp/pman/internal/logging"
	"github.com/Paintersrp/pman/internal/logmux"
	"github.com/Paintersrp/pman/internal/procinfo"
	"github.com/Paintersrp/pman/internal/shell"
)

func NewRootCmd() *cobra.Command {
	root, _ := newRootCommand()
	return root
}

func newRootCommand() (*cobra.Command, *context) {
	ctx := &context{}

	root := &cobra.Command{
		Use:   "pman",
		Short: "Interactive background job manager",
		Long: "pman runs programs in the background and lets you list, stop, resume,\n" +
			"terminate and inspect them from a prompt.\n\n" +
			"Commands at the prompt: bg <program> [args...], bglist, bgkill <pid>,\n" +
			"bgstop <pid>, bgstart <pid>, pstat <pid>.",
		Args: cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.load(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrompt(cmd, ctx)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&ctx.configPath, "config", "c", config.DefaultPath, "Path to pman configuration file")
	flags.StringVar(&ctx.prompt, "prompt", config.DefaultPrompt, "Prompt printed before each command")
	flags.StringVar(&ctx.logLevel, "log-level", "warn", "Diagnostic log level (debug, info, warn, error)")
	flags.StringVar(&ctx.logFormat, "log-format", "text", "Diagnostic log format (text, json)")
	flags.StringVar(&ctx.metricsAddr, "metrics-addr", "", "Serve /metrics and /api/v1/jobs on this address")
	flags.StringVar(&ctx.procRoot, "proc-root", config.DefaultProcRoot, "Mount point of the proc filesystem")
	flags.StringVar(&ctx.eventLog, "event-log", "", "Append a JSON record per job status change to this file")

	root.AddCommand(newTuiCmd(ctx))
	root.AddCommand(newConfigCmd(ctx))

	root.SilenceUsage = true
	root.SilenceErrors = true

	return root, ctx
}

// Execute runs the CLI entrypoint.
func Execute() {
	ctx, stop := signal.NotifyContext(stdcontext.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	root.SetContext(ctx)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type context struct {
	configPath  string
	prompt      string
	logLevel    string
	logFormat   string
	metricsAddr string
	procRoot    string
	eventLog    string

	lookupEnv func(string) (string, bool)

	cfg *config.Config
}

// load resolves the effective configuration: flags, then PMAN_* variables,
// then the config file, then defaults.
func (c *context) load(cmd *cobra.Command) error {
	if cmd.Name() == "lint" {
		return nil
	}
	flags := cmd.Flags()
	cfg, err := config.Resolve(c.configPath, flags.Changed("config"), c.lookupEnv)
	if err != nil {
		return err
	}
	if flags.Changed("prompt") {
		cfg.SetPrompt(c.prompt)
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = c.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = c.logFormat
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = c.metricsAddr
	}
	if flags.Changed("proc-root") {
		cfg.ProcRoot = c.procRoot
	}
	if flags.Changed("event-log") {
		cfg.EventLog = c.eventLog
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

const eventBuffer = 256

// session holds the components shared by the prompt and the TUI.
type session struct {
	shell     *shell.Shell
	inspector *procinfo.FS
	logger    *slog.Logger
	closers   []io.Closer
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i].Close()
	}
}

func (c *context) newSession(logOut io.Writer, scfg shell.Config) (*session, error) {
	logger, err := logging.New(logOut, c.cfg.Logging)
	if err != nil {
		return nil, err
	}
	inspector, err := procinfo.New(c.cfg.ProcRoot)
	if err != nil {
		return nil, err
	}
	sess := &session{inspector: inspector, logger: logger}

	if c.cfg.EventLog != "" {
		f, err := os.OpenFile(c.cfg.EventLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open event log: %w", err)
		}
		mux := logmux.New(eventBuffer, f, logOut)
		sess.closers = append(sess.closers, f, mux)
		scfg.OnEvent = mux.Publish
	}

	scfg.Inspector = inspector
	scfg.Logger = logger
	sh, err := shell.New(scfg)
	if err != nil {
		sess.Close()
		return nil, err
	}
	sess.shell = sh
	return sess, nil
}

// startMetrics serves the HTTP endpoint in the background when configured.
func (c *context) startMetrics(ctx stdcontext.Context, sess *session) error {
	if c.cfg.Metrics.Addr == "" {
		return nil
	}
	logger := logging.Module(sess.logger, "http")
	server, err := httpapi.NewServer(httpapi.Config{
		Addr:       c.cfg.Metrics.Addr,
		Controller: api.NewRegistryController(sess.shell.Registry(), sess.inspector),
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	if err := server.Listen(); err != nil {
		return err
	}
	go func() {
		if err := server.Run(ctx); err != nil {
			logger.Error("metrics server stopped", "addr", server.Addr(), "error", err)
		}
	}()
	logger.Info("metrics server listening", "addr", server.Addr())
	return nil
}

func runPrompt(cmd *cobra.Command, c *context) error {
	out := cmd.OutOrStdout()
	sess, err := c.newSession(cmd.ErrOrStderr(), shell.Config{
		Prompt:   c.cfg.PromptText(),
		Out:      out,
		ErrOut:   out,
		ChildOut: os.Stdout,
		ChildErr: os.Stderr,
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = stdcontext.Background()
	}
	ctx, cancel := stdcontext.WithCancel(ctx)
	defer cancel()

	if err := c.startMetrics(ctx, sess); err != nil {
		return err
	}
	return sess.shell.Run(ctx, cmd.InOrStdin())
}
