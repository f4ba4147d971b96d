package cli

import (
	stdcontext "context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Paintersrp/pman/internal/shell"
	"github.com/Paintersrp/pman/internal/tui"
)

func newTuiCmd(ctx *context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Manage background jobs from an interactive terminal interface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !supportsInteractiveOutput(cmd) {
				return fmt.Errorf("tui requires an interactive terminal")
			}
			return runTUI(cmd, ctx)
		},
	}

	return cmd
}

func supportsInteractiveOutput(cmd *cobra.Command) bool {
	return isTerminal(cmd.InOrStdin()) && isTerminal(cmd.OutOrStdout())
}

func isTerminal(stream any) bool {
	f, ok := stream.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func runTUI(cmd *cobra.Command, c *context) error {
	ui := tui.New(
		tui.WithRefresh(c.cfg.TUI.Refresh.Duration),
		tui.WithMaxOutputLines(c.cfg.TUI.OutputLines),
	)

	// Diagnostics go to the output pane; job output is discarded so it cannot
	// write over the screen.
	sess, err := c.newSession(ui.Output(), shell.Config{
		Prompt: "",
		Out:    ui.Output(),
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
	return ui.Run(ctx, sess.shell)
}
