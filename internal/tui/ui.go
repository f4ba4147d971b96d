package tui

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/Paintersrp/pman/internal/cliutil"
	"github.com/Paintersrp/pman/internal/job"
	"github.com/Paintersrp/pman/internal/reaper"
)

const (
	tableTitle         = "Jobs"
	outputTitle        = "Output"
	defaultRefresh     = 500 * time.Millisecond
	defaultOutputLines = 1000
	maxCommandWidth    = 60
	helpText           = "Tab focus  k kill  s stop  c continue  p pstat  q quit"
)

// Executor runs operator commands against the job registry.
type Executor interface {
	Execute(line string)
	Jobs() []job.Job
	Drain() []reaper.Event
}

// Option configures UI behaviour.
type Option func(*UI)

// WithRefresh sets how often the UI drains child status changes.
func WithRefresh(d time.Duration) Option {
	return func(u *UI) {
		if d > 0 {
			u.refresh = d
		}
	}
}

// WithMaxOutputLines bounds the output pane history.
func WithMaxOutputLines(n int) Option {
	return func(u *UI) {
		if n > 0 {
			u.maxLines = n
		}
	}
}

// UI is the interactive job table backed by tview.
type UI struct {
	app    *tview.Application
	pages  *tview.Pages
	table  *tview.Table
	output *tview.TextView
	input  *tview.InputField

	exec     Executor
	refresh  time.Duration
	maxLines int

	visible  []job.Job
	selected int

	tableFocused bool

	cancelMu sync.Mutex
	cancel   context.CancelFunc

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New constructs a UI configured with the supplied options.
//
// Table state is only touched from the tview event goroutine. The output pane
// accepts writes from any goroutine; the poll loop redraws after each drain.
func New(opts ...Option) *UI {
	u := &UI{
		app:      tview.NewApplication(),
		refresh:  defaultRefresh,
		maxLines: defaultOutputLines,
	}
	for _, opt := range opts {
		opt(u)
	}

	u.table = tview.NewTable().SetFixed(1, 0).SetSelectable(true, false)
	u.table.SetBorder(true).SetTitle(tableTitle)
	u.table.SetSelectionChangedFunc(func(row, column int) {
		u.syncSelection(row)
	})

	u.output = tview.NewTextView().SetDynamicColors(false).SetWrap(true).SetMaxLines(u.maxLines)
	u.output.SetBorder(true).SetTitle(outputTitle)

	u.input = tview.NewInputField().SetLabel("PMan: > ").SetFieldWidth(0)
	u.input.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		line := u.input.GetText()
		u.input.SetText("")
		u.runCommand(line)
	})

	help := tview.NewTextView().SetText(helpText)

	flex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(u.table, 0, 2, false).
		AddItem(u.output, 0, 3, false).
		AddItem(u.input, 1, 0, true).
		AddItem(help, 1, 0, false)

	u.pages = tview.NewPages().AddPage("main", flex, true, true)
	u.app.SetRoot(u.pages, true)
	u.app.SetInputCapture(u.handleKey)
	u.app.SetFocus(u.input)

	u.renderTable(nil)
	return u
}

// Output returns the writer feeding the output pane. It is safe for
// concurrent use.
func (u *UI) Output() io.Writer {
	return u.output
}

// Run starts the tview application and drains child status changes until
// Stop is invoked or the provided context is cancelled.
func (u *UI) Run(ctx context.Context, exec Executor) error {
	u.exec = exec
	ctx, cancel := context.WithCancel(ctx)

	u.cancelMu.Lock()
	u.cancel = cancel
	u.cancelMu.Unlock()

	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		u.pollJobs(ctx)
	}()

	go func() {
		<-ctx.Done()
		u.Stop()
	}()

	u.refreshTable()
	err := u.app.Run()

	u.cancelMu.Lock()
	cancel = u.cancel
	u.cancel = nil
	u.cancelMu.Unlock()
	if cancel != nil {
		cancel()
	}

	u.wg.Wait()
	u.Stop()

	return err
}

// Stop terminates the application loop and releases resources.
func (u *UI) Stop() {
	u.stopOnce.Do(func() {
		u.cancelMu.Lock()
		cancel := u.cancel
		u.cancel = nil
		u.cancelMu.Unlock()
		if cancel != nil {
			cancel()
		}
		u.app.Stop()
	})
}

func (u *UI) pollJobs(ctx context.Context) {
	ticker := time.NewTicker(u.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			u.exec.Drain()
			u.app.QueueUpdateDraw(u.refreshTable)
		}
	}
}

func (u *UI) handleKey(event *tcell.EventKey) *tcell.EventKey {
	if event.Key() == tcell.KeyTab {
		u.toggleFocus()
		return nil
	}
	if u.app.GetFocus() != u.table {
		return event
	}
	if event.Key() != tcell.KeyRune {
		return event
	}
	switch event.Rune() {
	case 'q', 'Q':
		go u.Stop()
		return nil
	case 'k':
		u.runOnSelected("bgkill")
		return nil
	case 's':
		u.runOnSelected("bgstop")
		return nil
	case 'c':
		u.runOnSelected("bgstart")
		return nil
	case 'p':
		u.runOnSelected("pstat")
		return nil
	}
	return event
}

func (u *UI) toggleFocus() {
	if u.tableFocused {
		u.app.SetFocus(u.input)
	} else {
		u.app.SetFocus(u.table)
	}
	u.tableFocused = !u.tableFocused
}

func (u *UI) runOnSelected(command string) {
	pid := u.selected
	if pid == 0 {
		return
	}
	u.runCommand(command + " " + strconv.Itoa(pid))
}

// runCommand executes line on the UI goroutine and redraws the table.
func (u *UI) runCommand(line string) {
	if strings.TrimSpace(line) == "" || u.exec == nil {
		return
	}
	fmt.Fprintf(u.output, "> %s\n", line)
	u.exec.Execute(line)
	u.output.ScrollToEnd()
	u.refreshTable()
}

func (u *UI) refreshTable() {
	var jobs []job.Job
	if u.exec != nil {
		jobs = u.exec.Jobs()
	}
	u.renderTable(jobs)
}

func (u *UI) renderTable(jobs []job.Job) {
	u.table.Clear()

	headers := []string{"PID", "COMMAND", "STATE", "AGE"}
	for col, header := range headers {
		cell := tview.NewTableCell(header).
			SetSelectable(false).
			SetAttributes(tcell.AttrBold)
		u.table.SetCell(0, col, cell)
	}

	u.visible = jobs
	active := 0
	for row, j := range jobs {
		state := "Running"
		color := tcell.ColorGreen
		if j.Stopped {
			state = "Stopped"
			color = tcell.ColorYellow
		} else {
			active++
		}
		values := []string{
			strconv.Itoa(j.PID),
			formatCommand(j.Command),
			state,
			formatAge(j.StartedAt),
		}
		for col, value := range values {
			cell := tview.NewTableCell(value)
			switch col {
			case 0:
				cell = cell.SetReference(j.PID)
			case 2:
				cell = cell.SetTextColor(color)
			}
			u.table.SetCell(row+1, col, cell)
		}
	}
	u.table.SetTitle(fmt.Sprintf("%s (%d active, %d total)", tableTitle, active, len(jobs)))

	u.ensureSelection()
}

func (u *UI) ensureSelection() {
	if len(u.visible) == 0 {
		u.selected = 0
		u.table.Select(0, 0)
		return
	}

	idx := -1
	for i, j := range u.visible {
		if j.PID == u.selected {
			idx = i
			break
		}
	}
	if idx < 0 {
		idx = 0
		u.selected = u.visible[0].PID
	}
	u.table.Select(idx+1, 0)
}

func (u *UI) syncSelection(row int) {
	if row <= 0 || row-1 >= len(u.visible) {
		return
	}
	u.selected = u.visible[row-1].PID
}

func formatCommand(command string) string {
	command = cliutil.RedactSecrets(command)
	if len(command) > maxCommandWidth {
		command = command[:maxCommandWidth-3] + "..."
	}
	return command
}

func formatAge(started time.Time) string {
	if started.IsZero() {
		return "-"
	}
	return time.Since(started).Truncate(time.Second).String()
}
