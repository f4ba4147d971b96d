package api

import (
	stdcontext "context"
	"errors"
	"fmt"
	"time"

	"github.com/Paintersrp/pman/internal/cliutil"
	"github.com/Paintersrp/pman/internal/job"
	"github.com/Paintersrp/pman/internal/procinfo"
)

// RegistryController answers API queries from a job registry.
type RegistryController struct {
	registry  *job.Registry
	inspector procinfo.Inspector
	now       func() time.Time
}

// NewRegistryController constructs a controller. A nil inspector limits Job
// to registry data.
func NewRegistryController(reg *job.Registry, inspector procinfo.Inspector) *RegistryController {
	return &RegistryController{registry: reg, inspector: inspector, now: time.Now}
}

// Jobs reports every tracked job. Command text is redacted.
func (c *RegistryController) Jobs(ctx stdcontext.Context) (*JobsReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := c.now()
	report := &JobsReport{GeneratedAt: now.UTC(), Jobs: []JobReport{}}
	for j := range c.registry.List() {
		report.Jobs = append(report.Jobs, c.jobReport(j, now))
		if !j.Stopped {
			report.Active++
		}
	}
	report.Total = len(report.Jobs)
	return report, nil
}

// Job reports a tracked job together with its process details.
func (c *RegistryController) Job(ctx stdcontext.Context, pid int) (*ProcessReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	j, ok := c.registry.Find(pid)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownJob, pid)
	}
	report := &ProcessReport{Job: c.jobReport(j, c.now())}
	if c.inspector == nil {
		return report, nil
	}

	exe, err := c.inspector.Executable(pid)
	if err != nil {
		return nil, c.wrapInspectError(pid, err)
	}
	st, err := c.inspector.Stat(pid)
	if err != nil {
		return nil, c.wrapInspectError(pid, err)
	}
	report.Executable = exe
	report.Comm = st.Comm
	report.State = st.State
	report.UTime = st.UTime
	report.STime = st.STime
	report.RSSPages = st.RSS
	report.RSSBytes = st.RSSBytes

	status, err := c.inspector.Status(pid)
	switch {
	case err == nil:
		report.VoluntaryCtxtSwitches = status.VoluntaryCtxtSwitches
		report.NonVoluntaryCtxtSwitches = status.NonVoluntaryCtxtSwitches
	case !errors.Is(err, procinfo.ErrProcessNotFound):
		return nil, err
	}
	return report, nil
}

func (c *RegistryController) wrapInspectError(pid int, err error) error {
	if errors.Is(err, procinfo.ErrProcessNotFound) {
		return fmt.Errorf("%w: %d: %w", ErrProcessMissing, pid, err)
	}
	return err
}

func (c *RegistryController) jobReport(j job.Job, now time.Time) JobReport {
	state := "running"
	if j.Stopped {
		state = "stopped"
	}
	return JobReport{
		PID:           j.PID,
		Command:       cliutil.RedactSecrets(j.Command),
		State:         state,
		Stopped:       j.Stopped,
		StartedAt:     j.StartedAt.UTC(),
		UptimeSeconds: now.Sub(j.StartedAt).Seconds(),
	}
}
