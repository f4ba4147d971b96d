// Package report renders job and process information for operators.
package report

import (
	"errors"
	"fmt"
	"io"

	units "github.com/docker/go-units"

	"github.com/Paintersrp/pman/internal/job"
	"github.com/Paintersrp/pman/internal/procinfo"
)

// Reporter writes job listings and process details to an operator stream.
type Reporter struct {
	registry  *job.Registry
	inspector procinfo.Inspector
	out       io.Writer
}

// New constructs a reporter.
func New(reg *job.Registry, inspector procinfo.Inspector, out io.Writer) *Reporter {
	if out == nil {
		out = io.Discard
	}
	return &Reporter{registry: reg, inspector: inspector, out: out}
}

// ListActive prints every job that is not stopped along with its executable
// path, followed by the total. It returns the number of jobs listed.
func (r *Reporter) ListActive() int {
	count := 0
	for j := range r.registry.List() {
		if j.Stopped {
			continue
		}
		exe, err := r.inspector.Executable(j.PID)
		if err != nil {
			fmt.Fprintf(r.out, "%d: Error: can't fetch path: %v\n", j.PID, err)
		} else {
			fmt.Fprintf(r.out, "%d: %s\n", j.PID, exe)
		}
		count++
	}
	fmt.Fprintf(r.out, "Total background jobs: %d\n", count)
	return count
}

// Describe prints stat and status details for the process named by idText.
// The process does not have to be a tracked job.
func (r *Reporter) Describe(idText string) error {
	pid, err := job.ParsePID(idText)
	if err != nil {
		return err
	}

	st, err := r.inspector.Stat(pid)
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out, "Comm: %s\n", st.Comm)
	fmt.Fprintf(r.out, "State: %s\n", st.State)
	fmt.Fprintf(r.out, "UTime: %d\n", st.UTime)
	fmt.Fprintf(r.out, "STime: %d\n", st.STime)
	fmt.Fprintf(r.out, "RSS: %d (%s)\n", st.RSS, units.BytesSize(float64(st.RSSBytes)))

	status, err := r.inspector.Status(pid)
	if err != nil {
		// The process may exit between the two reads.
		if errors.Is(err, procinfo.ErrProcessNotFound) {
			return nil
		}
		return err
	}
	fmt.Fprintf(r.out, "voluntary_ctxt_switches:\t%d\n", status.VoluntaryCtxtSwitches)
	fmt.Fprintf(r.out, "nonvoluntary_ctxt_switches:\t%d\n", status.NonVoluntaryCtxtSwitches)
	return nil
}
