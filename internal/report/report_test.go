package report

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/Paintersrp/pman/internal/job"
	"github.com/Paintersrp/pman/internal/procinfo"
)

type fakeInspector struct {
	exes   map[int]string
	stats  map[int]procinfo.Stat
	status map[int]procinfo.Status
}

func (f *fakeInspector) Executable(pid int) (string, error) {
	if exe, ok := f.exes[pid]; ok {
		return exe, nil
	}
	return "", fmt.Errorf("%w: %d", procinfo.ErrProcessNotFound, pid)
}

func (f *fakeInspector) Stat(pid int) (procinfo.Stat, error) {
	if st, ok := f.stats[pid]; ok {
		return st, nil
	}
	return procinfo.Stat{}, fmt.Errorf("%w: %d", procinfo.ErrProcessNotFound, pid)
}

func (f *fakeInspector) Status(pid int) (procinfo.Status, error) {
	if st, ok := f.status[pid]; ok {
		return st, nil
	}
	return procinfo.Status{}, fmt.Errorf("%w: %d", procinfo.ErrProcessNotFound, pid)
}

func TestListActiveSkipsStoppedJobs(t *testing.T) {
	reg := job.NewRegistry()
	for _, pid := range []int{100, 200, 300} {
		reg.Insert(pid, "cmd")
	}
	reg.SetStopped(200, true)

	inspector := &fakeInspector{exes: map[int]string{
		100: "/usr/bin/sleep",
		200: "/usr/bin/yes",
		300: "/usr/bin/top",
	}}
	var out bytes.Buffer
	r := New(reg, inspector, &out)

	if n := r.ListActive(); n != 2 {
		t.Fatalf("expected 2 active jobs, got %d", n)
	}
	want := "100: /usr/bin/sleep\n300: /usr/bin/top\nTotal background jobs: 2\n"
	if out.String() != want {
		t.Fatalf("unexpected listing:\n%s\nwant:\n%s", out.String(), want)
	}
}

func TestListActiveContinuesWhenPathUnavailable(t *testing.T) {
	reg := job.NewRegistry()
	reg.Insert(1, "cmd")
	reg.Insert(2, "cmd")

	inspector := &fakeInspector{exes: map[int]string{2: "/bin/true"}}
	var out bytes.Buffer
	r := New(reg, inspector, &out)

	if n := r.ListActive(); n != 2 {
		t.Fatalf("expected both jobs counted, got %d", n)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %q", out.String())
	}
	if !strings.HasPrefix(lines[0], "1: Error: can't fetch path") {
		t.Fatalf("expected path error note, got %q", lines[0])
	}
	if lines[1] != "2: /bin/true" {
		t.Fatalf("unexpected second line %q", lines[1])
	}
}

func TestListActiveCountMatchesRegistry(t *testing.T) {
	reg := job.NewRegistry()
	for pid := 1; pid <= 10; pid++ {
		reg.Insert(pid, "cmd")
		if pid%3 == 0 {
			reg.SetStopped(pid, true)
		}
	}
	r := New(reg, &fakeInspector{}, nil)
	if got, want := r.ListActive(), reg.Active(); got != want {
		t.Fatalf("listed %d jobs, registry has %d active", got, want)
	}
}

func TestDescribe(t *testing.T) {
	inspector := &fakeInspector{
		stats: map[int]procinfo.Stat{
			42: {Comm: "sleep", State: "S", UTime: 7, STime: 3, RSS: 317, RSSBytes: 317 * 4096},
		},
		status: map[int]procinfo.Status{
			42: {VoluntaryCtxtSwitches: 3, NonVoluntaryCtxtSwitches: 1},
		},
	}
	var out bytes.Buffer
	r := New(job.NewRegistry(), inspector, &out)

	if err := r.Describe("42"); err != nil {
		t.Fatalf("Describe: %v", err)
	}
	for _, line := range []string{
		"Comm: sleep\n",
		"State: S\n",
		"UTime: 7\n",
		"STime: 3\n",
		"RSS: 317 (1.238MiB)\n",
		"voluntary_ctxt_switches:\t3\n",
		"nonvoluntary_ctxt_switches:\t1\n",
	} {
		if !strings.Contains(out.String(), line) {
			t.Fatalf("expected %q in output:\n%s", line, out.String())
		}
	}
}

func TestDescribeWithoutStatusRecord(t *testing.T) {
	inspector := &fakeInspector{stats: map[int]procinfo.Stat{7: {Comm: "x", State: "R"}}}
	var out bytes.Buffer
	r := New(job.NewRegistry(), inspector, &out)
	if err := r.Describe("7"); err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if strings.Contains(out.String(), "ctxt_switches") {
		t.Fatalf("unexpected status lines:\n%s", out.String())
	}
}

func TestDescribeErrors(t *testing.T) {
	r := New(job.NewRegistry(), &fakeInspector{}, nil)

	if err := r.Describe(""); !errors.Is(err, job.ErrMissingArgument) {
		t.Fatalf("expected ErrMissingArgument, got %v", err)
	}
	if err := r.Describe("nope"); !errors.Is(err, job.ErrInvalidProcessID) {
		t.Fatalf("expected ErrInvalidProcessID, got %v", err)
	}
	if err := r.Describe("9999"); !errors.Is(err, procinfo.ErrProcessNotFound) {
		t.Fatalf("expected ErrProcessNotFound, got %v", err)
	}
}
