// Package procinfo reads process facts from a proc filesystem.
package procinfo

import (
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/procfs"
)

// ErrProcessNotFound is returned when the proc filesystem has no entry, or no
// readable record, for a process.
var ErrProcessNotFound = errors.New("process does not exist")

// Stat holds the fields of /proc/<pid>/stat shown to operators.
type Stat struct {
	Comm  string
	State string
	// UTime and STime are in clock ticks.
	UTime uint
	STime uint
	// RSS is in pages; RSSBytes is the same value scaled by the page size.
	RSS      int
	RSSBytes int
}

// Status holds the context switch counters of /proc/<pid>/status.
type Status struct {
	VoluntaryCtxtSwitches    uint64
	NonVoluntaryCtxtSwitches uint64
}

// Inspector resolves process facts by pid.
type Inspector interface {
	Executable(pid int) (string, error)
	Stat(pid int) (Stat, error)
	Status(pid int) (Status, error)
}

// FS is an Inspector backed by prometheus/procfs.
type FS struct {
	fs procfs.FS
}

// New opens the proc filesystem mounted at mountPoint. An empty mount point
// selects /proc.
func New(mountPoint string) (*FS, error) {
	if mountPoint == "" {
		mountPoint = procfs.DefaultMountPoint
	}
	fs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return nil, fmt.Errorf("open proc filesystem %s: %w", mountPoint, err)
	}
	return &FS{fs: fs}, nil
}

func (f *FS) proc(pid int) (procfs.Proc, error) {
	p, err := f.fs.Proc(pid)
	if err != nil {
		return procfs.Proc{}, notFound(pid, err)
	}
	return p, nil
}

// Executable returns the resolved path of the running executable.
func (f *FS) Executable(pid int) (string, error) {
	p, err := f.proc(pid)
	if err != nil {
		return "", err
	}
	exe, err := p.Executable()
	if err != nil {
		return "", fmt.Errorf("read executable of %d: %w", pid, err)
	}
	if exe == "" {
		return "", fmt.Errorf("%w: %d has no executable link", ErrProcessNotFound, pid)
	}
	return exe, nil
}

// Stat parses /proc/<pid>/stat.
func (f *FS) Stat(pid int) (Stat, error) {
	p, err := f.proc(pid)
	if err != nil {
		return Stat{}, err
	}
	st, err := p.Stat()
	if err != nil {
		return Stat{}, notFound(pid, err)
	}
	return Stat{
		Comm:     st.Comm,
		State:    st.State,
		UTime:    st.UTime,
		STime:    st.STime,
		RSS:      st.RSS,
		RSSBytes: st.ResidentMemory(),
	}, nil
}

// Status parses the context switch lines of /proc/<pid>/status.
func (f *FS) Status(pid int) (Status, error) {
	p, err := f.proc(pid)
	if err != nil {
		return Status{}, err
	}
	st, err := p.NewStatus()
	if err != nil {
		return Status{}, notFound(pid, err)
	}
	return Status{
		VoluntaryCtxtSwitches:    st.VoluntaryCtxtSwitches,
		NonVoluntaryCtxtSwitches: st.NonVoluntaryCtxtSwitches,
	}, nil
}

func notFound(pid int, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %d", ErrProcessNotFound, pid)
	}
	return fmt.Errorf("%w: %d: %w", ErrProcessNotFound, pid, err)
}
