package job

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"
	"time"
)

var (
	// ErrDuplicateID is returned when a job with the same process ID is
	// already registered.
	ErrDuplicateID = errors.New("duplicate process id")
	// ErrNotFound is returned when no job is registered for a process ID.
	ErrNotFound = errors.New("job not found")
)

// Job describes a single background process owned by the supervisor.
type Job struct {
	PID       int
	Command   string
	Stopped   bool
	StartedAt time.Time
}

// Registry is the ordered set of tracked jobs keyed by process ID. It is safe
// for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	order []int
	jobs  map[int]*Job

	now func() time.Time
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		jobs: make(map[int]*Job),
		now:  time.Now,
	}
}

// Insert registers a running job. The job starts out not stopped.
func (r *Registry) Insert(pid int, command string) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[pid]; ok {
		return Job{}, fmt.Errorf("insert %d: %w", pid, ErrDuplicateID)
	}
	j := &Job{PID: pid, Command: command, StartedAt: r.now()}
	r.jobs[pid] = j
	r.order = append(r.order, pid)
	return *j, nil
}

// Remove deletes the job for pid, keeping the relative order of the rest.
func (r *Registry) Remove(pid int) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[pid]
	if !ok {
		return Job{}, fmt.Errorf("remove %d: %w", pid, ErrNotFound)
	}
	delete(r.jobs, pid)
	if idx := slices.Index(r.order, pid); idx >= 0 {
		r.order = slices.Delete(r.order, idx, idx+1)
	}
	return *j, nil
}

// SetStopped records a stop or continue transition. Unknown process IDs are
// ignored and reported via the boolean result.
func (r *Registry) SetStopped(pid int, stopped bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[pid]
	if !ok {
		return false
	}
	j.Stopped = stopped
	return true
}

// Find returns a copy of the job registered for pid.
func (r *Registry) Find(pid int) (Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	j, ok := r.jobs[pid]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// List yields jobs in insertion order. Each range over the sequence works on
// a fresh snapshot, so callers may mutate the registry while iterating.
func (r *Registry) List() iter.Seq[Job] {
	return func(yield func(Job) bool) {
		for _, j := range r.Snapshot() {
			if !yield(j) {
				return
			}
		}
	}
}

// Snapshot returns copies of all jobs in insertion order.
func (r *Registry) Snapshot() []Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Job, 0, len(r.order))
	for _, pid := range r.order {
		out = append(out, *r.jobs[pid])
	}
	return out
}

// Len reports the number of tracked jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Active counts jobs that are not stopped.
func (r *Registry) Active() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, j := range r.jobs {
		if !j.Stopped {
			n++
		}
	}
	return n
}
