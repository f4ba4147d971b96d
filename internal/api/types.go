package api

import (
	stdcontext "context"
	"errors"
	"time"
)

var (
	ErrUnknownJob     = errors.New("unknown job")
	ErrInvalidJobID   = errors.New("invalid job id")
	ErrProcessMissing = errors.New("process not found")
)

// JobReport describes a single tracked job.
type JobReport struct {
	PID           int       `json:"pid"`
	Command       string    `json:"command"`
	State         string    `json:"state"`
	Stopped       bool      `json:"stopped"`
	StartedAt     time.Time `json:"started_at"`
	UptimeSeconds float64   `json:"uptime_seconds"`
}

// JobsReport aggregates every tracked job in launch order.
type JobsReport struct {
	GeneratedAt time.Time   `json:"generated_at"`
	Total       int         `json:"total"`
	Active      int         `json:"active"`
	Jobs        []JobReport `json:"jobs"`
}

// ProcessReport carries /proc details for a tracked job.
type ProcessReport struct {
	Job                      JobReport `json:"job"`
	Executable               string    `json:"executable"`
	Comm                     string    `json:"comm"`
	State                    string    `json:"state"`
	UTime                    uint      `json:"utime"`
	STime                    uint      `json:"stime"`
	RSSPages                 int       `json:"rss_pages"`
	RSSBytes                 int       `json:"rss_bytes"`
	VoluntaryCtxtSwitches    uint64    `json:"voluntary_ctxt_switches"`
	NonVoluntaryCtxtSwitches uint64    `json:"nonvoluntary_ctxt_switches"`
}

// Controller exposes read-only job state to control servers.
type Controller interface {
	Jobs(stdcontext.Context) (*JobsReport, error)
	Job(stdcontext.Context, int) (*ProcessReport, error)
}
