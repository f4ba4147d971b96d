package dispatch

import (
	"errors"
	"syscall"
	"testing"

	"github.com/Paintersrp/pman/internal/job"
	"github.com/Paintersrp/pman/internal/logging"
)

type sent struct {
	pid int
	sig syscall.Signal
}

type recorder struct {
	calls []sent
	err   error
}

func (r *recorder) send(pid int, sig syscall.Signal) error {
	r.calls = append(r.calls, sent{pid: pid, sig: sig})
	return r.err
}

func newTestDispatcher(rec *recorder) *Dispatcher {
	return New(WithSendFunc(rec.send), WithLogger(logging.Discard()))
}

func TestRequestsSendMatchingSignal(t *testing.T) {
	rec := &recorder{}
	d := newTestDispatcher(rec)

	ops := []struct {
		name string
		fn   func(string) (int, error)
		want syscall.Signal
	}{
		{name: "terminate", fn: d.RequestTermination, want: syscall.SIGTERM},
		{name: "stop", fn: d.RequestStop, want: syscall.SIGSTOP},
		{name: "resume", fn: d.RequestResume, want: syscall.SIGCONT},
	}

	for i, op := range ops {
		pid, err := op.fn("4321")
		if err != nil {
			t.Fatalf("%s: unexpected error %v", op.name, err)
		}
		if pid != 4321 {
			t.Fatalf("%s: pid %d, want 4321", op.name, pid)
		}
		if len(rec.calls) != i+1 {
			t.Fatalf("%s: expected %d sends, got %d", op.name, i+1, len(rec.calls))
		}
		if got := rec.calls[i]; got.pid != 4321 || got.sig != op.want {
			t.Fatalf("%s: sent %+v, want pid 4321 sig %v", op.name, got, op.want)
		}
	}
}

func TestRequestValidatesBeforeSending(t *testing.T) {
	tests := map[string]error{
		"":    job.ErrMissingArgument,
		"0":   job.ErrInvalidProcessID,
		"abc": job.ErrInvalidProcessID,
		"-1":  job.ErrInvalidProcessID,
	}
	for input, want := range tests {
		rec := &recorder{}
		d := newTestDispatcher(rec)
		if _, err := d.RequestTermination(input); !errors.Is(err, want) {
			t.Fatalf("RequestTermination(%q) error = %v, want %v", input, err, want)
		}
		if len(rec.calls) != 0 {
			t.Fatalf("RequestTermination(%q) sent a signal: %+v", input, rec.calls)
		}
	}
}

func TestRequestReportsOSRejectionAsInvalidID(t *testing.T) {
	rec := &recorder{err: syscall.ESRCH}
	d := newTestDispatcher(rec)

	_, err := d.RequestStop("999999")
	if !errors.Is(err, job.ErrInvalidProcessID) {
		t.Fatalf("expected ErrInvalidProcessID, got %v", err)
	}
	if !errors.Is(err, syscall.ESRCH) {
		t.Fatalf("expected OS error to be wrapped, got %v", err)
	}
}

func TestRequestDoesNotRequireTrackedJob(t *testing.T) {
	rec := &recorder{}
	d := newTestDispatcher(rec)
	if _, err := d.RequestResume("1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.calls) != 1 || rec.calls[0].pid != 1 {
		t.Fatalf("expected signal to pid 1, got %+v", rec.calls)
	}
}
