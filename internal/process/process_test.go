package process

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	stdruntime "runtime"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/Paintersrp/pman/internal/job"
	"github.com/Paintersrp/pman/internal/logging"
	"github.com/Paintersrp/pman/internal/reaper"
)

type countingDrainer struct {
	calls int
	locks int
}

func (d *countingDrainer) Drain() []reaper.Event {
	d.calls++
	return nil
}

func (d *countingDrainer) Locked(fn func()) {
	d.locks++
	fn()
}

func requireShell(t *testing.T) {
	t.Helper()
	if stdruntime.GOOS != "linux" {
		t.Skip("launcher tests require linux")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestLaunchRegistersJob(t *testing.T) {
	requireShell(t)

	reg := job.NewRegistry()
	drainer := &countingDrainer{}
	l := New(reg, WithDrainer(drainer), WithLogger(logging.Discard()))

	j, err := l.Launch([]string{"sh", "-c", "exit 0"})
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if j.PID <= 0 {
		t.Fatalf("expected positive pid, got %d", j.PID)
	}
	if j.Command != "sh -c exit 0" {
		t.Fatalf("unexpected command text %q", j.Command)
	}
	if j.Stopped {
		t.Fatalf("new job must not be stopped")
	}
	if _, ok := reg.Find(j.PID); !ok {
		t.Fatalf("job %d not registered", j.PID)
	}
	if drainer.calls != 1 {
		t.Fatalf("expected one drain after launch, got %d", drainer.calls)
	}
	if drainer.locks != 1 {
		t.Fatalf("expected start and insert under one lock, got %d", drainer.locks)
	}

	// Collect the child so it does not outlive the test.
	rp := reaper.New(reg, reaper.WithLogger(logging.Discard()))
	deadline := time.Now().Add(5 * time.Second)
	for reg.Len() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("child %d was never reaped", j.PID)
		}
		rp.Drain()
		time.Sleep(10 * time.Millisecond)
	}
}

func TestLaunchPassesOutputAndEnv(t *testing.T) {
	requireShell(t)

	stdout, err := os.Create(filepath.Join(t.TempDir(), "stdout"))
	if err != nil {
		t.Fatalf("create stdout file: %v", err)
	}
	defer stdout.Close()

	reg := job.NewRegistry()
	l := New(reg,
		WithOutput(stdout, nil),
		WithEnv([]string{"PMAN_TEST_VALUE=hello", "PATH=/usr/bin:/bin"}),
		WithLogger(logging.Discard()),
	)
	if _, err := l.Launch([]string{"sh", "-c", `printf "%s" "$PMAN_TEST_VALUE"`}); err != nil {
		t.Fatalf("launch: %v", err)
	}

	rp := reaper.New(reg, reaper.WithLogger(logging.Discard()))
	deadline := time.Now().Add(5 * time.Second)
	for reg.Len() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("child never exited")
		}
		rp.Drain()
		time.Sleep(10 * time.Millisecond)
	}

	data, err := readFile(stdout.Name())
	if err != nil {
		t.Fatalf("read child output: %v", err)
	}
	if data != "hello" {
		t.Fatalf("expected child to write its environment to stdout, got %q", data)
	}
}

func TestLaunchDuringConcurrentDrainsLeavesNoStaleJobs(t *testing.T) {
	requireShell(t)
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true not available")
	}

	reg := job.NewRegistry()
	rp := reaper.New(reg, reaper.WithLogger(logging.Discard()))
	l := New(reg, WithDrainer(rp), WithLogger(logging.Discard()))

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
				rp.Drain()
			}
		}
	}()

	for i := 0; i < 200; i++ {
		if _, err := l.Launch([]string{"true"}); err != nil {
			close(stop)
			<-done
			t.Fatalf("launch %d: %v", i, err)
		}
	}
	close(stop)
	<-done

	deadline := time.Now().Add(5 * time.Second)
	for reg.Len() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("jobs remain after every child exited: %d, e.g. %+v", reg.Len(), reg.Snapshot()[0])
		}
		rp.Drain()
		time.Sleep(10 * time.Millisecond)
	}
}

func TestLaunchMissingProgram(t *testing.T) {
	reg := job.NewRegistry()
	drainer := &countingDrainer{}
	l := New(reg, WithDrainer(drainer), WithLogger(logging.Discard()))

	_, err := l.Launch([]string{"nonexistent-binary-xyz", "--flag"})
	if !errors.Is(err, ErrSpawnFailure) {
		t.Fatalf("expected spawn failure, got %v", err)
	}
	if !errors.Is(err, exec.ErrNotFound) {
		t.Fatalf("expected lookup cause to be preserved, got %v", err)
	}
	if reg.Len() != 0 {
		t.Fatalf("failed launch must not register a job")
	}
	if drainer.calls != 0 {
		t.Fatalf("failed launch should not drain, got %d calls", drainer.calls)
	}
}

func TestLaunchEmptyCommand(t *testing.T) {
	reg := job.NewRegistry()
	l := New(reg, WithLogger(logging.Discard()))

	_, err := l.Launch(nil)
	if !errors.Is(err, ErrSpawnFailure) || !errors.Is(err, ErrEmptyCommand) {
		t.Fatalf("expected empty command spawn failure, got %v", err)
	}
	if reg.Len() != 0 {
		t.Fatalf("expected empty registry")
	}
}

func TestInheritEnvReplacesPath(t *testing.T) {
	env := []string{"HOME=/root", "PATH=/old", "LANG=C", "PATHEXT=.exe"}
	got := InheritEnv(env, "/usr/local/bin:/usr/bin")

	want := []string{"HOME=/root", "LANG=C", "PATHEXT=.exe", "PATH=/usr/local/bin:/usr/bin"}
	if !slices.Equal(got, want) {
		t.Fatalf("InheritEnv = %q, want %q", got, want)
	}
	if !strings.HasPrefix(env[1], "PATH=/old") {
		t.Fatalf("input environment modified: %q", env)
	}
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	return string(data), err
}
