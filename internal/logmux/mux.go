// Package logmux decouples job event producers from a slow writer.
package logmux

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Paintersrp/pman/internal/cliutil"
	"github.com/Paintersrp/pman/internal/reaper"
)

// DroppedKind tags the synthesized record reporting discarded events.
const DroppedKind = "dropped"

// Mux delivers reaper events to a writer through a bounded channel. Publish
// never blocks: when the writer cannot keep up and the buffer would overflow,
// the mux drops events and later emits a synthesized record carrying the
// number of discarded entries.
type Mux struct {
	out  chan entry
	done chan struct{}

	mu     sync.Mutex
	drops  int
	closed bool
}

type entry struct {
	event   reaper.Event
	dropped int
}

// New constructs a mux backed by a channel of the provided size and starts
// writing JSON records to w. Encoding errors are reported on stderr. A size of
// zero results in a minimally buffered channel.
func New(size int, w io.Writer, stderr io.Writer) *Mux {
	if size <= 0 {
		size = 1
	}
	if stderr == nil {
		stderr = io.Discard
	}
	m := &Mux{
		out:  make(chan entry, size),
		done: make(chan struct{}),
	}
	go m.run(json.NewEncoder(w), stderr)
	return m
}

// Publish queues evt for writing. Events published after Close are ignored.
func (m *Mux) Publish(evt reaper.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if !m.flushPendingLocked() {
		m.drops++
		return
	}
	if !m.trySend(entry{event: evt}) {
		m.drops++
	}
}

// Close flushes pending drop metadata, waits for queued records to be
// written and stops the writer.
func (m *Mux) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		<-m.done
		return nil
	}
	m.closed = true
	if m.drops > 0 {
		m.out <- entry{dropped: m.drops}
		m.drops = 0
	}
	close(m.out)
	m.mu.Unlock()

	<-m.done
	return nil
}

func (m *Mux) flushPendingLocked() bool {
	if m.drops == 0 {
		return true
	}
	if !m.trySend(entry{dropped: m.drops}) {
		return false
	}
	m.drops = 0
	return true
}

func (m *Mux) trySend(e entry) bool {
	select {
	case m.out <- e:
		return true
	default:
		return false
	}
}

func (m *Mux) run(enc *json.Encoder, stderr io.Writer) {
	defer close(m.done)
	for e := range m.out {
		if e.dropped > 0 {
			record := synthesizeDropRecord(e.dropped)
			if err := enc.Encode(&record); err != nil {
				fmt.Fprintf(stderr, "error: encode event: %v\n", err)
			}
			continue
		}
		cliutil.EncodeEvent(enc, stderr, e.event)
	}
}

func synthesizeDropRecord(count int) cliutil.EventRecord {
	return cliutil.EventRecord{
		Timestamp: time.Now(),
		Kind:      DroppedKind,
		Level:     "warn",
		Dropped:   count,
	}
}
