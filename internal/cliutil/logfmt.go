package cliutil

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Paintersrp/pman/internal/reaper"
)

// EventRecord represents a job status change ready for JSON encoding.
type EventRecord struct {
	Timestamp time.Time `json:"ts"`
	PID       int       `json:"pid"`
	Command   string    `json:"command,omitempty"`
	Kind      string    `json:"kind"`
	Level     string    `json:"level"`
	ExitCode  *int      `json:"exit_code,omitempty"`
	Signal    string    `json:"signal,omitempty"`
	Tracked   bool      `json:"tracked"`
	// Dropped counts events discarded before this record was written.
	Dropped int `json:"dropped,omitempty"`
}

// NewEventRecord converts a reaper event into a structured record. Command
// text is passed through RedactSecrets.
func NewEventRecord(event reaper.Event) EventRecord {
	record := EventRecord{
		Timestamp: event.Timestamp,
		PID:       event.PID,
		Command:   RedactSecrets(event.Command),
		Kind:      string(event.Kind),
		Level:     inferEventLevel(event),
		Tracked:   event.Tracked,
	}
	if event.Kind == reaper.KindExited {
		code := event.ExitCode
		record.ExitCode = &code
	}
	if event.Signal != 0 {
		record.Signal = event.Signal.String()
	}
	return record
}

func inferEventLevel(event reaper.Event) string {
	switch event.Kind {
	case reaper.KindSignaled:
		return "warn"
	case reaper.KindExited:
		if event.ExitCode != 0 {
			return "warn"
		}
	}
	return "info"
}

// EncodeEvent encodes a reaper event to JSON, reporting errors to stderr if needed.
func EncodeEvent(enc *json.Encoder, stderr io.Writer, event reaper.Event) {
	if enc == nil {
		return
	}
	record := NewEventRecord(event)
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	if err := enc.Encode(&record); err != nil {
		fmt.Fprintf(stderr, "error: encode event: %v\n", err)
	}
}
