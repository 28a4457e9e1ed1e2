// Package events records pipeline stage transitions as a structured stream.
//
// Each worker appends one JSON object per line to its chunk's event file.
// Reconciliation reads these records back instead of pattern-matching console
// output, so a ledger rebuilt after a crash keeps per-stage granularity.
package events

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Outcome is the result of one stage transition.
type Outcome string

const (
	OutcomeStarted   Outcome = "started"
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// Event is one stage transition for one item.
type Event struct {
	Time    time.Time `json:"ts"`
	RunID   string    `json:"run_id"`
	ItemID  string    `json:"item_id"`
	Stage   string    `json:"stage"`
	Outcome Outcome   `json:"outcome"`
	Detail  string    `json:"detail,omitempty"`
}

// Writer appends events to a file. Safe for concurrent use within one
// process; distinct chunks write distinct files, so workers never share one.
type Writer struct {
	mu    sync.Mutex
	file  *os.File
	runID string
}

// NewWriter opens (or creates) the event file at path.
func NewWriter(path, runID string) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure event directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
	if err != nil {
		return nil, fmt.Errorf("open event file %s: %w", path, err)
	}
	return &Writer{file: file, runID: runID}, nil
}

// Emit appends one event. Write failures are returned but are not fatal to
// processing; the ledger remains the source of truth.
func (w *Writer) Emit(itemID, stage string, outcome Outcome, detail string) error {
	event := Event{
		Time:    time.Now().UTC(),
		RunID:   w.runID,
		ItemID:  itemID,
		Stage:   stage,
		Outcome: outcome,
		Detail:  detail,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	data = append(data, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.file.Write(data); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// Close flushes and closes the event file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// Read parses every event in the file at path. Unparseable lines are skipped:
// a torn trailing write after a crash must not invalidate the rest of the
// stream.
func Read(path string) ([]Event, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return decode(file)
}

func decode(r io.Reader) ([]Event, error) {
	var events []Event
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var event Event
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue
		}
		if event.ItemID == "" || event.Stage == "" {
			continue
		}
		events = append(events, event)
	}
	return events, scanner.Err()
}
