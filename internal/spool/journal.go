// Package spool persists events that could not be delivered while the
// process was alive and replays event files dropped into an inbox
// directory. The journal is a plain JSONL file, one event per line, so it
// can be inspected with standard tools and replayed via the CLI.
package spool

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/agentguard/agentguard-go/internal/model"
)

// Journal is an append-only JSONL file of execution events.
type Journal struct {
	path string
	mu   sync.Mutex
}

// NewJournal creates a journal backed by the given file path. The file is
// created on first append.
func NewJournal(path string) *Journal {
	return &Journal{path: path}
}

// Path returns the backing file path.
func (j *Journal) Path() string {
	return j.path
}

// Append writes one event as a JSON line.
func (j *Journal) Append(ev model.ExecutionEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(j.path), 0o700); err != nil {
		return fmt.Errorf("spool: create directory: %w", err)
	}
	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("spool: open journal: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(ev); err != nil {
		return fmt.Errorf("spool: write event: %w", err)
	}
	return nil
}

// ReadAll returns every journaled event in append order. A missing file is
// an empty journal, not an error. Lines that fail to parse are skipped.
func (j *Journal) ReadAll() ([]model.ExecutionEvent, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.Open(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("spool: open journal: %w", err)
	}
	defer f.Close()

	var events []model.ExecutionEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var ev model.ExecutionEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("spool: scan journal: %w", err)
	}
	return events, nil
}

// Clear removes the journal file after a successful replay.
func (j *Journal) Clear() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := os.Remove(j.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("spool: clear journal: %w", err)
	}
	return nil
}
