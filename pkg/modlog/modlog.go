// Package modlog keeps an append-only modification log per trip so an
// orchestrator can audit which agent changed what, and when.
package modlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// FileName is the log's well-known name inside a trip directory.
const FileName = "modifications.log.json"

// Entry is one accepted mutation of a trip.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Agent     string    `json:"agent"`
	Action    string    `json:"action"` // save, save-merge, batch-save, skeleton
	Days      []int     `json:"days,omitempty"`
	Note      string    `json:"note,omitempty"`
}

// Append adds an entry to the trip's log, creating the log on first
// use. The entry gets a fresh UUID and timestamp when absent.
func Append(tripDir string, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	entries, err := Read(tripDir)
	if err != nil {
		return err
	}
	entries = append(entries, e)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode modification log: %w", err)
	}
	path := filepath.Join(tripDir, FileName)
	tmp, err := os.CreateTemp(tripDir, FileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("stage modification log: %w", err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write modification log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write modification log: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("commit modification log: %w", err)
	}
	return nil
}

// Read returns the trip's log entries, oldest first. A missing log is
// an empty list, not an error.
func Read(tripDir string) ([]Entry, error) {
	data, err := os.ReadFile(filepath.Join(tripDir, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read modification log: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse modification log: %w", err)
	}
	return entries, nil
}
