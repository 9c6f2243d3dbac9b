// Package store is the persistence layer for trip agent files. Writes
// go through a validate-before-replace gate and a temp-fsync-rename
// sequence, so a reader never observes a truncated or known-bad file.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/tripweaver/tripweaver/pkg/issue"
	"github.com/tripweaver/tripweaver/pkg/modlog"
	"github.com/tripweaver/tripweaver/pkg/trip"
	"github.com/tripweaver/tripweaver/pkg/validate"
)

// ValidationError is returned when a save or validated load is blocked
// by HIGH issues. The report carries the full issue list for display.
type ValidationError struct {
	Agent  string
	Report *issue.Report
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %d HIGH issue(s) block the operation", e.Agent, e.Report.Count(issue.High))
}

// WriteError wraps a failed disk operation. The on-disk state is the
// pre-save state when staging failed, or old-file-plus-backup when the
// final rename failed.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string { return fmt.Sprintf("write %s: %v", e.Path, e.Err) }
func (e *WriteError) Unwrap() error { return e.Err }

// Store binds the validation pipeline to the trip directory layout.
// Log, when set, records every accepted mutation.
type Store struct {
	Pipeline *validate.Pipeline
	Log      bool
}

// New builds a store over a pipeline, with modification logging on.
func New(p *validate.Pipeline) *Store {
	return &Store{Pipeline: p, Log: true}
}

// SaveOptions control one save operation.
type SaveOptions struct {
	Validate  bool // run the gate; off means write whatever was given
	AllowHigh bool // write even when the gate finds HIGH issues
	Backup    bool // rotate the previous file to <agent>.json.bak
	MergeDays bool // merge incoming days into the existing file by day number
}

// DefaultSaveOptions is the safe configuration: validate, no HIGH
// override, keep a backup.
func DefaultSaveOptions() SaveOptions {
	return SaveOptions{Validate: true, Backup: true}
}

// SaveAgent normalizes payload to envelope form and writes it as the
// agent's file. With Validate on, the candidate is substituted into the
// on-disk trip in memory and the full pipeline runs; HIGH issues
// attributed to this agent reject the save and leave the directory
// untouched. The returned report covers this agent's issues even when
// the save is accepted.
func (s *Store) SaveAgent(tripDir, agent string, payload map[string]any, opts SaveOptions) (*issue.Report, error) {
	if !trip.IsAgent(agent) {
		return nil, fmt.Errorf("unknown agent %q", agent)
	}
	env := trip.Normalize(agent, payload)
	f := trip.FromRaw(agent, env)

	action := "save"
	if opts.MergeDays {
		merged, err := s.mergeDays(tripDir, agent, env)
		if err != nil {
			return nil, err
		}
		env = merged
		f = trip.FromRaw(agent, env)
		action = "save-merge"
	}

	var report *issue.Report
	if opts.Validate {
		t, err := trip.LoadDir(tripDir)
		if err != nil {
			return nil, err
		}
		report = scopedReport(s.Pipeline.Run(t.Replace(agent, f)), agent)
		if !report.Pass() && !opts.AllowHigh {
			return report, &ValidationError{Agent: agent, Report: report}
		}
	}

	data, err := encode(env)
	if err != nil {
		return report, err
	}
	if err := writeAtomic(trip.FilePath(tripDir, agent), data, opts.Backup); err != nil {
		return report, err
	}
	if s.Log {
		if err := modlog.Append(tripDir, modlog.Entry{Agent: agent, Action: action, Days: dayNums(f)}); err != nil {
			return report, err
		}
	}
	return report, nil
}

// SaveBatch saves several agents as one unit: validate all candidates
// together, stage every temp file, then commit every rename. A staging
// failure removes all temp files and leaves the directory unchanged.
func (s *Store) SaveBatch(tripDir string, payloads map[string]map[string]any, opts SaveOptions) (*issue.Report, error) {
	agents := make([]string, 0, len(payloads))
	for agent := range payloads {
		if !trip.IsAgent(agent) {
			return nil, fmt.Errorf("unknown agent %q", agent)
		}
		agents = append(agents, agent)
	}
	sort.Strings(agents)

	files := make(map[string]*trip.File, len(agents))
	for _, agent := range agents {
		files[agent] = trip.FromRaw(agent, trip.Normalize(agent, payloads[agent]))
	}

	var report *issue.Report
	if opts.Validate {
		t, err := trip.LoadDir(tripDir)
		if err != nil {
			return nil, err
		}
		candidate := t
		for _, agent := range agents {
			candidate = candidate.Replace(agent, files[agent])
		}
		full := s.Pipeline.Run(candidate)
		report = batchReport(full, agents)
		if !report.Pass() && !opts.AllowHigh {
			return report, &ValidationError{Agent: "batch", Report: report}
		}
	}

	// Stage every temp file before touching any target.
	staged := make(map[string]string, len(agents))
	cleanup := func() {
		for _, tmp := range staged {
			os.Remove(tmp)
		}
	}
	for _, agent := range agents {
		data, err := encode(files[agent].Raw)
		if err != nil {
			cleanup()
			return report, err
		}
		tmp, err := stageTemp(trip.FilePath(tripDir, agent), data)
		if err != nil {
			cleanup()
			return report, err
		}
		staged[agent] = tmp
	}

	// Commit phase: rotate backups and rename into place.
	for _, agent := range agents {
		path := trip.FilePath(tripDir, agent)
		if opts.Backup {
			if _, err := os.Stat(path); err == nil {
				if err := os.Rename(path, path+".bak"); err != nil {
					cleanup()
					return report, &WriteError{Path: path, Err: err}
				}
			}
		}
		if err := os.Rename(staged[agent], path); err != nil {
			cleanup()
			return report, &WriteError{Path: path, Err: err}
		}
		delete(staged, agent)
	}

	if s.Log {
		for _, agent := range agents {
			if err := modlog.Append(tripDir, modlog.Entry{Agent: agent, Action: "batch-save", Days: dayNums(files[agent])}); err != nil {
				return report, err
			}
		}
	}
	return report, nil
}

// mergeDays folds the incoming envelope's days into the existing file
// by day number: matching days are replaced, new days appended, and
// the result is sorted by day. A missing existing file merges into the
// incoming document unchanged.
func (s *Store) mergeDays(tripDir, agent string, env map[string]any) (map[string]any, error) {
	existing, err := trip.Load(tripDir, agent)
	if err != nil {
		if os.IsNotExist(err) {
			return env, nil
		}
		return nil, fmt.Errorf("merge-days: %w", err)
	}

	incoming := trip.FromRaw(agent, env)
	byNum := make(map[int]map[string]any)
	var order []int
	for _, d := range existing.Days() {
		n := trip.DayNum(d)
		byNum[n] = d
		order = append(order, n)
	}
	for _, d := range incoming.Days() {
		n := trip.DayNum(d)
		if _, known := byNum[n]; !known {
			order = append(order, n)
		}
		byNum[n] = d
	}
	sort.Ints(order)

	merged := make([]any, 0, len(order))
	for _, n := range order {
		merged = append(merged, byNum[n])
	}

	// Keep the rest of the existing data object (trip totals and the
	// like) unless the incoming document overrides it.
	out := make(map[string]any, len(existing.Raw))
	for k, v := range existing.Raw {
		out[k] = v
	}
	for k, v := range env {
		if k != "data" {
			out[k] = v
		}
	}
	data := make(map[string]any)
	if ed, ok := existing.Raw["data"].(map[string]any); ok {
		for k, v := range ed {
			data[k] = v
		}
	}
	if nd, ok := env["data"].(map[string]any); ok {
		for k, v := range nd {
			if k != "days" {
				data[k] = v
			}
		}
	}
	data["days"] = merged
	out["data"] = data
	return out, nil
}

// scopedReport keeps the issues attributed to one agent. The gate
// judges only those: a pre-existing problem in another file must not
// block this agent's save.
func scopedReport(full *issue.Report, agent string) *issue.Report {
	var kept []issue.Issue
	for _, is := range full.Issues {
		if is.Agent == agent {
			kept = append(kept, is)
		}
	}
	return issue.NewReport(full.Trip, kept)
}

// batchReport keeps the issues attributed to any of the saved agents.
func batchReport(full *issue.Report, agents []string) *issue.Report {
	in := make(map[string]bool, len(agents))
	for _, a := range agents {
		in[a] = true
	}
	var kept []issue.Issue
	for _, is := range full.Issues {
		if in[is.Agent] {
			kept = append(kept, is)
		}
	}
	return issue.NewReport(full.Trip, kept)
}

func dayNums(f *trip.File) []int {
	var nums []int
	for _, d := range f.Days() {
		if n := trip.DayNum(d); n > 0 {
			nums = append(nums, n)
		}
	}
	sort.Ints(nums)
	return nums
}

func encode(env map[string]any) ([]byte, error) {
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return append(data, '\n'), nil
}

// stageTemp writes and fsyncs a sibling temp file next to path.
func stageTemp(path string, data []byte) (string, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", &WriteError{Path: path, Err: err}
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return "", &WriteError{Path: path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(name)
		return "", &WriteError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return "", &WriteError{Path: path, Err: err}
	}
	return name, nil
}

// WriteFileAtomic commits data to path through the same staged
// sequence agent saves use. Callers that bypass validation on purpose
// (skeleton generation) still get crash-safe writes.
func WriteFileAtomic(path string, data []byte, backup bool) error {
	return writeAtomic(path, data, backup)
}

// writeAtomic commits data to path via the temp-fsync-backup-rename
// sequence. Partial failure leaves either the old file or the old
// file's backup plus a temp file, never a truncated target.
func writeAtomic(path string, data []byte, backup bool) error {
	tmp, err := stageTemp(path, data)
	if err != nil {
		return err
	}
	if backup {
		if _, err := os.Stat(path); err == nil {
			if err := os.Rename(path, path+".bak"); err != nil {
				os.Remove(tmp)
				return &WriteError{Path: path, Err: err}
			}
		}
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return &WriteError{Path: path, Err: err}
	}
	return nil
}
