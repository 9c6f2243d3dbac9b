// Package trip models the per-trip agent file set: the envelope shared by
// every agent file, the fixed agent names that define the filesystem layout,
// and the extraction of per-day items that the validation passes consume.
package trip

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// AgentNames is the fixed set of agents. This is the only hardcoded policy:
// it defines the filesystem layout (<trip_dir>/<agent>.json); everything else
// is derived from the schemas.
var AgentNames = []string{
	"accommodation",
	"attractions",
	"budget",
	"entertainment",
	"meals",
	"shopping",
	"timeline",
	"transportation",
}

// IsAgent reports whether name is one of the known agents.
func IsAgent(name string) bool {
	for _, a := range AgentNames {
		if a == name {
			return true
		}
	}
	return false
}

// FilePath returns the well-known path of an agent file inside a trip dir.
func FilePath(tripDir, agent string) string {
	return filepath.Join(tripDir, agent+".json")
}

// File is one loaded agent file. Raw holds the full envelope document as
// decoded JSON; the day payloads stay generic because each agent carries a
// different contract and the schema passes validate the raw form anyway.
type File struct {
	Agent  string
	Status string
	Raw    map[string]any
}

// Days returns the data.days array, or nil when absent or malformed.
func (f *File) Days() []map[string]any {
	data, ok := f.Raw["data"].(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := data["days"].([]any)
	if !ok {
		return nil
	}
	days := make([]map[string]any, 0, len(raw))
	for _, d := range raw {
		if m, ok := d.(map[string]any); ok {
			days = append(days, m)
		}
	}
	return days
}

// Day returns the day-entry with the given day number, or nil.
func (f *File) Day(n int) map[string]any {
	for _, d := range f.Days() {
		if DayNum(d) == n {
			return d
		}
	}
	return nil
}

// DayNum extracts the 1-based day number from a day-entry.
func DayNum(day map[string]any) int {
	return intValue(day["day"])
}

// DayDate extracts the date string; the second result is false when the
// field is present but null (which the pipeline treats as HIGH).
func DayDate(day map[string]any) (string, bool) {
	v, present := day["date"]
	if !present {
		return "", true // absent is a presence finding, not a null date
	}
	if v == nil {
		return "", false
	}
	s, _ := v.(string)
	return s, true
}

// DayLocation extracts the day's location string.
func DayLocation(day map[string]any) string {
	s, _ := day["location"].(string)
	return s
}

// Normalize wraps a payload into canonical envelope form. The payload may
// already be an envelope ({agent, status, data}) or just the inner data
// object ({days: [...]}); either way the result carries agent and a status.
func Normalize(agent string, payload map[string]any) map[string]any {
	var env map[string]any
	if _, hasData := payload["data"]; hasData {
		env = make(map[string]any, len(payload))
		for k, v := range payload {
			env[k] = v
		}
	} else {
		env = map[string]any{"data": payload}
	}
	env["agent"] = agent
	if _, ok := env["status"].(string); !ok {
		env["status"] = "complete"
	}
	return env
}

// ParseFile decodes an envelope document from raw JSON bytes.
func ParseFile(agent string, data []byte) (*File, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s file: %w", agent, err)
	}
	return FromRaw(agent, raw), nil
}

// FromRaw builds a File from an already-decoded envelope document.
func FromRaw(agent string, raw map[string]any) *File {
	name, _ := raw["agent"].(string)
	status, _ := raw["status"].(string)
	if name == "" {
		name = agent
	}
	return &File{Agent: name, Status: status, Raw: raw}
}

// Load reads and decodes one agent file from a trip directory.
func Load(tripDir, agent string) (*File, error) {
	data, err := os.ReadFile(FilePath(tripDir, agent))
	if err != nil {
		return nil, err
	}
	return ParseFile(agent, data)
}

// Trip is a loaded trip directory: every agent file that exists on disk.
// LoadErrors records files that exist but could not be read or parsed,
// keyed by agent; the structural pass reports them.
type Trip struct {
	Dir        string
	Name       string
	Files      map[string]*File
	LoadErrors map[string]error
}

// LoadDir loads all known agent files from dir. Missing files are not an
// error here; the structural pass reports them.
func LoadDir(dir string) (*Trip, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("open trip dir %s: %w", dir, err)
	}
	t := &Trip{
		Dir:        dir,
		Name:       filepath.Base(dir),
		Files:      make(map[string]*File),
		LoadErrors: make(map[string]error),
	}
	for _, agent := range AgentNames {
		f, err := Load(dir, agent)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			t.LoadErrors[agent] = err
			continue
		}
		t.Files[agent] = f
	}
	return t, nil
}

// Replace returns a shallow copy of the trip with one agent file substituted
// in memory. Used by the write-time gate to validate a candidate document
// against the on-disk state without touching disk.
func (t *Trip) Replace(agent string, f *File) *Trip {
	files := make(map[string]*File, len(t.Files))
	for k, v := range t.Files {
		files[k] = v
	}
	files[agent] = f
	errs := make(map[string]error, len(t.LoadErrors))
	for k, v := range t.LoadErrors {
		if k != agent {
			errs[k] = v
		}
	}
	return &Trip{Dir: t.Dir, Name: t.Name, Files: files, LoadErrors: errs}
}

// DayNumbers returns the sorted set of day numbers present in any file.
func (t *Trip) DayNumbers() []int {
	seen := make(map[int]bool)
	for _, f := range t.Files {
		for _, d := range f.Days() {
			if n := DayNum(d); n > 0 {
				seen[n] = true
			}
		}
	}
	nums := make([]int, 0, len(seen))
	for n := range seen {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

func intValue(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	}
	return 0
}

// NumberValue extracts a float from a decoded JSON value; ok is false for
// non-numeric values.
func NumberValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
