package store

import (
	"fmt"
	"os"

	"github.com/tripweaver/tripweaver/pkg/trip"
)

// LoadOptions control one load operation.
type LoadOptions struct {
	Validate bool // fail with a ValidationError when the agent has HIGH issues
	Level    int  // 1 summary, 2 headers and item names, 3 (or 0) full payload
	Day      int  // >0 restricts the result to one day
}

// LoadAgent returns the agent's inner data payload, shaped by the
// requested disclosure level. A validated load runs the full pipeline
// over the trip and fails when this agent carries HIGH issues.
func (s *Store) LoadAgent(tripDir, agent string, opts LoadOptions) (map[string]any, error) {
	if !trip.IsAgent(agent) {
		return nil, fmt.Errorf("unknown agent %q", agent)
	}
	f, err := trip.Load(tripDir, agent)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("agent file %s.json not found in %s", agent, tripDir)
		}
		return nil, fmt.Errorf("load %s: %w", agent, err)
	}

	if opts.Validate {
		t, err := trip.LoadDir(tripDir)
		if err != nil {
			return nil, err
		}
		report := scopedReport(s.Pipeline.Run(t), agent)
		if !report.Pass() {
			return nil, &ValidationError{Agent: agent, Report: report}
		}
	}

	data, ok := f.Raw["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("agent file %s.json has no data object", agent)
	}

	days := f.Days()
	if opts.Day > 0 {
		var kept []map[string]any
		for _, d := range days {
			if trip.DayNum(d) == opts.Day {
				kept = append(kept, d)
			}
		}
		if len(kept) == 0 {
			return nil, fmt.Errorf("agent %s has no day %d", agent, opts.Day)
		}
		days = kept
	}

	switch opts.Level {
	case 1:
		return levelSummary(f, days), nil
	case 2:
		return levelHeaders(f, days), nil
	default:
		out := make(map[string]any, len(data))
		for k, v := range data {
			out[k] = v
		}
		out["days"] = anyDays(days)
		return out, nil
	}
}

// levelSummary is the cheapest view: one line per day.
func levelSummary(f *trip.File, days []map[string]any) map[string]any {
	summaries := make([]any, 0, len(days))
	for _, d := range days {
		date, _ := trip.DayDate(d)
		summaries = append(summaries, map[string]any{
			"day":      trip.DayNum(d),
			"date":     date,
			"location": trip.DayLocation(d),
			"items":    itemCount(f, trip.DayNum(d)),
		})
	}
	return map[string]any{"agent": f.Agent, "days": summaries}
}

// levelHeaders keeps day headers plus the names of each day's items.
func levelHeaders(f *trip.File, days []map[string]any) map[string]any {
	out := make([]any, 0, len(days))
	for _, d := range days {
		date, _ := trip.DayDate(d)
		names := make([]any, 0, 4)
		for _, it := range trip.ExtractItems(f) {
			if it.Day != trip.DayNum(d) {
				continue
			}
			name, _ := it.Data["name_base"].(string)
			if name == "" {
				name = it.Field
			}
			names = append(names, name)
		}
		out = append(out, map[string]any{
			"day":      trip.DayNum(d),
			"date":     date,
			"location": trip.DayLocation(d),
			"names":    names,
		})
	}
	return map[string]any{"agent": f.Agent, "days": out}
}

func itemCount(f *trip.File, day int) int {
	n := 0
	for _, it := range trip.ExtractItems(f) {
		if it.Day == day {
			n++
		}
	}
	return n
}

func anyDays(days []map[string]any) []any {
	out := make([]any, len(days))
	for i, d := range days {
		out[i] = d
	}
	return out
}
