package issue

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Severity classifies how badly a finding affects downstream rendering.
type Severity string

const (
	High   Severity = "HIGH"
	Medium Severity = "MEDIUM"
	Low    Severity = "LOW"
	Info   Severity = "INFO"
)

var severityOrder = map[Severity]int{High: 0, Medium: 1, Low: 2, Info: 3}

// AtLeast reports whether s is at least as severe as min.
func (s Severity) AtLeast(min Severity) bool {
	return severityOrder[s] <= severityOrder[min]
}

// ParseSeverity converts a string like "HIGH" to a Severity.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(s)
	if _, ok := severityOrder[sev]; !ok {
		return "", fmt.Errorf("unknown severity %q (expected HIGH, MEDIUM, LOW, or INFO)", s)
	}
	return sev, nil
}

// Category groups findings by the kind of check that produced them.
type Category string

const (
	Structure  Category = "structure"
	Presence   Category = "presence"
	Format     Category = "format"
	Semantic   Category = "semantic"
	Legacy     Category = "legacy"
	CrossAgent Category = "cross_agent"
	Config     Category = "config"
)

// Issue is a single validation finding. The (Agent, Day, Label, Field) tuple
// lets a human or an orchestrator jump to the offending record.
type Issue struct {
	Severity Severity `json:"severity"`
	Category Category `json:"category"`
	Agent    string   `json:"agent"`
	Trip     string   `json:"trip"`
	Day      int      `json:"day"`
	Label    string   `json:"label"`
	Field    string   `json:"field"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	loc := i.Agent
	if i.Day > 0 {
		loc = fmt.Sprintf("%s day %d", i.Agent, i.Day)
	}
	if i.Label != "" {
		loc += " " + i.Label
	}
	if i.Field != "" {
		loc += " " + i.Field
	}
	return fmt.Sprintf("[%s][%s] %s: %s", i.Severity, i.Category, loc, i.Message)
}

// Report is an ordered issue list plus per-severity counts.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`
	Trip        string    `json:"trip"`
	Issues      []Issue   `json:"issues"`
}

// NewReport builds a report over the given issues.
func NewReport(trip string, issues []Issue) *Report {
	return &Report{GeneratedAt: time.Now(), Trip: trip, Issues: issues}
}

// Count returns the number of issues at the given severity.
func (r *Report) Count(sev Severity) int {
	n := 0
	for _, i := range r.Issues {
		if i.Severity == sev {
			n++
		}
	}
	return n
}

// HighIssues returns only the HIGH-severity findings.
func (r *Report) HighIssues() []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == High {
			out = append(out, i)
		}
	}
	return out
}

// Pass reports whether the trip passed: no HIGH issues.
func (r *Report) Pass() bool {
	return r.Count(High) == 0
}

// Filter returns a copy containing only issues at or above min severity.
func (r *Report) Filter(min Severity) *Report {
	var kept []Issue
	for _, i := range r.Issues {
		if i.Severity.AtLeast(min) {
			kept = append(kept, i)
		}
	}
	return &Report{GeneratedAt: r.GeneratedAt, Trip: r.Trip, Issues: kept}
}

// BySeverity returns the issues grouped and ordered HIGH → INFO, with the
// original order preserved inside each group.
func (r *Report) BySeverity() []Issue {
	out := make([]Issue, len(r.Issues))
	copy(out, r.Issues)
	sort.SliceStable(out, func(a, b int) bool {
		return severityOrder[out[a].Severity] < severityOrder[out[b].Severity]
	})
	return out
}

// MarshalJSON emits the report with a summary block so that callers piping
// --json output can branch on summary.pass without walking the issue list.
func (r *Report) MarshalJSON() ([]byte, error) {
	type summary struct {
		Total      int              `json:"total"`
		BySeverity map[Severity]int `json:"by_severity"`
		Pass       bool             `json:"pass"`
	}
	bySev := map[Severity]int{
		High:   r.Count(High),
		Medium: r.Count(Medium),
		Low:    r.Count(Low),
		Info:   r.Count(Info),
	}
	issues := r.Issues
	if issues == nil {
		issues = []Issue{}
	}
	return json.Marshal(struct {
		GeneratedAt time.Time `json:"generated_at"`
		Trip        string    `json:"trip"`
		Summary     summary   `json:"summary"`
		Issues      []Issue   `json:"issues"`
	}{
		GeneratedAt: r.GeneratedAt,
		Trip:        r.Trip,
		Summary:     summary{Total: len(r.Issues), BySeverity: bySev, Pass: r.Pass()},
		Issues:      issues,
	})
}
