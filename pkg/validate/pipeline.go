// Package validate runs the check passes over a loaded trip and merges
// their findings into a single ordered report. Passes are independent
// and run in a fixed order so two runs over the same trip produce the
// same report.
package validate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tripweaver/tripweaver/pkg/issue"
	"github.com/tripweaver/tripweaver/pkg/registry"
	"github.com/tripweaver/tripweaver/pkg/trip"
	"github.com/tripweaver/tripweaver/pkg/valconfig"
)

// Pipeline binds the schema registry and validation config to the
// check passes.
type Pipeline struct {
	Registry *registry.Registry
	Config   *valconfig.Config
}

// New builds a pipeline. A nil config falls back to the defaults.
func New(reg *registry.Registry, cfg *valconfig.Config) *Pipeline {
	if cfg == nil {
		cfg = valconfig.Default()
	}
	return &Pipeline{Registry: reg, Config: cfg}
}

// RunDir loads a trip directory and runs the full pipeline over it.
func (p *Pipeline) RunDir(dir string) (*issue.Report, error) {
	t, err := trip.LoadDir(dir)
	if err != nil {
		return nil, err
	}
	return p.Run(t), nil
}

// Run executes every pass against an already-loaded trip.
func (p *Pipeline) Run(t *trip.Trip) *issue.Report {
	var issues []issue.Issue
	issues = append(issues, p.Config.Issues...)
	issues = append(issues, p.checkEnvelopes(t)...)
	issues = append(issues, p.checkSchemas(t)...)
	issues = append(issues, p.checkDaySet(t)...)
	issues = append(issues, p.checkDates(t)...)
	issues = append(issues, p.checkLocations(t)...)
	issues = append(issues, p.checkBilingual(t)...)
	issues = append(issues, p.checkCurrencyRegions(t)...)
	issues = append(issues, p.checkTimeline(t)...)
	issues = append(issues, p.checkTravelSegments(t)...)
	issues = append(issues, p.checkBudget(t)...)
	issues = append(issues, p.checkTitleCase(t)...)
	issues = append(issues, p.checkLegacyFields(t)...)
	issues = append(issues, p.checkCustomRules(t)...)
	return issue.NewReport(t.Name, issues)
}

// files iterates the trip's loaded agent files in fixed agent order.
func (p *Pipeline) files(t *trip.Trip) []*trip.File {
	var out []*trip.File
	for _, agent := range trip.AgentNames {
		if f, ok := t.Files[agent]; ok {
			out = append(out, f)
		}
	}
	return out
}

// checkEnvelopes verifies that every agent file exists, parsed, and
// carries the expected envelope: matching agent name and a non-empty
// data.days array.
func (p *Pipeline) checkEnvelopes(t *trip.Trip) []issue.Issue {
	var issues []issue.Issue
	for _, agent := range trip.AgentNames {
		if err, bad := t.LoadErrors[agent]; bad {
			issues = append(issues, issue.Issue{
				Severity: issue.High, Category: issue.Structure,
				Agent: agent, Trip: t.Name,
				Message: fmt.Sprintf("file exists but could not be loaded: %v", err),
			})
			continue
		}
		f, ok := t.Files[agent]
		if !ok {
			issues = append(issues, issue.Issue{
				Severity: issue.High, Category: issue.Presence,
				Agent: agent, Trip: t.Name,
				Message: fmt.Sprintf("agent file %s.json is missing", agent),
			})
			continue
		}
		if name, _ := f.Raw["agent"].(string); name != agent {
			issues = append(issues, issue.Issue{
				Severity: issue.High, Category: issue.Structure,
				Agent: agent, Trip: t.Name, Field: "agent",
				Message: fmt.Sprintf("envelope declares agent %q, expected %q", name, agent),
			})
		}
		if len(f.Days()) == 0 {
			issues = append(issues, issue.Issue{
				Severity: issue.High, Category: issue.Structure,
				Agent: agent, Trip: t.Name, Field: "data.days",
				Message: "data.days is missing or empty",
			})
		}
	}
	return issues
}

// checkSchemas validates each loaded file against its compiled agent
// schema and attributes each finding to a day when the instance path
// points inside data.days.
func (p *Pipeline) checkSchemas(t *trip.Trip) []issue.Issue {
	var issues []issue.Issue
	for _, f := range p.files(t) {
		found := p.Registry.Validate(f.Agent, t.Name, f.Raw)
		for i := range found {
			found[i].Day = dayForPath(f, found[i].Field)
		}
		issues = append(issues, found...)
	}
	return issues
}

// dayForPath resolves an instance path like "data.days.2.budget.total"
// to the day number of the addressed entry, or 0.
func dayForPath(f *trip.File, field string) int {
	parts := strings.Split(field, ".")
	if len(parts) < 3 || parts[0] != "data" || parts[1] != "days" {
		return 0
	}
	idx, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0
	}
	days := f.Days()
	if idx < 0 || idx >= len(days) {
		return 0
	}
	return trip.DayNum(days[idx])
}

// sortedAgents returns the agents present in a map in fixed order.
func sortedAgents(m map[string]string) []string {
	agents := make([]string, 0, len(m))
	for a := range m {
		agents = append(agents, a)
	}
	sort.Strings(agents)
	return agents
}
