// Package registry loads and compiles the per-agent JSON Schemas and
// derives validation vocabulary (bilingual agents, budget categories,
// transport types) from the schema documents themselves, so the schemas
// stay the single source of truth.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/tripweaver/tripweaver/pkg/issue"
	"github.com/tripweaver/tripweaver/pkg/trip"
)

// Registry holds the compiled schema set for all known agents.
type Registry struct {
	dir      string
	raw      map[string]map[string]any
	compiled map[string]*sjsonschema.Schema

	withLocal  []string
	budgetCats []string
	transport  []string
}

// Load reads every *.schema.json under dir, registers each file as a
// compiler resource (so cross-file $refs resolve by filename) and
// compiles one schema per agent. A missing or invalid schema for a
// known agent is a fatal error.
func Load(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read schema dir %s: %w", dir, err)
	}

	c := sjsonschema.NewCompiler()
	docs := make(map[string]map[string]any)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".schema.json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", e.Name(), err)
		}
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse schema %s: %w", e.Name(), err)
		}
		if err := c.AddResource(e.Name(), doc); err != nil {
			return nil, fmt.Errorf("add schema resource %s: %w", e.Name(), err)
		}
		docs[e.Name()] = doc
	}

	r := &Registry{
		dir:      dir,
		raw:      make(map[string]map[string]any),
		compiled: make(map[string]*sjsonschema.Schema),
	}
	for _, agent := range trip.AgentNames {
		name := agent + ".schema.json"
		doc, ok := docs[name]
		if !ok {
			return nil, fmt.Errorf("schema registry: missing schema for agent %q (%s)", agent, name)
		}
		sch, err := c.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("schema registry: compile %s: %w", name, err)
		}
		r.raw[agent] = doc
		r.compiled[agent] = sch
	}

	r.withLocal = inferAgentsWithLocal(r.raw)
	r.budgetCats = inferBudgetCategories(r.raw["budget"])
	r.transport = inferTransportTypes(r.raw["timeline"])
	if len(r.budgetCats) == 0 {
		return nil, fmt.Errorf("schema registry: budget schema defines no budget_categories properties")
	}
	if len(r.transport) == 0 {
		return nil, fmt.Errorf("schema registry: timeline schema defines no transport_type enum")
	}
	return r, nil
}

// Dir returns the directory the registry was loaded from.
func (r *Registry) Dir() string { return r.dir }

// Schema returns the raw schema document for an agent.
func (r *Registry) Schema(agent string) (map[string]any, bool) {
	doc, ok := r.raw[agent]
	return doc, ok
}

// Compiled returns the compiled schema for an agent.
func (r *Registry) Compiled(agent string) (*sjsonschema.Schema, bool) {
	sch, ok := r.compiled[agent]
	return sch, ok
}

// AgentsWithLocal lists the agents whose item definitions require both
// name_base and name_local, sorted by agent name.
func (r *Registry) AgentsWithLocal() []string {
	out := make([]string, len(r.withLocal))
	copy(out, r.withLocal)
	return out
}

// HasLocalNames reports whether the agent's items carry bilingual names.
func (r *Registry) HasLocalNames(agent string) bool {
	for _, a := range r.withLocal {
		if a == agent {
			return true
		}
	}
	return false
}

// BudgetCategories lists the category keys of $defs/budget_categories
// in the budget schema, sorted.
func (r *Registry) BudgetCategories() []string {
	out := make([]string, len(r.budgetCats))
	copy(out, r.budgetCats)
	return out
}

// TransportTypes lists the type_base enum of the timeline schema's
// travel_segment definition, in schema order.
func (r *Registry) TransportTypes() []string {
	out := make([]string, len(r.transport))
	copy(out, r.transport)
	return out
}

// IsTransportType reports whether t is an allowed travel segment type.
func (r *Registry) IsTransportType(t string) bool {
	for _, k := range r.transport {
		if k == t {
			return true
		}
	}
	return false
}

// Validate runs the compiled schema for the agent against a decoded
// document and flattens every leaf cause into a HIGH structure issue.
func (r *Registry) Validate(agent, tripName string, doc any) []issue.Issue {
	sch, ok := r.compiled[agent]
	if !ok {
		return []issue.Issue{{
			Severity: issue.High,
			Category: issue.Structure,
			Agent:    agent,
			Trip:     tripName,
			Message:  fmt.Sprintf("no schema registered for agent %q", agent),
		}}
	}
	err := sch.Validate(doc)
	if err == nil {
		return nil
	}
	ve, ok := err.(*sjsonschema.ValidationError)
	if !ok {
		return []issue.Issue{{
			Severity: issue.High,
			Category: issue.Structure,
			Agent:    agent,
			Trip:     tripName,
			Message:  err.Error(),
		}}
	}
	var issues []issue.Issue
	for _, cause := range flattenCauses(ve) {
		issues = append(issues, issue.Issue{
			Severity: issue.High,
			Category: issue.Structure,
			Agent:    agent,
			Trip:     tripName,
			Field:    strings.Join(cause.InstanceLocation, "."),
			Message:  fmt.Sprintf("%v", cause.ErrorKind),
		})
	}
	return issues
}

// flattenCauses recursively collects all leaf validation errors.
func flattenCauses(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flattenCauses(cause)...)
	}
	return flat
}

// inferAgentsWithLocal scans each schema's $defs for an item definition
// requiring both name_base and name_local.
func inferAgentsWithLocal(raw map[string]map[string]any) []string {
	var agents []string
	for agent, doc := range raw {
		defs, _ := doc["$defs"].(map[string]any)
		for _, d := range defs {
			def, ok := d.(map[string]any)
			if !ok {
				continue
			}
			req, _ := def["required"].([]any)
			hasBase, hasLocal := false, false
			for _, v := range req {
				switch v {
				case "name_base":
					hasBase = true
				case "name_local":
					hasLocal = true
				}
			}
			if hasBase && hasLocal {
				agents = append(agents, agent)
				break
			}
		}
	}
	sort.Strings(agents)
	return agents
}

// inferBudgetCategories reads the property keys of
// $defs/budget_categories in the budget schema.
func inferBudgetCategories(doc map[string]any) []string {
	defs, _ := doc["$defs"].(map[string]any)
	bc, _ := defs["budget_categories"].(map[string]any)
	props, _ := bc["properties"].(map[string]any)
	cats := make([]string, 0, len(props))
	for k := range props {
		cats = append(cats, k)
	}
	sort.Strings(cats)
	return cats
}

// inferTransportTypes reads the $defs/transport_type enum in the
// timeline schema, preserving schema order. The enum is vocabulary, not
// a hard structural constraint: type_base references it inside an anyOf
// that also admits any non-empty string, so an unknown type is a MEDIUM
// finding from the travel-segment pass rather than a schema failure.
func inferTransportTypes(doc map[string]any) []string {
	defs, _ := doc["$defs"].(map[string]any)
	tt, _ := defs["transport_type"].(map[string]any)
	enum, _ := tt["enum"].([]any)
	types := make([]string, 0, len(enum))
	for _, v := range enum {
		if s, ok := v.(string); ok {
			types = append(types, s)
		}
	}
	return types
}
