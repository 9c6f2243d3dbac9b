// Package valconfig loads config/validation.json, the tunable knobs of
// the validation pipeline. An absent or unreadable file falls back to
// built-in defaults; a malformed file is a startup error.
package valconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/tripweaver/tripweaver/pkg/issue"
)

// Rule is a custom boolean check evaluated against each extracted item.
// The expression sees the item's fields as top-level variables; absent
// fields evaluate to nil.
type Rule struct {
	Name     string `json:"name"`
	Expr     string `json:"expr"`
	Severity string `json:"severity"`
	Message  string `json:"message"`

	program *vm.Program
}

// compile builds the rule's program once; later calls are no-ops.
func (r *Rule) compile() error {
	if r.program != nil {
		return nil
	}
	p, err := expr.Compile(r.Expr, expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		return fmt.Errorf("compile %q: %w", r.Expr, err)
	}
	r.program = p
	return nil
}

// Config holds the recognized validation settings.
type Config struct {
	EnglishPlaceholders        []string          `json:"english_placeholders"`
	CurrencyRegionMap          map[string]string `json:"currency_region_map"`
	IntentionalOverlapKeywords []string          `json:"intentional_overlap_keywords"`
	EnforceTitleCase           bool              `json:"enforce_title_case"`
	Rules                      []Rule            `json:"rules"`

	// Issues collects LOW findings from the config file itself,
	// currently unknown top-level keys.
	Issues []issue.Issue `json:"-"`
}

// knownKeys are the top-level keys the loader understands.
var knownKeys = map[string]bool{
	"english_placeholders":         true,
	"currency_region_map":          true,
	"intentional_overlap_keywords": true,
	"enforce_title_case":           true,
	"rules":                        true,
}

// Default returns the built-in configuration used when no file exists.
func Default() *Config {
	return &Config{
		EnglishPlaceholders:        []string{"TBD", "TODO", "N/A", "Name in Chinese", "placeholder"},
		CurrencyRegionMap:          map[string]string{},
		IntentionalOverlapKeywords: []string{"optional", "alternative"},
		EnforceTitleCase:           false,
	}
}

// Load reads the configuration from path. A missing or unreadable file
// returns Default() without error; invalid JSON or an uncompilable rule
// expression is an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Default(), nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse validation config %s: %w", path, err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse validation config %s: %w", path, err)
	}

	var unknown []string
	for k := range raw {
		if !knownKeys[k] {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	for _, k := range unknown {
		cfg.Issues = append(cfg.Issues, issue.Issue{
			Severity: issue.Low,
			Category: issue.Config,
			Message:  fmt.Sprintf("unknown configuration key %q ignored", k),
		})
	}

	for i := range cfg.Rules {
		r := &cfg.Rules[i]
		if strings.TrimSpace(r.Expr) == "" {
			return nil, fmt.Errorf("validation config %s: rule %q has an empty expression", path, r.Name)
		}
		if err := r.compile(); err != nil {
			return nil, fmt.Errorf("validation config %s: rule %q: %w", path, r.Name, err)
		}
		if _, err := issue.ParseSeverity(r.Severity); err != nil {
			return nil, fmt.Errorf("validation config %s: rule %q: %w", path, r.Name, err)
		}
	}

	return cfg, nil
}

// Eval runs the rule against an item's fields, compiling the expression
// on first use for rules built outside Load. A rule that fails to
// evaluate (for instance a type mismatch on this particular item)
// reports ok=false with the error.
func (r *Rule) Eval(fields map[string]any) (bool, error) {
	if err := r.compile(); err != nil {
		return false, fmt.Errorf("rule %q: %w", r.Name, err)
	}
	out, err := expr.Run(r.program, fields)
	if err != nil {
		return false, fmt.Errorf("eval rule %q: %w", r.Name, err)
	}
	ok, isBool := out.(bool)
	if !isBool {
		return false, fmt.Errorf("rule %q did not return bool (got %T)", r.Name, out)
	}
	return ok, nil
}

// RuleSeverity maps the rule's declared severity, defaulting to MEDIUM.
func (r Rule) RuleSeverity() issue.Severity {
	sev, err := issue.ParseSeverity(r.Severity)
	if err != nil {
		return issue.Medium
	}
	return sev
}

// ExpectedCurrency returns the currency hinted by the region map for a
// location string, matching by substring.
func (c *Config) ExpectedCurrency(location string) (string, bool) {
	keys := make([]string, 0, len(c.CurrencyRegionMap))
	for k := range c.CurrencyRegionMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.Contains(location, k) {
			return c.CurrencyRegionMap[k], true
		}
	}
	return "", false
}

// OverlapIntentional reports whether a timeline label carries one of
// the configured intentional-overlap keywords.
func (c *Config) OverlapIntentional(label string) bool {
	low := strings.ToLower(label)
	for _, kw := range c.IntentionalOverlapKeywords {
		if kw != "" && strings.Contains(low, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// PlaceholderIn returns the first configured placeholder found in s.
func (c *Config) PlaceholderIn(s string) (string, bool) {
	for _, p := range c.EnglishPlaceholders {
		if p != "" && strings.Contains(s, p) {
			return p, true
		}
	}
	return "", false
}
