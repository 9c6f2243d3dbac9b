package validate

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/tripweaver/tripweaver/pkg/issue"
	"github.com/tripweaver/tripweaver/pkg/trip"
)

// checkBilingual enforces paired names on the bilingual agents:
// name_local present, non-empty, different from name_base and free of
// configured English placeholders.
func (p *Pipeline) checkBilingual(t *trip.Trip) []issue.Issue {
	var issues []issue.Issue
	for _, agent := range p.Registry.AgentsWithLocal() {
		f, ok := t.Files[agent]
		if !ok {
			continue
		}
		for _, it := range trip.ExtractItems(f) {
			base, _ := it.Data["name_base"].(string)
			local, hasLocal := it.Data["name_local"].(string)
			field := it.Field + ".name_local"
			switch {
			case !hasLocal || strings.TrimSpace(local) == "":
				issues = append(issues, issue.Issue{
					Severity: issue.High, Category: issue.Presence,
					Agent: agent, Trip: t.Name, Day: it.Day, Label: it.Label, Field: field,
					Message: "name_local is missing or empty",
				})
			case base != "" && local == base:
				issues = append(issues, issue.Issue{
					Severity: issue.High, Category: issue.Semantic,
					Agent: agent, Trip: t.Name, Day: it.Day, Label: it.Label, Field: field,
					Message: fmt.Sprintf("name_local %q is identical to name_base", local),
				})
			default:
				if ph, found := p.Config.PlaceholderIn(local); found {
					issues = append(issues, issue.Issue{
						Severity: issue.High, Category: issue.Format,
						Agent: agent, Trip: t.Name, Day: it.Day, Label: it.Label, Field: field,
						Message: fmt.Sprintf("name_local %q contains English placeholder %q", local, ph),
					})
				}
			}
		}
	}
	return issues
}

// checkCurrencyRegions flags items whose location maps to an expected
// currency but whose currency_local differs. Disabled when the region
// map is empty.
func (p *Pipeline) checkCurrencyRegions(t *trip.Trip) []issue.Issue {
	if len(p.Config.CurrencyRegionMap) == 0 {
		return nil
	}
	var issues []issue.Issue
	for _, f := range p.files(t) {
		for _, it := range trip.ExtractItems(f) {
			loc, _ := it.Data["location_base"].(string)
			if loc == "" {
				loc = it.Location
			}
			expected, mapped := p.Config.ExpectedCurrency(loc)
			if !mapped {
				continue
			}
			cur, _ := it.Data["currency_local"].(string)
			if cur != "" && cur != expected {
				issues = append(issues, issue.Issue{
					Severity: issue.Medium, Category: issue.Semantic,
					Agent: f.Agent, Trip: t.Name, Day: it.Day, Label: it.Label,
					Field:   it.Field + ".currency_local",
					Message: fmt.Sprintf("location %q expects currency %s, found %s", loc, expected, cur),
				})
			}
		}
	}
	return issues
}

// checkTitleCase is the opt-in LOW nit for name_base casing.
func (p *Pipeline) checkTitleCase(t *trip.Trip) []issue.Issue {
	if !p.Config.EnforceTitleCase {
		return nil
	}
	var issues []issue.Issue
	for _, f := range p.files(t) {
		for _, it := range trip.ExtractItems(f) {
			base, _ := it.Data["name_base"].(string)
			if base == "" || isTitleCase(base) {
				continue
			}
			issues = append(issues, issue.Issue{
				Severity: issue.Low, Category: issue.Format,
				Agent: f.Agent, Trip: t.Name, Day: it.Day, Label: it.Label,
				Field:   it.Field + ".name_base",
				Message: fmt.Sprintf("name_base %q is not in Title Case", base),
			})
		}
	}
	return issues
}

// minor words allowed lowercase inside a title.
var minorWords = map[string]bool{
	"a": true, "an": true, "and": true, "at": true, "by": true,
	"de": true, "du": true, "for": true, "in": true, "of": true,
	"on": true, "or": true, "the": true, "to": true, "via": true,
}

func isTitleCase(s string) bool {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)[0]
		if !unicode.IsLetter(r) {
			continue
		}
		if unicode.IsUpper(r) {
			continue
		}
		if i > 0 && minorWords[strings.ToLower(w)] {
			continue
		}
		return false
	}
	return true
}

// legacyFields maps superseded field names to their current form.
var legacyFields = map[string]string{
	"currency":    "currency_local",
	"description": "description_base",
	"from":        "from_base",
	"location":    "location_base",
	"name":        "name_base",
	"to":          "to_base",
	"type":        "type_base",
}

// checkLegacyFields surfaces old field names: INFO when only the
// legacy name is present, MEDIUM when old and new coexist and
// disagree.
func (p *Pipeline) checkLegacyFields(t *trip.Trip) []issue.Issue {
	var issues []issue.Issue
	legacy := make([]string, 0, len(legacyFields))
	for k := range legacyFields {
		legacy = append(legacy, k)
	}
	sort.Strings(legacy)

	for _, f := range p.files(t) {
		for _, it := range trip.ExtractItems(f) {
			for _, old := range legacy {
				oldVal, hasOld := it.Data[old]
				if !hasOld {
					continue
				}
				current := legacyFields[old]
				newVal, hasNew := it.Data[current]
				if !hasNew {
					issues = append(issues, issue.Issue{
						Severity: issue.Info, Category: issue.Legacy,
						Agent: f.Agent, Trip: t.Name, Day: it.Day, Label: it.Label,
						Field:   it.Field + "." + old,
						Message: fmt.Sprintf("legacy field %q; use %q", old, current),
					})
					continue
				}
				if fmt.Sprint(oldVal) != fmt.Sprint(newVal) {
					issues = append(issues, issue.Issue{
						Severity: issue.Medium, Category: issue.Legacy,
						Agent: f.Agent, Trip: t.Name, Day: it.Day, Label: it.Label,
						Field:   it.Field + "." + old,
						Message: fmt.Sprintf("legacy field %q disagrees with %q (%v vs %v)", old, current, oldVal, newVal),
					})
				}
			}
		}
	}
	return issues
}

// checkCustomRules evaluates the configured expression rules against
// every extracted item.
func (p *Pipeline) checkCustomRules(t *trip.Trip) []issue.Issue {
	if len(p.Config.Rules) == 0 {
		return nil
	}
	var issues []issue.Issue
	for _, f := range p.files(t) {
		for _, it := range trip.ExtractItems(f) {
			for i := range p.Config.Rules {
				rule := &p.Config.Rules[i]
				ok, err := rule.Eval(it.Data)
				if err != nil {
					issues = append(issues, issue.Issue{
						Severity: issue.Low, Category: issue.Config,
						Agent: f.Agent, Trip: t.Name, Day: it.Day, Label: it.Label, Field: it.Field,
						Message: fmt.Sprintf("rule %q could not be evaluated: %v", rule.Name, err),
					})
					continue
				}
				if !ok {
					msg := rule.Message
					if msg == "" {
						msg = fmt.Sprintf("rule %q failed", rule.Name)
					}
					issues = append(issues, issue.Issue{
						Severity: rule.RuleSeverity(), Category: issue.Semantic,
						Agent: f.Agent, Trip: t.Name, Day: it.Day, Label: it.Label, Field: it.Field,
						Message: msg,
					})
				}
			}
		}
	}
	return issues
}
