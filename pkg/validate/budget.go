package validate

import (
	"fmt"
	"math"
	"sort"

	"github.com/tripweaver/tripweaver/pkg/issue"
	"github.com/tripweaver/tripweaver/pkg/trip"
)

// budgetTolerance absorbs rounding drift between category sums and the
// recorded totals. One unit of local currency, not one percent.
const budgetTolerance = 1.0

// checkBudget verifies per-day and trip-level budget arithmetic:
// category sums match day totals, day totals match the trip total,
// no amount is negative and no category key is foreign to the schema.
func (p *Pipeline) checkBudget(t *trip.Trip) []issue.Issue {
	f, ok := t.Files["budget"]
	if !ok {
		return nil
	}
	var issues []issue.Issue
	categories := p.Registry.BudgetCategories()
	known := map[string]bool{"total": true, "currency_local": true, "notes": true}
	for _, c := range categories {
		known[c] = true
	}

	var dayTotalSum float64
	var haveDayTotals bool
	for _, it := range trip.ExtractItemsFor(f, "budget_categories") {
		b := it.Data

		keys := make([]string, 0, len(b))
		for k := range b {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var catSum float64
		for _, k := range keys {
			v, isNum := trip.NumberValue(b[k])
			if !known[k] {
				issues = append(issues, issue.Issue{
					Severity: issue.Medium, Category: issue.Format,
					Agent: "budget", Trip: t.Name, Day: it.Day, Label: it.Label,
					Field:   it.Field + "." + k,
					Message: fmt.Sprintf("unknown budget category %q (known: %v)", k, categories),
				})
			}
			if !isNum {
				continue
			}
			if v < 0 {
				issues = append(issues, issue.Issue{
					Severity: issue.High, Category: issue.Semantic,
					Agent: "budget", Trip: t.Name, Day: it.Day, Label: it.Label,
					Field:   it.Field + "." + k,
					Message: fmt.Sprintf("negative amount %.2f", v),
				})
			}
			if isCategory(categories, k) {
				catSum += v
			}
		}

		total, hasTotal := trip.NumberValue(b["total"])
		if hasTotal {
			haveDayTotals = true
			dayTotalSum += total
			if math.Abs(catSum-total) > budgetTolerance {
				issues = append(issues, issue.Issue{
					Severity: issue.High, Category: issue.Semantic,
					Agent: "budget", Trip: t.Name, Day: it.Day, Label: it.Label,
					Field:   it.Field + ".total",
					Message: fmt.Sprintf("day total %.2f does not match category sum %.2f", total, catSum),
				})
			}
		}
	}

	// Trip-level total lives beside days in the data object; absent is
	// fine, present must agree with the day totals.
	if data, ok := f.Raw["data"].(map[string]any); ok && haveDayTotals {
		if tripTotal, hasTrip := trip.NumberValue(data["total"]); hasTrip {
			if math.Abs(tripTotal-dayTotalSum) > budgetTolerance {
				issues = append(issues, issue.Issue{
					Severity: issue.High, Category: issue.Semantic,
					Agent: "budget", Trip: t.Name, Field: "data.total",
					Message: fmt.Sprintf("trip total %.2f does not match sum of day totals %.2f", tripTotal, dayTotalSum),
				})
			}
		}
	}
	return issues
}

func isCategory(categories []string, k string) bool {
	for _, c := range categories {
		if c == k {
			return true
		}
	}
	return false
}
