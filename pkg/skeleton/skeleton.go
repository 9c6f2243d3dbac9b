// Package skeleton writes the initial agent file set for a new trip:
// one envelope per agent with empty day entries ready for the agents
// to fill in. Skeleton writes are atomic but deliberately unvalidated,
// since empty items would never pass the pipeline.
package skeleton

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/tripweaver/tripweaver/pkg/modlog"
	"github.com/tripweaver/tripweaver/pkg/registry"
	"github.com/tripweaver/tripweaver/pkg/store"
	"github.com/tripweaver/tripweaver/pkg/trip"
)

// Options describe the trip to scaffold.
type Options struct {
	Destination string
	Start       time.Time
	Days        int
	BucketList  bool // dateless wishlist trip: day entries carry empty dates
}

// Generate writes one skeleton file per agent into tripDir, creating
// the directory when needed. Existing agent files are not overwritten.
// The registry supplies the budget category set so a schema gaining a
// category flows into new skeletons without a code change.
func Generate(tripDir string, reg *registry.Registry, opts Options) error {
	if opts.Destination == "" {
		return fmt.Errorf("skeleton: destination is required")
	}
	if opts.Days < 1 {
		return fmt.Errorf("skeleton: day count %d must be at least 1", opts.Days)
	}
	if !opts.BucketList && opts.Start.IsZero() {
		return fmt.Errorf("skeleton: start date is required unless the trip is a bucket list")
	}
	if err := os.MkdirAll(tripDir, 0o755); err != nil {
		return fmt.Errorf("skeleton: create trip dir: %w", err)
	}

	var written []string
	for _, agent := range trip.AgentNames {
		path := trip.FilePath(tripDir, agent)
		if _, err := os.Stat(path); err == nil {
			continue // never clobber an agent's work
		}
		env := map[string]any{
			"agent":  agent,
			"status": "skeleton",
			"data":   map[string]any{"days": skeletonDays(agent, reg.BudgetCategories(), opts)},
		}
		data, err := json.MarshalIndent(env, "", "  ")
		if err != nil {
			return fmt.Errorf("skeleton: encode %s: %w", agent, err)
		}
		if err := store.WriteFileAtomic(path, append(data, '\n'), false); err != nil {
			return fmt.Errorf("skeleton: %w", err)
		}
		written = append(written, agent)
	}

	for _, agent := range written {
		if err := modlog.Append(tripDir, modlog.Entry{Agent: agent, Action: "skeleton", Note: opts.Destination}); err != nil {
			return err
		}
	}
	return nil
}

func skeletonDays(agent string, budgetCats []string, opts Options) []any {
	days := make([]any, 0, opts.Days)
	for i := 0; i < opts.Days; i++ {
		date := ""
		if !opts.BucketList {
			date = opts.Start.AddDate(0, 0, i).Format("2006-01-02")
		}
		d := map[string]any{
			"day":      i + 1,
			"date":     date,
			"location": opts.Destination,
		}
		fillAgentSlots(agent, budgetCats, d)
		days = append(days, d)
	}
	return days
}

// fillAgentSlots adds the per-agent payload keys so each file already
// has the shape its agent is expected to fill.
func fillAgentSlots(agent string, budgetCats []string, d map[string]any) {
	switch agent {
	case "meals":
		d["breakfast"] = emptyItem()
		d["lunch"] = emptyItem()
		d["dinner"] = emptyItem()
	case "attractions":
		d["attractions"] = []any{}
	case "entertainment":
		d["entertainment"] = []any{}
	case "shopping":
		d["shopping"] = []any{}
	case "accommodation":
		d["accommodation"] = emptyItem()
	case "transportation":
		// travel days get a location_change once the route is known
	case "budget":
		b := make(map[string]any, len(budgetCats)+1)
		for _, c := range budgetCats {
			b[c] = 0
		}
		b["total"] = 0
		d["budget"] = b
	case "timeline":
		d["timeline"] = map[string]any{}
	}
}

func emptyItem() map[string]any {
	return map[string]any{
		"name_base":      "",
		"name_local":     "",
		"cost":           0,
		"currency_local": "",
		"notes":          "",
	}
}
