package trip

import (
	"fmt"
	"sort"
)

// Item is one POI, meal, activity, segment or booking pulled out of a
// day-entry, carrying enough context to report a finding against it.
type Item struct {
	Data     map[string]any
	Agent    string
	ItemDef  string // key in the agent schema's $defs describing this item
	Day      int
	Date     string
	Location string
	Label    string
	Field    string // field path prefix inside the day-entry, e.g. "breakfast" or "attractions[2]"
}

type extractMode int

const (
	namedKeys extractMode = iota // fixed per-day slots, each an object (meals)
	array                       // a day-level array of objects
	singular                    // one object per day
	objectMap                   // name → object map (timeline activities)
)

// shape describes how one item kind is laid out inside a day-entry.
type shape struct {
	ItemDef  string
	Mode     extractMode
	Keys     []string
	Optional bool // the day-level key may be absent
}

// agentShapes maps each agent to its item layouts. Timeline carries two item
// kinds in one file: the activity map and the travel segment array.
var agentShapes = map[string][]shape{
	"meals":          {{ItemDef: "meal_item", Mode: namedKeys, Keys: []string{"breakfast", "lunch", "dinner"}}},
	"attractions":    {{ItemDef: "attraction_item", Mode: array, Keys: []string{"attractions"}}},
	"entertainment":  {{ItemDef: "entertainment_item", Mode: array, Keys: []string{"entertainment"}}},
	"accommodation":  {{ItemDef: "accommodation_item", Mode: singular, Keys: []string{"accommodation"}}},
	"shopping":       {{ItemDef: "shopping_item", Mode: array, Keys: []string{"shopping"}}},
	"transportation": {{ItemDef: "location_change", Mode: singular, Keys: []string{"location_change"}, Optional: true}},
	"budget":         {{ItemDef: "budget_categories", Mode: singular, Keys: []string{"budget"}}},
	"timeline": {
		{ItemDef: "timeline_activity", Mode: objectMap, Keys: []string{"timeline"}},
		{ItemDef: "travel_segment", Mode: array, Keys: []string{"travel_segments"}, Optional: true},
	},
}

// Shapes returns the item layouts for an agent.
func Shapes(agent string) []shape {
	return agentShapes[agent]
}

// ExtractItems flattens every item of every day of an agent file.
func ExtractItems(f *File) []Item {
	var items []Item
	for _, sh := range agentShapes[f.Agent] {
		items = append(items, extractShape(f, sh)...)
	}
	return items
}

// ExtractItemsFor flattens the items of a single item kind.
func ExtractItemsFor(f *File, itemDef string) []Item {
	for _, sh := range agentShapes[f.Agent] {
		if sh.ItemDef == itemDef {
			return extractShape(f, sh)
		}
	}
	return nil
}

func extractShape(f *File, sh shape) []Item {
	var items []Item
	for _, day := range f.Days() {
		dn := DayNum(day)
		date, _ := DayDate(day)
		loc := DayLocation(day)

		mk := func(data map[string]any, field, name string) Item {
			return Item{
				Data: data, Agent: f.Agent, ItemDef: sh.ItemDef,
				Day: dn, Date: date, Location: loc,
				Label: fmt.Sprintf("Day %d (%s) %s", dn, date, name),
				Field: field,
			}
		}

		switch sh.Mode {
		case namedKeys:
			for _, key := range sh.Keys {
				if obj, ok := day[key].(map[string]any); ok {
					name := itemName(obj, key)
					items = append(items, mk(obj, key, key+": "+name))
				}
			}

		case array:
			key := sh.Keys[0]
			raw, ok := day[key].([]any)
			if !ok {
				continue
			}
			for idx, elem := range raw {
				if obj, ok := elem.(map[string]any); ok {
					name := itemName(obj, fmt.Sprintf("#%d", idx))
					field := fmt.Sprintf("%s[%d]", key, idx)
					items = append(items, mk(obj, field, field+": "+name))
				}
			}

		case singular:
			key := sh.Keys[0]
			if obj, ok := day[key].(map[string]any); ok {
				items = append(items, mk(obj, key, key+": "+itemName(obj, key)))
			}

		case objectMap:
			key := sh.Keys[0]
			obj, ok := day[key].(map[string]any)
			if !ok {
				continue
			}
			// Deterministic order for reproducible reports.
			names := make([]string, 0, len(obj))
			for name := range obj {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				if entry, ok := obj[name].(map[string]any); ok {
					items = append(items, mk(entry, key+"."+name, name))
				}
			}
		}
	}
	return items
}

func itemName(obj map[string]any, fallback string) string {
	if s, ok := obj["name_base"].(string); ok && s != "" {
		return s
	}
	if s, ok := obj["from_base"].(string); ok && s != "" {
		return s
	}
	return fallback
}
