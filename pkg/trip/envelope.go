package trip

// Envelope is the typed form of the outer document every agent file
// shares. Day payloads vary per agent and stay generic, but the
// envelope itself is fixed and is what the schema export publishes.
type Envelope struct {
	Agent  string `json:"agent" jsonschema:"required,description=One of the fixed agent names"`
	Status string `json:"status" jsonschema:"required,example=complete"`
	Notes  string `json:"notes,omitempty"`
	Data   Data   `json:"data" jsonschema:"required"`
}

// Data wraps the day list.
type Data struct {
	Days []DayHeader `json:"days" jsonschema:"required,minItems=1"`
}

// DayHeader carries the fields every day entry shares regardless of
// agent. Date may be empty for bucket-list trips but never null.
type DayHeader struct {
	Day           int    `json:"day" jsonschema:"required,minimum=1"`
	Date          string `json:"date" jsonschema:"required"`
	Location      string `json:"location,omitempty"`
	LocationLocal string `json:"location_local,omitempty"`
}

// LocationChange marks a travel day in the transportation file.
type LocationChange struct {
	FromBase  string  `json:"from_base" jsonschema:"required"`
	FromLocal string  `json:"from_local,omitempty"`
	ToBase    string  `json:"to_base" jsonschema:"required"`
	ToLocal   string  `json:"to_local,omitempty"`
	TypeBase  string  `json:"type_base,omitempty"`
	Cost      float64 `json:"cost,omitempty"`
}
