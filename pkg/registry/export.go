package registry

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/tripweaver/tripweaver/pkg/trip"
)

// GenerateEnvelopeSchema produces a JSON Schema Draft 2020-12 document
// for the shared agent-file envelope from the Go types, so external
// agents can validate their output shape before handing it over.
func GenerateEnvelopeSchema() ([]byte, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = false

	s := r.Reflect(&trip.Envelope{})
	s.ID = "https://github.com/tripweaver/tripweaver/schemas/envelope.json"
	s.Title = "Trip agent file envelope"
	s.Description = "Outer document shape shared by every agent file in a trip directory"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal envelope schema: %w", err)
	}
	return data, nil
}
