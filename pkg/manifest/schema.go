package manifest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// manifestSchema is the wire contract for manifest objects. Unknown fields
// are allowed so slicer integrations can extend the manifest without a core
// release; the fields this core consumes are typed strictly.
const manifestSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["gcode_key", "summary"],
	"properties": {
		"gcode_key": {"type": "string", "minLength": 1},
		"preview_key": {"type": "string"},
		"summary": {
			"type": "object",
			"properties": {
				"estimate_min": {"type": "integer", "minimum": 0},
				"total_text": {"type": "string"},
				"filament_g": {"type": "number", "minimum": 0}
			}
		},
		"filament_total_mm": {"type": "number", "minimum": 0},
		"filament_total_g": {"type": "number", "minimum": 0},
		"first_layer": {
			"type": "object",
			"properties": {
				"height": {"type": "number"},
				"bed_temp": {"type": "integer"},
				"nozzle_temp": {"type": "integer"},
				"fan_speed": {"type": "integer"}
			}
		}
	}
}`

var compiledSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	const schemaURL = "https://printforge.schemas.local/manifest.schema.json"
	if err := c.AddResource(schemaURL, strings.NewReader(manifestSchema)); err != nil {
		panic(fmt.Sprintf("manifest schema load failed: %v", err))
	}
	compiled, err := c.Compile(schemaURL)
	if err != nil {
		panic(fmt.Sprintf("manifest schema compile failed: %v", err))
	}
	return compiled
}

// Validate checks manifest JSON against the wire contract.
func Validate(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("manifest is not valid JSON: %w", err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return fmt.Errorf("manifest schema violation: %w", err)
	}
	return nil
}
