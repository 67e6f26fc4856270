package store

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"
)

// ThreadStateSchema reflects the JSON schema of the persisted thread
// format, for external validators and documentation.
func ThreadStateSchema() *jsonschema.Schema {
	// Messages carry fields the engine does not model (contentType, loose
	// metadata), so additional properties stay legal.
	reflector := &jsonschema.Reflector{
		DoNotReference:            true,
		Anonymous:                 true,
		AllowAdditionalProperties: true,
	}
	return reflector.Reflect(&ThreadState{})
}

// ValidateThreadJSON checks raw thread JSON against the schema and returns
// human-readable issues. Advisory only: stores log the issues and load the
// data anyway, since the engine tolerates malformed envelopes.
func ValidateThreadJSON(raw []byte) []string {
	schemaBytes, err := json.Marshal(ThreadStateSchema())
	if err != nil {
		return []string{fmt.Sprintf("could not marshal schema: %v", err)}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaBytes),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return []string{fmt.Sprintf("could not validate: %v", err)}
	}

	var issues []string
	for _, desc := range result.Errors() {
		issues = append(issues, desc.String())
	}
	return issues
}
