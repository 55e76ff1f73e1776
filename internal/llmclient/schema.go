package llmclient

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// ToolSchema generates a JSON schema document for v's type, suitable
// for an LLM tool-calling or MCP tool argument declaration. v should be
// a pointer to the args struct, not a populated value.
func ToolSchema(v any) (json.RawMessage, error) {
	reflector := &jsonschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
	}
	schema := reflector.Reflect(v)
	return json.Marshal(schema)
}
