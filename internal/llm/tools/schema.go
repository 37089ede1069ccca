package tools

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// parametersOf builds the properties and required list of a tool from the
// json and jsonschema tags of params.
func parametersOf(params any) (map[string]any, []string) {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(params)

	properties := map[string]any{}
	if schema.Properties != nil {
		data, err := json.Marshal(schema.Properties)
		if err == nil {
			_ = json.Unmarshal(data, &properties)
		}
	}
	return properties, schema.Required
}
