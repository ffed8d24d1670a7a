package llm

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// generateSchema reflects T into a strict JSON schema accepted by structured outputs.
func generateSchema[T any]() map[string]interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schema := reflector.Reflect(v)
	b, err := schema.MarshalJSON()
	if err != nil {
		panic(err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		panic(err)
	}
	strict(m)
	return m
}

// strict closes every object and marks all of its properties required.
func strict(schema map[string]interface{}) {
	props, _ := schema["properties"].(map[string]interface{})
	if schema["type"] == "object" {
		schema["additionalProperties"] = false
		required := make([]string, 0, len(props))
		for name := range props {
			required = append(required, name)
		}
		if len(required) > 0 {
			schema["required"] = required
		}
	}
	for _, p := range props {
		if pm, ok := p.(map[string]interface{}); ok {
			strict(pm)
		}
	}
	if items, ok := schema["items"].(map[string]interface{}); ok {
		strict(items)
	}
}
