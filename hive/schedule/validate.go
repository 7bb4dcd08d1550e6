package schedule

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/openhive/hivecore/hive/ports"
)

// scheduleSchema constrains imported schedule documents. Kept permissive
// on purpose: devices tolerate extra keys, so imports should too.
const scheduleSchema = `{
	"type": "object",
	"properties": {
		"provided_schedule": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"module_id": {"type": "string", "minLength": 1},
					"content_id": {"type": "string"}
				},
				"required": ["module_id"]
			}
		},
		"generate": {
			"type": "object",
			"properties": {
				"chat_count": {"type": "integer", "minimum": 0},
				"module_count": {"type": "integer", "minimum": 0},
				"chat_modules": {"type": "array"},
				"extra_modules": {"type": "array"},
				"excluded_module_ids": {"type": "array", "items": {"type": "string"}}
			}
		}
	}
}`

// Validate checks a schedule document against the import schema.
func Validate(doc ports.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal schedule: %w", err)
	}

	schemaLoader := gojsonschema.NewStringLoader(scheduleSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if !result.Valid() {
		var issues []string
		for _, desc := range result.Errors() {
			issues = append(issues, desc.String())
		}
		return fmt.Errorf("invalid schedule document: %s", strings.Join(issues, "; "))
	}
	return nil
}
