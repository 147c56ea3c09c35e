package reconcile

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// savePayloadSchema guards the shape of a save request before any typed
// decoding. Identifiers are deliberately untyped: clients may send
// integers, strings, or nothing at all.
const savePayloadSchema = `{
	"type": "object",
	"properties": {
		"name": {"type": "string"},
		"displayName": {"type": "string"},
		"email": {"type": "string"},
		"phone": {"type": "string"},
		"location": {"type": "string"},
		"links": {"type": "array", "items": {"type": "string"}},
		"templateId": {"type": "integer"},
		"revision": {"type": "integer"},
		"sections": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["type", "items"],
				"properties": {
					"type": {"type": "string"},
					"title": {"type": "string"},
					"items": {
						"type": "array",
						"items": {
							"type": "object",
							"properties": {
								"title": {"type": "string"},
								"organization": {"type": "string"},
								"startDate": {"type": "string"},
								"endDate": {"type": "string"},
								"location": {"type": "string"},
								"description": {"type": "string"},
								"catalog": {
									"type": "object",
									"required": ["kind", "id"],
									"properties": {
										"kind": {"type": "string", "enum": ["education", "experience", "project"]},
										"id": {"type": "integer"}
									}
								},
								"fields": {"type": "object", "additionalProperties": {"type": "string"}},
								"bullets": {"type": "array", "items": {"type": "string"}},
								"skillIds": {"type": "array", "items": {"type": "integer"}}
							}
						}
					}
				}
			}
		}
	},
	"required": ["sections"]
}`

var savePayloadLoader = gojsonschema.NewStringLoader(savePayloadSchema)

// ValidateSavePayload checks the raw request body against the save schema
// and converts violations into a ValidationError with per-field details.
func ValidateSavePayload(body []byte) error {
	result, err := gojsonschema.Validate(savePayloadLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return validationErr("malformed payload: %v", err)
	}
	if result.Valid() {
		return nil
	}
	details := make([]string, 0, len(result.Errors()))
	for _, violation := range result.Errors() {
		details = append(details, fmt.Sprintf("%s: %s", violation.Field(), violation.Description()))
	}
	return &ValidationError{Message: "payload does not match save schema", Details: details}
}
