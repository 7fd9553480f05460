package receipt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// amountSchema accepts a JSON number or a decimal string with up to two decimals.
var amountSchema = map[string]any{
	"type":    []any{"number", "string"},
	"pattern": `^-?[0-9]+(\.[0-9]{1,2})?$`,
}

func receiptSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"items", "grand_total"},
		"properties": map[string]any{
			"items": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []any{"name", "line_total"},
					"properties": map[string]any{
						"name":       map[string]any{"type": "string", "minLength": 1},
						"quantity":   map[string]any{"type": "integer", "minimum": 0}, // omitted or 0 means 1
						"unit_price": amountSchema,
						"line_total": amountSchema,
					},
				},
			},
			"charges": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []any{"name", "amount"},
					"properties": map[string]any{
						"name":    map[string]any{"type": "string"},
						"amount":  amountSchema,
						"percent": map[string]any{"type": []any{"number", "string", "null"}},
					},
				},
			},
			"subtotal":    amountSchema,
			"grand_total": amountSchema,
		},
	}
}

func calculateRequestSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"receipt", "participants", "assignments"},
		"properties": map[string]any{
			"receipt":  receiptSchema(),
			"currency": map[string]any{"type": "string"},
			"participants": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type":     "object",
					"required": []any{"name"},
					"properties": map[string]any{
						"id":   map[string]any{"type": "string"},
						"name": map[string]any{"type": "string", "minLength": 1},
					},
				},
			},
			"assignments": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []any{"item"},
					"properties": map[string]any{
						"item":     map[string]any{"type": "integer", "minimum": 0},
						"assignee": map[string]any{"type": "string"},
						"shares": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type":     "object",
								"required": []any{"participant_id", "amount"},
								"properties": map[string]any{
									"participant_id": map[string]any{"type": "string"},
									"amount":         amountSchema,
								},
							},
						},
						"split_evenly": map[string]any{
							"type":  "array",
							"items": map[string]any{"type": "string"},
						},
					},
				},
			},
		},
	}
}

var (
	receiptSchemaOnce = sync.OnceValues(func() (*jsonschema.Schema, error) {
		return compile("receipt.json", receiptSchema())
	})
	requestSchemaOnce = sync.OnceValues(func() (*jsonschema.Schema, error) {
		return compile("calculate_request.json", calculateRequestSchema())
	})
)

func compile(name string, schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// ValidateDocument checks a raw receipt JSON document, as produced by the
// extraction pipeline, against the receipt schema.
func ValidateDocument(data []byte) error {
	schema, err := receiptSchemaOnce()
	if err != nil {
		return err
	}
	return validate(schema, data)
}

// ValidateCalculateRequest checks a raw calculate request document.
func ValidateCalculateRequest(data []byte) error {
	schema, err := requestSchemaOnce()
	if err != nil {
		return err
	}
	return validate(schema, data)
}

func validate(schema *jsonschema.Schema, data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
