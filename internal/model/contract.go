package model

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed contract/sections.yaml
var contractSpec []byte

var (
	contractOnce sync.Once
	contractDoc  *openapi3.T
	contractErr  error
)

type sectionShape struct {
	schema   string
	expected string
}

var sectionShapes = map[string]sectionShape{
	SectionProject:    {schema: "Project", expected: "an object of project details"},
	SectionActivities: {schema: "Activities", expected: "an array of work activities"},
	SectionEmergency:  {schema: "Emergency", expected: "an object with contacts, procedures and monitoring"},
	SectionEquipment:  {schema: "Equipment", expected: "an array of plant equipment"},
	SectionPPE:        {schema: "PPE", expected: "an array of PPE identifiers"},
}

// ContractDocument returns the OpenAPI components document describing the
// accepted section shapes.
func ContractDocument() ([]byte, error) {
	if _, err := sectionContract(); err != nil {
		return nil, err
	}
	out := make([]byte, len(contractSpec))
	copy(out, contractSpec)
	return out, nil
}

func sectionContract() (*openapi3.T, error) {
	contractOnce.Do(func() {
		loader := openapi3.NewLoader()
		contractDoc, contractErr = loader.LoadFromData(contractSpec)
		if contractErr != nil {
			contractErr = fmt.Errorf("model: load section contract: %w", contractErr)
		}
	})
	return contractDoc, contractErr
}

// SectionSchema returns the contract schema for a section and the
// expected-shape description used in errors.
func SectionSchema(name string) (*openapi3.Schema, string, error) {
	shape, ok := sectionShapes[name]
	if !ok {
		return nil, "", fmt.Errorf("model: unknown section %q", name)
	}
	doc, err := sectionContract()
	if err != nil {
		return nil, shape.expected, err
	}
	ref := doc.Components.Schemas[shape.schema]
	if ref == nil || ref.Value == nil {
		return nil, shape.expected, fmt.Errorf("model: section contract missing schema %q", shape.schema)
	}
	return ref.Value, shape.expected, nil
}

// checkSection validates a present section against its contract schema and
// returns the expected-shape description used in errors.
func checkSection(name string, raw json.RawMessage) (string, error) {
	schema, expected, err := SectionSchema(name)
	if err != nil {
		return expected, err
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return expected, malformed(name, expected, err)
	}
	if err := schema.VisitJSON(PruneNulls(value)); err != nil {
		return expected, malformed(name, expected, err)
	}
	return expected, nil
}

// PruneNulls drops null object members so they read as absent fields.
// Nulls inside arrays are kept and fail validation.
func PruneNulls(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			if item == nil {
				continue
			}
			out[key] = PruneNulls(item)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = PruneNulls(item)
		}
		return out
	default:
		return value
	}
}
