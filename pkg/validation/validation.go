// Package validation checks render requests against the section contract and
// reports every problem found, where assembly stops at the first.
package validation

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	internalmodel "github.com/goliatone/go-swms/internal/model"
)

// Issue is one contract violation with its location.
type Issue struct {
	Section string `json:"section,omitempty"`
	Path    string `json:"path,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// Result captures validation outcomes for a whole request.
type Result struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues,omitempty"`
}

// ValidateRequest parses a JSON or YAML render request and checks every
// present section. Absent sections are valid; they take defaults.
func ValidateRequest(raw []byte) Result {
	sections, err := internalmodel.LoadSections(raw)
	if err != nil {
		return Result{Valid: false, Issues: []Issue{issueFromError("", err)}}
	}

	result := Result{Valid: true}
	for _, name := range internalmodel.SectionNames() {
		if !sections.Present(name) {
			continue
		}
		issues := ValidateSection(name, sections.Raw(name))
		if len(issues) > 0 {
			result.Valid = false
			result.Issues = append(result.Issues, issues...)
		}
	}
	return result
}

// ValidateSection checks one raw section against its schema.
func ValidateSection(name string, raw json.RawMessage) []Issue {
	schema, expected, err := internalmodel.SectionSchema(name)
	if err != nil {
		return []Issue{{Section: name, Message: err.Error()}}
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return []Issue{{Section: name, Path: "#/" + name, Field: name, Message: "expected " + expected + ": " + err.Error()}}
	}
	err = schema.VisitJSON(internalmodel.PruneNulls(value), openapi3.MultiErrors())
	if err == nil {
		return nil
	}
	return issuesFrom(name, err)
}

func issuesFrom(section string, err error) []Issue {
	var multi openapi3.MultiError
	if errors.As(err, &multi) {
		out := make([]Issue, 0, len(multi))
		for _, item := range multi {
			out = append(out, issuesFrom(section, item)...)
		}
		return out
	}
	return []Issue{issueFromError(section, err)}
}

func issueFromError(section string, err error) Issue {
	if err == nil {
		return Issue{Section: section, Message: "unknown error"}
	}

	var schemaErr *openapi3.SchemaError
	if errors.As(err, &schemaErr) {
		pointer := schemaErr.JSONPointer()
		return Issue{
			Section: section,
			Path:    pointerPath(section, pointer),
			Field:   fieldPath(section, pointer),
			Message: strings.TrimSpace(schemaErr.Reason),
		}
	}

	var malformed *internalmodel.MalformedSectionError
	if errors.As(err, &malformed) {
		section = malformed.Section
	}
	msg := strings.TrimSpace(err.Error())
	msg = strings.TrimPrefix(msg, "model: ")
	return Issue{Section: section, Message: msg}
}

func pointerPath(section string, pointer []string) string {
	parts := make([]string, 0, len(pointer)+1)
	parts = append(parts, section)
	for _, segment := range pointer {
		segment = strings.ReplaceAll(segment, "~", "~0")
		segment = strings.ReplaceAll(segment, "/", "~1")
		parts = append(parts, segment)
	}
	return "#/" + strings.Join(parts, "/")
}

// fieldPath renders a pointer as activities[0].hazards[1].category.
func fieldPath(section string, pointer []string) string {
	var b strings.Builder
	b.WriteString(section)
	for _, segment := range pointer {
		if isNumeric(segment) {
			b.WriteString("[")
			b.WriteString(segment)
			b.WriteString("]")
			continue
		}
		if segment == "" {
			continue
		}
		b.WriteString(".")
		b.WriteString(segment)
	}
	return b.String()
}

func isNumeric(value string) bool {
	if value == "" {
		return false
	}
	_, err := strconv.Atoi(value)
	return err == nil
}
