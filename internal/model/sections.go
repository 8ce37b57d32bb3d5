package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Section names as they appear in render requests.
const (
	SectionProject    = "project"
	SectionActivities = "activities"
	SectionEmergency  = "emergency"
	SectionEquipment  = "equipment"
	SectionPPE        = "ppe"
)

// SectionNames lists the sections in assembly order.
func SectionNames() []string {
	return []string{SectionProject, SectionActivities, SectionEmergency, SectionEquipment, SectionPPE}
}

// Sections carries the raw payload of each form section. Any section may be
// absent or null.
type Sections struct {
	Project    json.RawMessage `json:"project,omitempty"`
	Activities json.RawMessage `json:"activities,omitempty"`
	Emergency  json.RawMessage `json:"emergency,omitempty"`
	Equipment  json.RawMessage `json:"equipment,omitempty"`
	PPE        json.RawMessage `json:"ppe,omitempty"`
}

// Raw returns the payload stored for the named section.
func (s Sections) Raw(name string) json.RawMessage {
	switch name {
	case SectionProject:
		return s.Project
	case SectionActivities:
		return s.Activities
	case SectionEmergency:
		return s.Emergency
	case SectionEquipment:
		return s.Equipment
	case SectionPPE:
		return s.PPE
	default:
		return nil
	}
}

// Present reports whether the named section carries a non-null payload.
func (s Sections) Present(name string) bool {
	return !isAbsent(s.Raw(name))
}

// Canonical returns a compact JSON encoding of the sections suitable for
// hashing. Absent sections are omitted.
func (s Sections) Canonical() ([]byte, error) {
	normalized := Sections{}
	for _, name := range SectionNames() {
		raw := s.Raw(name)
		if isAbsent(raw) {
			continue
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return nil, malformed(name, "valid JSON", err)
		}
		normalized.set(name, buf.Bytes())
	}
	return json.Marshal(normalized)
}

func (s *Sections) set(name string, raw json.RawMessage) {
	switch name {
	case SectionProject:
		s.Project = raw
	case SectionActivities:
		s.Activities = raw
	case SectionEmergency:
		s.Emergency = raw
	case SectionEquipment:
		s.Equipment = raw
	case SectionPPE:
		s.PPE = raw
	}
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// LoadSections parses a render request written as JSON or YAML.
func LoadSections(data []byte) (Sections, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Sections{}, fmt.Errorf("model: render request is empty")
	}

	var sections Sections
	jsonErr := json.Unmarshal(trimmed, &sections)
	if jsonErr == nil {
		return sections, nil
	}

	var generic map[string]any
	if err := yaml.Unmarshal(trimmed, &generic); err != nil {
		return Sections{}, fmt.Errorf("model: parse render request: json: %v; yaml: %w", jsonErr, err)
	}
	for _, name := range SectionNames() {
		value, ok := generic[name]
		if !ok || value == nil {
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return Sections{}, malformed(name, "JSON-compatible YAML", err)
		}
		sections.set(name, raw)
	}
	return sections, nil
}

// LoadSectionsFile reads a render request from disk.
func LoadSectionsFile(path string) (Sections, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Sections{}, fmt.Errorf("model: read render request %q: %w", path, err)
	}
	return LoadSections(data)
}
