package model

import (
	"time"

	internalmodel "github.com/goliatone/go-swms/internal/model"
)

type Document = internalmodel.Document
type ProjectInfo = internalmodel.ProjectInfo
type WorkActivity = internalmodel.WorkActivity
type Hazard = internalmodel.Hazard
type PlantEquipment = internalmodel.PlantEquipment
type EmergencyContact = internalmodel.EmergencyContact
type Date = internalmodel.Date
type Sections = internalmodel.Sections
type Defaults = internalmodel.Defaults

// MalformedSectionError re-exports the assembly failure type.
type MalformedSectionError = internalmodel.MalformedSectionError

// ErrMalformedSection matches every MalformedSectionError.
var ErrMalformedSection = internalmodel.ErrMalformedSection

const (
	DateLayout        = internalmodel.DateLayout
	SectionProject    = internalmodel.SectionProject
	SectionActivities = internalmodel.SectionActivities
	SectionEmergency  = internalmodel.SectionEmergency
	SectionEquipment  = internalmodel.SectionEquipment
	SectionPPE        = internalmodel.SectionPPE
)

// NewDate builds a calendar date.
func NewDate(year int, month time.Month, day int) Date {
	return internalmodel.NewDate(year, month, day)
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp.
func ParseDate(raw string) (Date, error) {
	return internalmodel.ParseDate(raw)
}

// LoadSections parses a JSON or YAML render request.
func LoadSections(data []byte) (Sections, error) {
	return internalmodel.LoadSections(data)
}

// LoadSectionsFile reads a render request from disk.
func LoadSectionsFile(path string) (Sections, error) {
	return internalmodel.LoadSectionsFile(path)
}

// SanitizeText strips markup from free text.
func SanitizeText(raw string) string {
	return internalmodel.SanitizeText(raw)
}

// DefaultDefaults returns the stock textual substitutions.
func DefaultDefaults() Defaults {
	return internalmodel.DefaultDefaults()
}

// ContractDocument returns the OpenAPI document describing accepted sections.
func ContractDocument() ([]byte, error) {
	return internalmodel.ContractDocument()
}
