package model

import (
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-swms/pkg/risk"
)

// Options configures the behaviour of the Assembler. Options are constructed
// by the public adapter in pkg/model and passed into New.
type Options struct {
	Scorer   *risk.Scorer
	Logger   *zap.Logger
	Now      func() time.Time
	Defaults Defaults
}

// Defaults holds the textual substitutions applied to absent fields.
type Defaults struct {
	CompanyName         string
	ProjectName         string
	Placeholder         string
	Revision            string
	Trade               string
	HazardDescription   string
	EquipmentName       string
	EquipmentCategory   string
	EquipmentRiskLevel  risk.Level
	ContactName         string
	EmergencyProcedures string
	EmergencyMonitoring string
	Legislation         []string
	EmergencyContacts   []EmergencyContact
}

// DefaultDefaults returns the stock substitutions.
func DefaultDefaults() Defaults {
	return Defaults{
		CompanyName:        "Unnamed Company",
		ProjectName:        "Untitled Project",
		Placeholder:        "TBD",
		Revision:           "1",
		Trade:              "General",
		HazardDescription:  "Unspecified hazard",
		EquipmentName:      "Unnamed equipment",
		EquipmentCategory:  "General",
		EquipmentRiskLevel: risk.LevelMedium,
		ContactName:        "Unnamed contact",
		EmergencyProcedures: "Stop work, make the area safe and notify the site supervisor. " +
			"Call emergency services on 000 for fire, medical or rescue events.",
		EmergencyMonitoring: "The site supervisor reviews this SWMS daily and whenever " +
			"conditions, methods or personnel change.",
		Legislation: []string{
			"Work Health and Safety Act 2011",
			"Work Health and Safety Regulation 2011",
		},
		EmergencyContacts: []EmergencyContact{
			{Name: "Emergency Services", Phone: "000"},
		},
	}
}

func defaultOptions() Options {
	return Options{
		Logger:   zap.NewNop(),
		Now:      time.Now,
		Defaults: DefaultDefaults(),
	}
}
