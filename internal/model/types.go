package model

import (
	"github.com/goliatone/go-swms/pkg/risk"
)

// Document is the assembled SWMS aggregate renderers consume. A Document is
// built fresh per render request and treated as read-only afterwards.
type Document struct {
	Project             ProjectInfo        `json:"project"`
	Activities          []WorkActivity     `json:"activities"`
	EmergencyContacts   []EmergencyContact `json:"emergencyContacts"`
	EmergencyProcedures string             `json:"emergencyProcedures"`
	EmergencyMonitoring string             `json:"emergencyMonitoring"`
	Equipment           []PlantEquipment   `json:"equipment"`
	PPE                 []string           `json:"ppe"`
	Metadata            map[string]string  `json:"metadata,omitempty"`
}

// ProjectInfo identifies the company, project and responsible personnel.
// Every field carries a textual default after assembly.
type ProjectInfo struct {
	CompanyName         string `json:"companyName"`
	ABN                 string `json:"abn"`
	ProjectName         string `json:"projectName"`
	ProjectNumber       string `json:"projectNumber"`
	SiteAddress         string `json:"siteAddress"`
	PrincipalContractor string `json:"principalContractor"`
	ProjectManager      string `json:"projectManager"`
	SiteSupervisor      string `json:"siteSupervisor"`
	PreparedBy          string `json:"preparedBy"`
	ApprovedBy          string `json:"approvedBy"`
	Reference           string `json:"reference"`
	Revision            string `json:"revision"`
	DatePrepared        Date   `json:"datePrepared"`
}

// WorkActivity is one job step with its hazards, controls and scores.
type WorkActivity struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Description        string     `json:"description"`
	Trade              string     `json:"trade"`
	InitialRisk        risk.Score `json:"initialRisk"`
	Hazards            []Hazard   `json:"hazards"`
	ControlMeasures    []string   `json:"controlMeasures"`
	ResidualRisk       risk.Score `json:"residualRisk"`
	Legislation        []string   `json:"legislation"`
	HighRiskWork       []string   `json:"highRiskWork,omitempty"`
	ResponsiblePersons []string   `json:"responsiblePersons,omitempty"`
}

// Hazard is a single hazard identified for an activity.
type Hazard struct {
	Category        risk.HazardCategory `json:"category"`
	Description     string              `json:"description"`
	InitialRisk     risk.Score          `json:"initialRisk"`
	ControlMeasures []string            `json:"controlMeasures"`
	ResidualRisk    risk.Score          `json:"residualRisk"`
}

// PlantEquipment describes plant used on site.
type PlantEquipment struct {
	Name                  string     `json:"name"`
	Category              string     `json:"category"`
	CertificationRequired bool       `json:"certificationRequired"`
	RiskLevel             risk.Level `json:"riskLevel"`
	NextInspection        Date       `json:"nextInspection"`
}

// EmergencyContact is a named phone contact.
type EmergencyContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// HighestInitialRisk returns the largest initial score across activities.
func (d Document) HighestInitialRisk() risk.Score {
	var highest risk.Score
	for _, activity := range d.Activities {
		if activity.InitialRisk > highest {
			highest = activity.InitialRisk
		}
	}
	return highest
}

// HazardCount returns the number of hazards across all activities.
func (d Document) HazardCount() int {
	total := 0
	for _, activity := range d.Activities {
		total += len(activity.Hazards)
	}
	return total
}
