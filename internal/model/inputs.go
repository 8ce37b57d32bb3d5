package model

import "github.com/goliatone/go-swms/pkg/risk"

// Wire shapes of each section. Pointers distinguish an absent score from a
// supplied one.

type projectInput struct {
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

type activityInput struct {
	ID                 string        `json:"id"`
	Name               string        `json:"name"`
	Description        string        `json:"description"`
	Trade              string        `json:"trade"`
	InitialRisk        *risk.Score   `json:"initialRisk"`
	Hazards            []hazardInput `json:"hazards"`
	ControlMeasures    []string      `json:"controlMeasures"`
	ResidualRisk       *risk.Score   `json:"residualRisk"`
	Legislation        []string      `json:"legislation"`
	HighRiskWork       []string      `json:"highRiskWork"`
	ResponsiblePersons []string      `json:"responsiblePersons"`
}

type hazardInput struct {
	Category        string      `json:"category"`
	Description     string      `json:"description"`
	InitialRisk     *risk.Score `json:"initialRisk"`
	ControlMeasures []string    `json:"controlMeasures"`
	ResidualRisk    *risk.Score `json:"residualRisk"`
}

type emergencyInput struct {
	Contacts   []contactInput `json:"contacts"`
	Procedures string         `json:"procedures"`
	Monitoring string         `json:"monitoring"`
}

type contactInput struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type equipmentInput struct {
	Name                  string `json:"name"`
	Category              string `json:"category"`
	CertificationRequired bool   `json:"certificationRequired"`
	RiskLevel             string `json:"riskLevel"`
	NextInspection        Date   `json:"nextInspection"`
}
