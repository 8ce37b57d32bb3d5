package model

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-swms/pkg/risk"
)

// Assembler merges independently submitted form sections into a Document.
type Assembler struct {
	opts Options
}

// New creates an Assembler with the supplied options.
func New(options Options) *Assembler {
	opts := defaultOptions()
	if options.Scorer != nil {
		opts.Scorer = options.Scorer
	} else {
		opts.Scorer = risk.NewScorer()
	}
	if options.Logger != nil {
		opts.Logger = options.Logger
	}
	if options.Now != nil {
		opts.Now = options.Now
	}
	opts.Defaults = mergeDefaults(opts.Defaults, options.Defaults)
	return &Assembler{opts: opts}
}

// Scorer exposes the scorer used for activities lacking precomputed scores.
func (a *Assembler) Scorer() *risk.Scorer {
	return a.opts.Scorer
}

// Assemble validates each present section, substitutes defaults and scores
// activities. The first malformed section aborts assembly.
func (a *Assembler) Assemble(ctx context.Context, sections Sections) (Document, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		project    projectInput
		activities []activityInput
		emergency  emergencyInput
		equipment  []equipmentInput
		ppe        []string
	)
	targets := map[string]any{
		SectionProject:    &project,
		SectionActivities: &activities,
		SectionEmergency:  &emergency,
		SectionEquipment:  &equipment,
		SectionPPE:        &ppe,
	}

	for _, name := range SectionNames() {
		if err := ctx.Err(); err != nil {
			return Document{}, fmt.Errorf("model: assemble: %w", err)
		}
		raw := sections.Raw(name)
		if isAbsent(raw) {
			continue
		}
		expected, err := checkSection(name, raw)
		if err != nil {
			return Document{}, err
		}
		if err := json.Unmarshal(raw, targets[name]); err != nil {
			return Document{}, malformed(name, expected, err)
		}
	}

	doc := Document{
		Project:             a.project(project),
		Activities:          a.activities(activities),
		EmergencyContacts:   a.contacts(emergency.Contacts),
		EmergencyProcedures: a.orDefault(emergency.Procedures, a.opts.Defaults.EmergencyProcedures),
		EmergencyMonitoring: a.orDefault(emergency.Monitoring, a.opts.Defaults.EmergencyMonitoring),
		Equipment:           a.equipment(equipment),
		PPE:                 normalizePPE(ppe),
	}

	a.opts.Logger.Debug("document assembled",
		zap.String("project", doc.Project.ProjectName),
		zap.Int("activities", len(doc.Activities)),
		zap.Int("hazards", doc.HazardCount()),
		zap.Int("equipment", len(doc.Equipment)),
	)
	return doc, nil
}

func (a *Assembler) project(in projectInput) ProjectInfo {
	d := a.opts.Defaults
	info := ProjectInfo{
		CompanyName:         a.orDefault(in.CompanyName, d.CompanyName),
		ABN:                 a.orDefault(in.ABN, d.Placeholder),
		ProjectName:         a.orDefault(in.ProjectName, d.ProjectName),
		ProjectNumber:       a.orDefault(in.ProjectNumber, d.Placeholder),
		SiteAddress:         a.orDefault(in.SiteAddress, d.Placeholder),
		PrincipalContractor: a.orDefault(in.PrincipalContractor, d.Placeholder),
		ProjectManager:      a.orDefault(in.ProjectManager, d.Placeholder),
		SiteSupervisor:      a.orDefault(in.SiteSupervisor, d.Placeholder),
		PreparedBy:          a.orDefault(in.PreparedBy, d.Placeholder),
		ApprovedBy:          a.orDefault(in.ApprovedBy, d.Placeholder),
		Reference:           a.orDefault(in.Reference, d.Placeholder),
		Revision:            a.orDefault(in.Revision, d.Revision),
		DatePrepared:        in.DatePrepared,
	}
	if info.DatePrepared.IsZero() {
		info.DatePrepared = DateOf(a.opts.Now())
	}
	return info
}

func (a *Assembler) activities(inputs []activityInput) []WorkActivity {
	out := make([]WorkActivity, 0, len(inputs))
	seen := make(map[string]struct{}, len(inputs))

	for index, in := range inputs {
		activity := WorkActivity{
			ID:                 uniqueActivityID(SanitizeText(in.ID), index, seen),
			Name:               a.orDefault(in.Name, fmt.Sprintf("Activity %d", index+1)),
			Description:        SanitizeText(in.Description),
			Trade:              a.orDefault(in.Trade, a.opts.Defaults.Trade),
			ControlMeasures:    sanitizeList(in.ControlMeasures),
			Legislation:        sanitizeList(in.Legislation),
			HighRiskWork:       sanitizeList(in.HighRiskWork),
			ResponsiblePersons: sanitizeList(in.ResponsiblePersons),
		}
		if len(activity.ControlMeasures) == 0 {
			activity.ControlMeasures = []string{}
		}
		if len(activity.Legislation) == 0 {
			activity.Legislation = append([]string(nil), a.opts.Defaults.Legislation...)
		}

		activity.Hazards = make([]Hazard, 0, len(in.Hazards))
		for _, hazardIn := range in.Hazards {
			activity.Hazards = append(activity.Hazards, a.hazard(activity, hazardIn))
		}

		category := risk.CategoryNone
		if len(activity.Hazards) > 0 {
			category = activity.Hazards[0].Category
		}
		activity.InitialRisk, activity.ResidualRisk = a.scores(
			activity.Name, activity.Trade, category,
			in.InitialRisk, in.ResidualRisk, len(activity.ControlMeasures),
		)

		out = append(out, activity)
	}
	return out
}

func (a *Assembler) hazard(activity WorkActivity, in hazardInput) Hazard {
	hazard := Hazard{
		Category:        risk.ParseCategory(in.Category),
		Description:     a.orDefault(in.Description, a.opts.Defaults.HazardDescription),
		ControlMeasures: sanitizeList(in.ControlMeasures),
	}
	if hazard.Category == risk.CategoryNone {
		hazard.Category = risk.CategoryGeneral
	}
	if len(hazard.ControlMeasures) == 0 {
		hazard.ControlMeasures = []string{}
	}
	task := strings.TrimSpace(activity.Name + " " + hazard.Description)
	hazard.InitialRisk, hazard.ResidualRisk = a.scores(
		task, activity.Trade, hazard.Category,
		in.InitialRisk, in.ResidualRisk, len(hazard.ControlMeasures),
	)
	return hazard
}

// scores keeps a caller supplied initial score, clamped to the scorer's
// range, and accepts a supplied residual only when it shows the required
// reduction and does not exceed the initial score.
func (a *Assembler) scores(task, trade string, category risk.HazardCategory, initial, residual *risk.Score, controls int) (risk.Score, risk.Score) {
	var initialScore risk.Score
	if initial != nil && *initial > 0 {
		tables := a.opts.Scorer.Tables()
		initialScore = initial.Clamp(risk.Score(tables.MinScore), risk.Score(tables.MaxScore))
		if initialScore != *initial {
			a.opts.Logger.Debug("clamping supplied initial risk",
				zap.String("task", task),
				zap.Int("supplied", initial.Int()),
				zap.Int("initial", initialScore.Int()),
			)
		}
	} else {
		initialScore = a.opts.Scorer.Score(task, trade, category)
	}

	if residual != nil && *residual <= initialScore && risk.SatisfiesResidual(initialScore, *residual, controls) {
		return initialScore, *residual
	}
	if residual != nil {
		a.opts.Logger.Debug("recomputing residual risk",
			zap.String("task", task),
			zap.Int("initial", initialScore.Int()),
			zap.Int("supplied", residual.Int()),
			zap.Int("controls", controls),
		)
	}
	return initialScore, risk.Residual(initialScore, controls)
}

func (a *Assembler) contacts(inputs []contactInput) []EmergencyContact {
	out := make([]EmergencyContact, 0, len(inputs))
	for _, in := range inputs {
		name := SanitizeText(in.Name)
		phone := SanitizeText(in.Phone)
		if name == "" && phone == "" {
			continue
		}
		out = append(out, EmergencyContact{
			Name:  a.orDefault(name, a.opts.Defaults.ContactName),
			Phone: a.orDefault(phone, a.opts.Defaults.Placeholder),
		})
	}
	if len(out) == 0 {
		out = append(out, a.opts.Defaults.EmergencyContacts...)
	}
	return out
}

func (a *Assembler) equipment(inputs []equipmentInput) []PlantEquipment {
	out := make([]PlantEquipment, 0, len(inputs))
	for _, in := range inputs {
		level, ok := risk.ParseLevel(in.RiskLevel)
		if !ok {
			level = a.opts.Defaults.EquipmentRiskLevel
		}
		out = append(out, PlantEquipment{
			Name:                  a.orDefault(in.Name, a.opts.Defaults.EquipmentName),
			Category:              a.orDefault(in.Category, a.opts.Defaults.EquipmentCategory),
			CertificationRequired: in.CertificationRequired,
			RiskLevel:             level,
			NextInspection:        in.NextInspection,
		})
	}
	return out
}

func (a *Assembler) orDefault(value, fallback string) string {
	if cleaned := SanitizeText(value); cleaned != "" {
		return cleaned
	}
	return fallback
}

// uniqueActivityID returns id when it is non-empty and unused, otherwise an
// index based fallback with a numeric suffix on collision.
func uniqueActivityID(id string, index int, seen map[string]struct{}) string {
	if id != "" {
		if _, taken := seen[id]; !taken {
			seen[id] = struct{}{}
			return id
		}
	}
	base := fmt.Sprintf("activity-%d", index+1)
	candidate := base
	for suffix := 2; ; suffix++ {
		if _, taken := seen[candidate]; !taken {
			break
		}
		candidate = fmt.Sprintf("%s-%d", base, suffix)
	}
	seen[candidate] = struct{}{}
	return candidate
}

func normalizePPE(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		cleaned := SanitizeText(value)
		if cleaned == "" {
			continue
		}
		key := strings.ToLower(cleaned)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, cleaned)
	}
	return out
}

func mergeDefaults(base, override Defaults) Defaults {
	pick := func(current *string, value string) {
		if strings.TrimSpace(value) != "" {
			*current = value
		}
	}
	pick(&base.CompanyName, override.CompanyName)
	pick(&base.ProjectName, override.ProjectName)
	pick(&base.Placeholder, override.Placeholder)
	pick(&base.Revision, override.Revision)
	pick(&base.Trade, override.Trade)
	pick(&base.HazardDescription, override.HazardDescription)
	pick(&base.EquipmentName, override.EquipmentName)
	pick(&base.EquipmentCategory, override.EquipmentCategory)
	pick(&base.ContactName, override.ContactName)
	pick(&base.EmergencyProcedures, override.EmergencyProcedures)
	pick(&base.EmergencyMonitoring, override.EmergencyMonitoring)
	if override.EquipmentRiskLevel.IsValid() {
		base.EquipmentRiskLevel = override.EquipmentRiskLevel
	}
	if len(override.Legislation) > 0 {
		base.Legislation = append([]string(nil), override.Legislation...)
	}
	if len(override.EmergencyContacts) > 0 {
		base.EmergencyContacts = append([]EmergencyContact(nil), override.EmergencyContacts...)
	}
	return base
}
