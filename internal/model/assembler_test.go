package model_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-swms/internal/model"
	"github.com/goliatone/go-swms/pkg/risk"
)

var fixedNow = time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC)

func newAssembler() *model.Assembler {
	return model.New(model.Options{
		Scorer: risk.NewScorer(risk.WithJitter(risk.NoJitter)),
		Now:    func() time.Time { return fixedNow },
	})
}

func sectionsFromJSON(t *testing.T, payload string) model.Sections {
	t.Helper()
	var sections model.Sections
	if err := json.Unmarshal([]byte(payload), &sections); err != nil {
		t.Fatalf("decode sections: %v", err)
	}
	return sections
}

func TestAssemble_EmptySectionsReceiveDefaults(t *testing.T) {
	doc, err := newAssembler().Assemble(context.Background(), model.Sections{})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	defaults := model.DefaultDefaults()
	want := model.ProjectInfo{
		CompanyName:         "Unnamed Company",
		ABN:                 "TBD",
		ProjectName:         "Untitled Project",
		ProjectNumber:       "TBD",
		SiteAddress:         "TBD",
		PrincipalContractor: "TBD",
		ProjectManager:      "TBD",
		SiteSupervisor:      "TBD",
		PreparedBy:          "TBD",
		ApprovedBy:          "TBD",
		Reference:           "TBD",
		Revision:            "1",
		DatePrepared:        model.NewDate(2025, time.March, 14),
	}
	if diff := cmp.Diff(want, doc.Project); diff != "" {
		t.Fatalf("project defaults mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(defaults.EmergencyContacts, doc.EmergencyContacts); diff != "" {
		t.Fatalf("emergency contacts mismatch (-want +got):\n%s", diff)
	}
	if doc.EmergencyProcedures == "" || doc.EmergencyMonitoring == "" {
		t.Fatalf("expected emergency text defaults, got %q / %q", doc.EmergencyProcedures, doc.EmergencyMonitoring)
	}
	if len(doc.Activities) != 0 || len(doc.Equipment) != 0 || len(doc.PPE) != 0 {
		t.Fatalf("expected empty sequences, got %+v", doc)
	}
}

func TestAssemble_NullSectionsAndFieldsAreAbsent(t *testing.T) {
	sections := sectionsFromJSON(t, `{
		"project": {"projectName": null, "companyName": "Acme Electrical"},
		"activities": null,
		"emergency": {"contacts": null, "procedures": null},
		"equipment": null,
		"ppe": null
	}`)
	doc, err := newAssembler().Assemble(context.Background(), sections)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if doc.Project.ProjectName != "Untitled Project" {
		t.Fatalf("project name = %q, want default", doc.Project.ProjectName)
	}
	if doc.Project.CompanyName != "Acme Electrical" {
		t.Fatalf("company name = %q", doc.Project.CompanyName)
	}
}

func TestAssemble_ActivityIDsAreUniqueAndDeterministic(t *testing.T) {
	sections := sectionsFromJSON(t, `{"activities": [
		{"name": "Set out"},
		{"id": "a", "name": "Dig"},
		{"id": "a", "name": "Dig again"},
		{"id": "activity-4", "name": "Pour"},
		{"id": "  ", "name": "Cure"}
	]}`)
	doc, err := newAssembler().Assemble(context.Background(), sections)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	var got []string
	for _, activity := range doc.Activities {
		got = append(got, activity.ID)
	}
	want := []string{"activity-1", "a", "activity-3", "activity-4", "activity-5"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestAssemble_FallbackIDCollisionGetsSuffix(t *testing.T) {
	sections := sectionsFromJSON(t, `{"activities": [
		{"id": "activity-2"},
		{},
		{"id": "activity-2-2"},
		{"id": "activity-2"}
	]}`)
	doc, err := newAssembler().Assemble(context.Background(), sections)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	var got []string
	seen := map[string]bool{}
	for _, activity := range doc.Activities {
		if activity.ID == "" || seen[activity.ID] {
			t.Fatalf("id %q empty or duplicated", activity.ID)
		}
		seen[activity.ID] = true
		got = append(got, activity.ID)
	}
	want := []string{"activity-2", "activity-2-2", "activity-3", "activity-4"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestAssemble_ScoresActivitiesAndHazards(t *testing.T) {
	sections := sectionsFromJSON(t, `{"activities": [{
		"id": "switchboard",
		"name": "Install switchboard",
		"trade": "Electrical",
		"hazards": [{
			"category": "electrical",
			"description": "Contact with live conductors",
			"controlMeasures": ["Isolate and lock out supply"]
		}],
		"controlMeasures": ["Isolate and lock out supply", "Test before touch"]
	}]}`)
	doc, err := newAssembler().Assemble(context.Background(), sections)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	activity := doc.Activities[0]
	if activity.InitialRisk != 16 {
		t.Fatalf("initial risk = %d, want 16", activity.InitialRisk)
	}
	if activity.ResidualRisk != 8 {
		t.Fatalf("residual risk = %d, want 8", activity.ResidualRisk)
	}
	hazard := activity.Hazards[0]
	if hazard.Category != risk.CategoryElectrical {
		t.Fatalf("hazard category = %q", hazard.Category)
	}
	if hazard.InitialRisk != 16 || hazard.ResidualRisk != 9 {
		t.Fatalf("hazard scores = %d/%d, want 16/9", hazard.InitialRisk, hazard.ResidualRisk)
	}
	if diff := cmp.Diff(model.DefaultDefaults().Legislation, activity.Legislation); diff != "" {
		t.Fatalf("legislation defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestAssemble_ResidualInvariantHolds(t *testing.T) {
	scorer := risk.NewScorer(risk.WithSeed(3))
	assembler := model.New(model.Options{Scorer: scorer})

	sections := sectionsFromJSON(t, `{"activities": [
		{"name": "Weld handrail on elevated roof", "trade": "Welding", "controlMeasures": ["Hot work permit"]},
		{"name": "Paint fence", "trade": "Painting", "controlMeasures": ["Drop sheets", "Ventilation", "Gloves"]},
		{"name": "Lay tiles", "trade": "Tiling", "controlMeasures": ["Knee pads"]}
	]}`)
	for i := 0; i < 20; i++ {
		doc, err := assembler.Assemble(context.Background(), sections)
		if err != nil {
			t.Fatalf("assemble: %v", err)
		}
		for _, activity := range doc.Activities {
			if activity.ResidualRisk > activity.InitialRisk-1 {
				t.Fatalf("%s: residual %d not below initial %d", activity.Name, activity.ResidualRisk, activity.InitialRisk)
			}
			if activity.InitialRisk < 3 || activity.InitialRisk > 16 {
				t.Fatalf("%s: initial %d out of range", activity.Name, activity.InitialRisk)
			}
		}
	}
}

func TestAssemble_PrecomputedScores(t *testing.T) {
	sections := sectionsFromJSON(t, `{"activities": [
		{"name": "Kept", "initialRisk": 10, "residualRisk": 6, "controlMeasures": ["a", "b"]},
		{"name": "Fixed", "initialRisk": {"value": 10, "level": "High"}, "residualRisk": 10, "controlMeasures": ["a", "b"]}
	]}`)
	doc, err := newAssembler().Assemble(context.Background(), sections)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	if got := doc.Activities[0]; got.InitialRisk != 10 || got.ResidualRisk != 6 {
		t.Fatalf("kept scores = %d/%d, want 10/6", got.InitialRisk, got.ResidualRisk)
	}
	if got := doc.Activities[1]; got.InitialRisk != 10 || got.ResidualRisk != 5 {
		t.Fatalf("recomputed scores = %d/%d, want 10/5", got.InitialRisk, got.ResidualRisk)
	}
}

func TestAssemble_SuppliedScoresStayInRange(t *testing.T) {
	sections := sectionsFromJSON(t, `{"activities": [
		{"name": "Too high", "initialRisk": 99, "residualRisk": 40, "controlMeasures": ["a"]},
		{"name": "Too low", "initialRisk": 1},
		{"name": "Residual above initial", "initialRisk": 6, "residualRisk": 12}
	]}`)
	doc, err := newAssembler().Assemble(context.Background(), sections)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	type scores struct{ Initial, Residual int }
	got := make([]scores, 0, len(doc.Activities))
	for _, activity := range doc.Activities {
		got = append(got, scores{activity.InitialRisk.Int(), activity.ResidualRisk.Int()})
	}
	want := []scores{{16, 9}, {3, 2}, {6, 4}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("scores mismatch (-want +got):\n%s", diff)
	}
	for _, activity := range doc.Activities {
		if activity.InitialRisk.Level() == risk.LevelExtreme {
			t.Fatalf("%s: supplied score reached Extreme", activity.Name)
		}
	}
}

func TestAssemble_MalformedSectionsFailFast(t *testing.T) {
	cases := map[string]struct {
		payload string
		section string
	}{
		"project not object":      {payload: `{"project": "Acme"}`, section: model.SectionProject},
		"activities not array":    {payload: `{"activities": {"name": "Dig"}}`, section: model.SectionActivities},
		"score wrong type":        {payload: `{"activities": [{"initialRisk": "high"}]}`, section: model.SectionActivities},
		"hazards not array":       {payload: `{"activities": [{"hazards": "none"}]}`, section: model.SectionActivities},
		"contacts not array":      {payload: `{"emergency": {"contacts": {"name": "x"}}}`, section: model.SectionEmergency},
		"equipment flag wrong":    {payload: `{"equipment": [{"certificationRequired": "yes"}]}`, section: model.SectionEquipment},
		"ppe numbers":             {payload: `{"ppe": [1, 2]}`, section: model.SectionPPE},
		"date not calendar date":  {payload: `{"project": {"datePrepared": "next tuesday"}}`, section: model.SectionProject},
		"first malformed reports": {payload: `{"project": [], "ppe": 4}`, section: model.SectionProject},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := newAssembler().Assemble(context.Background(), sectionsFromJSON(t, tc.payload))
			if err == nil {
				t.Fatalf("expected malformed section error")
			}
			if !errors.Is(err, model.ErrMalformedSection) {
				t.Fatalf("expected ErrMalformedSection, got %v", err)
			}
			var malformed *model.MalformedSectionError
			if !errors.As(err, &malformed) {
				t.Fatalf("expected *MalformedSectionError, got %T", err)
			}
			if malformed.Section != tc.section {
				t.Fatalf("section = %q, want %q", malformed.Section, tc.section)
			}
			if malformed.Expected == "" {
				t.Fatalf("expected shape description")
			}
		})
	}
}

func TestAssemble_PreservesOrderingAndDedupesPPE(t *testing.T) {
	sections := sectionsFromJSON(t, `{
		"emergency": {"contacts": [
			{"name": "Site First Aid", "phone": "0400 000 111"},
			{"name": "Hospital"},
			{"name": "", "phone": ""}
		]},
		"equipment": [
			{"name": "Scissor lift", "riskLevel": "high", "certificationRequired": true, "nextInspection": "2025-06-01"},
			{"name": "Drill", "riskLevel": "bogus"}
		],
		"ppe": [" Hard hat", "hard hat", "Gloves", "", "Hi-vis vest", "Gloves"]
	}`)
	doc, err := newAssembler().Assemble(context.Background(), sections)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	wantContacts := []model.EmergencyContact{
		{Name: "Site First Aid", Phone: "0400 000 111"},
		{Name: "Hospital", Phone: "TBD"},
	}
	if diff := cmp.Diff(wantContacts, doc.EmergencyContacts); diff != "" {
		t.Fatalf("contacts mismatch (-want +got):\n%s", diff)
	}

	wantEquipment := []model.PlantEquipment{
		{
			Name:                  "Scissor lift",
			Category:              "General",
			CertificationRequired: true,
			RiskLevel:             risk.LevelHigh,
			NextInspection:        model.NewDate(2025, time.June, 1),
		},
		{Name: "Drill", Category: "General", RiskLevel: risk.LevelMedium},
	}
	if diff := cmp.Diff(wantEquipment, doc.Equipment); diff != "" {
		t.Fatalf("equipment mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"Hard hat", "Gloves", "Hi-vis vest"}, doc.PPE); diff != "" {
		t.Fatalf("ppe mismatch (-want +got):\n%s", diff)
	}
}

func TestAssemble_StripsMarkup(t *testing.T) {
	sections := sectionsFromJSON(t, `{
		"project": {"projectName": "<b>Tower</b> & Podium<script>alert(1)</script>"},
		"activities": [{"name": "<i>Cut</i> slab", "controlMeasures": ["<a href='x'>Barricade</a>", "<br/>"]}]
	}`)
	doc, err := newAssembler().Assemble(context.Background(), sections)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if doc.Project.ProjectName != "Tower & Podium" {
		t.Fatalf("project name = %q", doc.Project.ProjectName)
	}
	if doc.Activities[0].Name != "Cut slab" {
		t.Fatalf("activity name = %q", doc.Activities[0].Name)
	}
	if diff := cmp.Diff([]string{"Barricade"}, doc.Activities[0].ControlMeasures); diff != "" {
		t.Fatalf("controls mismatch (-want +got):\n%s", diff)
	}
}

func TestAssemble_CustomDefaults(t *testing.T) {
	assembler := model.New(model.Options{
		Scorer:   risk.NewScorer(risk.WithJitter(risk.NoJitter)),
		Defaults: model.Defaults{Placeholder: "N/A", Legislation: []string{"WHS Regulation (Vic) 2021"}},
	})
	doc, err := assembler.Assemble(context.Background(), sectionsFromJSON(t, `{"activities": [{"name": "Sweep"}]}`))
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if doc.Project.ABN != "N/A" {
		t.Fatalf("abn = %q, want N/A", doc.Project.ABN)
	}
	if doc.Project.ProjectName != "Untitled Project" {
		t.Fatalf("project name default lost: %q", doc.Project.ProjectName)
	}
	if diff := cmp.Diff([]string{"WHS Regulation (Vic) 2021"}, doc.Activities[0].Legislation); diff != "" {
		t.Fatalf("legislation mismatch (-want +got):\n%s", diff)
	}
}

func TestAssemble_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newAssembler().Assemble(ctx, sectionsFromJSON(t, `{"ppe": ["Gloves"]}`))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
