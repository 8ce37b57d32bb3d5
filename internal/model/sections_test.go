package model_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-swms/internal/model"
)

func TestLoadSections_YAML(t *testing.T) {
	data := []byte(`
project:
  projectName: Riverside Apartments
  datePrepared: 2025-02-03
activities:
  - id: strip-out
    name: Strip out ceilings
    trade: Demolition
    controlMeasures:
      - Exclusion zone
ppe:
  - Hard hat
  - P2 respirator
`)
	sections, err := model.LoadSections(data)
	if err != nil {
		t.Fatalf("load sections: %v", err)
	}
	if !sections.Present(model.SectionProject) || !sections.Present(model.SectionActivities) {
		t.Fatalf("expected project and activities to be present")
	}
	if sections.Present(model.SectionEquipment) {
		t.Fatalf("equipment should be absent")
	}

	doc, err := newAssembler().Assemble(context.Background(), sections)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if doc.Project.ProjectName != "Riverside Apartments" {
		t.Fatalf("project name = %q", doc.Project.ProjectName)
	}
	if got := doc.Project.DatePrepared.String(); got != "2025-02-03" {
		t.Fatalf("date prepared = %q, want 2025-02-03", got)
	}
	if doc.Activities[0].ID != "strip-out" {
		t.Fatalf("activity id = %q", doc.Activities[0].ID)
	}
	if diff := cmp.Diff([]string{"Hard hat", "P2 respirator"}, doc.PPE); diff != "" {
		t.Fatalf("ppe mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadSections_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "request.json")
	payload := `{"project": {"projectName": "Depot"}, "ppe": ["Gloves"]}`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write request: %v", err)
	}
	sections, err := model.LoadSectionsFile(path)
	if err != nil {
		t.Fatalf("load sections file: %v", err)
	}
	if string(sections.PPE) != `["Gloves"]` {
		t.Fatalf("ppe raw = %s", sections.PPE)
	}
}

func TestLoadSections_Errors(t *testing.T) {
	if _, err := model.LoadSections([]byte("  ")); err == nil {
		t.Fatalf("expected empty request error")
	}
	if _, err := model.LoadSections([]byte("- just\n- a list\n")); err == nil {
		t.Fatalf("expected list document to be rejected")
	}
}

func TestSections_CanonicalIgnoresWhitespace(t *testing.T) {
	a := sectionsFromJSON(t, `{"project": {"projectName": "Depot"}, "ppe": ["Gloves", "Boots"]}`)
	b := sectionsFromJSON(t, `{
		"ppe": [ "Gloves",
		         "Boots" ],
		"project": { "projectName":   "Depot" },
		"equipment": null
	}`)

	left, err := a.Canonical()
	if err != nil {
		t.Fatalf("canonical a: %v", err)
	}
	right, err := b.Canonical()
	if err != nil {
		t.Fatalf("canonical b: %v", err)
	}
	if string(left) != string(right) {
		t.Fatalf("canonical forms differ:\n%s\n%s", left, right)
	}
	if strings.Contains(string(left), "equipment") {
		t.Fatalf("absent sections should be omitted: %s", left)
	}
}

func TestDate_JSON(t *testing.T) {
	var d model.Date
	if err := d.UnmarshalJSON([]byte(`"2025-07-09T10:00:00Z"`)); err != nil {
		t.Fatalf("unmarshal timestamp: %v", err)
	}
	if d.String() != "2025-07-09" {
		t.Fatalf("date = %q", d.String())
	}

	out, err := model.NewDate(2024, time.December, 1).MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `"2024-12-01"` {
		t.Fatalf("marshal = %s", out)
	}

	zero, err := model.Date{}.MarshalJSON()
	if err != nil || string(zero) != "null" {
		t.Fatalf("zero date marshal = %s, %v", zero, err)
	}

	if err := d.UnmarshalJSON([]byte(`"01/02/2025"`)); err == nil {
		t.Fatalf("expected error for unsupported layout")
	}
}

func TestContractDocument(t *testing.T) {
	data, err := model.ContractDocument()
	if err != nil {
		t.Fatalf("contract document: %v", err)
	}
	for _, schema := range []string{"Project:", "Activities:", "Emergency:", "Equipment:", "PPE:"} {
		if !strings.Contains(string(data), schema) {
			t.Fatalf("contract missing %s", schema)
		}
	}
}
