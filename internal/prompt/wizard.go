// Package prompt drives interactive terminal flows: confirmations and the
// init wizard that writes a render request.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	pkgmodel "github.com/goliatone/go-swms/pkg/model"
	"github.com/goliatone/go-swms/pkg/risk"
)

const otherTrade = "other"

// CommonPPE seeds the PPE multi-select.
var CommonPPE = []string{
	"Hard hat",
	"Safety glasses",
	"Hi-vis vest",
	"Steel-capped boots",
	"Gloves",
	"Hearing protection",
	"Respirator",
	"Fall arrest harness",
	"Arc-rated clothing",
}

// Request mirrors the render request sections written by the wizard.
type Request struct {
	Project    Project     `yaml:"project"`
	Activities []Activity  `yaml:"activities"`
	Emergency  Emergency   `yaml:"emergency"`
	Equipment  []Equipment `yaml:"equipment,omitempty"`
	PPE        []string    `yaml:"ppe,omitempty"`
}

type Project struct {
	CompanyName         string `yaml:"companyName,omitempty"`
	ABN                 string `yaml:"abn,omitempty"`
	ProjectName         string `yaml:"projectName"`
	ProjectNumber       string `yaml:"projectNumber,omitempty"`
	SiteAddress         string `yaml:"siteAddress,omitempty"`
	PrincipalContractor string `yaml:"principalContractor,omitempty"`
	ProjectManager      string `yaml:"projectManager,omitempty"`
	SiteSupervisor      string `yaml:"siteSupervisor,omitempty"`
	PreparedBy          string `yaml:"preparedBy,omitempty"`
	DatePrepared        string `yaml:"datePrepared,omitempty"`
}

type Activity struct {
	Name            string   `yaml:"name"`
	Description     string   `yaml:"description,omitempty"`
	Trade           string   `yaml:"trade,omitempty"`
	Hazards         []Hazard `yaml:"hazards,omitempty"`
	ControlMeasures []string `yaml:"controlMeasures,omitempty"`
}

type Hazard struct {
	Category    string `yaml:"category"`
	Description string `yaml:"description,omitempty"`
}

type Emergency struct {
	Contacts   []Contact `yaml:"contacts,omitempty"`
	Procedures string    `yaml:"procedures,omitempty"`
}

type Contact struct {
	Name  string `yaml:"name"`
	Phone string `yaml:"phone"`
}

type Equipment struct {
	Name                  string `yaml:"name"`
	Category              string `yaml:"category,omitempty"`
	CertificationRequired bool   `yaml:"certificationRequired"`
	RiskLevel             string `yaml:"riskLevel"`
	NextInspection        string `yaml:"nextInspection,omitempty"`
}

// Marshal renders the request as YAML accepted by LoadSections.
func (r Request) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("prompt: encode request: %w", err)
	}
	return data, nil
}

// WizardOption customises a Wizard.
type WizardOption func(*Wizard)

// WithTables sets the trades offered by the wizard.
func WithTables(tables risk.Tables) WizardOption {
	return func(w *Wizard) {
		w.tables = tables
	}
}

// WithClock sets the clock used for the default preparation date.
func WithClock(now func() time.Time) WizardOption {
	return func(w *Wizard) {
		if now != nil {
			w.now = now
		}
	}
}

// Wizard asks for each section of a render request in turn.
type Wizard struct {
	driver Driver
	tables risk.Tables
	now    func() time.Time
}

// NewWizard builds a wizard over driver.
func NewWizard(driver Driver, options ...WizardOption) *Wizard {
	w := &Wizard{driver: driver, tables: risk.DefaultTables(), now: time.Now}
	for _, opt := range options {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

// Run walks every section and returns the collected request.
func (w *Wizard) Run(ctx context.Context) (Request, error) {
	if w.driver == nil {
		return Request{}, errors.New("prompt: driver is required")
	}
	var req Request
	var err error

	if req.Project, err = w.project(ctx); err != nil {
		return Request{}, err
	}
	if req.Activities, err = w.activities(ctx); err != nil {
		return Request{}, err
	}
	if req.Emergency, err = w.emergency(ctx); err != nil {
		return Request{}, err
	}
	if req.Equipment, err = w.equipment(ctx); err != nil {
		return Request{}, err
	}
	if req.PPE, err = w.ppe(ctx); err != nil {
		return Request{}, err
	}
	return req, nil
}

func required(label string) func(string) error {
	return func(value string) error {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s is required", label)
		}
		return nil
	}
}

func optionalDate(value string) error {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	_, err := pkgmodel.ParseDate(value)
	return err
}

func (w *Wizard) ask(ctx context.Context, message string, validator func(string) error) (string, error) {
	value, err := w.driver.Input(ctx, InputConfig{Message: message, Validator: validator})
	return strings.TrimSpace(value), err
}

func (w *Wizard) project(ctx context.Context) (Project, error) {
	var p Project
	fields := []struct {
		message   string
		target    *string
		validator func(string) error
	}{
		{"Company name", &p.CompanyName, nil},
		{"ABN", &p.ABN, nil},
		{"Project name", &p.ProjectName, required("project name")},
		{"Project number", &p.ProjectNumber, nil},
		{"Site address", &p.SiteAddress, nil},
		{"Principal contractor", &p.PrincipalContractor, nil},
		{"Project manager", &p.ProjectManager, nil},
		{"Site supervisor", &p.SiteSupervisor, nil},
		{"Prepared by", &p.PreparedBy, nil},
	}
	for _, field := range fields {
		value, err := w.ask(ctx, field.message, field.validator)
		if err != nil {
			return Project{}, err
		}
		*field.target = value
	}

	date, err := w.driver.Input(ctx, InputConfig{
		Message:   "Date prepared (" + pkgmodel.DateLayout + ")",
		Default:   w.now().Format(pkgmodel.DateLayout),
		Validator: optionalDate,
	})
	if err != nil {
		return Project{}, err
	}
	p.DatePrepared = strings.TrimSpace(date)
	return p, nil
}

func (w *Wizard) trades() []string {
	trades := make([]string, 0, len(w.tables.TradeMultipliers)+1)
	for trade := range w.tables.TradeMultipliers {
		trades = append(trades, trade)
	}
	sort.Strings(trades)
	return append(trades, otherTrade)
}

func categoryNames() []string {
	categories := risk.Categories()
	out := make([]string, 0, len(categories))
	for _, category := range categories {
		out = append(out, category.String())
	}
	return out
}

func (w *Wizard) activities(ctx context.Context) ([]Activity, error) {
	trades := w.trades()
	categories := categoryNames()

	var out []Activity
	for {
		if err := w.driver.Info(ctx, fmt.Sprintf("Activity %d", len(out)+1)); err != nil {
			return nil, err
		}
		var activity Activity
		var err error
		if activity.Name, err = w.ask(ctx, "Activity name", required("activity name")); err != nil {
			return nil, err
		}
		if activity.Description, err = w.ask(ctx, "Description", nil); err != nil {
			return nil, err
		}

		idx, err := w.driver.Select(ctx, SelectConfig{Message: "Trade", Options: trades, PageSize: 10})
		if err != nil {
			return nil, err
		}
		switch {
		case idx < 0 || idx >= len(trades):
		case trades[idx] == otherTrade:
			if activity.Trade, err = w.ask(ctx, "Trade", nil); err != nil {
				return nil, err
			}
		default:
			activity.Trade = trades[idx]
		}

		picked, err := w.driver.MultiSelect(ctx, SelectConfig{Message: "Hazard categories", Options: categories})
		if err != nil {
			return nil, err
		}
		for _, i := range picked {
			if i < 0 || i >= len(categories) {
				continue
			}
			description, err := w.ask(ctx, fmt.Sprintf("Describe the %s hazard", strings.ToLower(categories[i])), nil)
			if err != nil {
				return nil, err
			}
			activity.Hazards = append(activity.Hazards, Hazard{Category: categories[i], Description: description})
		}

		controls, err := w.driver.TextArea(ctx, TextAreaConfig{
			Message: "Control measures",
			Help:    "One control per line",
		})
		if err != nil {
			return nil, err
		}
		activity.ControlMeasures = lines(controls)
		out = append(out, activity)

		more, err := w.driver.Confirm(ctx, ConfirmConfig{Message: "Add another activity?"})
		if err != nil {
			return nil, err
		}
		if !more {
			return out, nil
		}
	}
}

func (w *Wizard) emergency(ctx context.Context) (Emergency, error) {
	var e Emergency
	for {
		name, err := w.ask(ctx, "Emergency contact name (blank to finish)", nil)
		if err != nil {
			return Emergency{}, err
		}
		if name == "" {
			break
		}
		phone, err := w.ask(ctx, "Phone for "+name, required("phone"))
		if err != nil {
			return Emergency{}, err
		}
		e.Contacts = append(e.Contacts, Contact{Name: name, Phone: phone})
	}

	procedures, err := w.driver.TextArea(ctx, TextAreaConfig{Message: "Emergency procedures"})
	if err != nil {
		return Emergency{}, err
	}
	e.Procedures = strings.TrimSpace(procedures)
	return e, nil
}

func (w *Wizard) equipment(ctx context.Context) ([]Equipment, error) {
	levels := []string{
		risk.LevelLow.String(),
		risk.LevelMedium.String(),
		risk.LevelHigh.String(),
		risk.LevelExtreme.String(),
	}

	more, err := w.driver.Confirm(ctx, ConfirmConfig{Message: "Add plant or equipment?"})
	if err != nil {
		return nil, err
	}
	var out []Equipment
	for more {
		var item Equipment
		if item.Name, err = w.ask(ctx, "Plant name", required("plant name")); err != nil {
			return nil, err
		}
		if item.Category, err = w.ask(ctx, "Category", nil); err != nil {
			return nil, err
		}
		if item.CertificationRequired, err = w.driver.Confirm(ctx, ConfirmConfig{Message: "Operator certification required?"}); err != nil {
			return nil, err
		}
		idx, err := w.driver.Select(ctx, SelectConfig{Message: "Risk level", Options: levels, DefaultIndex: 1})
		if err != nil {
			return nil, err
		}
		item.RiskLevel = levels[1]
		if idx >= 0 && idx < len(levels) {
			item.RiskLevel = levels[idx]
		}
		if item.NextInspection, err = w.ask(ctx, "Next inspection ("+pkgmodel.DateLayout+", optional)", optionalDate); err != nil {
			return nil, err
		}
		out = append(out, item)

		if more, err = w.driver.Confirm(ctx, ConfirmConfig{Message: "Add more plant?"}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (w *Wizard) ppe(ctx context.Context) ([]string, error) {
	picked, err := w.driver.MultiSelect(ctx, SelectConfig{
		Message:  "Required PPE",
		Options:  CommonPPE,
		Defaults: []int{0, 2, 3},
	})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(picked))
	for _, i := range picked {
		if i >= 0 && i < len(CommonPPE) {
			out = append(out, CommonPPE[i])
		}
	}
	return out, nil
}

func lines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
