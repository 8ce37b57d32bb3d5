// Package register exports the hazard register of an assembled document as
// an XLSX workbook.
package register

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	pkgmodel "github.com/goliatone/go-swms/pkg/model"
	"github.com/goliatone/go-swms/pkg/risk"
)

// ContentType of the exported workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	RegisterSheet = "Risk Register"
	PlantSheet    = "Plant"
)

// Header is the register column order.
var Header = []string{
	"Activity ID",
	"Activity",
	"Trade",
	"Hazard Category",
	"Hazard",
	"Initial Risk",
	"Initial Level",
	"Control Measures",
	"Residual Risk",
	"Residual Level",
	"High Risk Work",
}

var registerWidths = []float64{16, 32, 18, 16, 40, 12, 14, 60, 13, 14, 30}

// PlantHeader is the plant sheet column order.
var PlantHeader = []string{"Item", "Category", "Certification Required", "Risk Level", "Next Inspection"}

var plantWidths = []float64{30, 18, 22, 12, 16}

var levelFills = map[risk.Level]string{
	risk.LevelLow:     "#C6F7D0",
	risk.LevelMedium:  "#FFF3C4",
	risk.LevelHigh:    "#FFD0B5",
	risk.LevelExtreme: "#FF9B9B",
}

// Row is one register line. Activities without hazards produce a single row
// carrying the activity scores.
type Row struct {
	ActivityID    string
	Activity      string
	Trade         string
	Category      string
	Hazard        string
	InitialRisk   int
	InitialLevel  risk.Level
	Controls      string
	ResidualRisk  int
	ResidualLevel risk.Level
	HighRiskWork  string
}

func (r Row) values() []any {
	return []any{
		r.ActivityID, r.Activity, r.Trade, r.Category, r.Hazard,
		r.InitialRisk, r.InitialLevel.String(), r.Controls,
		r.ResidualRisk, r.ResidualLevel.String(), r.HighRiskWork,
	}
}

// Rows flattens the document into register rows in activity then hazard
// order.
func Rows(doc pkgmodel.Document) []Row {
	var rows []Row
	for _, activity := range doc.Activities {
		base := Row{
			ActivityID:   activity.ID,
			Activity:     activity.Name,
			Trade:        activity.Trade,
			HighRiskWork: strings.Join(activity.HighRiskWork, "; "),
		}
		if len(activity.Hazards) == 0 {
			row := base
			row.InitialRisk = activity.InitialRisk.Int()
			row.InitialLevel = activity.InitialRisk.Level()
			row.Controls = joinControls(activity.ControlMeasures)
			row.ResidualRisk = activity.ResidualRisk.Int()
			row.ResidualLevel = activity.ResidualRisk.Level()
			rows = append(rows, row)
			continue
		}
		for _, hazard := range activity.Hazards {
			row := base
			row.Category = hazard.Category.String()
			row.Hazard = hazard.Description
			row.InitialRisk = hazard.InitialRisk.Int()
			row.InitialLevel = hazard.InitialRisk.Level()
			row.Controls = joinControls(hazard.ControlMeasures)
			row.ResidualRisk = hazard.ResidualRisk.Int()
			row.ResidualLevel = hazard.ResidualRisk.Level()
			rows = append(rows, row)
		}
	}
	return rows
}

// Export renders the workbook into memory.
func Export(doc pkgmodel.Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write streams the workbook to w.
func Write(w io.Writer, doc pkgmodel.Document) error {
	f := excelize.NewFile()
	defer f.Close()

	styles, err := newStyles(f)
	if err != nil {
		return err
	}

	index, err := f.NewSheet(RegisterSheet)
	if err != nil {
		return fmt.Errorf("register: create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("register: drop default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	if err := writeHeader(f, RegisterSheet, Header, registerWidths, styles.header); err != nil {
		return err
	}
	for i, row := range Rows(doc) {
		line := i + 2
		if err := writeRow(f, RegisterSheet, line, row.values(), styles.wrap); err != nil {
			return err
		}
		if err := styleLevel(f, RegisterSheet, 7, line, row.InitialLevel, styles); err != nil {
			return err
		}
		if err := styleLevel(f, RegisterSheet, 10, line, row.ResidualLevel, styles); err != nil {
			return err
		}
	}
	if err := freezeHeader(f, RegisterSheet); err != nil {
		return err
	}
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   "Risk register - " + doc.Project.ProjectName,
		Creator: doc.Project.PreparedBy,
		Subject: doc.Project.Reference,
	}); err != nil {
		return fmt.Errorf("register: set properties: %w", err)
	}

	if len(doc.Equipment) > 0 {
		if err := writePlant(f, doc, styles); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("register: write workbook: %w", err)
	}
	return nil
}

func writePlant(f *excelize.File, doc pkgmodel.Document, styles sheetStyles) error {
	if _, err := f.NewSheet(PlantSheet); err != nil {
		return fmt.Errorf("register: create sheet: %w", err)
	}
	if err := writeHeader(f, PlantSheet, PlantHeader, plantWidths, styles.header); err != nil {
		return err
	}
	for i, item := range doc.Equipment {
		cert := "No"
		if item.CertificationRequired {
			cert = "Yes"
		}
		line := i + 2
		values := []any{item.Name, item.Category, cert, item.RiskLevel.String(), item.NextInspection.String()}
		if err := writeRow(f, PlantSheet, line, values, styles.wrap); err != nil {
			return err
		}
		if err := styleLevel(f, PlantSheet, 4, line, item.RiskLevel, styles); err != nil {
			return err
		}
	}
	return freezeHeader(f, PlantSheet)
}

type sheetStyles struct {
	header int
	wrap   int
	levels map[risk.Level]int
}

func newStyles(f *excelize.File) (sheetStyles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#0B3D91"}, Pattern: 1},
		Border:    border,
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return sheetStyles{}, fmt.Errorf("register: header style: %w", err)
	}
	wrap, err := f.NewStyle(&excelize.Style{
		Border:    border,
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	if err != nil {
		return sheetStyles{}, fmt.Errorf("register: cell style: %w", err)
	}

	styles := sheetStyles{header: header, wrap: wrap, levels: map[risk.Level]int{}}
	for level, color := range levelFills {
		id, err := f.NewStyle(&excelize.Style{
			Font:      &excelize.Font{Bold: true},
			Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			Border:    border,
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "top"},
		})
		if err != nil {
			return sheetStyles{}, fmt.Errorf("register: %s style: %w", level, err)
		}
		styles.levels[level] = id
	}
	return styles, nil
}

func writeHeader(f *excelize.File, sheet string, header []string, widths []float64, style int) error {
	for i, title := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("register: header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return fmt.Errorf("register: set header %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return fmt.Errorf("register: style header %s: %w", cell, err)
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("register: column name: %w", err)
		}
		if i < len(widths) {
			if err := f.SetColWidth(sheet, col, col, widths[i]); err != nil {
				return fmt.Errorf("register: column width: %w", err)
			}
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, line int, values []any, style int) error {
	start, err := excelize.CoordinatesToCellName(1, line)
	if err != nil {
		return fmt.Errorf("register: row %d: %w", line, err)
	}
	if err := f.SetSheetRow(sheet, start, &values); err != nil {
		return fmt.Errorf("register: write row %d: %w", line, err)
	}
	end, err := excelize.CoordinatesToCellName(len(values), line)
	if err != nil {
		return fmt.Errorf("register: row %d: %w", line, err)
	}
	return f.SetCellStyle(sheet, start, end, style)
}

func styleLevel(f *excelize.File, sheet string, col, line int, level risk.Level, styles sheetStyles) error {
	id, ok := styles.levels[level]
	if !ok {
		return nil
	}
	cell, err := excelize.CoordinatesToCellName(col, line)
	if err != nil {
		return fmt.Errorf("register: level cell: %w", err)
	}
	return f.SetCellStyle(sheet, cell, cell, id)
}

func freezeHeader(f *excelize.File, sheet string) error {
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("register: freeze panes: %w", err)
	}
	return nil
}

func joinControls(controls []string) string {
	lines := make([]string, 0, len(controls))
	for i, control := range controls {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, control))
	}
	return strings.Join(lines, "\n")
}
