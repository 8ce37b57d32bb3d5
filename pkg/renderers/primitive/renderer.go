package primitive

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"

	"github.com/goliatone/go-swms/pkg/model"
	"github.com/goliatone/go-swms/pkg/render"
	"github.com/goliatone/go-swms/pkg/risk"
)

// Name is the registry name of the fallback tier.
const Name = "primitive"

const (
	fontFamily = "Helvetica"
	margin     = 10.0
	lineHeight = 4.2
)

type rgb struct{ r, g, b int }

var (
	defaultPrimary = rgb{11, 61, 145}
	headerFill     = rgb{240, 244, 248}
	riskFills      = map[risk.Level]rgb{
		risk.LevelLow:     {198, 247, 208},
		risk.LevelMedium:  {255, 243, 196},
		risk.LevelHigh:    {255, 208, 181},
		risk.LevelExtreme: {255, 155, 155},
	}
)

type Option func(*Renderer)

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock fixes the PDF creation date, which makes output reproducible.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) {
		if now != nil {
			r.now = now
		}
	}
}

// Renderer draws the document directly with fpdf. It needs no browser or
// network and is the last tier in the chain.
type Renderer struct {
	logger *zap.Logger
	now    func() time.Time
}

// New constructs the primitive renderer.
func New(options ...Option) *Renderer {
	r := &Renderer{logger: zap.NewNop(), now: time.Now}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Renderer) Name() string {
	return Name
}

func (r *Renderer) ContentType() string {
	return render.ContentTypePDF
}

// Render draws an A4 portrait PDF.
func (r *Renderer) Render(ctx context.Context, doc model.Document, options render.RenderOptions) ([]byte, error) {
	title := strings.TrimSpace(options.Title)
	if title == "" {
		title = "SWMS - " + doc.Project.ProjectName
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(r.now())
	pdf.SetCatalogSort(true)
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin+4)
	pdf.AliasNbPages("")

	w := &writer{
		pdf:     pdf,
		tr:      pdf.UnicodeTranslatorFromDescriptor(""),
		primary: themeColor(options.Theme, "primary", defaultPrimary),
	}
	pdf.SetTitle(w.tr(title), false)
	pdf.SetCreator("go-swms", false)
	pdf.SetAuthor(w.tr(doc.Project.PreparedBy), false)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-margin)
		pdf.SetFont(fontFamily, "I", 7)
		pdf.SetTextColor(120, 120, 120)
		left := doc.Project.Reference + " rev " + doc.Project.Revision
		if options.Footer != "" {
			left += "  |  " + options.Footer
		}
		w.footer(w.tr(left), fmt.Sprintf("Page %d of {nb}", pdf.PageNo()))
	})

	pdf.AddPage()
	steps := []func(model.Document){
		w.header,
		w.project,
		w.activities,
		w.equipment,
		w.ppe,
		w.emergency,
		w.signoff,
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("primitive renderer: %w", err)
		}
		step(doc)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("primitive renderer: write pdf: %w", err)
	}
	r.logger.Debug("primitive pdf drawn", zap.Int("pages", pdf.PageCount()), zap.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}

type writer struct {
	pdf     *fpdf.Fpdf
	tr      func(string) string
	primary rgb
}

func (w *writer) contentWidth() float64 {
	pageWidth, _ := w.pdf.GetPageSize()
	left, _, right, _ := w.pdf.GetMargins()
	return pageWidth - left - right
}

// footer draws left and right aligned text on the current line inside the
// margins. It returns where the right cell starts and its width.
func (w *writer) footer(left, right string) (float64, float64) {
	pdf := w.pdf
	leftMargin, _, _, _ := pdf.GetMargins()
	width := w.contentWidth()
	rightWidth := pdf.GetStringWidth(right) + 2
	if rightWidth > width {
		rightWidth = width
	}

	pdf.SetX(leftMargin)
	pdf.CellFormat(width-rightWidth, 4, left, "", 0, "L", false, 0, "")
	x := pdf.GetX()
	pdf.CellFormat(rightWidth, 4, right, "", 0, "R", false, 0, "")
	return x, rightWidth
}

func (w *writer) header(doc model.Document) {
	pdf := w.pdf
	pdf.SetFillColor(w.primary.r, w.primary.g, w.primary.b)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont(fontFamily, "B", 15)
	pdf.CellFormat(0, 10, w.tr("Safe Work Method Statement"), "", 1, "L", true, 0, "")
	pdf.SetFont(fontFamily, "", 9)
	pdf.CellFormat(0, 6, w.tr(doc.Project.CompanyName+"  |  "+doc.Project.Reference+"  |  Rev "+doc.Project.Revision), "", 1, "L", true, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(3)
}

func (w *writer) sectionTitle(title string) {
	pdf := w.pdf
	pdf.Ln(2)
	pdf.SetFont(fontFamily, "B", 11)
	pdf.SetTextColor(w.primary.r, w.primary.g, w.primary.b)
	pdf.CellFormat(0, 7, w.tr(title), "B", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(1)
}

func (w *writer) project(doc model.Document) {
	p := doc.Project
	w.sectionTitle("Project details")
	half := w.contentWidth() / 2
	widths := []float64{half * 0.4, half * 0.6, half * 0.4, half * 0.6}
	rows := [][]string{
		{"Project", p.ProjectName, "Project number", p.ProjectNumber},
		{"Company", p.CompanyName, "ABN", p.ABN},
		{"Site address", p.SiteAddress, "Principal contractor", p.PrincipalContractor},
		{"Project manager", p.ProjectManager, "Site supervisor", p.SiteSupervisor},
		{"Prepared by", p.PreparedBy, "Approved by", p.ApprovedBy},
		{"Date prepared", orTBD(p.DatePrepared.String()), "Revision", p.Revision},
	}
	for _, row := range rows {
		w.row(widths, row, []bool{true, false, true, false}, nil)
	}
}

func (w *writer) activities(doc model.Document) {
	w.sectionTitle("Work activities")
	total := w.contentWidth()
	widths := []float64{total * 0.22, total * 0.24, total * 0.08, total * 0.30, total * 0.08, total * 0.08}
	head := []string{"Activity", "Hazards", "Initial", "Control measures", "Residual", "Level"}
	w.headerRow(widths, head)

	if len(doc.Activities) == 0 {
		w.row([]float64{total}, []string{"No work activities recorded."}, nil, nil)
		return
	}
	for i, activity := range doc.Activities {
		hazards := make([]string, 0, len(activity.Hazards))
		for _, hazard := range activity.Hazards {
			hazards = append(hazards, fmt.Sprintf("[%s] %s (%d)", hazard.Category, hazard.Description, hazard.InitialRisk))
		}
		controls := make([]string, 0, len(activity.ControlMeasures))
		for n, control := range activity.ControlMeasures {
			controls = append(controls, strconv.Itoa(n+1)+". "+control)
		}
		name := fmt.Sprintf("%d. %s\n%s", i+1, activity.Name, activity.Trade)
		if len(activity.HighRiskWork) > 0 {
			name += "\nHRCW: " + strings.Join(activity.HighRiskWork, ", ")
		}
		cells := []string{
			name,
			orDash(strings.Join(hazards, "\n")),
			strconv.Itoa(activity.InitialRisk.Int()),
			orDash(strings.Join(controls, "\n")),
			strconv.Itoa(activity.ResidualRisk.Int()),
			activity.ResidualRisk.Level().String(),
		}
		fills := map[int]rgb{
			2: riskFills[activity.InitialRisk.Level()],
			4: riskFills[activity.ResidualRisk.Level()],
			5: riskFills[activity.ResidualRisk.Level()],
		}
		if w.row(widths, cells, nil, fills) {
			w.headerRow(widths, head)
		}
	}
}

func (w *writer) equipment(doc model.Document) {
	w.sectionTitle("Plant and equipment")
	total := w.contentWidth()
	widths := []float64{total * 0.3, total * 0.2, total * 0.16, total * 0.14, total * 0.2}
	w.headerRow(widths, []string{"Item", "Category", "Certification", "Risk level", "Next inspection"})
	if len(doc.Equipment) == 0 {
		w.row([]float64{total}, []string{"No plant or equipment listed."}, nil, nil)
		return
	}
	for _, item := range doc.Equipment {
		cert := "Not required"
		if item.CertificationRequired {
			cert = "Required"
		}
		w.row(widths, []string{
			item.Name, item.Category, cert, item.RiskLevel.String(), orTBD(item.NextInspection.String()),
		}, nil, map[int]rgb{3: riskFills[item.RiskLevel]})
	}
}

func (w *writer) ppe(doc model.Document) {
	w.sectionTitle("Personal protective equipment")
	w.pdf.SetFont(fontFamily, "", 9)
	text := "No PPE selected."
	if len(doc.PPE) > 0 {
		text = strings.Join(doc.PPE, "  |  ")
	}
	w.pdf.MultiCell(0, lineHeight+0.8, w.tr(text), "", "L", false)
}

func (w *writer) emergency(doc model.Document) {
	w.sectionTitle("Emergency information")
	total := w.contentWidth()
	widths := []float64{total * 0.5, total * 0.5}
	for _, contact := range doc.EmergencyContacts {
		w.row(widths, []string{contact.Name, contact.Phone}, []bool{true, false}, nil)
	}
	w.pdf.Ln(2)
	w.pdf.SetFont(fontFamily, "B", 9)
	w.pdf.CellFormat(0, 5, "Procedures", "", 1, "L", false, 0, "")
	w.pdf.SetFont(fontFamily, "", 9)
	w.pdf.MultiCell(0, lineHeight+0.6, w.tr(doc.EmergencyProcedures), "", "L", false)
	w.pdf.SetFont(fontFamily, "B", 9)
	w.pdf.CellFormat(0, 5, "Monitoring and review", "", 1, "L", false, 0, "")
	w.pdf.SetFont(fontFamily, "", 9)
	w.pdf.MultiCell(0, lineHeight+0.6, w.tr(doc.EmergencyMonitoring), "", "L", false)
}

func (w *writer) signoff(model.Document) {
	w.sectionTitle("Worker acknowledgement")
	total := w.contentWidth()
	widths := []float64{total * 0.45, total * 0.35, total * 0.2}
	w.headerRow(widths, []string{"Name", "Signature", "Date"})
	for i := 0; i < 6; i++ {
		w.row(widths, []string{" ", " ", " "}, nil, nil)
	}
}

func (w *writer) headerRow(widths []float64, cells []string) {
	w.row(widths, cells, allTrue(len(cells)), map[int]rgb{-1: headerFill})
}

// row draws one table row whose height fits the tallest wrapped cell. bold
// marks label cells; fills maps a column to a background colour, with key -1
// filling every column. It reports whether a page break preceded the row.
func (w *writer) row(widths []float64, cells []string, bold []bool, fills map[int]rgb) bool {
	pdf := w.pdf
	pdf.SetFont(fontFamily, "", 8)

	lines := 1
	translated := make([]string, len(cells))
	for i, cell := range cells {
		translated[i] = w.tr(cell)
		if n := len(pdf.SplitLines([]byte(translated[i]), widths[i]-2)); n > lines {
			lines = n
		}
	}
	height := float64(lines)*lineHeight + 2

	broke := false
	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	if pdf.GetY()+height > pageHeight-bottom {
		pdf.AddPage()
		broke = true
	}

	left, _, _, _ := pdf.GetMargins()
	x, y := left, pdf.GetY()
	for i, cell := range translated {
		style := "D"
		if fill, ok := fills[i]; ok {
			pdf.SetFillColor(fill.r, fill.g, fill.b)
			style = "FD"
		} else if fill, ok := fills[-1]; ok {
			pdf.SetFillColor(fill.r, fill.g, fill.b)
			style = "FD"
		}
		pdf.SetDrawColor(203, 210, 217)
		pdf.Rect(x, y, widths[i], height, style)

		if i < len(bold) && bold[i] {
			pdf.SetFont(fontFamily, "B", 8)
		} else {
			pdf.SetFont(fontFamily, "", 8)
		}
		pdf.SetXY(x+1, y+1)
		pdf.MultiCell(widths[i]-2, lineHeight, cell, "", "L", false)
		x += widths[i]
	}
	pdf.SetXY(left, y+height)
	return broke
}

func themeColor(theme *render.ThemeConfig, token string, fallback rgb) rgb {
	raw := strings.TrimPrefix(strings.TrimSpace(theme.Token(token, "")), "#")
	if len(raw) != 6 {
		return fallback
	}
	value, err := strconv.ParseUint(raw, 16, 32)
	if err != nil {
		return fallback
	}
	return rgb{int(value >> 16 & 0xff), int(value >> 8 & 0xff), int(value & 0xff)}
}

func allTrue(n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = true
	}
	return out
}

func orTBD(value string) string {
	if strings.TrimSpace(value) == "" {
		return "TBD"
	}
	return value
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
