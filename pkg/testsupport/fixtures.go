package testsupport

import (
	"bytes"
	"context"
	_ "embed"
	"io"
	"testing"
	"time"

	pkgmodel "github.com/goliatone/go-swms/pkg/model"
	"github.com/goliatone/go-swms/pkg/risk"
)

//go:embed testdata/site.json
var siteRequest []byte

// FixedNow is the clock used by fixture assemblers.
var FixedNow = time.Date(2025, time.April, 7, 8, 0, 0, 0, time.UTC)

// SiteRequest returns a copy of the bundled render request.
func SiteRequest() []byte {
	out := make([]byte, len(siteRequest))
	copy(out, siteRequest)
	return out
}

// SiteSections decodes the bundled render request.
func SiteSections(t *testing.T) pkgmodel.Sections {
	t.Helper()

	sections, err := pkgmodel.LoadSections(SiteRequest())
	if err != nil {
		t.Fatalf("load site sections: %v", err)
	}
	return sections
}

// Assembler returns an assembler with jitter disabled and a fixed clock so
// fixture documents are reproducible.
func Assembler() pkgmodel.Assembler {
	return pkgmodel.NewAssembler(
		pkgmodel.WithScorer(risk.NewScorer(risk.WithJitter(risk.NoJitter))),
		pkgmodel.WithClock(func() time.Time { return FixedNow }),
	)
}

// SiteDocument assembles the bundled render request.
func SiteDocument(t *testing.T) pkgmodel.Document {
	t.Helper()

	doc, err := Assembler().Assemble(context.Background(), SiteSections(t))
	if err != nil {
		t.Fatalf("assemble site document: %v", err)
	}
	return doc
}

// MinimalPDF returns a tiny byte slice that passes the PDF header check.
func MinimalPDF(label string) []byte {
	return []byte("%PDF-1.4\n% " + label + "\n%%EOF\n")
}

// CaptureTemplateOutput executes a render function that writes to an
// io.Writer, returning both the string result and the writer contents.
func CaptureTemplateOutput(t *testing.T, render func(io.Writer) (string, error)) (string, string) {
	t.Helper()

	var buf bytes.Buffer
	out, err := render(&buf)
	if err != nil {
		t.Fatalf("render template: %v", err)
	}
	return out, buf.String()
}
