package orchestrator_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	pkgmodel "github.com/goliatone/go-swms/pkg/model"
	"github.com/goliatone/go-swms/pkg/orchestrator"
	"github.com/goliatone/go-swms/pkg/render"
	"github.com/goliatone/go-swms/pkg/risk"
	"github.com/goliatone/go-swms/pkg/testsupport"
)

type chain struct {
	external  *testsupport.StubRenderer
	chromium  *testsupport.StubRenderer
	primitive *testsupport.StubRenderer
}

func newChain() chain {
	return chain{
		external:  &testsupport.StubRenderer{RendererName: "external"},
		chromium:  &testsupport.StubRenderer{RendererName: "chromium"},
		primitive: &testsupport.StubRenderer{RendererName: "primitive"},
	}
}

func (c chain) tiers(timeout time.Duration) []orchestrator.Tier {
	return []orchestrator.Tier{
		{Renderer: c.external, Timeout: timeout},
		{Renderer: c.chromium, Timeout: timeout},
		{Renderer: c.primitive, Timeout: timeout},
	}
}

func (c chain) calls() []int {
	return []int{c.external.Calls(), c.chromium.Calls(), c.primitive.Calls()}
}

func TestRender_FallsThroughToChromium(t *testing.T) {
	c := newChain()
	c.external.Err = errors.New("connection refused")

	orch := orchestrator.New(orchestrator.WithTiers(c.tiers(time.Second)...))
	out, err := orch.Render(context.Background(), testsupport.SiteDocument(t))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if diff := cmp.Diff(string(testsupport.MinimalPDF("chromium")), string(out)); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 1, 0}, c.calls()); diff != "" {
		t.Fatalf("tier calls mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_AllTiersFailed(t *testing.T) {
	c := newChain()
	c.external.Err = errors.New("503 service unavailable")
	c.chromium.Err = errors.New("chrome not installed")
	c.primitive.Err = errors.New("font missing")

	orch := orchestrator.New(orchestrator.WithTiers(c.tiers(time.Second)...))
	_, err := orch.Render(context.Background(), testsupport.SiteDocument(t))
	if !errors.Is(err, render.ErrAllRenderersFailed) {
		t.Fatalf("expected ErrAllRenderersFailed, got %v", err)
	}

	var failed *render.AllRenderersFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected *AllRenderersFailedError, got %T", err)
	}
	if len(failed.Attempts) != 3 {
		t.Fatalf("attempts = %d, want 3", len(failed.Attempts))
	}
	var names []string
	for _, attempt := range failed.Attempts {
		names = append(names, attempt.Renderer)
		if !errors.Is(attempt.Err, render.ErrRendererUnavailable) {
			t.Fatalf("tier %s: expected unavailable classification, got %v", attempt.Renderer, attempt.Err)
		}
	}
	if diff := cmp.Diff([]string{"external", "chromium", "primitive"}, names); diff != "" {
		t.Fatalf("attempt order mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_ClassifiesTimeoutAndRecordsMetrics(t *testing.T) {
	c := newChain()
	c.external.Delay = time.Second

	metrics, err := orchestrator.NewMetrics(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}

	orch := orchestrator.New(
		orchestrator.WithTiers(
			orchestrator.Tier{Renderer: c.external, Timeout: 20 * time.Millisecond},
			orchestrator.Tier{Renderer: c.chromium, Timeout: time.Second},
		),
		orchestrator.WithMetrics(metrics),
	)
	result, err := orch.Generate(context.Background(), orchestrator.Request{Sections: testsupport.SiteSections(t)})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	captured := result.Failures

	if result.Renderer != "chromium" {
		t.Fatalf("renderer = %q, want chromium", result.Renderer)
	}
	if len(captured) != 1 {
		t.Fatalf("failures = %d, want 1", len(captured))
	}
	if !errors.Is(captured[0].Err, render.ErrRendererTimeout) {
		t.Fatalf("expected timeout classification, got %v", captured[0].Err)
	}
	var timeout *render.TimeoutError
	if !errors.As(captured[0].Err, &timeout) || timeout.Renderer != "external" {
		t.Fatalf("expected *TimeoutError for external, got %#v", captured[0].Err)
	}

	if got := testutil.ToFloat64(metrics.Attempts().WithLabelValues("external", "timeout")); got != 1 {
		t.Fatalf("external timeout count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.Attempts().WithLabelValues("chromium", "success")); got != 1 {
		t.Fatalf("chromium success count = %v, want 1", got)
	}
}

func TestRender_LateOutputFallsThrough(t *testing.T) {
	c := newChain()
	stubborn := render.RendererFunc{
		RendererName: "external",
		Type:         render.ContentTypePDF,
		Fn: func(context.Context, pkgmodel.Document, render.RenderOptions) ([]byte, error) {
			time.Sleep(100 * time.Millisecond)
			return testsupport.MinimalPDF("late"), nil
		},
	}

	orch := orchestrator.New(orchestrator.WithTiers(
		orchestrator.Tier{Renderer: stubborn, Timeout: 10 * time.Millisecond},
		orchestrator.Tier{Renderer: c.chromium, Timeout: time.Second},
	))
	result, err := orch.Generate(context.Background(), orchestrator.Request{Sections: testsupport.SiteSections(t)})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if result.Renderer != "chromium" {
		t.Fatalf("renderer = %q, want chromium", result.Renderer)
	}
	if len(result.Failures) != 1 || !errors.Is(result.Failures[0].Err, render.ErrRendererTimeout) {
		t.Fatalf("expected external timeout failure, got %+v", result.Failures)
	}
	if diff := cmp.Diff(string(testsupport.MinimalPDF("chromium")), string(result.Output)); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_NonPDFOutputIsTierFailure(t *testing.T) {
	c := newChain()
	c.external.Output = []byte("<html>not a pdf</html>")

	orch := orchestrator.New(orchestrator.WithTiers(c.tiers(time.Second)...))
	result, err := orch.Generate(context.Background(), orchestrator.Request{Sections: testsupport.SiteSections(t)})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if result.Renderer != "chromium" {
		t.Fatalf("renderer = %q, want chromium", result.Renderer)
	}
	if len(result.Failures) != 1 || !errors.Is(result.Failures[0].Err, render.ErrRendererUnavailable) {
		t.Fatalf("unexpected failures: %+v", result.Failures)
	}
}

func TestRender_ParentCancellationStopsChain(t *testing.T) {
	c := newChain()
	c.external.Delay = 5 * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	orch := orchestrator.New(orchestrator.WithTiers(c.tiers(10*time.Second)...))
	_, err := orch.Render(ctx, testsupport.SiteDocument(t))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, render.ErrAllRenderersFailed) {
		t.Fatalf("cancellation must not be reported as exhaustion")
	}
	if diff := cmp.Diff([]int{1, 0, 0}, c.calls()); diff != "" {
		t.Fatalf("tier calls mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerate_PinnedRenderer(t *testing.T) {
	c := newChain()
	orch := orchestrator.New(orchestrator.WithTiers(c.tiers(time.Second)...))

	result, err := orch.Generate(context.Background(), orchestrator.Request{
		Sections: testsupport.SiteSections(t),
		Renderer: "primitive",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if result.Renderer != "primitive" {
		t.Fatalf("renderer = %q", result.Renderer)
	}
	if diff := cmp.Diff([]int{0, 0, 1}, c.calls()); diff != "" {
		t.Fatalf("tier calls mismatch (-want +got):\n%s", diff)
	}

	_, err = orch.Generate(context.Background(), orchestrator.Request{Renderer: "carrier-pigeon"})
	if !errors.Is(err, orchestrator.ErrUnknownRenderer) {
		t.Fatalf("expected ErrUnknownRenderer, got %v", err)
	}
}

func TestGenerate_PinnedRegistryRenderer(t *testing.T) {
	registry := render.NewRegistry()
	page := render.RendererFunc{
		RendererName: "html",
		Type:         render.ContentTypeHTML,
		Fn: func(_ context.Context, doc pkgmodel.Document, _ render.RenderOptions) ([]byte, error) {
			return []byte("<h1>" + doc.Project.ProjectName + "</h1>"), nil
		},
	}
	registry.MustRegister(page)

	orch := orchestrator.New(orchestrator.WithRegistry(registry))
	result, err := orch.Generate(context.Background(), orchestrator.Request{
		Sections: testsupport.SiteSections(t),
		Renderer: "html",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if result.ContentType != render.ContentTypeHTML {
		t.Fatalf("content type = %q", result.ContentType)
	}
	if diff := cmp.Diff("<h1>Harbourside Substation Upgrade</h1>", string(result.Output)); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerate_AssemblesSections(t *testing.T) {
	c := newChain()
	orch := orchestrator.New(
		orchestrator.WithTiers(c.tiers(time.Second)...),
		orchestrator.WithAssembler(testsupport.Assembler()),
	)

	result, err := orch.Generate(context.Background(), orchestrator.Request{Sections: testsupport.SiteSections(t)})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if result.Document.Project.ProjectName != "Harbourside Substation Upgrade" {
		t.Fatalf("unexpected project: %+v", result.Document.Project)
	}
	for _, activity := range result.Document.Activities {
		if activity.ID == "" {
			t.Fatalf("activity without id: %+v", activity)
		}
	}
	hv := result.Document.Activities[0]
	if level := hv.InitialRisk.Level(); level != risk.LevelHigh && level != risk.LevelExtreme {
		t.Fatalf("high voltage work classified %s", level)
	}
}

func TestGenerate_MalformedSectionIsFatal(t *testing.T) {
	c := newChain()
	orch := orchestrator.New(orchestrator.WithTiers(c.tiers(time.Second)...))

	sections, err := pkgmodel.LoadSections([]byte(`{"activities": "dig a hole"}`))
	if err != nil {
		t.Fatalf("load sections: %v", err)
	}
	_, err = orch.Generate(context.Background(), orchestrator.Request{Sections: sections})
	if !errors.Is(err, pkgmodel.ErrMalformedSection) {
		t.Fatalf("expected ErrMalformedSection, got %v", err)
	}
	if diff := cmp.Diff([]int{0, 0, 0}, c.calls()); diff != "" {
		t.Fatalf("renderers must not run (-want +got):\n%s", diff)
	}
}

func TestRender_ConcurrentRequests(t *testing.T) {
	c := newChain()
	c.external.Err = errors.New("offline")
	orch := orchestrator.New(orchestrator.WithTiers(c.tiers(time.Second)...))
	doc := testsupport.SiteDocument(t)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := orch.Render(context.Background(), doc); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent render: %v", err)
	}
	if diff := cmp.Diff([]int{8, 8, 0}, c.calls()); diff != "" {
		t.Fatalf("tier calls mismatch (-want +got):\n%s", diff)
	}
}

func TestNew_DefaultsToPrimitiveTier(t *testing.T) {
	orch := orchestrator.New()
	tiers := orch.Tiers()
	if len(tiers) != 1 || tiers[0].Name() != "primitive" || tiers[0].Timeout != orchestrator.DefaultPrimitiveTimeout {
		t.Fatalf("unexpected default tiers: %+v", tiers)
	}

	out, err := orch.Render(context.Background(), testsupport.SiteDocument(t))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !render.IsPDF(out) {
		t.Fatalf("expected pdf output")
	}
}

func TestDefaultTiers_OrderAndTimeouts(t *testing.T) {
	c := newChain()
	tiers := orchestrator.DefaultTiers(c.external, c.chromium, c.primitive)

	type row struct {
		Name    string
		Timeout time.Duration
	}
	var got []row
	for _, tier := range tiers {
		got = append(got, row{tier.Name(), tier.Timeout})
	}
	want := []row{
		{"external", 15 * time.Second},
		{"chromium", 45 * time.Second},
		{"primitive", 20 * time.Second},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("tiers mismatch (-want +got):\n%s", diff)
	}

	if got := orchestrator.DefaultTiers(nil, c.chromium, c.primitive); len(got) != 2 {
		t.Fatalf("expected nil tier to be skipped, got %d tiers", len(got))
	}
}
