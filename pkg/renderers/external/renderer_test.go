package external_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/goliatone/go-swms/pkg/model"
	"github.com/goliatone/go-swms/pkg/render"
	"github.com/goliatone/go-swms/pkg/renderers/external"
	"github.com/goliatone/go-swms/pkg/testsupport"
)

func newRenderer(t *testing.T, endpoint string, options ...external.Option) *external.Renderer {
	t.Helper()
	renderer, err := external.New(append([]external.Option{external.WithEndpoint(endpoint)}, options...)...)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	return renderer
}

func TestRenderer_ReturnsPDFBody(t *testing.T) {
	var got external.Request
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(testsupport.MinimalPDF("external"))
	}))
	defer server.Close()

	renderer := newRenderer(t, server.URL+"/render", external.WithAPIKey("secret"))
	doc := model.Document{Project: model.ProjectInfo{ProjectName: "Depot"}}

	out, err := renderer.Render(context.Background(), doc, render.RenderOptions{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !render.IsPDF(out) {
		t.Fatalf("expected pdf output, got %q", out)
	}
	if got.Page != (external.PageSettings{Size: "A4", Margin: 0, PrintBackground: true}) {
		t.Fatalf("unexpected page settings %+v", got.Page)
	}
	if got.Document.Project.ProjectName != "Depot" {
		t.Fatalf("document not posted: %+v", got.Document.Project)
	}
	if auth != "Bearer secret" {
		t.Fatalf("authorization header = %q", auth)
	}
}

func TestRenderer_FollowsURLResponse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/render", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"url": "/files/out.pdf"}`))
	})
	mux.HandleFunc("/files/out.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(testsupport.MinimalPDF("fetched"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	out, err := newRenderer(t, server.URL+"/render").Render(context.Background(), model.Document{}, render.RenderOptions{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(string(out), "fetched") {
		t.Fatalf("expected fetched pdf, got %q", out)
	}
}

func TestRenderer_IncludesHTMLWhenConfigured(t *testing.T) {
	var got external.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write(testsupport.MinimalPDF("html"))
	}))
	defer server.Close()

	htmlStub := render.RendererFunc{
		RendererName: "html",
		Type:         render.ContentTypeHTML,
		Fn: func(context.Context, model.Document, render.RenderOptions) ([]byte, error) {
			return []byte("<p>page</p>"), nil
		},
	}
	renderer := newRenderer(t, server.URL, external.WithHTMLRenderer(htmlStub))
	if _, err := renderer.Render(context.Background(), model.Document{}, render.RenderOptions{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if got.HTML != "<p>page</p>" {
		t.Fatalf("html = %q", got.HTML)
	}
}

func TestRenderer_Failures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "renderer overloaded", http.StatusBadGateway)
		},
		"html body": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html>maintenance</html>"))
		},
		"json without url": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status": "queued"}`))
		},
		"url not found": func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"url": "/missing.pdf"}`))
				return
			}
			http.NotFound(w, r)
		},
	}

	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(handler)
			defer server.Close()

			_, err := newRenderer(t, server.URL).Render(context.Background(), model.Document{}, render.RenderOptions{})
			if err == nil {
				t.Fatalf("expected failure")
			}
			if !strings.HasPrefix(err.Error(), "external renderer:") {
				t.Fatalf("error should be package prefixed: %v", err)
			}
		})
	}
}

func TestRenderer_PostIsSentOnce(t *testing.T) {
	var posts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			atomic.AddInt32(&posts, 1)
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	renderer := newRenderer(t, server.URL, external.WithRetries(3, time.Millisecond))
	if _, err := renderer.Render(context.Background(), model.Document{}, render.RenderOptions{}); err == nil {
		t.Fatalf("expected 503 to fail the tier")
	}
	if got := atomic.LoadInt32(&posts); got != 1 {
		t.Fatalf("posts = %d, want 1", got)
	}
}

func TestRenderer_RetriesPDFFetch(t *testing.T) {
	var posts, gets int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			atomic.AddInt32(&posts, 1)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"url": "/files/out.pdf"}`))
			return
		}
		if atomic.AddInt32(&gets, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write(testsupport.MinimalPDF("retry"))
	}))
	defer server.Close()

	renderer := newRenderer(t, server.URL+"/render", external.WithRetries(2, time.Millisecond))
	if _, err := renderer.Render(context.Background(), model.Document{}, render.RenderOptions{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if atomic.LoadInt32(&posts) != 1 || atomic.LoadInt32(&gets) != 2 {
		t.Fatalf("posts = %d, gets = %d, want 1 and 2", posts, gets)
	}
}

func TestRenderer_APIKeyStaysWithService(t *testing.T) {
	var storageAuth, sameHostAuth atomic.Value
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		storageAuth.Store(r.Header.Get("Authorization"))
		_, _ = w.Write(testsupport.MinimalPDF("storage"))
	}))
	defer storage.Close()

	var target atomic.Value
	target.Store(storage.URL + "/bucket/out.pdf")
	service := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			sameHostAuth.Store(r.Header.Get("Authorization"))
			_, _ = w.Write(testsupport.MinimalPDF("local"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"url": "` + target.Load().(string) + `"}`))
	}))
	defer service.Close()

	renderer := newRenderer(t, service.URL+"/render", external.WithAPIKey("secret"))
	if _, err := renderer.Render(context.Background(), model.Document{}, render.RenderOptions{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if got, _ := storageAuth.Load().(string); got != "" {
		t.Fatalf("api key leaked to storage host: %q", got)
	}

	target.Store("/files/out.pdf")
	if _, err := renderer.Render(context.Background(), model.Document{}, render.RenderOptions{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if got, _ := sameHostAuth.Load().(string); got != "Bearer secret" {
		t.Fatalf("same host fetch authorization = %q", got)
	}
}

func TestRenderer_ErrorSnippetKeepsRunesWhole(t *testing.T) {
	body := strings.Repeat("a", 199) + strings.Repeat("é", 10)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, body, http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newRenderer(t, server.URL).Render(context.Background(), model.Document{}, render.RenderOptions{})
	if err == nil {
		t.Fatalf("expected failure")
	}
	if !utf8.ValidString(err.Error()) {
		t.Fatalf("error message is not valid UTF-8: %q", err.Error())
	}
	if !strings.HasSuffix(err.Error(), strings.Repeat("a", 199)+"...") {
		t.Fatalf("unexpected truncation: %q", err.Error())
	}
}

func TestRenderer_HonoursDeadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newRenderer(t, server.URL).Render(ctx, model.Document{}, render.RenderOptions{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestNew_RejectsBadEndpoints(t *testing.T) {
	for _, endpoint := range []string{"", "not a url", "/relative"} {
		if _, err := external.New(external.WithEndpoint(endpoint)); err == nil {
			t.Fatalf("expected error for endpoint %q", endpoint)
		}
	}
}
