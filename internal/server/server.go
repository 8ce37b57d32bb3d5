package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/goliatone/go-swms/internal/app"
)

// Version is reported in the OpenAPI document.
const Version = "0.1.0"

// BasePath prefixes every versioned endpoint.
const BasePath = "/v1"

// New returns an HTTP handler exposing the document pipeline of a.
func New(a *app.App) (http.Handler, error) {
	if a == nil || a.Orchestrator == nil {
		return nil, errors.New("server: app is required")
	}
	huma.DefaultArrayNullable = false
	installErrorEnvelope()

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(accessLog(a.Logger.Named("http")))

	hcfg := huma.DefaultConfig("SWMS API", Version)
	hcfg.OpenAPIPath = "/openapi"
	api := humachi.New(router, hcfg)

	registerHealth(api, a)
	group := huma.NewGroup(api, BasePath)
	limit := a.Config.Server.MaxBodyBytes
	registerDocuments(group, a, limit)
	registerContract(group, limit)
	registerRisk(group, a)
	if a.Jobs != nil {
		registerRenders(group, a, limit)
	}

	if a.Gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(a.Gatherer, promhttp.HandlerOpts{}))
	}
	return router, nil
}

// ListenAndServe serves a until ctx is cancelled, then shuts down gracefully.
func ListenAndServe(ctx context.Context, a *app.App) error {
	handler, err := New(a)
	if err != nil {
		return err
	}
	cfg := a.Config.Server
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("http server listening", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer cancel()
	a.Logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

func accessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(started)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

func registerHealth(api huma.API, a *app.App) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Errors:      []int{http.StatusServiceUnavailable},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body HealthResponse `json:"body"`
	}, error) {
		if err := a.Ping(ctx); err != nil {
			return nil, newAPIError(http.StatusServiceUnavailable, "unavailable", err.Error(), nil)
		}
		tiers := a.Orchestrator.Tiers()
		names := make([]string, 0, len(tiers))
		for _, tier := range tiers {
			names = append(names, tier.Name())
		}
		return &struct {
			Body HealthResponse `json:"body"`
		}{Body: HealthResponse{Status: "ok", Tiers: names}}, nil
	})
}

// attachment formats a Content-Disposition header for a generated file.
func attachment(project, ext string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '-'
		default:
			return -1
		}
	}, strings.TrimSpace(project))
	if name == "" {
		name = "swms"
	}
	return fmt.Sprintf("attachment; filename=%q", strings.ToLower(name)+"."+ext)
}

func marshalJSON(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("server: encode response: %w", err)
	}
	return data, nil
}
