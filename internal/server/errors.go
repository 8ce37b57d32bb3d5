package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/goliatone/go-swms/pkg/jobs"
	pkgmodel "github.com/goliatone/go-swms/pkg/model"
	"github.com/goliatone/go-swms/pkg/orchestrator"
	"github.com/goliatone/go-swms/pkg/render"
)

type apiErrorBody struct {
	Code    string         `json:"code" example:"all_renderers_failed"`
	Message string         `json:"message" example:"render: all renderers failed"`
	Details map[string]any `json:"details,omitempty"`
}

// apiError is the error envelope returned by every endpoint.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func installErrorEnvelope() {
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, errorDetails(errs))
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		return newAPIError(status, "", msg, errorDetails(errs))
	}
}

func errorDetails(errs []error) map[string]any {
	if len(errs) == 0 {
		return nil
	}
	messages := make([]string, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			messages = append(messages, err.Error())
		}
	}
	return map[string]any{"errors": messages}
}

// handleError maps pipeline errors onto HTTP statuses.
func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}

	var failed *render.AllRenderersFailedError
	if errors.As(err, &failed) {
		attempts := make([]map[string]string, 0, len(failed.Attempts))
		for _, attempt := range failed.Attempts {
			attempts = append(attempts, map[string]string{
				"renderer": attempt.Renderer,
				"error":    attempt.Err.Error(),
			})
		}
		return newAPIError(http.StatusBadGateway, "all_renderers_failed", err.Error(), map[string]any{"attempts": attempts})
	}

	var malformed *pkgmodel.MalformedSectionError
	if errors.As(err, &malformed) {
		return newAPIError(http.StatusBadRequest, "malformed_section", err.Error(), map[string]any{
			"section":  malformed.Section,
			"expected": malformed.Expected,
		})
	}

	switch {
	case errors.Is(err, orchestrator.ErrUnknownRenderer):
		return newAPIError(http.StatusBadRequest, "unknown_renderer", err.Error(), nil)
	case errors.Is(err, orchestrator.ErrThemeNotFound), errors.Is(err, orchestrator.ErrVariantNotFound):
		return newAPIError(http.StatusBadRequest, "unknown_theme", err.Error(), nil)
	case errors.Is(err, jobs.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, jobs.ErrNotReady):
		return newAPIError(http.StatusConflict, "not_ready", err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded):
		return newAPIError(http.StatusGatewayTimeout, "timeout", err.Error(), nil)
	case errors.Is(err, context.Canceled):
		return newAPIError(http.StatusServiceUnavailable, "canceled", err.Error(), nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusBadGateway:
		return "bad_gateway"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}
