package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/goliatone/go-swms/internal/app"
	"github.com/goliatone/go-swms/pkg/export/register"
	"github.com/goliatone/go-swms/pkg/jobs"
	pkgmodel "github.com/goliatone/go-swms/pkg/model"
	"github.com/goliatone/go-swms/pkg/orchestrator"
	"github.com/goliatone/go-swms/pkg/render"
	"github.com/goliatone/go-swms/pkg/renderers/html"
	"github.com/goliatone/go-swms/pkg/risk"
	"github.com/goliatone/go-swms/pkg/validation"
)

var pipelineErrors = []int{
	http.StatusBadRequest,
	http.StatusBadGateway,
	http.StatusGatewayTimeout,
	http.StatusInternalServerError,
}

func fileResponses(contentType, description string) map[string]*huma.Response {
	return map[string]*huma.Response{
		"200": {
			Description: description,
			Content: map[string]*huma.MediaType{
				contentType: {Schema: &huma.Schema{Type: "string", Format: "binary"}},
			},
		},
	}
}

func parseSections(raw []byte) (pkgmodel.Sections, error) {
	sections, err := pkgmodel.LoadSections(raw)
	if err != nil {
		if mapped := handleError(err); mapped.GetStatus() == http.StatusBadRequest {
			return pkgmodel.Sections{}, mapped
		}
		return pkgmodel.Sections{}, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
	}
	return sections, nil
}

func extensionFor(contentType string) string {
	if contentType == render.ContentTypeHTML {
		return "html"
	}
	return "pdf"
}

func registerDocuments(api huma.API, a *app.App, limit int64) {
	generate := func(ctx context.Context, in *DocumentInput, pinned string) (*FileOutput, error) {
		sections, err := parseSections(in.RawBody)
		if err != nil {
			return nil, err
		}
		renderer := in.Renderer
		if pinned != "" {
			renderer = pinned
		}
		result, err := a.Orchestrator.Generate(ctx, orchestrator.Request{
			Sections:     sections,
			Renderer:     renderer,
			ThemeName:    in.Theme,
			ThemeVariant: in.Variant,
			Title:        in.Title,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &FileOutput{
			ContentType:        result.ContentType,
			ContentDisposition: attachment(result.Document.Project.ProjectName, extensionFor(result.ContentType)),
			Renderer:           result.Renderer,
			Body:               result.Output,
		}, nil
	}

	huma.Register(api, huma.Operation{
		OperationID:  "render-document",
		Method:       http.MethodPost,
		Path:         "/documents/render",
		Summary:      "Render a SWMS PDF",
		Description:  "Walks the external, chromium and primitive tiers in order and returns the first PDF produced.",
		MaxBodyBytes: limit,
		Errors:       pipelineErrors,
		Responses:    fileResponses(render.ContentTypePDF, "Rendered document"),
	}, func(ctx context.Context, in *DocumentInput) (*FileOutput, error) {
		return generate(ctx, in, "")
	})

	huma.Register(api, huma.Operation{
		OperationID:  "render-document-html",
		Method:       http.MethodPost,
		Path:         "/documents/html",
		Summary:      "Render the HTML page used by the browser tiers",
		MaxBodyBytes: limit,
		Errors:       pipelineErrors,
		Responses:    fileResponses("text/html", "Rendered page"),
	}, func(ctx context.Context, in *DocumentInput) (*FileOutput, error) {
		return generate(ctx, in, html.Name)
	})

	huma.Register(api, huma.Operation{
		OperationID:  "assemble-document",
		Method:       http.MethodPost,
		Path:         "/documents/assemble",
		Summary:      "Assemble and score a document without rendering it",
		MaxBodyBytes: limit,
		Errors:       []int{http.StatusBadRequest, http.StatusInternalServerError},
		Responses:    fileResponses("application/json", "Assembled document"),
	}, func(ctx context.Context, in *DocumentInput) (*FileOutput, error) {
		sections, err := parseSections(in.RawBody)
		if err != nil {
			return nil, err
		}
		doc, err := a.Orchestrator.Assemble(ctx, sections)
		if err != nil {
			return nil, handleError(err)
		}
		data, err := marshalJSON(doc)
		if err != nil {
			return nil, handleError(err)
		}
		return &FileOutput{ContentType: "application/json", Body: data}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:  "risk-register",
		Method:       http.MethodPost,
		Path:         "/documents/risk-register",
		Summary:      "Export the risk register workbook",
		MaxBodyBytes: limit,
		Errors:       []int{http.StatusBadRequest, http.StatusInternalServerError},
		Responses:    fileResponses(register.ContentType, "Risk register workbook"),
	}, func(ctx context.Context, in *DocumentInput) (*FileOutput, error) {
		sections, err := parseSections(in.RawBody)
		if err != nil {
			return nil, err
		}
		doc, err := a.Orchestrator.Assemble(ctx, sections)
		if err != nil {
			return nil, handleError(err)
		}
		workbook, err := register.Export(doc)
		if err != nil {
			return nil, handleError(err)
		}
		return &FileOutput{
			ContentType:        register.ContentType,
			ContentDisposition: attachment(doc.Project.ProjectName+"-risk-register", "xlsx"),
			Body:               workbook,
		}, nil
	})
}

func registerContract(api huma.API, limit int64) {
	huma.Register(api, huma.Operation{
		OperationID:  "validate-document",
		Method:       http.MethodPost,
		Path:         "/documents/validate",
		Summary:      "Check a render request against the section contract",
		Description:  "Reports every contract violation. Rendering stops at the first one.",
		MaxBodyBytes: limit,
	}, func(ctx context.Context, in *DocumentInput) (*struct {
		Body validation.Result `json:"body"`
	}, error) {
		return &struct {
			Body validation.Result `json:"body"`
		}{Body: validation.ValidateRequest(in.RawBody)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "section-contract",
		Method:      http.MethodGet,
		Path:        "/contract",
		Summary:     "OpenAPI components describing accepted sections",
		Responses:   fileResponses("application/yaml", "Section contract"),
	}, func(ctx context.Context, _ *struct{}) (*FileOutput, error) {
		doc, err := pkgmodel.ContractDocument()
		if err != nil {
			return nil, handleError(err)
		}
		return &FileOutput{ContentType: "application/yaml", Body: doc}, nil
	})
}

func registerRisk(api huma.API, a *app.App) {
	huma.Register(api, huma.Operation{
		OperationID: "score-task",
		Method:      http.MethodPost,
		Path:        "/risk/score",
		Summary:     "Score a task and its residual risk",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, in *struct {
		Body ScoreRequest `json:"body"`
	}) (*struct {
		Body ScoreResponse `json:"body"`
	}, error) {
		category := risk.ParseCategory(in.Body.Category)
		breakdown := a.Scorer.Explain(in.Body.Task, in.Body.Trade, category)
		return &struct {
			Body ScoreResponse `json:"body"`
		}{Body: scoreResponse(in.Body, category, breakdown)}, nil
	})
}

func registerRenders(api huma.API, a *app.App, limit int64) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-render",
		Method:        http.MethodPost,
		Path:          "/renders",
		Summary:       "Start a background render job",
		DefaultStatus: http.StatusAccepted,
		MaxBodyBytes:  limit,
		Errors:        []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, in *DocumentInput) (*struct {
		Location string   `header:"Location"`
		Body     jobs.Job `json:"body"`
	}, error) {
		sections, err := parseSections(in.RawBody)
		if err != nil {
			return nil, err
		}
		job, err := a.Jobs.Start(ctx, jobs.Request{
			Sections:     sections,
			Renderer:     in.Renderer,
			ThemeName:    in.Theme,
			ThemeVariant: in.Variant,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Location string   `header:"Location"`
			Body     jobs.Job `json:"body"`
		}{Location: BasePath + "/renders/" + job.ID, Body: job}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-renders",
		Method:      http.MethodGet,
		Path:        "/renders",
		Summary:     "List render jobs",
	}, func(ctx context.Context, in *JobListInput) (*struct {
		Body JobListResponse `json:"body"`
	}, error) {
		items, err := a.Jobs.List(ctx, in.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []jobs.Job{}
		}
		return &struct {
			Body JobListResponse `json:"body"`
		}{Body: JobListResponse{Jobs: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-render",
		Method:      http.MethodGet,
		Path:        "/renders/{id}",
		Summary:     "Get a render job",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, in *JobPath) (*struct {
		Body jobs.Job `json:"body"`
	}, error) {
		job, err := a.Jobs.Get(ctx, in.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body jobs.Job `json:"body"`
		}{Body: job}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-render-pdf",
		Method:      http.MethodGet,
		Path:        "/renders/{id}/pdf",
		Summary:     "Download the PDF of a successful render job",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
		Responses:   fileResponses(render.ContentTypePDF, "Rendered document"),
	}, func(ctx context.Context, in *JobPath) (*FileOutput, error) {
		job, err := a.Jobs.Get(ctx, in.ID)
		if err != nil {
			return nil, handleError(err)
		}
		pdf, err := a.Jobs.PDF(ctx, in.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &FileOutput{
			ContentType:        render.ContentTypePDF,
			ContentDisposition: attachment(job.Project, "pdf"),
			Renderer:           job.Renderer,
			Body:               pdf,
		}, nil
	})
}
