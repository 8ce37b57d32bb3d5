package server

import (
	"github.com/goliatone/go-swms/pkg/jobs"
	"github.com/goliatone/go-swms/pkg/risk"
)

type HealthResponse struct {
	Status string   `json:"status" example:"ok"`
	Tiers  []string `json:"tiers" example:"[\"external\",\"chromium\",\"primitive\"]"`
}

// DocumentInput carries a render request body in JSON or YAML plus the
// rendering knobs as query parameters.
type DocumentInput struct {
	Renderer string `query:"renderer" doc:"Pin a single renderer by name" example:"primitive"`
	Theme    string `query:"theme" doc:"Theme manifest name" example:"swms"`
	Variant  string `query:"variant" doc:"Theme variant" example:"high-contrast"`
	Title    string `query:"title" doc:"Document title override"`
	RawBody  []byte
}

// FileOutput streams generated bytes with their content type.
type FileOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	Renderer           string `header:"X-Swms-Renderer"`
	Body               []byte
}

type ScoreRequest struct {
	Task     string `json:"task" minLength:"1" doc:"Task description" example:"Excavate trench for conduit"`
	Trade    string `json:"trade,omitempty" example:"Civil"`
	Category string `json:"category,omitempty" example:"Excavation"`
	Controls int    `json:"controls,omitempty" minimum:"0" doc:"Number of control measures applied"`
}

type ScoreResponse struct {
	Task              string  `json:"task"`
	Trade             string  `json:"trade"`
	Category          string  `json:"category"`
	Base              float64 `json:"base"`
	TradeMultiplier   float64 `json:"tradeMultiplier"`
	KeywordMultiplier float64 `json:"keywordMultiplier"`
	Jitter            int     `json:"jitter"`
	Initial           int     `json:"initial"`
	InitialLevel      string  `json:"initialLevel" enum:"Low,Medium,High,Extreme"`
	Residual          int     `json:"residual"`
	ResidualLevel     string  `json:"residualLevel" enum:"Low,Medium,High,Extreme"`
}

func scoreResponse(req ScoreRequest, category risk.HazardCategory, breakdown risk.Breakdown) ScoreResponse {
	residual := risk.Residual(breakdown.Score, req.Controls)
	return ScoreResponse{
		Task:              req.Task,
		Trade:             req.Trade,
		Category:          category.String(),
		Base:              breakdown.Base,
		TradeMultiplier:   breakdown.TradeMultiplier,
		KeywordMultiplier: breakdown.KeywordMultiplier,
		Jitter:            breakdown.Jitter,
		Initial:           breakdown.Score.Int(),
		InitialLevel:      breakdown.Score.Level().String(),
		Residual:          residual.Int(),
		ResidualLevel:     residual.Level().String(),
	}
}

type JobPath struct {
	ID string `path:"id" doc:"Render job id"`
}

type JobListInput struct {
	Limit int `query:"limit" minimum:"0" maximum:"500" doc:"Maximum jobs returned, newest first"`
}

type JobListResponse struct {
	Jobs []jobs.Job `json:"jobs"`
}
