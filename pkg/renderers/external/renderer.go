package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/goliatone/go-swms/pkg/model"
	"github.com/goliatone/go-swms/pkg/render"
)

// Name is the registry name of the external tier.
const Name = "external"

// PageSettings is the print configuration sent with every request.
type PageSettings struct {
	Size            string  `json:"size"`
	Margin          float64 `json:"margin"`
	PrintBackground bool    `json:"printBackground"`
}

// Request is the JSON body posted to the rendering service.
type Request struct {
	Document model.Document `json:"document"`
	HTML     string         `json:"html,omitempty"`
	Title    string         `json:"title,omitempty"`
	Page     PageSettings   `json:"page"`
}

type locationResponse struct {
	URL string `json:"url"`
}

type Option func(*config)

type config struct {
	endpoint   string
	apiKey     string
	timeout    time.Duration
	retries    int
	retryWait  time.Duration
	html       render.Renderer
	logger     *zap.Logger
	httpClient *http.Client
}

// WithEndpoint sets the URL the document is posted to.
func WithEndpoint(endpoint string) Option {
	return func(cfg *config) {
		cfg.endpoint = strings.TrimSpace(endpoint)
	}
}

// WithAPIKey sends the key as a bearer token.
func WithAPIKey(key string) Option {
	return func(cfg *config) {
		cfg.apiKey = strings.TrimSpace(key)
	}
}

// WithTimeout bounds each HTTP call. The orchestrator deadline still
// applies on top of it.
func WithTimeout(timeout time.Duration) Option {
	return func(cfg *config) {
		cfg.timeout = timeout
	}
}

// WithRetries retries transport errors and 5xx responses when fetching a
// PDF by URL. The render POST is never retried so the service is billed at
// most once per attempt.
func WithRetries(count int, wait time.Duration) Option {
	return func(cfg *config) {
		if count < 0 {
			count = 0
		}
		cfg.retries = count
		cfg.retryWait = wait
	}
}

// WithHTMLRenderer includes pre-rendered HTML in the request so the service
// can print it without its own templates.
func WithHTMLRenderer(renderer render.Renderer) Option {
	return func(cfg *config) {
		cfg.html = renderer
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithHTTPClient overrides the transport, mostly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(cfg *config) {
		cfg.httpClient = client
	}
}

// Renderer posts the document to a remote PDF service.
type Renderer struct {
	endpoint *url.URL
	apiKey   string
	client   *resty.Client
	fetcher  *resty.Client
	html     render.Renderer
	logger   *zap.Logger
}

// New validates the endpoint and builds the HTTP client.
func New(options ...Option) (*Renderer, error) {
	cfg := config{
		timeout:   15 * time.Second,
		retryWait: 250 * time.Millisecond,
		logger:    zap.NewNop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}

	if cfg.endpoint == "" {
		return nil, errors.New("external renderer: endpoint is required")
	}
	endpoint, err := url.Parse(cfg.endpoint)
	if err != nil || endpoint.Scheme == "" || endpoint.Host == "" {
		return nil, fmt.Errorf("external renderer: invalid endpoint %q", cfg.endpoint)
	}

	return &Renderer{
		endpoint: endpoint,
		apiKey:   cfg.apiKey,
		client:   newClient(cfg, 0),
		fetcher:  newClient(cfg, cfg.retries),
		html:     cfg.html,
		logger:   cfg.logger,
	}, nil
}

func newClient(cfg config, retries int) *resty.Client {
	var client *resty.Client
	if cfg.httpClient != nil {
		client = resty.NewWithClient(cfg.httpClient)
	} else {
		client = resty.New()
	}
	client.
		SetTimeout(cfg.timeout).
		SetRetryCount(retries).
		SetHeader("Accept", "application/pdf, application/json")
	if retries > 0 {
		client.
			SetRetryWaitTime(cfg.retryWait).
			SetRetryMaxWaitTime(4*cfg.retryWait).
			AddRetryCondition(func(resp *resty.Response, err error) bool {
				return err == nil && resp != nil && resp.StatusCode() >= http.StatusInternalServerError
			})
	}
	return client
}

func (r *Renderer) Name() string {
	return Name
}

func (r *Renderer) ContentType() string {
	return render.ContentTypePDF
}

// Render posts the document. A 2xx response carries either the PDF itself or
// JSON {"url": "..."} naming where to fetch it. Anything else fails the tier.
func (r *Renderer) Render(ctx context.Context, doc model.Document, options render.RenderOptions) ([]byte, error) {
	payload := Request{
		Document: doc,
		Title:    options.Title,
		Page:     PageSettings{Size: "A4", Margin: 0, PrintBackground: true},
	}
	if r.html != nil {
		page, err := r.html.Render(ctx, doc, options)
		if err != nil {
			return nil, fmt.Errorf("external renderer: prepare html: %w", err)
		}
		payload.HTML = string(page)
	}

	r.logger.Debug("posting document to rendering service", zap.String("endpoint", r.endpoint.Redacted()))

	req := r.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload)
	if r.apiKey != "" {
		req.SetAuthToken(r.apiKey)
	}
	resp, err := req.Post(r.endpoint.String())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		return nil, fmt.Errorf("external renderer: post document: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("external renderer: service returned %d: %s", resp.StatusCode(), snippet(resp.Body()))
	}

	body := resp.Body()
	if render.IsPDF(body) {
		return body, nil
	}
	if !strings.Contains(resp.Header().Get("Content-Type"), "json") {
		return nil, fmt.Errorf("external renderer: unexpected response type %q", resp.Header().Get("Content-Type"))
	}

	var location locationResponse
	if err := json.Unmarshal(body, &location); err != nil {
		return nil, fmt.Errorf("external renderer: decode response: %w", err)
	}
	if strings.TrimSpace(location.URL) == "" {
		return nil, errors.New("external renderer: response has neither a PDF body nor a url")
	}
	return r.fetch(ctx, location.URL)
}

func (r *Renderer) fetch(ctx context.Context, raw string) ([]byte, error) {
	ref, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("external renderer: invalid pdf url %q: %w", raw, err)
	}
	target := r.endpoint.ResolveReference(ref)

	r.logger.Debug("fetching rendered pdf", zap.String("url", target.Redacted()))

	req := r.fetcher.R().
		SetContext(ctx).
		SetHeader("Accept", "application/pdf")
	// The key only goes back to the rendering service, never to storage
	// hosts it links to.
	if r.apiKey != "" && strings.EqualFold(target.Host, r.endpoint.Host) && target.Scheme == r.endpoint.Scheme {
		req.SetAuthToken(r.apiKey)
	}
	resp, err := req.Get(target.String())
	if err != nil {
		return nil, fmt.Errorf("external renderer: fetch pdf: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("external renderer: pdf url returned %d", resp.StatusCode())
	}
	if err := render.CheckPDF(resp.Body()); err != nil {
		return nil, fmt.Errorf("external renderer: %w", err)
	}
	return resp.Body(), nil
}

func snippet(body []byte) string {
	const limit = 200
	text := strings.TrimSpace(string(body))
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
