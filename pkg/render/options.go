package render

// RenderOptions describe per-request data that renderers can use to customise
// their output without mutating the assembled document.
type RenderOptions struct {
	// Title overrides the document title. Renderers fall back to the project
	// name when empty.
	Title string
	// Theme carries branding tokens resolved from a go-theme manifest. Nil
	// means renderer defaults.
	Theme *ThemeConfig
	// Footer is printed on every page by renderers that paginate.
	Footer string
}

// ThemeConfig is the renderer-facing projection of a theme selection.
type ThemeConfig struct {
	Name     string
	Variant  string
	Tokens   map[string]string
	CSSVars  map[string]string
	Partials map[string]string
}

// Token returns the named token or fallback when the theme is nil or the
// token is missing.
func (t *ThemeConfig) Token(name, fallback string) string {
	if t == nil {
		return fallback
	}
	if value, ok := t.Tokens[name]; ok && value != "" {
		return value
	}
	return fallback
}
