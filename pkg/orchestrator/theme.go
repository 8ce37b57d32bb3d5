package orchestrator

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-swms/pkg/render"
)

// Built-in theme identifiers.
const (
	DefaultThemeName       = "swms"
	DefaultThemeVariant    = "default"
	HighContrastVariant    = "high-contrast"
	defaultManifestVersion = "1.0.0"
)

var (
	ErrThemeNotFound   = errors.New("orchestrator: theme not found")
	ErrVariantNotFound = errors.New("orchestrator: theme variant not found")
)

// DefaultManifest returns the built-in SWMS branding. Token names match the
// --swms-* custom properties used by the HTML stylesheet and the colours read
// by the primitive renderer.
func DefaultManifest() *theme.Manifest {
	return &theme.Manifest{
		Name:    DefaultThemeName,
		Version: defaultManifestVersion,
		Tokens: map[string]string{
			"primary":      "#0b3d91",
			"on-primary":   "#ffffff",
			"text":         "#1f2933",
			"background":   "#ffffff",
			"surface":      "#f0f4f8",
			"border":       "#cbd2d9",
			"muted":        "#7b8794",
			"risk-low":     "#c6f7d0",
			"risk-medium":  "#fff3c4",
			"risk-high":    "#ffd0b5",
			"risk-extreme": "#ff9b9b",
			"font-family":  "Helvetica, Arial, sans-serif",
		},
		Templates: map[string]string{
			"document": "document.tmpl",
		},
		Assets: theme.Assets{
			Prefix: "/assets/swms",
			Files: map[string]string{
				"stylesheet": "swms.css",
			},
		},
		Variants: map[string]theme.Variant{
			HighContrastVariant: {
				Tokens: map[string]string{
					"primary":      "#000000",
					"text":         "#000000",
					"surface":      "#ffffff",
					"border":       "#000000",
					"muted":        "#333333",
					"risk-low":     "#00c853",
					"risk-medium":  "#ffd600",
					"risk-high":    "#ff6d00",
					"risk-extreme": "#d50000",
				},
			},
		},
	}
}

type manifestRegistry interface {
	theme.ThemeProvider
	Register(*theme.Manifest) error
}

// Catalog holds the available manifests and resolves a theme/variant pair
// into a selection. It satisfies theme.ThemeSelector.
type Catalog struct {
	mu        sync.RWMutex
	registry  manifestRegistry
	manifests map[string]*theme.Manifest
}

var _ theme.ThemeSelector = (*Catalog)(nil)

// NewCatalog registers the built-in manifest followed by any extras. An extra
// manifest named "swms" replaces the built-in one.
func NewCatalog(manifests ...*theme.Manifest) (*Catalog, error) {
	c := &Catalog{
		registry:  theme.NewRegistry(),
		manifests: make(map[string]*theme.Manifest),
	}
	overridden := false
	for _, manifest := range manifests {
		if manifest != nil && manifest.Name == DefaultThemeName {
			overridden = true
		}
	}
	if !overridden {
		manifests = append([]*theme.Manifest{DefaultManifest()}, manifests...)
	}
	for _, manifest := range manifests {
		if err := c.Register(manifest); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Register adds a manifest. Names must be unique.
func (c *Catalog) Register(manifest *theme.Manifest) error {
	if manifest == nil {
		return errors.New("orchestrator: theme manifest is required")
	}
	name := strings.TrimSpace(manifest.Name)
	if name == "" {
		return errors.New("orchestrator: theme manifest name is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.manifests[name]; exists {
		return fmt.Errorf("orchestrator: theme %q already registered", name)
	}
	if err := c.registry.Register(manifest); err != nil {
		return fmt.Errorf("orchestrator: register theme %q: %w", name, err)
	}
	c.manifests[name] = manifest
	return nil
}

// Provider exposes the underlying go-theme registry.
func (c *Catalog) Provider() theme.ThemeProvider {
	return c.registry
}

// Names lists registered themes alphabetically.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.manifests))
	for name := range c.manifests {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select resolves name and variant, defaulting to the built-in theme and its
// base variant.
func (c *Catalog) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultThemeName
	}
	variant = strings.TrimSpace(variant)
	if variant == "" {
		variant = DefaultThemeVariant
	}

	c.mu.RLock()
	manifest, ok := c.manifests[name]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrThemeNotFound, name)
	}
	if variant != DefaultThemeVariant {
		if _, ok := manifest.Variants[variant]; !ok {
			return nil, fmt.Errorf("%w: %q has no variant %q", ErrVariantNotFound, name, variant)
		}
	}
	return &theme.Selection{Theme: name, Variant: variant, Manifest: manifest}, nil
}

// ThemeConfigFrom flattens a selection into renderer-facing tokens with the
// variant overriding the base manifest.
func ThemeConfigFrom(selection *theme.Selection) *render.ThemeConfig {
	if selection == nil {
		return nil
	}
	cfg := &render.ThemeConfig{
		Name:     selection.Theme,
		Variant:  selection.Variant,
		Tokens:   map[string]string{},
		CSSVars:  map[string]string{},
		Partials: map[string]string{},
	}
	manifest := selection.Manifest
	if manifest == nil {
		return cfg
	}

	mergeInto(cfg.Tokens, manifest.Tokens)
	mergeInto(cfg.Partials, manifest.Templates)
	if variant, ok := manifest.Variants[selection.Variant]; ok {
		mergeInto(cfg.Tokens, variant.Tokens)
		mergeInto(cfg.Partials, variant.Templates)
	}
	for key, value := range cfg.Tokens {
		cfg.CSSVars["--swms-"+key] = value
	}
	return cfg
}

func mergeInto(dst, src map[string]string) {
	for key, value := range src {
		dst[key] = value
	}
}
