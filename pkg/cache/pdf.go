package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	pkgmodel "github.com/goliatone/go-swms/pkg/model"
	"github.com/goliatone/go-swms/pkg/render"
)

const (
	defaultPrefix = "swms:pdf:"
	defaultTTL    = 24 * time.Hour
)

type Option func(*PDFCache)

// WithPrefix namespaces keys in a shared store.
func WithPrefix(prefix string) Option {
	return func(c *PDFCache) {
		c.prefix = prefix
	}
}

// WithTTL sets how long rendered PDFs are kept. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(c *PDFCache) {
		c.ttl = ttl
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *PDFCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// PDFCache stores rendered documents keyed by their normalised input.
type PDFCache struct {
	store  KVStore
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

func NewPDFCache(store KVStore, options ...Option) *PDFCache {
	c := &PDFCache{
		store:  store,
		prefix: defaultPrefix,
		ttl:    defaultTTL,
		logger: zap.NewNop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Key derives a stable cache key from the canonical sections payload plus
// any render parameters that change the output (renderer, theme, variant).
func Key(sections pkgmodel.Sections, params ...string) (string, error) {
	canonical, err := sections.Canonical()
	if err != nil {
		return "", fmt.Errorf("cache: canonical sections: %w", err)
	}
	h := sha256.New()
	h.Write(canonical)
	for _, param := range params {
		h.Write([]byte{0})
		h.Write([]byte(param))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Get returns the cached PDF or ErrCacheMiss. Entries that are not PDFs are
// treated as misses.
func (c *PDFCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.store.Get(ctx, c.prefix+key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.logger.Warn("pdf cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, err
	}
	if !render.IsPDF(data) {
		c.logger.Warn("discarding corrupt pdf cache entry", zap.String("key", key))
		_ = c.store.Delete(ctx, c.prefix+key)
		return nil, ErrCacheMiss
	}
	return data, nil
}

// Put stores pdf under key.
func (c *PDFCache) Put(ctx context.Context, key string, pdf []byte) error {
	if err := render.CheckPDF(pdf); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.store.Set(ctx, c.prefix+key, pdf, c.ttl); err != nil {
		return fmt.Errorf("cache: store pdf: %w", err)
	}
	return nil
}
