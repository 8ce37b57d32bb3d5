package risk

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Jitter is the random source used to nudge scores by -1, 0 or +1 so that
// near-identical inputs do not produce identical documents. *rand.Rand
// satisfies it.
type Jitter interface {
	Intn(n int) int
}

// JitterFunc adapts a function into a Jitter.
type JitterFunc func(n int) int

// Intn calls the underlying function.
func (fn JitterFunc) Intn(n int) int {
	return fn(n)
}

// NoJitter always returns the midpoint offset, producing a jitter of 0.
var NoJitter Jitter = JitterFunc(func(int) int { return 1 })

// NewSeededJitter returns a deterministic jitter source.
func NewSeededJitter(seed int64) Jitter {
	return rand.New(rand.NewSource(seed))
}

// Option customises a Scorer.
type Option func(*Scorer)

// WithTables replaces the default scoring tables.
func WithTables(tables Tables) Option {
	return func(s *Scorer) {
		s.tables = tables.normalized()
	}
}

// WithJitter injects the random source. Pass NoJitter for fully
// deterministic scoring.
func WithJitter(jitter Jitter) Option {
	return func(s *Scorer) {
		if jitter != nil {
			s.jitter = jitter
		}
	}
}

// WithSeed seeds a private random source.
func WithSeed(seed int64) Option {
	return func(s *Scorer) {
		s.jitter = NewSeededJitter(seed)
	}
}

// Scorer computes initial risk scores. It is safe for concurrent use; calls
// to the jitter source are serialised.
type Scorer struct {
	tables Tables
	mu     sync.Mutex
	jitter Jitter
}

// NewScorer constructs a Scorer. Without options it uses DefaultTables and a
// time-seeded random source.
func NewScorer(options ...Option) *Scorer {
	s := &Scorer{tables: DefaultTables().normalized()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	if s.jitter == nil {
		s.jitter = NewSeededJitter(time.Now().UnixNano())
	}
	return s
}

// Tables returns the scorer's (normalised) tables.
func (s *Scorer) Tables() Tables {
	return s.tables
}

// Breakdown exposes the intermediate values behind a score.
type Breakdown struct {
	Base              float64 `json:"base"`
	TradeMultiplier   float64 `json:"tradeMultiplier"`
	KeywordMultiplier float64 `json:"keywordMultiplier"`
	HighKeyword       bool    `json:"highKeyword"`
	MediumKeyword     bool    `json:"mediumKeyword"`
	Raw               int     `json:"raw"`
	Jitter            int     `json:"jitter"`
	Score             Score   `json:"score"`
}

// Score returns the clamped initial score for a task.
func (s *Scorer) Score(task, trade string, category HazardCategory) Score {
	return s.Explain(task, trade, category).Score
}

// Explain computes a score and returns every intermediate value.
func (s *Scorer) Explain(task, trade string, category HazardCategory) Breakdown {
	tables := s.tables
	text := strings.ToLower(task)

	out := Breakdown{
		Base:              tables.BaseScore,
		TradeMultiplier:   tables.TradeMultiplier(trade),
		KeywordMultiplier: 1,
		HighKeyword:       containsAny(text, tables.HighRiskKeywords),
		MediumKeyword:     containsAny(text, tables.MediumRiskKeywords),
	}

	keyword := decimal.NewFromInt(1)
	if out.HighKeyword {
		keyword = keyword.Add(decimal.NewFromFloat(tables.HighKeywordBonus))
	}
	if out.MediumKeyword {
		keyword = keyword.Add(decimal.NewFromFloat(tables.MediumKeywordBonus))
	}
	keyword = keyword.Add(decimal.NewFromFloat(tables.HazardBonus(category)))
	out.KeywordMultiplier = keyword.InexactFloat64()

	raw := decimal.NewFromFloat(tables.BaseScore).
		Mul(decimal.NewFromFloat(out.TradeMultiplier)).
		Mul(keyword).
		Round(0)
	out.Raw = int(raw.IntPart())
	out.Jitter = s.nextJitter()

	out.Score = Score(out.Raw + out.Jitter).Clamp(Score(tables.MinScore), Score(tables.MaxScore))
	return out
}

func (s *Scorer) nextJitter() int {
	s.mu.Lock()
	offset := s.jitter.Intn(3) - 1
	s.mu.Unlock()

	if offset < -1 {
		return -1
	}
	if offset > 1 {
		return 1
	}
	return offset
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if keyword != "" && strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
