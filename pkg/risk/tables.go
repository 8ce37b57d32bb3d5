package risk

import (
	"errors"
	"fmt"
	"strings"
)

// Tables holds every constant the Scorer relies on. Callers can load a
// replacement from JSON/YAML (see LoadTables) or start from DefaultTables and
// tweak individual entries.
type Tables struct {
	BaseScore          float64                    `json:"baseScore" yaml:"baseScore"`
	MinScore           int                        `json:"minScore" yaml:"minScore"`
	MaxScore           int                        `json:"maxScore" yaml:"maxScore"`
	TradeMultipliers   map[string]float64         `json:"tradeMultipliers" yaml:"tradeMultipliers"`
	HighRiskKeywords   []string                   `json:"highRiskKeywords" yaml:"highRiskKeywords"`
	MediumRiskKeywords []string                   `json:"mediumRiskKeywords" yaml:"mediumRiskKeywords"`
	HighKeywordBonus   float64                    `json:"highKeywordBonus" yaml:"highKeywordBonus"`
	MediumKeywordBonus float64                    `json:"mediumKeywordBonus" yaml:"mediumKeywordBonus"`
	HazardBonuses      map[HazardCategory]float64 `json:"hazardBonuses" yaml:"hazardBonuses"`
}

// DefaultTables returns the built-in scoring tables.
func DefaultTables() Tables {
	return Tables{
		BaseScore: 4,
		MinScore:  3,
		MaxScore:  16,
		TradeMultipliers: map[string]float64{
			"electrical":           2.0,
			"asbestos removal":     2.0,
			"demolition":           1.9,
			"crane operation":      1.9,
			"roofing":              1.8,
			"scaffolding":          1.8,
			"welding":              1.7,
			"excavation":           1.7,
			"steel fixing":         1.5,
			"concrete":             1.4,
			"hvac":                 1.4,
			"plumbing":             1.3,
			"glazing":              1.3,
			"carpentry":            1.2,
			"general construction": 1.2,
			"painting":             1.1,
			"landscaping":          1.0,
			"tiling":               1.0,
		},
		HighRiskKeywords: []string{
			"electrical", "live", "voltage", "switchboard", "energised",
			"height", "ladder", "scaffold", "roof", "elevated",
			"confined space", "trench", "excavation",
			"crane", "heavy machinery", "forklift", "excavator", "demolition",
			"chemical", "asbestos", "solvent",
			"hot work", "welding", "cutting", "grinding",
		},
		MediumRiskKeywords: []string{
			"install", "testing", "test", "assembly", "assemble",
			"fit", "fitting", "maintenance", "repair", "inspection", "commissioning",
		},
		HighKeywordBonus:   0.5,
		MediumKeywordBonus: 0.2,
		HazardBonuses: map[HazardCategory]float64{
			CategoryElectrical:    0.3,
			CategoryChemical:      0.25,
			CategoryPhysical:      0.2,
			CategoryBiological:    0.15,
			CategoryErgonomic:     0.1,
			CategoryGeneral:       0.05,
			CategoryPsychological: 0,
		},
	}
}

// Validate checks the tables for values the scorer cannot work with.
func (t Tables) Validate() error {
	if t.BaseScore <= 0 {
		return errors.New("risk: base score must be positive")
	}
	if t.MinScore < 1 {
		return errors.New("risk: min score must be at least 1")
	}
	if t.MaxScore < t.MinScore {
		return fmt.Errorf("risk: max score %d below min score %d", t.MaxScore, t.MinScore)
	}
	for trade, multiplier := range t.TradeMultipliers {
		if strings.TrimSpace(trade) == "" {
			return errors.New("risk: trade multiplier with empty trade name")
		}
		if multiplier <= 0 {
			return fmt.Errorf("risk: trade %q multiplier must be positive", trade)
		}
	}
	for category, bonus := range t.HazardBonuses {
		if !category.IsValid() || category == CategoryNone {
			return fmt.Errorf("risk: unknown hazard category %q", category)
		}
		if bonus < 0 {
			return fmt.Errorf("risk: hazard category %q bonus must not be negative", category)
		}
	}
	return nil
}

// TradeMultiplier returns the multiplier for a trade, matching names
// case-insensitively. Unknown trades get 1.0.
func (t Tables) TradeMultiplier(trade string) float64 {
	key := normalizeKey(trade)
	if key == "" {
		return 1
	}
	if multiplier, ok := t.TradeMultipliers[key]; ok {
		return multiplier
	}
	for name, multiplier := range t.TradeMultipliers {
		if normalizeKey(name) == key {
			return multiplier
		}
	}
	return 1
}

// HazardBonus returns the additive keyword-multiplier bonus for a category.
func (t Tables) HazardBonus(category HazardCategory) float64 {
	if category == CategoryNone {
		return 0
	}
	return t.HazardBonuses[category]
}

// normalized returns a copy with lower-cased trade keys and keywords.
func (t Tables) normalized() Tables {
	out := t
	out.TradeMultipliers = make(map[string]float64, len(t.TradeMultipliers))
	for name, multiplier := range t.TradeMultipliers {
		out.TradeMultipliers[normalizeKey(name)] = multiplier
	}
	out.HighRiskKeywords = normalizeKeywords(t.HighRiskKeywords)
	out.MediumRiskKeywords = normalizeKeywords(t.MediumRiskKeywords)
	out.HazardBonuses = make(map[HazardCategory]float64, len(t.HazardBonuses))
	for category, bonus := range t.HazardBonuses {
		out.HazardBonuses[category] = bonus
	}
	return out
}

func normalizeKey(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(raw)), " ")
}

func normalizeKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, keyword := range in {
		key := normalizeKey(keyword)
		if key == "" {
			continue
		}
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
