package risk

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadTables parses JSON or YAML scoring tables. Fields absent from the
// payload keep their DefaultTables value so override files can stay small.
func LoadTables(data []byte, source string) (Tables, error) {
	if strings.TrimSpace(string(data)) == "" {
		return Tables{}, fmt.Errorf("risk: tables file %s is empty", source)
	}

	tables := DefaultTables()
	overlay := tablesFile{}
	if err := json.Unmarshal(data, &overlay); err != nil {
		overlay = tablesFile{}
		if yamlErr := yaml.Unmarshal(data, &overlay); yamlErr != nil {
			return Tables{}, fmt.Errorf("risk: parse %s: invalid JSON or YAML", source)
		}
	}
	if err := overlay.apply(&tables); err != nil {
		return Tables{}, fmt.Errorf("risk: tables %s: %w", source, err)
	}

	if err := tables.Validate(); err != nil {
		return Tables{}, fmt.Errorf("risk: tables %s: %w", source, err)
	}
	return tables, nil
}

// LoadTablesFile reads scoring tables from disk.
func LoadTablesFile(path string) (Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, fmt.Errorf("risk: read tables: %w", err)
	}
	return LoadTables(data, path)
}

type tablesFile struct {
	BaseScore          *float64                   `json:"baseScore" yaml:"baseScore"`
	MinScore           *int                       `json:"minScore" yaml:"minScore"`
	MaxScore           *int                       `json:"maxScore" yaml:"maxScore"`
	TradeMultipliers   map[string]float64         `json:"tradeMultipliers" yaml:"tradeMultipliers"`
	HighRiskKeywords   []string                   `json:"highRiskKeywords" yaml:"highRiskKeywords"`
	MediumRiskKeywords []string                   `json:"mediumRiskKeywords" yaml:"mediumRiskKeywords"`
	HighKeywordBonus   *float64                   `json:"highKeywordBonus" yaml:"highKeywordBonus"`
	MediumKeywordBonus *float64                   `json:"mediumKeywordBonus" yaml:"mediumKeywordBonus"`
	HazardBonuses      map[HazardCategory]float64 `json:"hazardBonuses" yaml:"hazardBonuses"`
}

func (f tablesFile) apply(t *Tables) error {
	if f.BaseScore != nil {
		t.BaseScore = *f.BaseScore
	}
	if f.MinScore != nil {
		t.MinScore = *f.MinScore
	}
	if f.MaxScore != nil {
		t.MaxScore = *f.MaxScore
	}
	if f.HighKeywordBonus != nil {
		t.HighKeywordBonus = *f.HighKeywordBonus
	}
	if f.MediumKeywordBonus != nil {
		t.MediumKeywordBonus = *f.MediumKeywordBonus
	}
	for trade, multiplier := range f.TradeMultipliers {
		t.TradeMultipliers[normalizeKey(trade)] = multiplier
	}
	if f.HighRiskKeywords != nil {
		t.HighRiskKeywords = append([]string(nil), f.HighRiskKeywords...)
	}
	if f.MediumRiskKeywords != nil {
		t.MediumRiskKeywords = append([]string(nil), f.MediumRiskKeywords...)
	}
	for category, bonus := range f.HazardBonuses {
		known, ok := lookupCategory(string(category))
		if !ok {
			return fmt.Errorf("unknown hazard category %q in hazardBonuses", category)
		}
		t.HazardBonuses[known] = bonus
	}
	return nil
}
