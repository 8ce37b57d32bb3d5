package risk

import "strings"

// HazardCategory enumerates the hazard families recognised by the scorer.
type HazardCategory string

const (
	CategoryNone          HazardCategory = ""
	CategoryElectrical    HazardCategory = "Electrical"
	CategoryChemical      HazardCategory = "Chemical"
	CategoryPhysical      HazardCategory = "Physical"
	CategoryBiological    HazardCategory = "Biological"
	CategoryErgonomic     HazardCategory = "Ergonomic"
	CategoryPsychological HazardCategory = "Psychological"
	CategoryGeneral       HazardCategory = "General"
)

// Categories lists every known category in display order.
func Categories() []HazardCategory {
	return []HazardCategory{
		CategoryElectrical,
		CategoryChemical,
		CategoryPhysical,
		CategoryBiological,
		CategoryErgonomic,
		CategoryPsychological,
		CategoryGeneral,
	}
}

// String returns the category name.
func (c HazardCategory) String() string {
	return string(c)
}

// IsValid reports whether the category is known. The empty category is
// valid and means "not supplied".
func (c HazardCategory) IsValid() bool {
	if c == CategoryNone {
		return true
	}
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory resolves a category name case-insensitively. Unknown names
// map to CategoryGeneral so free-form input still scores.
func ParseCategory(raw string) HazardCategory {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return CategoryNone
	}
	if known, ok := lookupCategory(trimmed); ok {
		return known
	}
	return CategoryGeneral
}

// lookupCategory matches raw against the known categories, ignoring case.
func lookupCategory(raw string) (HazardCategory, bool) {
	trimmed := strings.TrimSpace(raw)
	for _, known := range Categories() {
		if strings.EqualFold(trimmed, string(known)) {
			return known, true
		}
	}
	return CategoryNone, false
}
