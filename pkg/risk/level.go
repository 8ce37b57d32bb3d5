package risk

import "strings"

// Level is the named band a Score falls into.
type Level string

const (
	LevelLow     Level = "Low"
	LevelMedium  Level = "Medium"
	LevelHigh    Level = "High"
	LevelExtreme Level = "Extreme"
)

const (
	lowCeiling    = 4
	mediumCeiling = 9
	highCeiling   = 16
)

// Classify maps a score onto its band: <=4 Low, 5-9 Medium, 10-16 High and
// anything above 16 Extreme.
func Classify(score Score) Level {
	switch {
	case score <= lowCeiling:
		return LevelLow
	case score <= mediumCeiling:
		return LevelMedium
	case score <= highCeiling:
		return LevelHigh
	default:
		return LevelExtreme
	}
}

// String returns the band name.
func (l Level) String() string {
	return string(l)
}

// IsValid reports whether the level is one of the known bands.
func (l Level) IsValid() bool {
	switch l {
	case LevelLow, LevelMedium, LevelHigh, LevelExtreme:
		return true
	default:
		return false
	}
}

// ParseLevel resolves a band name case-insensitively. Unknown names return
// false.
func ParseLevel(raw string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low":
		return LevelLow, true
	case "medium":
		return LevelMedium, true
	case "high":
		return LevelHigh, true
	case "extreme":
		return LevelExtreme, true
	default:
		return "", false
	}
}
