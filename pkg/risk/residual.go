package risk

import "github.com/shopspring/decimal"

var (
	baseReduction       = decimal.RequireFromString("0.4")
	reductionPerControl = decimal.RequireFromString("0.05")
)

// ReductionFraction returns the share of the initial score removed by the
// given number of control measures: 0.4 plus 0.05 per control. Growth is
// unbounded; Residual clamps the result.
func ReductionFraction(controls int) float64 {
	return reductionFor(controls).InexactFloat64()
}

// Residual derives the post-control score. The result is always >= 1 and,
// when at least one control exists, at most initial-1 so the document shows
// a measurable improvement.
func Residual(initial Score, controls int) Score {
	if controls < 0 {
		controls = 0
	}
	remaining := decimal.NewFromInt(1).Sub(reductionFor(controls))
	residual := Score(decimal.NewFromInt(int64(initial)).Mul(remaining).Round(0).IntPart())

	if controls > 0 && residual > initial-1 {
		residual = initial - 1
	}
	if residual < 1 {
		residual = 1
	}
	return residual
}

// SatisfiesResidual reports whether a caller-supplied residual score honours
// the reduction invariant for the given initial score and control count.
func SatisfiesResidual(initial, residual Score, controls int) bool {
	if residual < 1 {
		return false
	}
	if controls > 0 && initial >= 2 && residual > initial-1 {
		return false
	}
	return true
}

func reductionFor(controls int) decimal.Decimal {
	return baseReduction.Add(reductionPerControl.Mul(decimal.NewFromInt(int64(controls))))
}
