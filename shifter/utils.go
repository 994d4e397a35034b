package shifter

import (
	"math"

	"github.com/cwbudde/algo-approx"
)

const ln2 = 0.69314718055994530942

func pow2Approx(x float32) float32 {
	return approx.FastExp(x * ln2)
}

// CentsToRatio converts a pitch offset in cents to a frequency ratio.
func CentsToRatio(cents float64) float64 {
	return float64(pow2Approx(float32(cents) / 1200.0))
}

// SemitonesToRatio converts a pitch offset in semitones to a frequency ratio.
func SemitonesToRatio(semitones float64) float64 {
	return float64(pow2Approx(float32(semitones) / 12.0))
}

func isFinitePositive(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

func isPowerOfTwo(v int) bool {
	return v > 0 && v&(v-1) == 0
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
