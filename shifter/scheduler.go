package shifter

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/design/pass"
)

const (
	// DefaultGuardMargin is the band-limiting guard margin in octaves.
	DefaultGuardMargin = 0.2

	// bandLimitOrder is the order of each band-limiting Butterworth stage.
	bandLimitOrder = 3

	// antiPopCutoffHz is the fixed design frequency of the smoothing stage
	// that absorbs discontinuities when cutoffs are rescheduled.
	antiPopCutoffHz = 10000.0

	// maxCutoffFraction keeps lowpass cutoffs inside the designable range;
	// the bilinear transform degenerates at the Nyquist frequency itself.
	maxCutoffFraction = 0.499

	// windowDivisor sets the lowest resolvable frequency fs/(n/windowDivisor)
	// bounded by the highpass stages.
	windowDivisor = 4
)

// cutoffs derives the four band-limiting cutoff frequencies in Hz for the
// given pitch ratio.
//
// The pre lowpass bounds input content that would scale past Nyquist after
// shifting; the post lowpass removes images the phase rotation itself
// creates when shifting down. Which side of unity the margin lands on
// depends on the ratio, hence the asymmetric conditions. The highpass pair
// bounds content below what the analysis window can resolve, the pre stage
// scaled into pre-shift frequency.
func (e *Engine) cutoffs(ratio float64) (preLow, preHigh, postLow, postHigh float64) {
	fs := e.sampleRate
	nyquist := fs / 2
	m := math.Exp2(e.margin)

	preLow = nyquist
	if ratio*m > 1 {
		preLow = nyquist / (ratio * m)
	}
	postLow = nyquist
	if ratio/m < 1 {
		postLow = nyquist * ratio / m
	}

	floorBase := fs / float64(e.window/windowDivisor) * m
	preHigh = floorBase / ratio
	postHigh = floorBase

	limit := maxCutoffFraction * fs
	preLow = clampf(preLow, 1, limit)
	postLow = clampf(postLow, 1, limit)
	preHigh = clampf(preHigh, 1, limit)
	postHigh = clampf(postHigh, 1, limit)
	return preLow, preHigh, postLow, postHigh
}

// reschedule rebuilds the band-limiting coefficient sets for ratio and
// installs them on every channel, then refreshes the cached ratio and the
// per-sample phase increment.
//
// Coefficients are designed once and shared across channels; the chains keep
// their delay-line state through the swap, so a reschedule never resets the
// filters. This runs only when the ratio actually changed, keeping the
// trigonometric design work off the per-sample path.
func (e *Engine) reschedule(ratio float64) {
	preLow, preHigh, postLow, postHigh := e.cutoffs(ratio)

	lpPre := pass.ButterworthLP(preLow, bandLimitOrder, e.sampleRate)
	hpPre := pass.ButterworthHP(preHigh, bandLimitOrder, e.sampleRate)
	lpPost := pass.ButterworthLP(postLow, bandLimitOrder, e.sampleRate)
	hpPost := pass.ButterworthHP(postHigh, bandLimitOrder, e.sampleRate)

	for ch := range e.channels {
		cs := &e.channels[ch]
		cs.preLow.UpdateCoefficients(lpPre, 1)
		cs.preHigh.UpdateCoefficients(hpPre, 1)
		cs.postLow.UpdateCoefficients(lpPost, 1)
		cs.postHigh.UpdateCoefficients(hpPost, 1)
	}

	e.deltaOmega = twoPi * (ratio - 1) / float64(e.window)
	e.cachedRatio = ratio
	e.reschedules++
}

// antiPopCutoff returns the design frequency of the fixed smoothing stage,
// pulled below Nyquist at low sample rates.
func (e *Engine) antiPopCutoff() float64 {
	return math.Min(antiPopCutoffHz, maxCutoffFraction*e.sampleRate)
}
