package shifter

import "math"

const twoPi = 2 * math.Pi

// advancePhase steps a resynthesis phase by delta and wraps it into
// [0, 2*pi). Adding a full turn before the modulo keeps the result
// nonnegative when a ratio below 1 makes delta negative.
func advancePhase(phase, delta float64) float64 {
	p := math.Mod(phase+delta+twoPi, twoPi)
	if p < 0 {
		p += twoPi
	}
	return p
}

// resynthesize evaluates the inverse transform of the conjugate-symmetric
// half spectrum bins[0..n/2] at the continuous phase omega and returns one
// real sample:
//
//	y = (Re X[0] + 2*sum_{k=1}^{n/2-1} Re(X[k]*e^{i*omega*k})
//	             + Re(X[n/2]*e^{i*omega*n/2})) / n
//
// At omega = 2*pi*t/n this is exactly the real inverse DFT sample t of the
// window; between grid points it interpolates the underlying band-limited
// waveform. The Nyquist bin is included and weighted once, so integer-phase
// evaluation matches a reference full inverse transform bit for bit up to
// rounding.
//
// The rotation factor is advanced incrementally, costing one Sincos per call
// and one complex multiply-accumulate per bin. This loop dominates the
// per-sample cost.
func resynthesize(bins []complex128, n int, omega float64) float64 {
	sin, cos := math.Sincos(omega)
	z := complex(cos, sin)
	zn := z

	sum := real(bins[0])
	half := n / 2
	for k := 1; k < half; k++ {
		sum += 2 * real(bins[k]*zn)
		zn *= z
	}
	sum += real(bins[half] * zn)

	return sum / float64(n)
}
