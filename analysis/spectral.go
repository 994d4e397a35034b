// Package analysis provides spectral measurements for rendered audio:
// single-tone amplitude, magnitude spectra, dominant-frequency and
// out-of-band energy estimates. The shifter-tune command scores candidate
// guard margins with these.
package analysis

import (
	"fmt"
	"math"

	algofft "github.com/cwbudde/algo-fft"
)

// ToneAmplitude estimates the amplitude of a sinusoid of frequency freq in
// signal by quadrature projection. The estimate is phase independent and
// improves with an integer number of cycles in the slice.
func ToneAmplitude(signal []float64, freq, sampleRate float64) float64 {
	if len(signal) == 0 || sampleRate <= 0 {
		return 0
	}
	var re, im float64
	w := 2 * math.Pi * freq / sampleRate
	for i, v := range signal {
		s, c := math.Sincos(w * float64(i))
		re += v * c
		im += v * s
	}
	n := float64(len(signal))
	return 2 * math.Hypot(re, im) / n
}

// MagnitudeSpectrum returns the Hann-windowed magnitude spectrum of signal,
// bins 0..n/2 where n is len(signal) rounded down to a power of two.
func MagnitudeSpectrum(signal []float64) ([]float64, error) {
	n := floorPowerOfTwo(len(signal))
	if n < 16 {
		return nil, fmt.Errorf("analysis: signal too short for a spectrum: %d samples", len(signal))
	}
	plan, err := algofft.NewPlan64(n)
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}

	src := make([]complex128, n)
	for i := 0; i < n; i++ {
		w := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
		src[i] = complex(signal[i]*w, 0)
	}
	dst := make([]complex128, n)
	if err := plan.Forward(dst, src); err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}

	mags := make([]float64, n/2+1)
	for k := range mags {
		mags[k] = math.Hypot(real(dst[k]), imag(dst[k]))
	}
	return mags, nil
}

// DominantFrequency returns the frequency in Hz of the strongest non-DC
// spectral peak of signal.
func DominantFrequency(signal []float64, sampleRate float64) (float64, error) {
	if sampleRate <= 0 {
		return 0, fmt.Errorf("analysis: invalid sample rate %g", sampleRate)
	}
	mags, err := MagnitudeSpectrum(signal)
	if err != nil {
		return 0, err
	}
	n := 2 * (len(mags) - 1)

	best, bestMag := 1, 0.0
	for k := 1; k < len(mags)-1; k++ {
		if mags[k] > bestMag {
			best, bestMag = k, mags[k]
		}
	}
	return float64(best) * sampleRate / float64(n), nil
}

// OutOfBandEnergyRatio returns the fraction of spectral energy outside the
// band [loHz, hiHz]. A clean shifted tone scores near zero; aliasing and
// imaging products push the ratio up.
func OutOfBandEnergyRatio(signal []float64, loHz, hiHz, sampleRate float64) (float64, error) {
	if sampleRate <= 0 || loHz < 0 || hiHz <= loHz {
		return 0, fmt.Errorf("analysis: invalid band [%g, %g] at %g Hz", loHz, hiHz, sampleRate)
	}
	mags, err := MagnitudeSpectrum(signal)
	if err != nil {
		return 0, err
	}
	n := 2 * (len(mags) - 1)

	var total, outside float64
	for k := 1; k < len(mags); k++ {
		f := float64(k) * sampleRate / float64(n)
		e := mags[k] * mags[k]
		total += e
		if f < loHz || f > hiHz {
			outside += e
		}
	}
	if total == 0 {
		return 0, nil
	}
	return outside / total, nil
}

// RMS returns the root mean square level of signal.
func RMS(signal []float64) float64 {
	if len(signal) == 0 {
		return 0
	}
	var sum float64
	for _, v := range signal {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(signal)))
}

func floorPowerOfTwo(n int) int {
	p := 1
	for p*2 <= n {
		p *= 2
	}
	return p
}
