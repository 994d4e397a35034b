package shifter

import (
	"fmt"
	"math"
	"math/cmplx"

	algofft "github.com/cwbudde/algo-fft"
)

// SlidingDFT incrementally maintains the complex spectrum of the most recent
// n input samples. Each new sample updates all bins of the conjugate-
// symmetric half spectrum (indices 0..n/2) with one complex multiply-add per
// bin, far cheaper than recomputing a full transform.
//
// The plain sliding recurrence is marginally stable: the rotation factors
// have unit magnitude, so round-off neither decays nor explodes but drifts.
// To bound that drift over unbounded run lengths the analyzer periodically
// replaces its bins with an exact FFT of the ring buffer. With the default
// interval of n samples the amortized resync cost is O(log n) per sample.
//
// Given the same sample history the analyzer is deterministic.
type SlidingDFT struct {
	n           int
	resyncEvery int
	sinceResync int

	bins    []complex128 // half spectrum, indices 0..n/2
	twiddle []complex128 // e^{i*2*pi*k/n} per bin
	ring    []float64
	pos     int // index of the oldest sample

	plan    *algofft.Plan[complex128]
	timeBuf []complex128
	freqBuf []complex128
}

// NewSlidingDFT creates an analyzer over a window of n samples. n must be a
// power of two and at least 64. resyncEvery sets the exact-recompute
// interval in samples; values <= 0 select the default of n.
func NewSlidingDFT(n, resyncEvery int) (*SlidingDFT, error) {
	if n < 64 || !isPowerOfTwo(n) {
		return nil, fmt.Errorf("sliding dft: window length must be a power of two >= 64: %d", n)
	}
	if resyncEvery <= 0 {
		resyncEvery = n
	}

	plan, err := algofft.NewPlan64(n)
	if err != nil {
		return nil, fmt.Errorf("sliding dft: failed to create FFT plan: %w", err)
	}

	s := &SlidingDFT{
		n:           n,
		resyncEvery: resyncEvery,
		bins:        make([]complex128, n/2+1),
		twiddle:     make([]complex128, n/2+1),
		ring:        make([]float64, n),
		plan:        plan,
		timeBuf:     make([]complex128, n),
		freqBuf:     make([]complex128, n),
	}
	for k := range s.twiddle {
		s.twiddle[k] = cmplx.Rect(1, 2*math.Pi*float64(k)/float64(n))
	}
	return s, nil
}

// WindowLength returns the analysis window length n.
func (s *SlidingDFT) WindowLength() int { return s.n }

// Bins returns the live half spectrum, indices 0..n/2, ordered so that bin k
// is sum_{j=0}^{n-1} x[oldest+j]*e^{-i*2*pi*k*j/n}. The slice is the
// analyzer's working state and must not be modified.
func (s *SlidingDFT) Bins() []complex128 { return s.bins }

// Spectrum returns a copy of the half spectrum for inspection or metering.
func (s *SlidingDFT) Spectrum() []complex128 {
	out := make([]complex128, len(s.bins))
	copy(out, s.bins)
	return out
}

// ProcessSample slides the window forward by one sample: the oldest sample
// is evicted, x becomes the newest, and every bin is rotated into place.
func (s *SlidingDFT) ProcessSample(x float64) {
	old := s.ring[s.pos]
	s.ring[s.pos] = x
	s.pos++
	if s.pos == s.n {
		s.pos = 0
	}

	delta := complex(x-old, 0)
	for k, w := range s.twiddle {
		s.bins[k] = (s.bins[k] + delta) * w
	}

	s.sinceResync++
	if s.sinceResync >= s.resyncEvery {
		s.resync()
	}
}

// resync replaces the recursively maintained bins with an exact transform of
// the ring buffer, discarding accumulated round-off.
func (s *SlidingDFT) resync() {
	s.sinceResync = 0
	for j := 0; j < s.n; j++ {
		idx := s.pos + j
		if idx >= s.n {
			idx -= s.n
		}
		s.timeBuf[j] = complex(s.ring[idx], 0)
	}
	if err := s.plan.Forward(s.freqBuf, s.timeBuf); err != nil {
		// The plan was validated at construction; a failure here would mean
		// corrupted internal buffers. Keep the recursive bins.
		return
	}
	copy(s.bins, s.freqBuf[:s.n/2+1])
}

// Reset clears the window and spectrum to silence.
func (s *SlidingDFT) Reset() {
	for i := range s.ring {
		s.ring[i] = 0
	}
	for i := range s.bins {
		s.bins[i] = 0
	}
	s.pos = 0
	s.sinceResync = 0
}
