package shifter

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design/pass"
)

const (
	// ChannelCount is the fixed stereo channel layout.
	ChannelCount = 2

	// DefaultWindowLength is the analysis window in samples.
	DefaultWindowLength = 1024

	// DefaultSampleRate is used when no sample rate option is given.
	DefaultSampleRate = 44100.0
)

// Plugin identity reported to hosts.
const (
	EffectName    = "Pitch Shifter"
	VendorName    = "Soma FX"
	UniqueID      = 976359654
	EffectLatency = 0
)

var (
	// ErrChannelCount reports an input or output slice with a channel count
	// other than ChannelCount.
	ErrChannelCount = errors.New("shifter: channel count mismatch")

	// ErrBufferLength reports input and output channel buffers of unequal
	// length.
	ErrBufferLength = errors.New("shifter: buffer length mismatch")
)

// Sample constrains the sample types the engine can process directly.
type Sample interface {
	~float32 | ~float64
}

// channelState holds the per-channel signal path: the band-limit stages, the
// sliding analyzer and the resynthesis phase.
type channelState struct {
	preLow   *biquad.Chain
	preHigh  *biquad.Chain
	postLow  *biquad.Chain
	postHigh *biquad.Chain
	antiPop  *biquad.Chain

	analyzer *SlidingDFT
	phase    float64
}

// Engine is the stereo pitch-shifting processor. It reads parameters from a
// shared Parameters store and renders audio sample by sample with no added
// latency: every output sample is produced from input already received.
//
// Engines are not safe for concurrent use; a single goroutine drives Process.
// Parameter writes may come from other goroutines through the store.
type Engine struct {
	params *Parameters

	sampleRate  float64
	window      int
	margin      float64
	resyncEvery int

	channels [ChannelCount]channelState

	cachedRatio float64 // NaN forces a reschedule on the next Process
	deltaOmega  float64
	reschedules int
}

type config struct {
	sampleRate  float64
	window      int
	margin      float64
	resyncEvery int
}

// Option configures an Engine at construction time.
type Option func(*config)

// WithSampleRate sets the sample rate in Hz.
func WithSampleRate(fs float64) Option {
	return func(c *config) { c.sampleRate = fs }
}

// WithWindowLength sets the analysis window length in samples. The length
// must be a power of two and at least 64.
func WithWindowLength(n int) Option {
	return func(c *config) { c.window = n }
}

// WithGuardMargin sets the band-limiting guard margin in octaves.
func WithGuardMargin(m float64) Option {
	return func(c *config) { c.margin = m }
}

// WithResyncInterval sets how many samples the analyzers run on the sliding
// recurrence before an exact transform replaces their state. Values <= 0
// select the window length.
func WithResyncInterval(samples int) Option {
	return func(c *config) { c.resyncEvery = samples }
}

// New creates an Engine reading from params.
func New(params *Parameters, opts ...Option) (*Engine, error) {
	if params == nil {
		return nil, errors.New("shifter: nil parameter store")
	}

	cfg := config{
		sampleRate: DefaultSampleRate,
		window:     DefaultWindowLength,
		margin:     DefaultGuardMargin,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if !isFinitePositive(cfg.sampleRate) {
		return nil, fmt.Errorf("shifter: invalid sample rate %g", cfg.sampleRate)
	}
	if cfg.window < 64 || !isPowerOfTwo(cfg.window) {
		return nil, fmt.Errorf("shifter: window length must be a power of two >= 64: %d", cfg.window)
	}
	if cfg.margin < 0 || math.IsNaN(cfg.margin) || math.IsInf(cfg.margin, 0) {
		return nil, fmt.Errorf("shifter: invalid guard margin %g", cfg.margin)
	}

	e := &Engine{
		params:      params,
		sampleRate:  cfg.sampleRate,
		window:      cfg.window,
		margin:      cfg.margin,
		resyncEvery: cfg.resyncEvery,
		cachedRatio: math.NaN(),
	}

	// Neutral coefficient sets establish the section count; reschedule then
	// swaps coefficients in place without touching filter state.
	preLow, preHigh, postLow, postHigh := e.cutoffs(1)
	antiPop := pass.ButterworthLP(e.antiPopCutoff(), bandLimitOrder, e.sampleRate)

	for ch := range e.channels {
		analyzer, err := NewSlidingDFT(cfg.window, cfg.resyncEvery)
		if err != nil {
			return nil, err
		}
		e.channels[ch] = channelState{
			preLow:   biquad.NewChain(pass.ButterworthLP(preLow, bandLimitOrder, e.sampleRate)),
			preHigh:  biquad.NewChain(pass.ButterworthHP(preHigh, bandLimitOrder, e.sampleRate)),
			postLow:  biquad.NewChain(pass.ButterworthLP(postLow, bandLimitOrder, e.sampleRate)),
			postHigh: biquad.NewChain(pass.ButterworthHP(postHigh, bandLimitOrder, e.sampleRate)),
			antiPop:  biquad.NewChain(antiPop),
			analyzer: analyzer,
		}
	}
	return e, nil
}

// Info describes the effect to a host.
type Info struct {
	Name       string
	Vendor     string
	UniqueID   int32
	Inputs     int
	Outputs    int
	Parameters int
	Latency    int
}

// Info returns the host-visible effect metadata.
func (e *Engine) Info() Info {
	return Info{
		Name:       EffectName,
		Vendor:     VendorName,
		UniqueID:   UniqueID,
		Inputs:     ChannelCount,
		Outputs:    ChannelCount,
		Parameters: ParamCount,
		Latency:    EffectLatency,
	}
}

// SampleRate returns the configured sample rate in Hz.
func (e *Engine) SampleRate() float64 { return e.sampleRate }

// WindowLength returns the analysis window length in samples.
func (e *Engine) WindowLength() int { return e.window }

// Params returns the shared parameter store the engine reads from.
func (e *Engine) Params() *Parameters { return e.params }

// Latency returns the added latency in samples, which is always zero.
func (e *Engine) Latency() int { return EffectLatency }

// SetSampleRate changes the sample rate. The band-limit stages are
// rescheduled on the next Process call; the smoothing stage is redesigned
// immediately, in both cases preserving filter state.
func (e *Engine) SetSampleRate(fs float64) error {
	if !isFinitePositive(fs) {
		return fmt.Errorf("shifter: invalid sample rate %g", fs)
	}
	e.sampleRate = fs
	e.cachedRatio = math.NaN()

	antiPop := pass.ButterworthLP(e.antiPopCutoff(), bandLimitOrder, e.sampleRate)
	for ch := range e.channels {
		e.channels[ch].antiPop.UpdateCoefficients(antiPop, 1)
	}
	return nil
}

// Spectrum returns a copy of the analyzer half spectrum of channel ch, for
// metering and inspection.
func (e *Engine) Spectrum(ch int) ([]complex128, error) {
	if ch < 0 || ch >= ChannelCount {
		return nil, fmt.Errorf("%w: channel %d", ErrChannelCount, ch)
	}
	return e.channels[ch].analyzer.Spectrum(), nil
}

// Reset clears all signal state: analyzer windows, filter delay lines and
// resynthesis phases. Parameter values and cached coefficients are kept.
func (e *Engine) Reset() {
	for ch := range e.channels {
		cs := &e.channels[ch]
		cs.analyzer.Reset()
		cs.preLow.Reset()
		cs.preHigh.Reset()
		cs.postLow.Reset()
		cs.postHigh.Reset()
		cs.antiPop.Reset()
		cs.phase = 0
	}
}

// Process renders one block. in and out each hold ChannelCount channel
// buffers of equal length; in-place processing with out aliasing in is
// allowed. Parameters are read once at the start of the block, and the
// band-limit stages are rescheduled at most once, only when the pitch ratio
// changed since the previous block.
func Process[S Sample](e *Engine, in, out [][]S) error {
	if len(in) != ChannelCount || len(out) != ChannelCount {
		return fmt.Errorf("%w: got %d in, %d out", ErrChannelCount, len(in), len(out))
	}
	frames := len(in[0])
	for ch := 0; ch < ChannelCount; ch++ {
		if len(in[ch]) != frames || len(out[ch]) != frames {
			return fmt.Errorf("%w: channel %d", ErrBufferLength, ch)
		}
	}

	ratio := e.params.PitchRatio()
	mix := float64(e.params.Mix())
	if ratio != e.cachedRatio {
		e.reschedule(ratio)
	}

	n := e.window
	for ch := 0; ch < ChannelCount; ch++ {
		cs := &e.channels[ch]
		src := in[ch]
		dst := out[ch]
		phase := cs.phase
		for i := 0; i < frames; i++ {
			dry := float64(src[i])

			x := cs.preLow.ProcessSample(dry)
			x = cs.preHigh.ProcessSample(x)
			cs.analyzer.ProcessSample(x)

			y := resynthesize(cs.analyzer.Bins(), n, phase)
			y = cs.postLow.ProcessSample(y)
			y = cs.postHigh.ProcessSample(y)
			y = cs.antiPop.ProcessSample(y)

			dst[i] = S((1-mix)*dry + mix*y)
			phase = advancePhase(phase, e.deltaOmega)
		}
		cs.phase = phase
	}
	return nil
}

// ProcessFloat32 renders one block of float32 audio.
func (e *Engine) ProcessFloat32(in, out [][]float32) error {
	return Process(e, in, out)
}

// ProcessFloat64 renders one block of float64 audio.
func (e *Engine) ProcessFloat64(in, out [][]float64) error {
	return Process(e, in, out)
}
