package shifter

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
)

// Parameter mapping constants. Pitch and fine pitch are stored in octave
// units; one unit of fine pitch is worth a single semitone.
const (
	OctavesPerUnitPitch = 1.0
	PitchPerFinePitch   = 1.0 / 12.0
	CentsPerUnitPitch   = 12.0 * 100.0 * OctavesPerUnitPitch

	PitchMax = 1.0 / OctavesPerUnitPitch
	PitchMin = -1.0 / OctavesPerUnitPitch
)

// Automation indices, fixed by the host protocol.
const (
	ParamPitch = iota
	ParamPitchFine
	ParamMix

	ParamCount
)

// ErrParameterIndex reports an automation index outside [0, ParamCount).
var ErrParameterIndex = errors.New("shifter: parameter index out of range")

// atomicFloat32 stores a float32 through its bit pattern so concurrent
// readers and writers never tear a single field.
type atomicFloat32 struct {
	bits atomic.Uint32
}

func (a *atomicFloat32) Load() float32 {
	return math.Float32frombits(a.bits.Load())
}

func (a *atomicFloat32) Store(v float32) {
	a.bits.Store(math.Float32bits(v))
}

// Parameters is the shared pitch/fine-pitch/mix state. An automation or UI
// goroutine writes it while the audio goroutine reads it; each field is an
// independent atomic, and no atomicity is guaranteed across fields. The
// three values may therefore be observed torn relative to one another
// between sample frames, which is an accepted property of the automation
// protocol, not something this package papers over with locks.
//
// The engine only ever reads from the store.
type Parameters struct {
	pitch     atomicFloat32
	pitchFine atomicFloat32
	mix       atomicFloat32
}

// NewParameters returns a store with neutral settings: no pitch offset and a
// fully wet mix.
func NewParameters() *Parameters {
	p := &Parameters{}
	p.mix.Store(1)
	return p
}

// Pitch returns the coarse pitch offset in octave units.
func (p *Parameters) Pitch() float32 { return p.pitch.Load() }

// SetPitch stores the coarse pitch offset in octave units.
func (p *Parameters) SetPitch(v float32) { p.pitch.Store(v) }

// PitchFine returns the fine pitch offset in semitone units.
func (p *Parameters) PitchFine() float32 { return p.pitchFine.Load() }

// SetPitchFine stores the fine pitch offset in semitone units.
func (p *Parameters) SetPitchFine(v float32) { p.pitchFine.Store(v) }

// Mix returns the dry/wet mix in [0, 1].
func (p *Parameters) Mix() float32 { return p.mix.Load() }

// SetMix stores the dry/wet mix. The value is used raw and unsmoothed.
func (p *Parameters) SetMix(v float32) { p.mix.Store(v) }

// Octaves returns the combined pitch offset in octaves.
func (p *Parameters) Octaves() float32 {
	return (p.pitch.Load() + p.pitchFine.Load()*PitchPerFinePitch) * OctavesPerUnitPitch
}

// Cents returns the combined pitch offset in cents, as shown to the host.
func (p *Parameters) Cents() float32 {
	return (p.pitch.Load() + p.pitchFine.Load()*PitchPerFinePitch) * CentsPerUnitPitch
}

// PitchRatio returns the effective frequency-scaling factor 2^octaves.
//
// The ratio is a deterministic function of the stored values, so callers may
// cache against it with an exact comparison.
func (p *Parameters) PitchRatio() float64 {
	return float64(pow2Approx(p.Octaves()))
}

// SetNormalized stores a normalized host value in [0, 1] for the parameter
// at index. Indices outside the declared parameter count are a host contract
// violation and reported as ErrParameterIndex.
func (p *Parameters) SetNormalized(index int, value float32) error {
	switch index {
	case ParamPitch:
		p.pitch.Store(value*(PitchMax-PitchMin) + PitchMin)
	case ParamPitchFine:
		p.pitchFine.Store(value*(PitchMax-PitchMin) + PitchMin)
	case ParamMix:
		p.mix.Store(value)
	default:
		return fmt.Errorf("%w: %d", ErrParameterIndex, index)
	}
	return nil
}

// Normalized returns the parameter at index as a normalized host value.
func (p *Parameters) Normalized(index int) (float32, error) {
	switch index {
	case ParamPitch:
		return (p.pitch.Load() - PitchMin) / (PitchMax - PitchMin), nil
	case ParamPitchFine:
		return (p.pitchFine.Load() - PitchMin) / (PitchMax - PitchMin), nil
	case ParamMix:
		return p.mix.Load(), nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrParameterIndex, index)
	}
}

// Name returns the display name of the parameter at index.
func (p *Parameters) Name(index int) (string, error) {
	switch index {
	case ParamPitch:
		return "Pitch", nil
	case ParamPitchFine:
		return "Pitch (Fine)", nil
	case ParamMix:
		return "Mix", nil
	default:
		return "", fmt.Errorf("%w: %d", ErrParameterIndex, index)
	}
}

// Unit returns the display unit of the parameter at index.
func (p *Parameters) Unit(index int) (string, error) {
	switch index {
	case ParamPitch, ParamPitchFine:
		return "cents", nil
	case ParamMix:
		return "%", nil
	default:
		return "", fmt.Errorf("%w: %d", ErrParameterIndex, index)
	}
}

// DisplayText returns the human-readable value of the parameter at index.
// Both pitch parameters display the combined offset in cents.
func (p *Parameters) DisplayText(index int) (string, error) {
	switch index {
	case ParamPitch, ParamPitchFine:
		return fmt.Sprintf("%.3f", p.Cents()), nil
	case ParamMix:
		return fmt.Sprintf("%.3f", p.mix.Load()*100), nil
	default:
		return "", fmt.Errorf("%w: %d", ErrParameterIndex, index)
	}
}
