package shifter

import (
	"math"
	"math/rand"
	"testing"

	algofft "github.com/cwbudde/algo-fft"
)

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"zero sample rate", []Option{WithSampleRate(0)}},
		{"negative sample rate", []Option{WithSampleRate(-44100)}},
		{"NaN sample rate", []Option{WithSampleRate(math.NaN())}},
		{"window too small", []Option{WithWindowLength(32)}},
		{"window not power of two", []Option{WithWindowLength(1000)}},
		{"negative margin", []Option{WithGuardMargin(-0.1)}},
		{"NaN margin", []Option{WithGuardMargin(math.NaN())}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(NewParameters(), tt.opts...); err == nil {
				t.Error("New accepted invalid configuration")
			}
		})
	}

	if _, err := New(nil); err == nil {
		t.Error("New accepted nil parameter store")
	}
}

func TestProcessBufferValidation(t *testing.T) {
	e := newTestEngine(t)

	mono := [][]float64{make([]float64, 16)}
	stereo := zeroBlock(16)
	if err := e.ProcessFloat64(mono, stereo); err == nil {
		t.Error("Process accepted mono input")
	}
	if err := e.ProcessFloat64(stereo, mono); err == nil {
		t.Error("Process accepted mono output")
	}

	ragged := [][]float64{make([]float64, 16), make([]float64, 15)}
	if err := e.ProcessFloat64(ragged, stereo); err == nil {
		t.Error("Process accepted ragged channel lengths")
	}
	short := zeroBlock(8)
	if err := e.ProcessFloat64(stereo, short); err == nil {
		t.Error("Process accepted mismatched output length")
	}
}

func TestProcessDryAtMixZero(t *testing.T) {
	params := NewParameters()
	params.SetMix(0)
	params.SetPitch(0.7)
	e, err := New(params)
	if err != nil {
		t.Fatal(err)
	}

	rng := rand.New(rand.NewSource(3))
	in := zeroBlock(512)
	out := zeroBlock(512)
	for ch := range in {
		for i := range in[ch] {
			in[ch][i] = rng.Float64()*2 - 1
		}
	}
	if err := e.ProcessFloat64(in, out); err != nil {
		t.Fatal(err)
	}

	// At mix zero the dry path passes through bit for bit, regardless of
	// the pitch setting.
	for ch := range out {
		for i := range out[ch] {
			if out[ch][i] != in[ch][i] {
				t.Fatalf("channel %d sample %d: out %g, in %g", ch, i, out[ch][i], in[ch][i])
			}
		}
	}
}

func TestProcessMixIsLinear(t *testing.T) {
	render := func(t *testing.T, mix float32) [][]float64 {
		t.Helper()
		params := NewParameters()
		params.SetMix(mix)
		params.SetPitch(0.5)
		e, err := New(params)
		if err != nil {
			t.Fatal(err)
		}
		rng := rand.New(rand.NewSource(11))
		in := zeroBlock(1024)
		out := zeroBlock(1024)
		for ch := range in {
			for i := range in[ch] {
				in[ch][i] = rng.Float64()*2 - 1
			}
		}
		if err := e.ProcessFloat64(in, out); err != nil {
			t.Fatal(err)
		}
		return out
	}

	dry := render(t, 0)
	wet := render(t, 1)
	half := render(t, 0.5)

	// The mix only scales the final sum; the wet path evolves identically
	// at every setting, so the blend recombines exactly.
	for ch := range half {
		for i := range half[ch] {
			want := 0.5*dry[ch][i] + 0.5*wet[ch][i]
			if half[ch][i] != want {
				t.Fatalf("channel %d sample %d: blend %g, want %g", ch, i, half[ch][i], want)
			}
		}
	}
}

func TestProcessInPlace(t *testing.T) {
	e := newTestEngine(t)
	buf := zeroBlock(256)
	for ch := range buf {
		for i := range buf[ch] {
			buf[ch][i] = math.Sin(2 * math.Pi * float64(i) / 64)
		}
	}
	if err := e.ProcessFloat64(buf, buf); err != nil {
		t.Fatalf("in-place Process: %v", err)
	}
	for ch := range buf {
		for i, v := range buf[ch] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("channel %d sample %d not finite: %g", ch, i, v)
			}
		}
	}
}

func TestProcessFloat32(t *testing.T) {
	e := newTestEngine(t)
	in := make([][]float32, ChannelCount)
	out := make([][]float32, ChannelCount)
	for ch := range in {
		in[ch] = make([]float32, 256)
		out[ch] = make([]float32, 256)
		for i := range in[ch] {
			in[ch][i] = float32(math.Sin(2 * math.Pi * float64(i) / 32))
		}
	}
	if err := e.ProcessFloat32(in, out); err != nil {
		t.Fatal(err)
	}
}

// renderTone runs a stereo sine of frequency freq through a fresh engine and
// returns the left-channel output.
func renderTone(t *testing.T, pitch float32, fs float64, window, frames int, freq float64) []float64 {
	t.Helper()
	params := NewParameters()
	params.SetPitch(pitch)
	e, err := New(params, WithSampleRate(fs), WithWindowLength(window))
	if err != nil {
		t.Fatal(err)
	}

	in := zeroBlock(frames)
	out := zeroBlock(frames)
	for i := 0; i < frames; i++ {
		v := math.Sin(2 * math.Pi * freq * float64(i) / fs)
		in[0][i] = v
		in[1][i] = v
	}

	// Drive in blocks of uneven size, as a host would.
	const block = 480
	for off := 0; off < frames; off += block {
		end := off + block
		if end > frames {
			end = frames
		}
		inBlk := [][]float64{in[0][off:end], in[1][off:end]}
		outBlk := [][]float64{out[0][off:end], out[1][off:end]}
		if err := e.ProcessFloat64(inBlk, outBlk); err != nil {
			t.Fatal(err)
		}
	}
	return out[0]
}

// toneAmplitude measures the amplitude of freq in signal by quadrature
// projection.
func toneAmplitude(signal []float64, freq, fs float64) float64 {
	var re, im float64
	for i, v := range signal {
		phase := 2 * math.Pi * freq * float64(i) / fs
		re += v * math.Cos(phase)
		im += v * math.Sin(phase)
	}
	n := float64(len(signal))
	return 2 * math.Hypot(re, im) / n
}

func TestUnityRatioPassesTone(t *testing.T) {
	const fs = 32768.0
	const freq = 512.0
	out := renderTone(t, 0, fs, 1024, 8192, freq)

	// Skip the first windows while the analyzer fills and filters settle.
	tail := out[4096:]
	amp := toneAmplitude(tail, freq, fs)
	if math.Abs(amp-1) > 0.1 {
		t.Errorf("tone amplitude at unity ratio = %g, want ~1", amp)
	}
}

func TestOctaveUpShiftsDominantFrequency(t *testing.T) {
	const fs = 32768.0
	const freq = 512.0
	out := renderTone(t, 1, fs, 1024, 12288, freq)
	tail := out[len(out)-4096:]

	got := dominantFrequency(t, tail, fs)
	want := 2 * freq
	if math.Abs(got-want)/want > 0.05 {
		t.Errorf("dominant frequency = %g Hz, want ~%g Hz", got, want)
	}
}

func TestOctaveDownShiftsDominantFrequency(t *testing.T) {
	const fs = 32768.0
	const freq = 1024.0
	out := renderTone(t, -1, fs, 1024, 12288, freq)
	tail := out[len(out)-4096:]

	got := dominantFrequency(t, tail, fs)
	want := freq / 2
	if math.Abs(got-want)/want > 0.05 {
		t.Errorf("dominant frequency = %g Hz, want ~%g Hz", got, want)
	}
}

// dominantFrequency returns the frequency of the strongest spectral peak of
// signal, whose length must be a power of two.
func dominantFrequency(t *testing.T, signal []float64, fs float64) float64 {
	t.Helper()
	n := len(signal)
	plan, err := algofft.NewPlan64(n)
	if err != nil {
		t.Fatal(err)
	}
	src := make([]complex128, n)
	for i, v := range signal {
		// Hann window against leakage from block boundaries.
		w := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
		src[i] = complex(v*w, 0)
	}
	dst := make([]complex128, n)
	if err := plan.Forward(dst, src); err != nil {
		t.Fatal(err)
	}

	best, bestMag := 0, 0.0
	for k := 1; k < n/2; k++ {
		if mag := cabs(dst[k]); mag > bestMag {
			best, bestMag = k, mag
		}
	}
	return float64(best) * fs / float64(n)
}

func TestResetClearsSignalState(t *testing.T) {
	e := newTestEngine(t)
	in := zeroBlock(1024)
	out := zeroBlock(1024)
	for ch := range in {
		for i := range in[ch] {
			in[ch][i] = math.Sin(2 * math.Pi * float64(i) / 100)
		}
	}
	if err := e.ProcessFloat64(in, out); err != nil {
		t.Fatal(err)
	}
	e.Reset()

	spec, err := e.Spectrum(0)
	if err != nil {
		t.Fatal(err)
	}
	for _, b := range spec {
		if b != 0 {
			t.Fatalf("spectrum not cleared by Reset: %v", b)
		}
	}

	// Silence in, silence out after a reset.
	silence := zeroBlock(256)
	res := zeroBlock(256)
	if err := e.ProcessFloat64(silence, res); err != nil {
		t.Fatal(err)
	}
	for ch := range res {
		for i, v := range res[ch] {
			if v != 0 {
				t.Fatalf("channel %d sample %d after reset = %g, want 0", ch, i, v)
			}
		}
	}
}

func TestSpectrumChannelValidation(t *testing.T) {
	e := newTestEngine(t)
	for _, ch := range []int{-1, ChannelCount} {
		if _, err := e.Spectrum(ch); err == nil {
			t.Errorf("Spectrum(%d) accepted invalid channel", ch)
		}
	}
}

func TestSetSampleRateValidation(t *testing.T) {
	e := newTestEngine(t)
	for _, fs := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if err := e.SetSampleRate(fs); err == nil {
			t.Errorf("SetSampleRate(%g) accepted invalid rate", fs)
		}
	}
	if err := e.SetSampleRate(96000); err != nil {
		t.Errorf("SetSampleRate(96000): %v", err)
	}
	if got := e.SampleRate(); got != 96000 {
		t.Errorf("SampleRate = %g, want 96000", got)
	}
}

func TestLatencyIsZero(t *testing.T) {
	e := newTestEngine(t)
	if got := e.Latency(); got != 0 {
		t.Errorf("Latency = %d, want 0", got)
	}
}

func TestInfo(t *testing.T) {
	info := newTestEngine(t).Info()
	if info.Name != EffectName || info.Vendor != VendorName {
		t.Errorf("identity = %q/%q, want %q/%q", info.Name, info.Vendor, EffectName, VendorName)
	}
	if info.Inputs != ChannelCount || info.Outputs != ChannelCount {
		t.Errorf("channels = %d in, %d out, want %d/%d", info.Inputs, info.Outputs, ChannelCount, ChannelCount)
	}
	if info.Parameters != ParamCount {
		t.Errorf("parameters = %d, want %d", info.Parameters, ParamCount)
	}
	if info.Latency != 0 {
		t.Errorf("latency = %d, want 0", info.Latency)
	}
}
