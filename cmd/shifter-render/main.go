package main

import (
	"flag"
	"fmt"
	"os"

	dspspectrum "github.com/cwbudde/algo-dsp/dsp/spectrum"
	fitcommon "github.com/cwbudde/algo-pitchshift/internal/fitcommon"
	"github.com/cwbudde/algo-pitchshift/shifter"
)

func main() {
	input := flag.String("input", "input.wav", "Input WAV file path")
	output := flag.String("output", "output.wav", "Output WAV file path")
	semitones := flag.Float64("semitones", 0, "Coarse pitch shift in semitones")
	cents := flag.Float64("cents", 0, "Fine pitch shift in cents")
	mix := flag.Float64("mix", 1.0, "Dry/wet mix (0 = dry, 1 = wet)")
	window := flag.Int("window", shifter.DefaultWindowLength, "Analysis window length in samples (power of two)")
	block := flag.Int("block", 512, "Processing block size in frames")
	rate := flag.Int("rate", 0, "Resample to this rate before processing (0 = keep input rate)")
	verbose := flag.Bool("verbose", false, "Print the analyzer spectrum peak after rendering")
	flag.Parse()

	if *block < 1 {
		die("block must be >= 1")
	}
	if *mix < 0 || *mix > 1 {
		die("mix must be in [0, 1]")
	}

	left, right, inRate, err := fitcommon.ReadWAVStereo(*input)
	if err != nil {
		die("failed to read input: %v", err)
	}

	sampleRate := inRate
	if *rate > 0 && *rate != inRate {
		left, err = fitcommon.ResampleIfNeeded(left, inRate, *rate)
		if err != nil {
			die("failed to resample: %v", err)
		}
		right, err = fitcommon.ResampleIfNeeded(right, inRate, *rate)
		if err != nil {
			die("failed to resample: %v", err)
		}
		sampleRate = *rate
	}

	params := shifter.NewParameters()
	params.SetPitch(float32(*semitones / 12.0))
	params.SetPitchFine(float32(*cents / 100.0))
	params.SetMix(float32(*mix))

	engine, err := shifter.New(params,
		shifter.WithSampleRate(float64(sampleRate)),
		shifter.WithWindowLength(*window),
	)
	if err != nil {
		die("failed to create engine: %v", err)
	}

	fmt.Printf("Shifting %s by %+.2f semitones %+.2f cents (mix %.2f, window %d, %d Hz)...\n",
		*input, *semitones, *cents, *mix, *window, sampleRate)

	outLeft := make([]float64, len(left))
	outRight := make([]float64, len(right))
	for off := 0; off < len(left); off += *block {
		end := off + *block
		if end > len(left) {
			end = len(left)
		}
		in := [][]float64{left[off:end], right[off:end]}
		out := [][]float64{outLeft[off:end], outRight[off:end]}
		if err := engine.ProcessFloat64(in, out); err != nil {
			die("processing failed: %v", err)
		}
	}

	if *verbose {
		printSpectrumPeak(engine, float64(sampleRate))
	}

	if err := fitcommon.WriteStereoWAVLR(*output, outLeft, outRight, sampleRate); err != nil {
		die("failed to write output: %v", err)
	}
	fmt.Printf("Successfully wrote %s (%d frames)\n", *output, len(outLeft))
}

func printSpectrumPeak(engine *shifter.Engine, sampleRate float64) {
	bins, err := engine.Spectrum(0)
	if err != nil {
		die("failed to read spectrum: %v", err)
	}
	mags := dspspectrum.Magnitude(bins)
	best, bestMag := 0, 0.0
	for k := 1; k < len(mags); k++ {
		if mags[k] > bestMag {
			best, bestMag = k, mags[k]
		}
	}
	n := engine.WindowLength()
	fmt.Printf("Analyzer peak: bin %d (%.1f Hz), magnitude %.3f\n",
		best, float64(best)*sampleRate/float64(n), bestMag/float64(n))
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
