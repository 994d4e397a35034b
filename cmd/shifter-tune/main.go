// Command shifter-tune searches for the band-limiting guard margin that best
// trades shifted-tone level against aliasing and imaging artifacts. It runs a
// mayfly optimization over the margin, scoring each candidate by rendering
// test tones through fresh engines at several pitch ratios.
package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cwbudde/algo-pitchshift/analysis"
	fitcommon "github.com/cwbudde/algo-pitchshift/internal/fitcommon"
	"github.com/cwbudde/algo-pitchshift/shifter"
	"github.com/cwbudde/mayfly"
)

const (
	marginMin = 0.01
	marginMax = 1.0
)

func main() {
	sampleRate := flag.Float64("sample-rate", 32768, "Render sample rate in Hz")
	window := flag.Int("window", shifter.DefaultWindowLength, "Analysis window length in samples")
	freq := flag.Float64("freq", 512, "Test tone frequency in Hz")
	ratioList := flag.String("ratios", "0.5,0.707,1.414,2.0", "Comma-separated pitch ratios to score")
	seconds := flag.Float64("seconds", 0.5, "Render length per evaluation in seconds")
	seed := flag.Int64("seed", 1, "Random seed")
	maxIters := flag.Int("max-iters", 30, "Mayfly iterations per round")
	rounds := flag.Int("rounds", 3, "Mayfly restart rounds")
	pop := flag.Int("pop", 8, "Male and female population size")
	variant := flag.String("mayfly-variant", "desma", "Mayfly variant: ma|desma|olce|eobbma|gsasma|mpma|aoblmoa")
	workersRaw := flag.String("workers", "auto", "Parallel ratio evaluations per candidate (integer or 'auto')")
	flag.Parse()

	ratios, err := parseRatios(*ratioList)
	if err != nil {
		die("invalid ratios: %v", err)
	}
	workers, err := fitcommon.ParseWorkers(*workersRaw)
	if err != nil {
		die("invalid workers: %v", err)
	}
	if workers == 0 {
		workers = len(ratios)
	}
	if *pop < 2 {
		*pop = 2
	}

	frames := int(*sampleRate * *seconds)
	fmt.Printf("Tuning guard margin: %d ratios, %.0f Hz tone at %.0f Hz, %d frames per render\n",
		len(ratios), *freq, *sampleRate, frames)

	bestMargin := shifter.DefaultGuardMargin
	bestScore := math.Inf(1)
	evals := 0
	start := time.Now()

	for round := 0; round < *rounds; round++ {
		cfg, err := newMayflyConfig(*variant, *pop, 1, *maxIters)
		if err != nil {
			die("invalid mayfly variant: %v", err)
		}
		cfg.Rand = rand.New(rand.NewSource(*seed + int64(round)*7919))

		cfg.ObjectiveFunc = func(pos []float64) float64 {
			margin := marginMin + fitcommon.Clamp(pos[0], 0, 1)*(marginMax-marginMin)
			score := scoreMargin(margin, ratios, *freq, *sampleRate, *window, frames, workers)
			evals++
			if score < bestScore {
				bestScore = score
				bestMargin = margin
				fmt.Printf("Improved: margin=%.4f score=%.5f (eval %d, %.1fs)\n",
					margin, score, evals, time.Since(start).Seconds())
			}
			return score
		}

		if _, err := runMayfly(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "mayfly round %d failed: %v\n", round, err)
			continue
		}
	}

	fmt.Printf("Done evals=%d elapsed=%.1fs best_margin=%.4f best_score=%.5f\n",
		evals, time.Since(start).Seconds(), bestMargin, bestScore)
}

// scoreMargin renders a test tone through a fresh engine per ratio and
// combines passband loss with out-of-band artifact energy. Lower is better.
func scoreMargin(margin float64, ratios []float64, freq, sampleRate float64, window, frames, workers int) float64 {
	scores := make([]float64, len(ratios))
	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	for i, ratio := range ratios {
		wg.Add(1)
		go func(i int, ratio float64) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			scores[i] = scoreRatio(margin, ratio, freq, sampleRate, window, frames)
		}(i, ratio)
	}
	wg.Wait()

	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

func scoreRatio(margin, ratio, freq, sampleRate float64, window, frames int) float64 {
	params := shifter.NewParameters()
	params.SetPitch(float32(math.Log2(ratio)))
	engine, err := shifter.New(params,
		shifter.WithSampleRate(sampleRate),
		shifter.WithWindowLength(window),
		shifter.WithGuardMargin(margin),
	)
	if err != nil {
		return math.Inf(1)
	}

	in := make([][]float64, shifter.ChannelCount)
	out := make([][]float64, shifter.ChannelCount)
	for ch := range in {
		in[ch] = make([]float64, frames)
		out[ch] = make([]float64, frames)
	}
	for i := 0; i < frames; i++ {
		v := math.Sin(2 * math.Pi * freq * float64(i) / sampleRate)
		in[0][i] = v
		in[1][i] = v
	}
	if err := engine.ProcessFloat64(in, out); err != nil {
		return math.Inf(1)
	}

	// Skip the first half while the analyzer fills and filters settle.
	tail := out[0][frames/2:]
	shifted := freq * ratio
	amp := analysis.ToneAmplitude(tail, shifted, sampleRate)
	loss := math.Max(0, 1-amp)

	oob, err := analysis.OutOfBandEnergyRatio(tail, shifted*0.8, shifted*1.25, sampleRate)
	if err != nil {
		return math.Inf(1)
	}
	return 0.6*oob + 0.4*loss
}

func parseRatios(raw string) ([]float64, error) {
	parts := strings.Split(raw, ",")
	ratios := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		r, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		if r <= 0 {
			return nil, fmt.Errorf("ratio %g must be > 0", r)
		}
		ratios = append(ratios, r)
	}
	if len(ratios) == 0 {
		return nil, fmt.Errorf("no ratios given")
	}
	return ratios, nil
}

func newMayflyConfig(variant string, pop int, dims int, iters int) (*mayfly.Config, error) {
	var cfg *mayfly.Config
	switch variant {
	case "ma":
		cfg = mayfly.NewDefaultConfig()
	case "desma":
		cfg = mayfly.NewDESMAConfig()
	case "olce":
		cfg = mayfly.NewOLCEConfig()
	case "eobbma":
		cfg = mayfly.NewEOBBMAConfig()
	case "gsasma":
		cfg = mayfly.NewGSASMAConfig()
	case "mpma":
		cfg = mayfly.NewMPMAConfig()
	case "aoblmoa":
		cfg = mayfly.NewAOBLMOAConfig()
	default:
		return nil, fmt.Errorf("unsupported variant %q", variant)
	}
	cfg.ProblemSize = dims
	cfg.LowerBound = 0.0
	cfg.UpperBound = 1.0
	cfg.MaxIterations = iters
	cfg.NPop = pop
	cfg.NPopF = pop
	cfg.NC = 2 * pop
	nm := int(math.Round(0.05 * float64(pop)))
	if nm < 1 {
		nm = 1
	}
	cfg.NM = nm
	return cfg, nil
}

func runMayfly(cfg *mayfly.Config) (_ *mayfly.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mayfly panic: %v", r)
		}
	}()
	return mayfly.Optimize(cfg)
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
