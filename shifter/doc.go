// Package shifter implements a continuous, zero-added-latency pitch shifter
// for real-time stereo audio.
//
// Instead of a block-based phase vocoder, the engine maintains a sliding DFT
// of the most recent window of samples and resynthesizes each output sample
// by evaluating the inverse transform at a continuously rotating phase.
// Sweeping that phase faster or slower than real time produces the
// pitch-shifted waveform without introducing buffering delay or block
// boundaries. Band-limiting Butterworth cascades before analysis and after
// resynthesis suppress the aliasing and imaging the phase rotation would
// otherwise fold into the output.
//
// The per-sample path never allocates, locks, or blocks and is safe to run
// inside a hard real-time audio callback. Parameters are shared through a
// lock-free store written by an automation thread; see Parameters.
package shifter
