package tone

import (
	"math"
	"math/cmplx"
)

// Reading is a snapshot of a carrier's power and phase over the trailing
// analysis window.
type Reading struct {
	PowerDecibel float64 // may be -Inf for a silent window
	Phase        float64 // radians in [0, 2*pi)
}

// Analyzer estimates the power and phase of one carrier frequency with a
// single-bin DFT over a sliding window of the most recent samples.
type Analyzer struct {
	samplePerPeriod float64
	window          []complex128
	head            int
	filled          int
	sum             complex128
	sampleNumber    int64
}

// NewAnalyzer creates an analyzer for frequency Hz at sampleRate with a
// trailing window of windowSize samples.
func NewAnalyzer(frequency float64, sampleRate, windowSize int) *Analyzer {
	if windowSize < 1 {
		windowSize = 1
	}
	return &Analyzer{
		samplePerPeriod: float64(sampleRate) / frequency,
		window:          make([]complex128, windowSize),
	}
}

// Ingest pushes one received sample into the window.
func (a *Analyzer) Ingest(sample float64) {
	x := -2 * math.Pi * float64(a.sampleNumber) / a.samplePerPeriod
	mixed := complex(sample*math.Cos(x), sample*math.Sin(x))
	a.sampleNumber++

	a.sum += mixed - a.window[a.head]
	a.window[a.head] = mixed
	a.head++
	if a.head == len(a.window) {
		a.head = 0
		// rebuild the running sum once per window so rounding error cannot pile up
		a.sum = 0
		for _, v := range a.window {
			a.sum += v
		}
	}
	if a.filled < len(a.window) {
		a.filled++
	}
}

// Reading returns the current estimate. It does not modify the analyzer.
func (a *Analyzer) Reading() Reading {
	mean := a.sum / complex(float64(len(a.window)), 0)

	// a sine of amplitude A mixes down to A/2 at phase-pi/2
	phase := math.Mod(cmplx.Phase(mean)+math.Pi/2, 2*math.Pi)
	if phase < 0 {
		phase += 2 * math.Pi
	}
	// magnitude in dB: a full pilot reads about -12.6 dB, leaving edge
	// leakage well under the -30 dB threshold
	return Reading{
		PowerDecibel: 10 * math.Log10(cmplx.Abs(mean)),
		Phase:        phase,
	}
}

// Filled reports whether a full window of samples has been ingested.
func (a *Analyzer) Filled() bool {
	return a.filled == len(a.window)
}
