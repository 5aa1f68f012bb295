package shared

import (
	"math"

	"acoustic_modem/package/tone"
)

// Analyzer is the consumer side of a ToneChannel. Reading must not change
// the analyzer state.
type Analyzer interface {
	Ingest(sample float64)
	Reading() tone.Reading
}

// SymbolCandidate is one tick's view of the subcarriers.
type SymbolCandidate struct {
	Symbol byte
	Phase  []int // degrees, subcarrier 0 first
}

// DecodedSymbol is the candidate picked from the middle of a closed burst.
type DecodedSymbol struct {
	SymbolCandidate
	Candidates int    // size of the burst it was chosen from
	History    []byte // every candidate symbol of the burst, in order
	Sample     int64  // receive sample count when the burst closed
}

// Event flags what a tick did to the burst state.
type Event uint8

const (
	EventBurstStart Event = 1 << iota // pilot went active, history cleared
	EventCandidate                    // a candidate was appended
	EventBurstEnd                     // pilot went inactive, burst closed
)

// Has reports whether every flag in f is set.
func (e Event) Has(f Event) bool { return e&f == f }

// Receiver turns per-tick subcarrier readings into candidates.
type Receiver struct {
	subcarriers []Analyzer
}

// NewReceiver builds a decoder over the subcarrier analyzers, subcarrier 0 first.
func NewReceiver(subcarriers []Analyzer) *Receiver {
	return &Receiver{subcarriers: subcarriers}
}

// Candidate thresholds every subcarrier's current power into one byte, most
// significant bit on subcarrier 0, and records each phase in whole degrees.
func (r *Receiver) Candidate() SymbolCandidate {
	var symbol byte
	phase := make([]int, len(r.subcarriers))
	for i, analyzer := range r.subcarriers {
		reading := analyzer.Reading()
		if IsActive(reading.PowerDecibel) && i < SUB_CARRIER_SIZE {
			symbol |= 1 << (SUB_CARRIER_SIZE - 1 - i)
		}
		phase[i] = int(math.Round(reading.Phase * 180 / math.Pi))
	}
	return SymbolCandidate{Symbol: symbol, Phase: phase}
}

// BurstTracker watches the pilot state tick by tick and collects candidates
// while it is active. It is not safe for concurrent use.
type BurstTracker struct {
	pilotPrevious bool
	history       []SymbolCandidate
}

// NewBurstTracker returns a tracker sized for one symbol of candidates.
func NewBurstTracker() *BurstTracker {
	return &BurstTracker{history: make([]SymbolCandidate, 0, 2*NOTIFY_PER_SYMBOL)}
}

// Tick advances the tracker by one decode tick. candidate is only called
// while the pilot is active. A decoded symbol is returned on the falling
// edge of a burst that collected at least one candidate.
func (b *BurstTracker) Tick(pilotActive bool, candidate func() SymbolCandidate) (Event, *DecodedSymbol) {
	var event Event
	var decoded *DecodedSymbol

	if pilotActive && !b.pilotPrevious {
		b.history = b.history[:0]
		event |= EventBurstStart
	}

	if pilotActive {
		b.history = append(b.history, candidate())
		event |= EventCandidate
	}

	if !pilotActive && b.pilotPrevious {
		event |= EventBurstEnd
		if len(b.history) > 0 {
			decoded = &DecodedSymbol{
				SymbolCandidate: b.history[len(b.history)/2],
				Candidates:      len(b.history),
				History:         make([]byte, len(b.history)),
			}
			for i, c := range b.history {
				decoded.History[i] = c.Symbol
			}
		}
		b.history = b.history[:0]
	}

	b.pilotPrevious = pilotActive
	return event, decoded
}

// Collected returns the number of candidates in the open burst.
func (b *BurstTracker) Collected() int {
	if !b.pilotPrevious {
		return 0
	}
	return len(b.history)
}

// Reset drops any partially collected burst.
func (b *BurstTracker) Reset() {
	b.pilotPrevious = false
	b.history = b.history[:0]
}
