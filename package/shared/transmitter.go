package shared

import "acoustic_modem/package/tone"

// Generator is the producer side of a ToneChannel.
type Generator interface {
	Enqueue(segments ...tone.Segment)
	Sample() float64
	Next()
}

// Transmitter maps bytes onto the pilot and subcarrier generators.
type Transmitter struct {
	timing      Timing
	pilot       Generator
	subcarriers []Generator
}

// NewTransmitter wires the encoder to one pilot and SUB_CARRIER_SIZE
// subcarrier generators, subcarrier 0 first.
func NewTransmitter(timing Timing, pilot Generator, subcarriers []Generator) *Transmitter {
	return &Transmitter{
		timing:      timing,
		pilot:       pilot,
		subcarriers: subcarriers,
	}
}

// Send queues one symbol for b followed by the guard interval on every
// channel. It never fails and nothing acknowledges it.
func (t *Transmitter) Send(b byte) {
	amplitude := 1.0 / (1 + SUB_CARRIER_SIZE)
	guard := tone.Segment{Duration: t.timing.SamplePerGuard, Phase: 0, Amplitude: 0}

	t.pilot.Enqueue(tone.Segment{Duration: t.timing.SamplePerSymbol, Phase: 0, Amplitude: amplitude}, guard)
	for i, bit := range ByteToBitArray(b) {
		if i >= len(t.subcarriers) {
			break
		}
		t.subcarriers[i].Enqueue(tone.Segment{
			Duration:  t.timing.SamplePerSymbol,
			Phase:     0,
			Amplitude: amplitude * float64(bit),
		}, guard)
	}
}

// SendBytes queues every byte of data in order.
func (t *Transmitter) SendBytes(data []byte) {
	for _, b := range data {
		t.Send(b)
	}
}

// SymbolSamples is the length of one symbol plus its guard interval.
func (t *Transmitter) SymbolSamples() int {
	return t.timing.SamplePerSymbol + t.timing.SamplePerGuard
}
