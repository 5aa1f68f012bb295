package shared

import (
	"errors"
	"testing"

	"acoustic_modem/package/tone"
)

type recordingGenerator struct {
	segments []tone.Segment
}

func (r *recordingGenerator) Enqueue(segments ...tone.Segment) {
	r.segments = append(r.segments, segments...)
}
func (r *recordingGenerator) Sample() float64 { return 0 }
func (r *recordingGenerator) Next()           {}

func newRecordingTransmitter() (*Transmitter, *recordingGenerator, []*recordingGenerator) {
	pilot := &recordingGenerator{}
	subs := make([]*recordingGenerator, SUB_CARRIER_SIZE)
	generators := make([]Generator, SUB_CARRIER_SIZE)
	for i := range subs {
		subs[i] = &recordingGenerator{}
		generators[i] = subs[i]
	}
	return NewTransmitter(NewTiming(FS), pilot, generators), pilot, subs
}

func TestTransmitterSegments(t *testing.T) {
	tx, pilot, subs := newRecordingTransmitter()
	timing := NewTiming(FS)
	amplitude := 1.0 / 9

	tx.Send(0xA5) // 1010 0101

	if len(pilot.segments) != 2 {
		t.Fatalf("pilot got %d segments; want 2", len(pilot.segments))
	}
	if pilot.segments[0] != (tone.Segment{Duration: timing.SamplePerSymbol, Amplitude: amplitude}) {
		t.Errorf("pilot symbol segment = %+v", pilot.segments[0])
	}
	if pilot.segments[1] != (tone.Segment{Duration: timing.SamplePerGuard}) {
		t.Errorf("pilot guard segment = %+v", pilot.segments[1])
	}

	bitsExpected := []float64{1, 0, 1, 0, 0, 1, 0, 1}
	for i, sub := range subs {
		if len(sub.segments) != 2 {
			t.Fatalf("subcarrier %d got %d segments; want 2", i, len(sub.segments))
		}
		want := tone.Segment{Duration: timing.SamplePerSymbol, Amplitude: amplitude * bitsExpected[i]}
		if sub.segments[0] != want {
			t.Errorf("subcarrier %d segment = %+v; want %+v", i, sub.segments[0], want)
		}
		if sub.segments[1].Amplitude != 0 || sub.segments[1].Duration != timing.SamplePerGuard {
			t.Errorf("subcarrier %d guard = %+v", i, sub.segments[1])
		}
	}
}

func TestTransmitterSendBytesKeepsOrder(t *testing.T) {
	tx, pilot, subs := newRecordingTransmitter()
	tx.SendBytes([]byte{0x80, 0x01})

	if len(pilot.segments) != 4 {
		t.Fatalf("pilot got %d segments; want 4", len(pilot.segments))
	}
	if subs[0].segments[0].Amplitude == 0 || subs[0].segments[2].Amplitude != 0 {
		t.Error("subcarrier 0 should carry the first byte's MSB only")
	}
	if subs[7].segments[0].Amplitude != 0 || subs[7].segments[2].Amplitude == 0 {
		t.Error("subcarrier 7 should carry the second byte's LSB only")
	}
}

func TestTiming(t *testing.T) {
	timing := NewTiming(FS)
	expected := Timing{
		SampleRate:        48000,
		SamplePerSymbol:   7680,
		SamplePerGuard:    11520,
		SamplePerDFT:      3840,
		SamplePerNotify:   480,
		SubcarrierSpacing: 12.5,
	}
	if timing != expected {
		t.Errorf("NewTiming(48000) = %+v; want %+v", timing, expected)
	}
	if timing.SamplePerSymbol/timing.SamplePerNotify != NOTIFY_PER_SYMBOL {
		t.Errorf("%d ticks per symbol; want %d", timing.SamplePerSymbol/timing.SamplePerNotify, NOTIFY_PER_SYMBOL)
	}

	subs := Subcarriers()
	if subs[0].FrequencyHz != 5012.5 || subs[7].FrequencyHz != 5100 {
		t.Errorf("subcarrier frequencies %v .. %v", subs[0].FrequencyHz, subs[7].FrequencyHz)
	}
}

func TestTimingNeverZero(t *testing.T) {
	for _, rate := range []int{0, 1, 40} {
		timing := NewTiming(rate)
		if timing.SamplePerNotify < 1 || timing.SamplePerDFT < 1 || timing.SamplePerSymbol < 1 {
			t.Errorf("NewTiming(%d) = %+v; want every count >= 1", rate, timing)
		}
	}
}

func TestValidateSampleRate(t *testing.T) {
	tests := []struct {
		rate  int
		valid bool
	}{
		{-1, false},
		{0, false},
		{40, false},
		{50, false},
		{10200, false},
		{16000, true},
		{44100, true},
		{FS, true},
	}
	for _, tt := range tests {
		err := ValidateSampleRate(tt.rate)
		if (err == nil) != tt.valid {
			t.Errorf("ValidateSampleRate(%d) = %v; want valid %v", tt.rate, err, tt.valid)
		}
		if err != nil && !errors.Is(err, ErrSampleRate) {
			t.Errorf("ValidateSampleRate(%d) = %v; want ErrSampleRate", tt.rate, err)
		}
	}
}
