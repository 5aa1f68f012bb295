package shared

import (
	"errors"
	"fmt"
	"math"
)

// 常量定义
const (
	FS                  = 48000 // Default sample frequency
	SUB_CARRIER_SIZE    = 8     // one bit per subcarrier
	PILOT_FREQUENCY     = 5000  // Hz
	THRESHOLD           = -30   // dB, pilot/subcarrier considered active above this
	MINIMUM_POWER_DB    = -99   // dB, floor for silent or very weak readings
	NOTIFY_PER_SYMBOL   = 16    // decode ticks per symbol period
	POWER_CHART_WIDTH   = 200   // readings kept per power chart
	SCRIPT_PROCESS_SIZE = 4096  // block size of the loopback host

	SYMBOL_TIME     = 2.0 * 0.08                      // seconds
	GUARD_TIME      = 1.5 * SYMBOL_TIME               // seconds
	DFT_WINDOW_TIME = 0.5 * SYMBOL_TIME               // seconds
	NOTIFY_TIME     = SYMBOL_TIME / NOTIFY_PER_SYMBOL // seconds

	OFDM_FREQUENCY_SPACING = 1 / DFT_WINDOW_TIME // Hz
)

// Timing holds the protocol durations expressed in samples for one sample rate.
type Timing struct {
	SampleRate        int
	SamplePerSymbol   int
	SamplePerGuard    int
	SamplePerDFT      int
	SamplePerNotify   int
	SubcarrierSpacing float64
}

// ErrSampleRate is returned for sample rates the link cannot run at.
var ErrSampleRate = errors.New("unsupported sample rate")

// NewTiming converts the protocol durations to sample counts at sampleRate.
// Every count is at least one sample; use ValidateSampleRate to reject rates
// where that clamp would apply.
func NewTiming(sampleRate int) Timing {
	fs := float64(sampleRate)
	samples := func(seconds float64) int {
		return max(int(math.Round(fs*seconds)), 1)
	}
	return Timing{
		SampleRate:        sampleRate,
		SamplePerSymbol:   samples(SYMBOL_TIME),
		SamplePerGuard:    samples(GUARD_TIME),
		SamplePerDFT:      samples(DFT_WINDOW_TIME),
		SamplePerNotify:   samples(NOTIFY_TIME),
		SubcarrierSpacing: OFDM_FREQUENCY_SPACING,
	}
}

// ValidateSampleRate checks that sampleRate gives at least one sample per
// decode tick and stays above the Nyquist rate of the highest subcarrier.
func ValidateSampleRate(sampleRate int) error {
	if math.Round(float64(sampleRate)*NOTIFY_TIME) < 1 {
		return fmt.Errorf("%w: %d Hz gives no sample per decode tick", ErrSampleRate, sampleRate)
	}
	highest := PILOT_FREQUENCY + SUB_CARRIER_SIZE*OFDM_FREQUENCY_SPACING
	if float64(sampleRate) <= 2*highest {
		return fmt.Errorf("%w: %d Hz cannot carry %g Hz", ErrSampleRate, sampleRate, highest)
	}
	return nil
}

// SubcarrierConfig describes one data subcarrier. Index 0 carries the most
// significant bit.
type SubcarrierConfig struct {
	Index       int
	FrequencyHz float64
}

// Subcarriers lists the data subcarriers above the pilot.
func Subcarriers() []SubcarrierConfig {
	subs := make([]SubcarrierConfig, SUB_CARRIER_SIZE)
	for i := range subs {
		subs[i] = SubcarrierConfig{
			Index:       i,
			FrequencyHz: PILOT_FREQUENCY + float64(i+1)*OFDM_FREQUENCY_SPACING,
		}
	}
	return subs
}
