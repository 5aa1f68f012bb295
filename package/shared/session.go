package shared

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"acoustic_modem/package/tone"
)

var (
	// ErrSessionOpen is returned by Open on a session that is already open.
	ErrSessionOpen = errors.New("session already open")

	// ErrSessionClosed is returned when transmitting on a session that is not open.
	ErrSessionClosed = errors.New("session closed")
)

// BlockProducer fills a block of output samples. The host audio runtime calls
// it once per playback period.
type BlockProducer interface {
	ProduceBlock(out []float32)
}

// BlockConsumer drains a block of captured samples. The host audio runtime
// calls it once per capture period.
type BlockConsumer interface {
	ConsumeBlock(in []float32)
}

// GeneratorFactory creates the producer side of one ToneChannel.
type GeneratorFactory func(frequency float64, sampleRate int) Generator

// AnalyzerFactory creates the consumer side of one ToneChannel.
type AnalyzerFactory func(frequency float64, sampleRate, windowSize int) Analyzer

// SymbolHandler receives every decoded symbol. It runs inside ConsumeBlock
// and must not block.
type SymbolHandler func(DecodedSymbol)

// WithLogger sets the logger for the session
func WithLogger(logger *slog.Logger) func(s *Session) {
	return func(s *Session) {
		s.logger = logger.With(slog.Int("sampleRate", s.timing.SampleRate))
	}
}

// WithGeneratorFactory replaces the default tone generator.
func WithGeneratorFactory(f GeneratorFactory) func(s *Session) {
	return func(s *Session) {
		s.newGenerator = f
	}
}

// WithAnalyzerFactory replaces the default sliding DFT analyzer.
func WithAnalyzerFactory(f AnalyzerFactory) func(s *Session) {
	return func(s *Session) {
		s.newAnalyzer = f
	}
}

// WithSymbolHandler sets where decoded symbols go.
func WithSymbolHandler(h SymbolHandler) func(s *Session) {
	return func(s *Session) {
		s.handler = h
	}
}

// WithPowerMonitor feeds every tick's normalized readings into m.
func WithPowerMonitor(m *PowerMonitor) func(s *Session) {
	return func(s *Session) {
		s.monitor = m
	}
}

type sessionState struct {
	transmitter *Transmitter
	generators  []Generator // pilot first
	receiver    *Receiver
	analyzers   []Analyzer // pilot first
	tracker     *BurstTracker
	sampleCount int64
}

// Session owns all transmit and receive state of one link endpoint between
// Open and Close. ProduceBlock and ConsumeBlock touch disjoint state, so the
// host may run them on different threads.
type Session struct {
	timing       Timing
	logger       *slog.Logger
	newGenerator GeneratorFactory
	newAnalyzer  AnalyzerFactory
	handler      SymbolHandler
	monitor      *PowerMonitor

	txLock sync.Mutex
	rxLock sync.Mutex
	state  *sessionState
}

// NewSession creates a closed session for sampleRate.
func NewSession(sampleRate int, options ...func(s *Session)) *Session {
	s := &Session{
		timing: NewTiming(sampleRate),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		newGenerator: func(frequency float64, sampleRate int) Generator {
			return tone.NewGenerator(frequency, sampleRate)
		},
		newAnalyzer: func(frequency float64, sampleRate, windowSize int) Analyzer {
			return tone.NewAnalyzer(frequency, sampleRate, windowSize)
		},
		handler: func(DecodedSymbol) {},
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Timing returns the sample counts the session runs with.
func (s *Session) Timing() Timing {
	return s.timing
}

// Open allocates fresh channels and burst state. Register the host callbacks
// after Open returns.
func (s *Session) Open() error {
	s.txLock.Lock()
	defer s.txLock.Unlock()
	s.rxLock.Lock()
	defer s.rxLock.Unlock()

	if s.state != nil {
		return ErrSessionOpen
	}
	if err := ValidateSampleRate(s.timing.SampleRate); err != nil {
		return err
	}

	st := &sessionState{tracker: NewBurstTracker()}
	st.generators = append(st.generators, s.newGenerator(PILOT_FREQUENCY, s.timing.SampleRate))
	st.analyzers = append(st.analyzers, s.newAnalyzer(PILOT_FREQUENCY, s.timing.SampleRate, s.timing.SamplePerDFT))
	for _, sub := range Subcarriers() {
		st.generators = append(st.generators, s.newGenerator(sub.FrequencyHz, s.timing.SampleRate))
		st.analyzers = append(st.analyzers, s.newAnalyzer(sub.FrequencyHz, s.timing.SampleRate, s.timing.SamplePerDFT))
	}
	st.transmitter = NewTransmitter(s.timing, st.generators[0], st.generators[1:])
	st.receiver = NewReceiver(st.analyzers[1:])
	s.state = st

	s.logger.Info("session opened",
		slog.Int("samplePerSymbol", s.timing.SamplePerSymbol),
		slog.Int("samplePerNotify", s.timing.SamplePerNotify))
	return nil
}

// Close releases all session state. Detach the host callbacks before calling
// it; a burst still open at this point is dropped.
func (s *Session) Close() error {
	s.txLock.Lock()
	defer s.txLock.Unlock()
	s.rxLock.Lock()
	defer s.rxLock.Unlock()

	if s.state == nil {
		return ErrSessionClosed
	}
	if n := s.state.tracker.Collected(); n > 0 {
		s.logger.Debug("dropping partial burst", slog.Int("candidates", n))
	}
	s.logger.Info("session closed", slog.Int64("samples", s.state.sampleCount))
	s.state = nil
	return nil
}

// IsOpen reports whether the session is between Open and Close.
func (s *Session) IsOpen() bool {
	s.txLock.Lock()
	defer s.txLock.Unlock()
	return s.state != nil
}

// Transmit queues one byte for playback.
func (s *Session) Transmit(b byte) error {
	s.txLock.Lock()
	defer s.txLock.Unlock()

	if s.state == nil {
		return ErrSessionClosed
	}
	s.state.transmitter.Send(b)
	return nil
}

// TransmitBytes queues every byte of data in order.
func (s *Session) TransmitBytes(data []byte) error {
	s.txLock.Lock()
	defer s.txLock.Unlock()

	if s.state == nil {
		return ErrSessionClosed
	}
	s.state.transmitter.SendBytes(data)
	return nil
}

// TransmitText queues text encoded as Latin-1, one symbol per character.
func (s *Session) TransmitText(text string) error {
	if err := s.TransmitBytes(EncodeText(text)); err != nil {
		return fmt.Errorf("transmitting text: %w", err)
	}
	return nil
}

// SymbolSamples is the airtime of one byte in samples, guard included.
func (s *Session) SymbolSamples() int {
	return s.timing.SamplePerSymbol + s.timing.SamplePerGuard
}

// ProduceBlock mixes the next len(out) samples of every generator. A closed
// session produces silence.
func (s *Session) ProduceBlock(out []float32) {
	s.txLock.Lock()
	defer s.txLock.Unlock()

	if s.state == nil {
		clear(out)
		return
	}
	for i := range out {
		var sample float64
		for _, g := range s.state.generators {
			sample += g.Sample()
			g.Next()
		}
		out[i] = float32(sample)
	}
}

// ConsumeBlock feeds captured samples to every analyzer in order and runs the
// decode step on each tick boundary. A closed session ignores the block.
func (s *Session) ConsumeBlock(in []float32) {
	s.rxLock.Lock()
	defer s.rxLock.Unlock()

	if s.state == nil {
		return
	}
	for _, sample := range in {
		for _, a := range s.state.analyzers {
			a.Ingest(float64(sample))
		}
		s.state.sampleCount++
		if s.state.sampleCount%int64(s.timing.SamplePerNotify) == 0 {
			s.notify()
		}
	}
}

// SampleCount returns the number of samples consumed since Open.
func (s *Session) SampleCount() int64 {
	s.rxLock.Lock()
	defer s.rxLock.Unlock()
	if s.state == nil {
		return 0
	}
	return s.state.sampleCount
}

func (s *Session) notify() {
	st := s.state
	pilot := NormalizeDecibel(st.analyzers[0].Reading().PowerDecibel)

	if s.monitor != nil {
		powers := make([]float64, len(st.analyzers)-1)
		for i, a := range st.analyzers[1:] {
			powers[i] = NormalizeDecibel(a.Reading().PowerDecibel)
		}
		s.monitor.Push(pilot, powers)
	}

	event, decoded := st.tracker.Tick(pilot > THRESHOLD, st.receiver.Candidate)
	if event.Has(EventBurstStart) {
		s.logger.Debug("burst start", slog.Int64("sample", st.sampleCount))
	}
	if decoded == nil {
		return
	}
	decoded.Sample = st.sampleCount
	if s.logger.Enabled(context.Background(), slog.LevelDebug) {
		s.logger.Debug("burst end",
			slog.Int64("sample", st.sampleCount),
			slog.String("history", fmt.Sprint(decoded.History)),
			slog.Any("phase", decoded.Phase),
			slog.String("symbol", FormatSymbol(decoded.Symbol)))
	}
	s.handler(*decoded)
}
