package shared

import (
	"context"
	"math/rand"
)

// Tap observes every block after it has been played and captured.
type Tap func(played, captured []float32)

// WithWhiteNoise adds uniform noise in [-amplitude, amplitude] to the captured side.
func WithWhiteNoise(amplitude float64, seed int64) func(l *Loopback) {
	return func(l *Loopback) {
		l.noise = amplitude
		l.rand = rand.New(rand.NewSource(seed))
	}
}

// WithTap registers a block observer, e.g. a track recorder.
func WithTap(tap Tap) func(l *Loopback) {
	return func(l *Loopback) {
		l.taps = append(l.taps, tap)
	}
}

// Loopback is a host that wires a producer's output straight into a
// consumer's input, block by block, like a speaker placed next to a microphone.
type Loopback struct {
	producer  BlockProducer
	consumer  BlockConsumer
	blockSize int
	noise     float64
	rand      *rand.Rand
	taps      []Tap
}

func NewLoopback(producer BlockProducer, consumer BlockConsumer, blockSize int, options ...func(l *Loopback)) *Loopback {
	if blockSize < 1 {
		blockSize = SCRIPT_PROCESS_SIZE
	}
	l := &Loopback{
		producer:  producer,
		consumer:  consumer,
		blockSize: blockSize,
	}
	for _, option := range options {
		option(l)
	}
	return l
}

// Run pushes at least samples samples through the loop, a whole number of
// blocks. It stops early when ctx is done.
func (l *Loopback) Run(ctx context.Context, samples int) error {
	played := make([]float32, l.blockSize)
	captured := make([]float32, l.blockSize)
	for done := 0; done < samples; done += l.blockSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.producer.ProduceBlock(played)
		copy(captured, played)
		if l.noise > 0 {
			for i := range captured {
				captured[i] += float32((l.rand.Float64()*2 - 1) * l.noise)
			}
		}
		l.consumer.ConsumeBlock(captured)
		for _, tap := range l.taps {
			tap(played, captured)
		}
	}
	return nil
}

// Replay feeds a recorded track to consumer in blocks of blockSize.
func Replay(ctx context.Context, consumer BlockConsumer, track []float32, blockSize int) error {
	if blockSize < 1 {
		blockSize = SCRIPT_PROCESS_SIZE
	}
	for start := 0; start < len(track); start += blockSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		consumer.ConsumeBlock(track[start:min(start+blockSize, len(track))])
	}
	return nil
}
