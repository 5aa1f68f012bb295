package shared

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProducer struct{ next float32 }

func (p *countingProducer) ProduceBlock(out []float32) {
	for i := range out {
		p.next++
		out[i] = p.next
	}
}

type recordingConsumer struct{ got []float32 }

func (c *recordingConsumer) ConsumeBlock(in []float32) {
	c.got = append(c.got, in...)
}

func TestLoopbackRunsWholeBlocks(t *testing.T) {
	producer := &countingProducer{}
	consumer := &recordingConsumer{}
	var tapped int
	l := NewLoopback(producer, consumer, 4, WithTap(func(played, captured []float32) {
		tapped += len(played)
		assert.Equal(t, played, captured)
	}))

	require.NoError(t, l.Run(context.Background(), 10))
	assert.Len(t, consumer.got, 12)
	assert.Equal(t, 12, tapped)
	assert.Equal(t, float32(1), consumer.got[0])
	assert.Equal(t, float32(12), consumer.got[11])
}

func TestLoopbackWhiteNoiseStaysInRange(t *testing.T) {
	consumer := &recordingConsumer{}
	l := NewLoopback(NewSession(FS), consumer, 64, WithWhiteNoise(0.01, 7))
	require.NoError(t, l.Run(context.Background(), 640))

	nonZero := 0
	for _, v := range consumer.got {
		assert.LessOrEqual(t, v, float32(0.01))
		assert.GreaterOrEqual(t, v, float32(-0.01))
		if v != 0 {
			nonZero++
		}
	}
	assert.Positive(t, nonZero)
}

func TestLoopbackStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	consumer := &recordingConsumer{}
	err := NewLoopback(&countingProducer{}, consumer, 4).Run(ctx, 100)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, consumer.got)
}

func TestReplay(t *testing.T) {
	consumer := &recordingConsumer{}
	track := []float32{1, 2, 3, 4, 5}
	require.NoError(t, Replay(context.Background(), consumer, track, 2))
	assert.Equal(t, track, consumer.got)
}
