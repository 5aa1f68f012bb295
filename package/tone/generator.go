package tone

import (
	"container/list"
	"math"
)

// Segment is one timed piece of a carrier: Duration samples of a sine with the
// given phase offset (radians) and amplitude.
type Segment struct {
	Duration  int
	Phase     float64
	Amplitude float64
}

// Generator plays a queue of segments on a single carrier frequency, one
// sample at a time. The carrier phase is continuous across segments. Once the
// queue runs dry the generator emits silence until something else is queued.
//
// Generator is not safe for concurrent use; callers that enqueue from another
// goroutine than the one pulling samples must serialize access themselves.
type Generator struct {
	samplePerPeriod float64
	queue           list.List
	current         *Segment
	played          int // samples of current already played
	sampleNumber    int64
}

// NewGenerator creates a generator for a carrier of frequency Hz sampled at
// sampleRate.
func NewGenerator(frequency float64, sampleRate int) *Generator {
	return &Generator{
		samplePerPeriod: float64(sampleRate) / frequency,
	}
}

// Enqueue appends segments after everything already queued.
func (g *Generator) Enqueue(segments ...Segment) {
	for _, s := range segments {
		if s.Duration <= 0 {
			continue
		}
		g.queue.PushBack(s)
	}
	if g.current == nil {
		g.pop()
	}
}

// Sample returns the value at the playhead.
func (g *Generator) Sample() float64 {
	if g.current == nil {
		return 0
	}
	x := 2 * math.Pi * float64(g.sampleNumber) / g.samplePerPeriod
	return g.current.Amplitude * math.Sin(x+g.current.Phase)
}

// Next moves the playhead forward by one sample.
func (g *Generator) Next() {
	g.sampleNumber++
	if g.current == nil {
		return
	}
	g.played++
	if g.played >= g.current.Duration {
		g.pop()
	}
}

// Queued returns the number of samples left before the generator goes silent.
func (g *Generator) Queued() int {
	n := 0
	if g.current != nil {
		n = g.current.Duration - g.played
	}
	for e := g.queue.Front(); e != nil; e = e.Next() {
		n += e.Value.(Segment).Duration
	}
	return n
}

func (g *Generator) pop() {
	g.played = 0
	front := g.queue.Front()
	if front == nil {
		g.current = nil
		return
	}
	s := g.queue.Remove(front).(Segment)
	g.current = &s
}
