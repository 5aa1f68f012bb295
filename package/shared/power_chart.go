package shared

import (
	"fmt"
	"math"
	"sync"
)

// PowerChart keeps the most recent readings of one channel for display.
// When full, pushing drops the oldest reading first.
type PowerChart struct {
	Label       string
	FrequencyHz float64

	mu     sync.RWMutex
	values []float64
	start  int
	size   int
}

// NewPowerChart creates a chart that holds up to capacity readings.
func NewPowerChart(label string, frequencyHz float64, capacity int) *PowerChart {
	if capacity < 1 {
		capacity = 1
	}
	return &PowerChart{
		Label:       label,
		FrequencyHz: frequencyHz,
		values:      make([]float64, capacity),
	}
}

// Push appends a reading, evicting the oldest one if the chart is full.
func (pc *PowerChart) Push(value float64) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if pc.size == len(pc.values) {
		pc.start = (pc.start + 1) % len(pc.values)
		pc.size--
	}
	pc.values[(pc.start+pc.size)%len(pc.values)] = value
	pc.size++
}

// Values returns a copy of the readings, oldest first.
func (pc *PowerChart) Values() []float64 {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	out := make([]float64, pc.size)
	for i := range out {
		out[i] = pc.values[(pc.start+i)%len(pc.values)]
	}
	return out
}

// Len returns the number of readings held.
func (pc *PowerChart) Len() int {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.size
}

// Capacity returns the maximum number of readings held.
func (pc *PowerChart) Capacity() int {
	return len(pc.values)
}

// IsFull reports whether the next Push will evict a reading.
func (pc *PowerChart) IsFull() bool {
	return pc.Len() == pc.Capacity()
}

// PowerMonitor groups the pilot chart with one chart per subcarrier.
type PowerMonitor struct {
	Pilot       *PowerChart
	Subcarriers []*PowerChart

	mu     sync.RWMutex
	latest []float64 // pilot first
}

// NewPowerMonitor creates charts of the given capacity for every channel.
func NewPowerMonitor(capacity int) *PowerMonitor {
	m := &PowerMonitor{
		Pilot: NewPowerChart("pilot", PILOT_FREQUENCY, capacity),
	}
	for _, sub := range Subcarriers() {
		m.Subcarriers = append(m.Subcarriers, NewPowerChart(fmt.Sprintf("sub %d", sub.Index), sub.FrequencyHz, capacity))
	}
	return m
}

// Push records one tick of normalized readings.
func (m *PowerMonitor) Push(pilot float64, subcarriers []float64) {
	m.Pilot.Push(pilot)
	for i, v := range subcarriers {
		if i < len(m.Subcarriers) {
			m.Subcarriers[i].Push(v)
		}
	}

	m.mu.Lock()
	m.latest = append(append(m.latest[:0], pilot), subcarriers...)
	m.mu.Unlock()
}

// Charts returns every chart, pilot first.
func (m *PowerMonitor) Charts() []*PowerChart {
	return append([]*PowerChart{m.Pilot}, m.Subcarriers...)
}

// PowerInfo returns the latest reading of every channel rounded to whole
// decibels, pilot first. It is empty before the first tick.
func (m *PowerMonitor) PowerInfo() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]int, len(m.latest))
	for i, v := range m.latest {
		out[i] = int(math.Round(v))
	}
	return out
}
