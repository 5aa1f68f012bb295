package track

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sineTrack(n int) []float32 {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*float64(i)/48))
	}
	return samples
}

func TestWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output_track.wav")
	samples := sineTrack(4800)

	require.NoError(t, Save(path, 48000, samples))
	got, rate, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 48000, rate)
	require.Len(t, got, len(samples))
	for i := range samples {
		require.InDelta(t, samples[i], got[i], 1.0/32767, "sample %d", i)
	}
}

func TestWAVClipsOutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, SaveWAV(path, 8000, []float32{2, -2, 0}))
	got, _, err := LoadWAV(path)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{1, -1, 0}, got, 1e-6)
}

func TestCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input_track.csv")
	samples := []float32{0, 0.25, -0.125, 1e-3}

	require.NoError(t, Save(path, 48000, samples))
	got, rate, err := Load(path)
	require.NoError(t, err)
	assert.Zero(t, rate)
	assert.Equal(t, samples, got)
}

func TestLoadRejectsGarbage(t *testing.T) {
	dir := t.TempDir()

	wavPath := filepath.Join(dir, "bad.wav")
	require.NoError(t, os.WriteFile(wavPath, []byte("not a wave file"), 0o644))
	_, _, err := Load(wavPath)
	assert.ErrorIs(t, err, ErrInvalidTrack)

	csvPath := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("0.1\nabc\n"), 0o644))
	_, _, err = Load(csvPath)
	assert.ErrorIs(t, err, ErrInvalidTrack)

	_, _, err = Load(filepath.Join(dir, "track.mp3"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
	assert.ErrorIs(t, Save(filepath.Join(dir, "track.mp3"), 48000, nil), ErrUnknownFormat)
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	r.Record([]float32{1, 2}, []float32{3, 4})
	r.Record([]float32{5}, []float32{6})

	assert.Equal(t, []float32{1, 2, 5}, r.Played())
	assert.Equal(t, []float32{3, 4, 6}, r.Captured())

	dir := t.TempDir()
	played := filepath.Join(dir, "played.csv")
	require.NoError(t, r.Save(played, "", 48000))
	got, err := LoadCSV(played)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 5}, got)
	_, err = os.Stat(filepath.Join(dir, "captured.csv"))
	assert.True(t, os.IsNotExist(err))
}
