// Package track records and replays mono sample tracks as WAV or CSV files.
package track

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const bitDepth = 16

var (
	// ErrInvalidTrack is returned for files that are not readable tracks.
	ErrInvalidTrack = errors.New("invalid track file")

	// ErrUnknownFormat is returned for file extensions other than .wav and .csv.
	ErrUnknownFormat = errors.New("unknown track format")
)

// Save writes samples to path, choosing the format from the extension.
func Save(path string, sampleRate int, samples []float32) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return SaveWAV(path, sampleRate, samples)
	case ".csv":
		return SaveCSV(path, samples)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// Load reads a track written by Save. CSV tracks carry no sample rate and
// report 0.
func Load(path string) ([]float32, int, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return LoadWAV(path)
	case ".csv":
		samples, err := LoadCSV(path)
		return samples, 0, err
	default:
		return nil, 0, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// SaveWAV writes a 16-bit mono PCM file. Samples are clipped to [-1, 1].
func SaveWAV(path string, sampleRate int, samples []float32) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	scale := float64(int(1)<<(bitDepth-1) - 1)
	data := make([]int, len(samples))
	for i, s := range samples {
		v := math.Max(-1, math.Min(1, float64(s)))
		data[i] = int(math.Round(v * scale))
	}

	encoder := wav.NewEncoder(file, sampleRate, bitDepth, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err = encoder.Write(buf); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err = encoder.Close(); err != nil {
		return fmt.Errorf("finalizing %s: %w", path, err)
	}
	return nil
}

// LoadWAV reads the first channel of a PCM file as samples in [-1, 1].
func LoadWAV(path string) ([]float32, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return nil, 0, fmt.Errorf("%w: %s", ErrInvalidTrack, path)
	}
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decoding %s: %w", path, err)
	}

	channels := max(buf.Format.NumChannels, 1)
	depth := int(decoder.BitDepth)
	if depth == 0 {
		depth = bitDepth
	}
	scale := float32(int(1)<<(depth-1) - 1)
	samples := make([]float32, len(buf.Data)/channels)
	for i := range samples {
		samples[i] = float32(buf.Data[i*channels]) / scale
	}
	return samples, buf.Format.SampleRate, nil
}

// SaveCSV writes one sample per row.
func SaveCSV(path string, samples []float32) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	for _, sample := range samples {
		if err := writer.Write([]string{strconv.FormatFloat(float64(sample), 'f', -1, 32)}); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// LoadCSV reads every value of every row, in order.
func LoadCSV(path string) ([]float32, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTrack, path, err)
	}

	var result []float32
	for _, record := range records {
		for _, value := range record {
			floatValue, err := strconv.ParseFloat(strings.TrimSpace(value), 32)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTrack, path, err)
			}
			result = append(result, float32(floatValue))
		}
	}
	return result, nil
}

// Recorder keeps what a host played and captured. Record matches
// shared.Tap so it can observe a loopback directly.
type Recorder struct {
	mu       sync.Mutex
	played   []float32
	captured []float32
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends one block of each direction.
func (r *Recorder) Record(played, captured []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.played = append(r.played, played...)
	r.captured = append(r.captured, captured...)
}

// Played returns a copy of the output track.
func (r *Recorder) Played() []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float32(nil), r.played...)
}

// Captured returns a copy of the input track.
func (r *Recorder) Captured() []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float32(nil), r.captured...)
}

// Save writes both tracks; an empty path skips that track.
func (r *Recorder) Save(playedPath, capturedPath string, sampleRate int) error {
	if playedPath != "" {
		if err := Save(playedPath, sampleRate, r.Played()); err != nil {
			return fmt.Errorf("saving played track: %w", err)
		}
	}
	if capturedPath != "" {
		if err := Save(capturedPath, sampleRate, r.Captured()); err != nil {
			return fmt.Errorf("saving captured track: %w", err)
		}
	}
	return nil
}
