// Package settings loads the runtime configuration shared by the commands.
package settings

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"acoustic_modem/package/shared"
	"gopkg.in/yaml.v3"
)

// Settings represents the whole configuration file
type Settings struct {
	LogLevel   string         `yaml:"logLevel"`
	SampleRate int            `yaml:"sampleRate"`
	Jack       JackConfig     `yaml:"jack"`
	Output     OutputConfig   `yaml:"output"`
	Chart      ChartConfig    `yaml:"chart"`
	Loopback   LoopbackConfig `yaml:"loopback"`
}

// JackConfig names the JACK client and the ports it connects to
type JackConfig struct {
	ClientName   string `yaml:"clientName"`
	CapturePort  string `yaml:"capturePort"`
	PlaybackPort string `yaml:"playbackPort"`
}

// OutputConfig holds the files written when a run ends. Empty paths are skipped.
type OutputConfig struct {
	PlayedTrack   string `yaml:"playedTrack"`
	CapturedTrack string `yaml:"capturedTrack"`
	Chart         string `yaml:"chart"`
	Capture       string `yaml:"capture"`
	Database      string `yaml:"database"`
	Received      string `yaml:"received"`
}

// ChartConfig sizes the power charts
type ChartConfig struct {
	Width       int `yaml:"width"`
	StripHeight int `yaml:"stripHeight"`
}

// LoopbackConfig tunes the offline loopback tool
type LoopbackConfig struct {
	BlockSize      int     `yaml:"blockSize"`
	NoiseAmplitude float64 `yaml:"noiseAmplitude"`
	NoiseSeed      int64   `yaml:"noiseSeed"`
}

func Default() *Settings {
	return &Settings{
		LogLevel:   "info",
		SampleRate: shared.FS,
		Jack: JackConfig{
			ClientName:   "acoustic_modem",
			CapturePort:  "system:capture_1",
			PlaybackPort: "system:playback_1",
		},
		Output: OutputConfig{
			PlayedTrack:   "output_track.wav",
			CapturedTrack: "input_track.wav",
		},
		Chart: ChartConfig{
			Width:       shared.POWER_CHART_WIDTH,
			StripHeight: 200,
		},
		Loopback: LoopbackConfig{
			BlockSize: shared.SCRIPT_PROCESS_SIZE,
			NoiseSeed: 1,
		},
	}
}

// Load reads path over the defaults. Unknown keys are rejected.
func Load(path string) (*Settings, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening settings: %w", err)
	}
	defer file.Close()
	return Decode(file)
}

func Decode(r io.Reader) (*Settings, error) {
	s := Default()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) Validate() error {
	if err := shared.ValidateSampleRate(s.SampleRate); err != nil {
		return fmt.Errorf("sampleRate: %w", err)
	}
	if s.Chart.Width <= 0 || s.Chart.StripHeight <= 0 {
		return fmt.Errorf("chart geometry must be positive, got %dx%d", s.Chart.Width, s.Chart.StripHeight)
	}
	if s.Loopback.BlockSize <= 0 {
		return fmt.Errorf("loopback blockSize must be positive, got %d", s.Loopback.BlockSize)
	}
	if s.Loopback.NoiseAmplitude < 0 {
		return fmt.Errorf("loopback noiseAmplitude must not be negative, got %g", s.Loopback.NoiseAmplitude)
	}
	if _, err := s.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel ("debug", "info", "warn", "error", optionally with an
// offset such as "info+2").
func (s *Settings) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("parsing logLevel: %w", err)
	}
	return level, nil
}
