package chart

import (
	"bytes"
	"image/png"
	"math"
	"path/filepath"
	"testing"

	"acoustic_modem/package/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRow(t *testing.T) {
	tests := []struct {
		name     string
		power    float64
		expected int
	}{
		{"Top", 0, 0},
		{"Above top", 12, 0},
		{"Floor", -99, 99},
		{"Silence", math.Inf(-1), 99},
		{"Threshold", -30, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Row(tt.power, 100))
		})
	}
}

func TestRendererDraw(t *testing.T) {
	r, err := NewRenderer(Options{StripHeight: 50, LabelWidth: 80})
	require.NoError(t, err)

	monitor := shared.NewPowerMonitor(30)
	for i := 0; i < 40; i++ {
		subs := make([]float64, shared.SUB_CARRIER_SIZE)
		for j := range subs {
			subs[j] = -99
		}
		monitor.Push(float64(-i), subs)
	}

	img := r.Draw(monitor.Charts())
	assert.Equal(t, 80+30, img.Bounds().Dx())
	assert.Equal(t, 9*50, img.Bounds().Dy())

	// newest pilot reading is -39 dB: below threshold, drawn idle
	x := img.Bounds().Dx() - 1
	assert.Equal(t, idleColor, img.RGBAAt(x, 48))
	assert.Equal(t, backgroundColor, img.RGBAAt(x, Row(-39, 50)-1))
}

func TestRenderPNG(t *testing.T) {
	r, err := NewRenderer(DefaultOptions())
	require.NoError(t, err)

	pc := shared.NewPowerChart("pilot", shared.PILOT_FREQUENCY, shared.POWER_CHART_WIDTH)
	pc.Push(-25)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, []*shared.PowerChart{pc}))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 120+shared.POWER_CHART_WIDTH, img.Bounds().Dx())

	path := filepath.Join(t.TempDir(), "power.png")
	require.NoError(t, r.RenderFile(path, []*shared.PowerChart{pc}))
}

func TestNewRendererRejectsGeometry(t *testing.T) {
	_, err := NewRenderer(Options{StripHeight: 0})
	assert.Error(t, err)
}

func TestHumanHz(t *testing.T) {
	assert.Equal(t, "5.0000 kHz", humanHz(5000))
	assert.Equal(t, "5.0125 kHz", humanHz(5012.5))
}
