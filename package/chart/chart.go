// Package chart draws power chart histories as a PNG image, one strip per
// channel.
package chart

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"os"

	"acoustic_modem/package/shared"
	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	dpi      float64 = 72
	fontSize float64 = 12
	topDB    float64 = 0
)

var (
	backgroundColor = color.RGBA{R: 16, G: 16, B: 24, A: 255}
	gridColor       = color.RGBA{R: 48, G: 48, B: 64, A: 255}
	thresholdColor  = color.RGBA{R: 200, G: 40, B: 40, A: 255}
	activeColor     = color.RGBA{R: 64, G: 220, B: 96, A: 255}
	idleColor       = color.RGBA{R: 120, G: 120, B: 140, A: 255}
)

// Options controls the image geometry.
type Options struct {
	StripHeight int // pixels per channel
	LabelWidth  int // pixels reserved left of the plot for the label
}

// DefaultOptions draws 200 px per strip.
func DefaultOptions() Options {
	return Options{StripHeight: 10 * 20, LabelWidth: 120}
}

// Renderer draws charts with a label per strip.
type Renderer struct {
	context *freetype.Context
	options Options
}

func NewRenderer(options Options) (*Renderer, error) {
	if options.StripHeight <= 0 || options.LabelWidth < 0 {
		return nil, fmt.Errorf("invalid chart geometry: strip=%d label=%d", options.StripHeight, options.LabelWidth)
	}
	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	context := freetype.NewContext()
	context.SetDPI(dpi)
	context.SetFont(parsedFont)
	context.SetFontSize(fontSize)
	context.SetSrc(image.White)
	context.SetHinting(font.HintingFull)

	return &Renderer{context: context, options: options}, nil
}

// Draw renders every chart into a new image. The plot is as wide as the
// largest chart capacity, one pixel per reading, newest on the right.
func (r *Renderer) Draw(charts []*shared.PowerChart) *image.RGBA {
	width := 1
	for _, c := range charts {
		width = max(width, c.Capacity())
	}
	height := max(len(charts), 1) * r.options.StripHeight
	img := image.NewRGBA(image.Rect(0, 0, r.options.LabelWidth+width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: backgroundColor}, image.Point{}, draw.Src)

	r.context.SetClip(img.Bounds())
	r.context.SetDst(img)
	for i, c := range charts {
		r.drawStrip(img, c, i*r.options.StripHeight, width)
	}
	return img
}

// Render draws charts and encodes them as PNG.
func (r *Renderer) Render(w io.Writer, charts []*shared.PowerChart) error {
	if err := png.Encode(w, r.Draw(charts)); err != nil {
		return fmt.Errorf("encoding png: %w", err)
	}
	return nil
}

// RenderFile writes the PNG to path.
func (r *Renderer) RenderFile(path string, charts []*shared.PowerChart) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return r.Render(file, charts)
}

// Row maps a decibel value to a pixel row inside a strip of the given height.
func Row(powerDecibel float64, stripHeight int) int {
	p := shared.NormalizeDecibel(powerDecibel)
	if p > topDB {
		p = topDB
	}
	span := topDB - shared.MINIMUM_POWER_DB
	row := int((topDB - p) / span * float64(stripHeight-1))
	return row
}

func (r *Renderer) drawStrip(img *image.RGBA, c *shared.PowerChart, top, width int) {
	left := r.options.LabelWidth
	h := r.options.StripHeight

	for x := 0; x < left+width; x++ {
		img.Set(x, top+h-1, gridColor)
	}
	thresholdRow := top + Row(shared.THRESHOLD, h)
	for x := left; x < left+width; x += 2 {
		img.Set(x, thresholdRow, thresholdColor)
	}

	values := c.Values()
	offset := left + width - len(values)
	for i, v := range values {
		clr := idleColor
		if v > shared.THRESHOLD {
			clr = activeColor
		}
		for y := top + Row(v, h); y < top+h-1; y++ {
			img.Set(offset+i, y, clr)
		}
	}

	pt := freetype.Pt(4, top+int(fontSize)+4)
	_, _ = r.context.DrawString(c.Label, pt)
	pt.Y += r.context.PointToFixed(fontSize * 1.2)
	_, _ = r.context.DrawString(humanHz(c.FrequencyHz), pt)
}

func humanHz(hz float64) string {
	value, suffix := humanize.ComputeSI(hz)
	return fmt.Sprintf("%0.4f %sHz", value, suffix)
}
