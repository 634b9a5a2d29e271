// Package chart renders bar charts as PNG images.
package chart

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"

	"github.com/seiflotfy/shannon"
)

const (
	height     = 480
	minWidth   = 640
	marginLeft = 64
	marginTop  = 56
	marginBot  = 48
	marginRgt  = 24
	slot       = 28
	titleSize  = 18
	labelSize  = 11
	maxLabel   = 4 // runes shown under a bar
)

var (
	black = color.RGBA{0x00, 0x00, 0x00, 0xFF}
	ltGry = color.RGBA{0xDD, 0xDD, 0xDD, 0xFF}
	ltBlu = color.RGBA{0x77, 0x99, 0xCC, 0xFF}
	ltRed = color.RGBA{0xE0, 0x80, 0x80, 0xFF}
)

var (
	fontOnce sync.Once
	theFont  *truetype.Font
	fontErr  error
)

func loadFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		theFont, fontErr = freetype.ParseFont(goregular.TTF)
	})
	return theFont, fontErr
}

// Bar is one labelled value.
type Bar struct {
	Label string
	Value float64
}

// BarChart is a titled sequence of bars. Values must be non-negative.
type BarChart struct {
	Title string
	Bars  []Bar
}

// New returns an empty chart.
func New(title string) *BarChart {
	return &BarChart{Title: title}
}

// Add appends a bar.
func (c *BarChart) Add(label string, value float64) *BarChart {
	c.Bars = append(c.Bars, Bar{Label: label, Value: value})
	return c
}

// FromTally charts the counts of the topN most frequent symbols of t, all of
// them when topN <= 0.
func FromTally(title string, t *shannon.Tally, topN int) *BarChart {
	c := New(title)
	for i, e := range t.Entries {
		if topN > 0 && i == topN {
			break
		}
		c.Add(e.Symbol, float64(e.Count))
	}
	return c
}

// Width returns the image width in pixels.
func (c *BarChart) Width() int {
	return max(minWidth, marginLeft+marginRgt+slot*len(c.Bars))
}

// Image draws the chart.
func (c *BarChart) Image() (*image.RGBA, error) {
	f, err := loadFont()
	if err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}
	var top float64
	for _, b := range c.Bars {
		if b.Value < 0 || math.IsNaN(b.Value) || math.IsInf(b.Value, 0) {
			return nil, fmt.Errorf("bar %q: invalid value %v", b.Label, b.Value)
		}
		top = math.Max(top, b.Value)
	}

	w := c.Width()
	m := image.NewRGBA(image.Rect(0, 0, w, height))
	draw.Draw(m, m.Bounds(), image.White, image.Point{}, draw.Src)

	ctx := freetype.NewContext()
	ctx.SetDPI(72)
	ctx.SetFont(f)
	ctx.SetFontSize(titleSize)
	ctx.SetClip(m.Bounds())
	ctx.SetDst(m)
	ctx.SetSrc(image.Black)
	ctx.SetHinting(font.HintingFull)
	if _, err := ctx.DrawString(c.Title, freetype.Pt(12, 28)); err != nil {
		return nil, fmt.Errorf("draw title: %w", err)
	}

	face := truetype.NewFace(f, &truetype.Options{Size: labelSize, DPI: 72, Hinting: font.HintingFull})
	defer face.Close()
	d := &font.Drawer{Dst: m, Src: image.Black, Face: face}

	plotTop, plotBot := marginTop, height-marginBot
	plotH := plotBot - plotTop

	// horizontal grid at quarters of the top value
	for q := 0; q <= 4; q++ {
		y := plotBot - q*plotH/4
		draw.Draw(m, image.Rect(marginLeft, y, w-marginRgt, y+1), &image.Uniform{ltGry}, image.Point{}, draw.Src)
		d.Dot = fixed.P(4, y+4)
		d.DrawString(formatValue(top * float64(q) / 4))
	}
	draw.Draw(m, image.Rect(marginLeft-1, plotTop, marginLeft, plotBot+1), &image.Uniform{black}, image.Point{}, draw.Src)
	draw.Draw(m, image.Rect(marginLeft, plotBot, w-marginRgt, plotBot+1), &image.Uniform{black}, image.Point{}, draw.Src)

	for i, b := range c.Bars {
		x0 := marginLeft + i*slot + 4
		x1 := x0 + slot - 8
		h := 0
		if top > 0 {
			h = int(math.Round(b.Value / top * float64(plotH)))
		}
		fill := ltBlu
		if i%2 == 1 {
			fill = ltRed
		}
		draw.Draw(m, image.Rect(x0, plotBot-h, x1, plotBot), &image.Uniform{fill}, image.Point{}, draw.Src)

		label := shortLabel(b.Label)
		lw := d.MeasureString(label).Round()
		d.Dot = fixed.P(x0+(x1-x0-lw)/2, plotBot+16)
		d.DrawString(label)
	}
	return m, nil
}

// Render encodes the chart as PNG to w.
func (c *BarChart) Render(w io.Writer) error {
	m, err := c.Image()
	if err != nil {
		return err
	}
	return png.Encode(w, m)
}

// Save writes the chart as a PNG file at path, creating parent directories.
func (c *BarChart) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := c.Render(out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func formatValue(v float64) string {
	switch {
	case v >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case v >= 1e4:
		return fmt.Sprintf("%.0fk", v/1e3)
	case v == math.Trunc(v):
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

// shortLabel makes whitespace and control symbols visible and truncates
// long labels.
func shortLabel(s string) string {
	switch s {
	case " ":
		return "sp"
	case "\n":
		return `\n`
	case "\t":
		return `\t`
	}
	if utf8.RuneCountInString(s) > maxLabel {
		r := []rune(s)
		return string(r[:maxLabel-1]) + "…"
	}
	return s
}

var fileNameReplacer = strings.NewReplacer(" ", "_", "/", "_", `\`, "_")

// FileName turns parts into a PNG file name with spaces and path separators
// replaced by underscores, e.g. FileName("English", "variant1", "hist").
// The result never names a file outside the directory it is joined to.
func FileName(parts ...string) string {
	return fileNameReplacer.Replace(strings.Join(parts, "_")) + ".png"
}

// HostFileName returns "<host>_char_distribution.png" for a page URL, with
// dots in the host replaced by underscores.
func HostFileName(rawURL string) string {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}
	host = strings.NewReplacer(".", "_", ":", "_", "/", "_").Replace(host)
	return host + "_char_distribution.png"
}
