// Package titlecard draws a story's title and counters onto a template image.
package titlecard

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ZacxDev/story-reels/internal/config"
	"github.com/ZacxDev/story-reels/internal/fault"
	"github.com/ZacxDev/story-reels/pkg/types"
	"github.com/fogleman/gg"
	"github.com/pkg/errors"
	"golang.org/x/image/font"
)

type Options struct {
	Template     string
	Font         string
	FontSize     float64
	MaxWidth     float64
	Left         float64
	Top          float64
	TextColor    string
	UpvotesX     float64
	CommentsX    float64
	CountersY    float64
	CountersSize float64
}

// OptionsFromConfig maps the titlecard config section onto renderer options.
func OptionsFromConfig(c config.TitleCardConfig) Options {
	return Options{
		Template:     c.Template,
		Font:         c.Font,
		FontSize:     c.FontSize,
		MaxWidth:     c.MaxWidth,
		Left:         c.Left,
		Top:          c.Top,
		TextColor:    c.TextColor,
		UpvotesX:     c.UpvotesX,
		CommentsX:    c.CommentsX,
		CountersY:    c.CountersY,
		CountersSize: c.CountersSz,
	}
}

type Renderer struct {
	opts Options
}

func New(opts Options) *Renderer {
	if opts.CountersSize <= 0 {
		opts.CountersSize = opts.FontSize
	}
	if opts.TextColor == "" {
		opts.TextColor = "#000000"
	}
	return &Renderer{opts: opts}
}

// faceMeasurer measures advance width and the ink height of the glyphs
// actually present in the string.
type faceMeasurer struct {
	face font.Face
}

func (m faceMeasurer) Measure(s string) (float64, float64) {
	bounds, advance := font.BoundString(m.face, s)
	height := bounds.Max.Y - bounds.Min.Y
	return float64(advance) / 64, float64(height) / 64
}

func loadFace(path string, points float64) (font.Face, error) {
	return gg.LoadFontFace(path, points)
}

// Render draws title and counters onto the template and writes a PNG to outPath.
// Missing template or font is ResourceMissing; nothing is written in that case.
func (r *Renderer) Render(title string, upvotes, comments int, outPath string) (types.ImageAsset, error) {
	const op = "render title card"

	for _, p := range []string{r.opts.Template, r.opts.Font} {
		if _, err := os.Stat(p); err != nil {
			return types.ImageAsset{}, fault.New(fault.KindResourceMissing, op, errors.Wrapf(err, "resource %q", p))
		}
	}

	tmpl, err := gg.LoadImage(r.opts.Template)
	if err != nil {
		return types.ImageAsset{}, fault.New(fault.KindResourceMissing, op, errors.Wrap(err, "load template"))
	}
	titleFace, err := loadFace(r.opts.Font, r.opts.FontSize)
	if err != nil {
		return types.ImageAsset{}, fault.New(fault.KindResourceMissing, op, errors.Wrap(err, "load font"))
	}
	counterFace, err := loadFace(r.opts.Font, r.opts.CountersSize)
	if err != nil {
		return types.ImageAsset{}, fault.New(fault.KindResourceMissing, op, errors.Wrap(err, "load font"))
	}

	dc := gg.NewContextForImage(tmpl)
	dc.SetHexColor(r.opts.TextColor)
	dc.SetFontFace(titleFace)

	m := faceMeasurer{face: titleFace}
	y := r.opts.Top
	for _, line := range Wrap(m, title, r.opts.MaxWidth) {
		bounds, _ := font.BoundString(titleFace, line)
		// Min.Y is the ascent above the baseline, negative in font space.
		dc.DrawString(line, r.opts.Left, y-float64(bounds.Min.Y)/64)
		_, h := m.Measure(line)
		y += h
	}

	dc.SetFontFace(counterFace)
	dc.DrawString(FormatCount(upvotes), r.opts.UpvotesX, r.opts.CountersY)
	dc.DrawString(FormatCount(comments), r.opts.CommentsX, r.opts.CountersY)

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return types.ImageAsset{}, errors.Wrap(err, "create image dir")
	}
	if err := dc.SavePNG(outPath); err != nil {
		return types.ImageAsset{}, errors.Wrap(err, "save title card")
	}

	return types.ImageAsset{Path: outPath, Width: dc.Width(), Height: dc.Height()}, nil
}

// FormatCount abbreviates large counters the way the forum shows them.
// The suffix is picked after rounding, so 999950 reads "1m", not "1000k".
func FormatCount(n int) string {
	if n < 1000 {
		return fmt.Sprint(n)
	}
	units := []struct {
		div    float64
		suffix string
	}{{1e3, "k"}, {1e6, "m"}, {1e9, "b"}}

	i := 0
	v := fmt.Sprintf("%.1f", float64(n)/units[i].div)
	for i < len(units)-1 && (float64(n) >= units[i].div*1000 || v == "1000.0") {
		i++
		v = fmt.Sprintf("%.1f", float64(n)/units[i].div)
	}
	return trimZero(v) + units[i].suffix
}

func trimZero(s string) string {
	if len(s) > 2 && s[len(s)-2:] == ".0" {
		return s[:len(s)-2]
	}
	return s
}
