// Package normalize fits media of arbitrary size onto an exact output canvas,
// either by filling it (scale then center-crop) or by fitting inside it
// (scale then center-pad).
package normalize

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

// Policy selects how aspect-ratio mismatches are resolved.
type Policy int

const (
	// ScaleCrop fills the canvas; overflow on one axis is cropped.
	ScaleCrop Policy = iota
	// ScalePad keeps the whole frame; the remaining canvas is padded.
	ScalePad
)

func (p Policy) String() string {
	switch p {
	case ScaleCrop:
		return "scale-crop"
	case ScalePad:
		return "scale-pad"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// Dimensions is a pixel size.
type Dimensions struct {
	Width  int
	Height int
}

func (d Dimensions) String() string { return fmt.Sprintf("%dx%d", d.Width, d.Height) }

func (d Dimensions) valid() bool { return d.Width > 0 && d.Height > 0 }

// Plan is the resolved geometry for one source/target pair. Offset is the
// crop origin inside Scaled for ScaleCrop, and the paste origin inside Target
// for ScalePad.
type Plan struct {
	Policy  Policy
	Source  Dimensions
	Target  Dimensions
	Scaled  Dimensions
	OffsetX int
	OffsetY int
}

// Compute resolves the scale step and the crop or pad step. The output of a
// plan is always exactly Target.
func Compute(src, target Dimensions, policy Policy) (Plan, error) {
	if !src.valid() {
		return Plan{}, errors.Errorf("invalid source dimensions %s", src)
	}
	if !target.valid() {
		return Plan{}, errors.Errorf("invalid target dimensions %s", target)
	}

	widthRatio := float64(target.Width) / float64(src.Width)
	heightRatio := float64(target.Height) / float64(src.Height)

	plan := Plan{Policy: policy, Source: src, Target: target}

	switch policy {
	case ScaleCrop:
		scale := math.Max(widthRatio, heightRatio)
		w := max(target.Width, ceilScaled(src.Width, scale))
		h := max(target.Height, ceilScaled(src.Height, scale))
		plan.Scaled = Dimensions{Width: evenUp(w), Height: evenUp(h)}
		plan.OffsetX = (plan.Scaled.Width - target.Width) / 2
		plan.OffsetY = (plan.Scaled.Height - target.Height) / 2

	case ScalePad:
		scale := math.Min(widthRatio, heightRatio)
		w := clamp(floorScaled(src.Width, scale), 1, target.Width)
		h := clamp(floorScaled(src.Height, scale), 1, target.Height)
		plan.Scaled = Dimensions{Width: evenDown(w), Height: evenDown(h)}
		plan.OffsetX = (target.Width - plan.Scaled.Width) / 2
		plan.OffsetY = (target.Height - plan.Scaled.Height) / 2

	default:
		return Plan{}, errors.Errorf("unknown policy %s", policy)
	}

	return plan, nil
}

// Output returns the dimensions the plan produces.
func (p Plan) Output() Dimensions { return p.Target }

// Identity reports whether the source already matches the target.
func (p Plan) Identity() bool { return p.Source == p.Target }

// Filter is one ffmpeg filter with positional arguments.
type Filter struct {
	Name string
	Args []string
}

// Filters returns the ffmpeg filter chain that realizes the plan.
func (p Plan) Filters(padColor string) []Filter {
	if padColor == "" {
		padColor = "black"
	}
	chain := []Filter{{
		Name: "scale",
		Args: []string{fmt.Sprintf("%d:%d", p.Scaled.Width, p.Scaled.Height)},
	}}
	switch p.Policy {
	case ScaleCrop:
		chain = append(chain, Filter{
			Name: "crop",
			Args: []string{fmt.Sprintf("%d:%d:%d:%d", p.Target.Width, p.Target.Height, p.OffsetX, p.OffsetY)},
		})
	case ScalePad:
		chain = append(chain, Filter{
			Name: "pad",
			Args: []string{fmt.Sprintf("%d:%d:%d:%d:%s", p.Target.Width, p.Target.Height, p.OffsetX, p.OffsetY, padColor)},
		})
	}
	return append(chain, Filter{Name: "setsar", Args: []string{"1"}})
}

// FilterChain renders Filters as a single -vf expression.
func (p Plan) FilterChain(padColor string) string {
	var out string
	for i, f := range p.Filters(padColor) {
		if i > 0 {
			out += ","
		}
		out += f.Name
		for j, a := range f.Args {
			if j == 0 {
				out += "=" + a
			} else {
				out += ":" + a
			}
		}
	}
	return out
}

func ceilScaled(v int, scale float64) int {
	return int(math.Ceil(float64(v)*scale - 1e-9))
}

func floorScaled(v int, scale float64) int {
	return int(math.Floor(float64(v)*scale + 1e-9))
}

// evenUp rounds odd sizes up so yuv420p encoders accept them.
func evenUp[T constraints.Integer](v T) T {
	if v%2 != 0 {
		return v + 1
	}
	return v
}

// evenDown rounds odd sizes down, never below 1.
func evenDown[T constraints.Integer](v T) T {
	if v > 1 && v%2 != 0 {
		return v - 1
	}
	return v
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
