package normalize

import (
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// Image applies the plan for img's bounds to target and returns a raster of
// exactly target size. fill is only used by ScalePad.
func Image(img image.Image, target Dimensions, policy Policy, fill color.Color) (image.Image, error) {
	b := img.Bounds()
	plan, err := Compute(Dimensions{Width: b.Dx(), Height: b.Dy()}, target, policy)
	if err != nil {
		return nil, err
	}
	if plan.Identity() {
		return img, nil
	}

	scaled := imaging.Resize(img, plan.Scaled.Width, plan.Scaled.Height, imaging.Lanczos)

	switch policy {
	case ScaleCrop:
		rect := image.Rect(plan.OffsetX, plan.OffsetY, plan.OffsetX+target.Width, plan.OffsetY+target.Height)
		return imaging.Crop(scaled, rect), nil
	default:
		if fill == nil {
			fill = color.Black
		}
		canvas := imaging.New(target.Width, target.Height, fill)
		return imaging.Paste(canvas, scaled, image.Pt(plan.OffsetX, plan.OffsetY)), nil
	}
}

// File normalizes the image at src and writes it to dst. The encoder is
// chosen from dst's extension.
func File(src, dst string, target Dimensions, policy Policy, fill color.Color) error {
	img, err := imaging.Open(src)
	if err != nil {
		return errors.Wrapf(err, "open image %s", src)
	}
	out, err := Image(img, target, policy, fill)
	if err != nil {
		return errors.Wrapf(err, "normalize %s", src)
	}
	if err := imaging.Save(out, dst); err != nil {
		return errors.Wrapf(err, "save image %s", dst)
	}
	return nil
}

// ParseHexColor reads "#rrggbb" or "#rrggbbaa".
func ParseHexColor(s string) (color.Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 && len(hex) != 8 {
		return nil, errors.Errorf("invalid hex color %q", s)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid hex color %q", s)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
