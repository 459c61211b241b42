package normalize

import (
	"image"
	"image/color"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

func TestComputeLandscapeToPortrait(t *testing.T) {
	t.Parallel()

	src := Dimensions{Width: 1920, Height: 1080}
	target := Dimensions{Width: 1080, Height: 1920}

	crop, err := Compute(src, target, ScaleCrop)
	if err != nil {
		t.Fatalf("Compute crop: %v", err)
	}
	if crop.Scaled.Height != 1920 {
		t.Fatalf("crop should scale height to the canvas, got %s", crop.Scaled)
	}
	if crop.Scaled.Width < 1080 || crop.OffsetY != 0 {
		t.Fatalf("unexpected crop plan %+v", crop)
	}
	if crop.OffsetX != (crop.Scaled.Width-1080)/2 {
		t.Fatalf("crop should be centered, got offset %d", crop.OffsetX)
	}

	pad, err := Compute(src, target, ScalePad)
	if err != nil {
		t.Fatalf("Compute pad: %v", err)
	}
	if pad.Scaled.Width != 1080 || pad.Scaled.Height != 606 {
		t.Fatalf("unexpected pad scale %s", pad.Scaled)
	}
	if pad.OffsetX != 0 || pad.OffsetY != (1920-606)/2 {
		t.Fatalf("pad should be centered, got %d,%d", pad.OffsetX, pad.OffsetY)
	}
}

func TestComputeRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	if _, err := Compute(Dimensions{0, 10}, Dimensions{10, 10}, ScaleCrop); err == nil {
		t.Fatalf("expected error for zero width source")
	}
	if _, err := Compute(Dimensions{10, 10}, Dimensions{10, -1}, ScalePad); err == nil {
		t.Fatalf("expected error for negative target")
	}
	if _, err := Compute(Dimensions{10, 10}, Dimensions{10, 10}, Policy(9)); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}

func TestComputeGeometryHoldsForArbitrarySizes(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		src := Dimensions{Width: 1 + rng.Intn(5000), Height: 1 + rng.Intn(5000)}
		target := Dimensions{Width: 1 + rng.Intn(3000), Height: 1 + rng.Intn(3000)}

		crop, err := Compute(src, target, ScaleCrop)
		if err != nil {
			t.Fatalf("crop %s->%s: %v", src, target, err)
		}
		if crop.Output() != target {
			t.Fatalf("crop output %s != %s", crop.Output(), target)
		}
		if crop.Scaled.Width < target.Width || crop.Scaled.Height < target.Height {
			t.Fatalf("crop scale %s smaller than target %s", crop.Scaled, target)
		}
		if crop.OffsetX < 0 || crop.OffsetY < 0 ||
			crop.OffsetX+target.Width > crop.Scaled.Width ||
			crop.OffsetY+target.Height > crop.Scaled.Height {
			t.Fatalf("crop window out of bounds: %+v", crop)
		}

		pad, err := Compute(src, target, ScalePad)
		if err != nil {
			t.Fatalf("pad %s->%s: %v", src, target, err)
		}
		if pad.Output() != target {
			t.Fatalf("pad output %s != %s", pad.Output(), target)
		}
		if pad.Scaled.Width > target.Width || pad.Scaled.Height > target.Height ||
			pad.Scaled.Width < 1 || pad.Scaled.Height < 1 {
			t.Fatalf("pad scale %s does not fit %s", pad.Scaled, target)
		}
		if pad.OffsetX < 0 || pad.OffsetY < 0 ||
			pad.OffsetX+pad.Scaled.Width > target.Width ||
			pad.OffsetY+pad.Scaled.Height > target.Height {
			t.Fatalf("pad placement out of bounds: %+v", pad)
		}
	}
}

func TestFilterChain(t *testing.T) {
	t.Parallel()

	crop, _ := Compute(Dimensions{1920, 1080}, Dimensions{1080, 1920}, ScaleCrop)
	want := "scale=3414:1920,crop=1080:1920:1167:0,setsar=1"
	if got := crop.FilterChain(""); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	pad, _ := Compute(Dimensions{1920, 1080}, Dimensions{1080, 1920}, ScalePad)
	want = "scale=1080:606,pad=1080:1920:0:657:white,setsar=1"
	if got := pad.FilterChain("white"); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestImageProducesExactTarget(t *testing.T) {
	t.Parallel()

	sizes := []Dimensions{{37, 91}, {400, 300}, {1, 1}, {300, 300}, {301, 3}}
	target := Dimensions{Width: 108, Height: 192}

	for _, size := range sizes {
		src := imaging.New(size.Width, size.Height, color.NRGBA{R: 200, A: 255})
		for _, policy := range []Policy{ScaleCrop, ScalePad} {
			out, err := Image(src, target, policy, color.White)
			if err != nil {
				t.Fatalf("%s %s: %v", size, policy, err)
			}
			b := out.Bounds()
			if b.Dx() != target.Width || b.Dy() != target.Height {
				t.Fatalf("%s %s: got %dx%d", size, policy, b.Dx(), b.Dy())
			}
		}
	}
}

func TestImagePadFillsBorders(t *testing.T) {
	t.Parallel()

	src := imaging.New(200, 100, color.NRGBA{R: 255, A: 255})
	out, err := Image(src, Dimensions{Width: 100, Height: 100}, ScalePad, color.NRGBA{B: 255, A: 255})
	if err != nil {
		t.Fatalf("Image: %v", err)
	}
	r, g, b, _ := out.At(50, 2).RGBA()
	if r != 0 || g != 0 || b == 0 {
		t.Fatalf("expected padding color at top border, got %d %d %d", r, g, b)
	}
	r, _, _, _ = out.At(50, 50).RGBA()
	if r == 0 {
		t.Fatalf("expected source pixels in the middle")
	}
}

func TestFileRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "in.png")
	dst := filepath.Join(dir, "out.png")
	if err := imaging.Save(imaging.New(640, 480, color.Black), src); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := File(src, dst, Dimensions{Width: 90, Height: 160}, ScaleCrop, nil); err != nil {
		t.Fatalf("File: %v", err)
	}
	out, err := imaging.Open(dst)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	if out.Bounds() != image.Rect(0, 0, 90, 160) {
		t.Fatalf("unexpected output bounds %v", out.Bounds())
	}

	if err := File(filepath.Join(dir, "missing.png"), dst, Dimensions{90, 160}, ScalePad, nil); err == nil {
		t.Fatalf("expected error for missing source")
	}
}

func TestParseHexColor(t *testing.T) {
	t.Parallel()

	c, err := ParseHexColor("#1a2b3c")
	if err != nil {
		t.Fatalf("ParseHexColor: %v", err)
	}
	if c != (color.NRGBA{R: 0x1a, G: 0x2b, B: 0x3c, A: 0xff}) {
		t.Fatalf("unexpected color %v", c)
	}
	if c, _ := ParseHexColor("00000080"); c != (color.NRGBA{A: 0x80}) {
		t.Fatalf("unexpected alpha color %v", c)
	}
	for _, bad := range []string{"", "#fff", "#gggggg"} {
		if _, err := ParseHexColor(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
