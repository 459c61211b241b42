package platform

import "testing"

func TestRegistryLookup(t *testing.T) {
	t.Parallel()

	p, err := Get("tiktok")
	if err != nil {
		t.Fatalf("Get tiktok: %v", err)
	}
	if w, h := p.GetDimensions(); w != 1080 || h != 1920 {
		t.Fatalf("unexpected tiktok canvas %dx%d", w, h)
	}
	if !IsPortrait(p) {
		t.Fatalf("tiktok should be portrait")
	}

	if _, err := Get("myspace"); err == nil {
		t.Fatalf("expected error for unknown platform")
	}
}

func TestSupportedPlatformsSorted(t *testing.T) {
	t.Parallel()

	names := GetSupportedPlatforms()
	want := []string{"instagram-reel", "reddit", "tiktok", "x-twitter", "youtube-shorts"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, names)
		}
	}
}

func TestCanvasesAreEven(t *testing.T) {
	t.Parallel()

	for _, name := range GetSupportedPlatforms() {
		p, _ := Get(name)
		w, h := p.GetDimensions()
		if w%2 != 0 || h%2 != 0 {
			t.Fatalf("%s canvas %dx%d must be even for yuv420p", name, w, h)
		}
	}
}

func TestPortraitProfilesReserveCaptionSpace(t *testing.T) {
	t.Parallel()

	for _, name := range GetSupportedPlatforms() {
		p, _ := Get(name)
		_, h := p.GetDimensions()
		margin := p.GetCaptionMargin()
		if margin <= 0 || margin >= h/2 {
			t.Fatalf("%s caption margin %d out of range", name, margin)
		}
		if IsPortrait(p) && margin < 200 {
			t.Fatalf("%s is portrait, captions must clear the overlay rail (margin %d)", name, margin)
		}
	}
}
