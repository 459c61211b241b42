package processor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ZacxDev/story-reels/internal/fault"
	"github.com/ZacxDev/story-reels/internal/ffmpeg"
	"github.com/ZacxDev/story-reels/internal/normalize"
	"github.com/ZacxDev/story-reels/pkg/types"
	"github.com/pkg/errors"
)

var canvas = normalize.Dimensions{Width: 1080, Height: 1920}

// fakeBackend writes each produced file as "<duration ns> <width> <height>" so
// probing works after the assembler renames files, and also remembers every
// duration by path for assertions after scratch files are gone.
type fakeBackend struct {
	mu       sync.Mutex
	seen     map[string]time.Duration
	calls    []string
	segments []string
	failOn   string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{seen: map[string]time.Duration{}}
}

func writeMedia(path string, d time.Duration, dims normalize.Dimensions) error {
	return os.WriteFile(path, []byte(fmt.Sprintf("%d %d %d", int64(d), dims.Width, dims.Height)), 0644)
}

func readMedia(path string) (time.Duration, normalize.Dimensions, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, normalize.Dimensions{}, err
	}
	var (
		ns   int64
		dims normalize.Dimensions
	)
	if _, err := fmt.Sscanf(string(raw), "%d %d %d", &ns, &dims.Width, &dims.Height); err != nil {
		return 0, normalize.Dimensions{}, err
	}
	return time.Duration(ns), dims, nil
}

func (f *fakeBackend) produce(op, out string, d time.Duration, dims normalize.Dimensions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	if f.failOn == op {
		return fault.WithDetail(fault.KindExternalToolFailed, op, "Conversion failed!", errors.New("exit status 1"))
	}
	f.seen[out] = d
	return writeMedia(out, d, dims)
}

func (f *fakeBackend) duration(path string) time.Duration {
	if d, _, err := readMedia(path); err == nil {
		return d
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen[path]
}

func (f *fakeBackend) Probe(ctx context.Context, path string) (ffmpeg.Metadata, error) {
	d, dims, err := readMedia(path)
	if err != nil {
		return ffmpeg.Metadata{}, fault.New(fault.KindExternalToolFailed, "ffprobe", err)
	}
	return ffmpeg.Metadata{Duration: d, Width: dims.Width, Height: dims.Height}, nil
}

func (f *fakeBackend) StillToVideo(ctx context.Context, image string, d time.Duration, plan normalize.Plan, out string) error {
	return f.produce("still", out, d, plan.Output())
}

func (f *fakeBackend) NormalizeVideo(ctx context.Context, in string, plan normalize.Plan, maxDur time.Duration, out string) error {
	return f.produce("normalize", out, maxDur, plan.Output())
}

func (f *fakeBackend) Concat(ctx context.Context, segments []string, manifest, out string) error {
	var total time.Duration
	for _, s := range segments {
		total += f.duration(s)
	}
	f.mu.Lock()
	f.segments = append([]string(nil), segments...)
	f.mu.Unlock()
	if err := os.WriteFile(manifest, []byte(strings.Join(segments, "\n")), 0644); err != nil {
		return err
	}
	return f.produce("concat", out, total, canvas)
}

func (f *fakeBackend) Mux(ctx context.Context, video, audio string, maxDur time.Duration, out string) error {
	d := f.duration(video)
	if a := f.duration(audio); a < d {
		d = a
	}
	if maxDur > 0 && maxDur < d {
		d = maxDur
	}
	return f.produce("mux", out, d, canvas)
}

func (f *fakeBackend) BurnCaptions(ctx context.Context, video, subtitles, style, out string) error {
	return f.produce("burn", out, f.duration(video), canvas)
}

func (f *fakeBackend) Segment(ctx context.Context, in string, start, d time.Duration, out string) error {
	return f.produce("segment", out, d, canvas)
}

func (f *fakeBackend) Extension() string { return ".mp4" }

type fixture struct {
	dir     string
	backend *fakeBackend
	audio   types.AudioAsset
	image   *types.ImageAsset
	bg      string
}

func newFixture(t *testing.T, narration time.Duration) *fixture {
	t.Helper()
	dir := t.TempDir()
	fx := &fixture{dir: dir, backend: newFakeBackend()}

	fx.audio = types.AudioAsset{Path: filepath.Join(dir, "story.mp3")}
	fx.image = &types.ImageAsset{Path: filepath.Join(dir, "story.png"), Width: 1080, Height: 1920}
	fx.bg = filepath.Join(t.TempDir(), "background.mp4")
	if err := writeMedia(fx.audio.Path, narration, normalize.Dimensions{}); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	if err := writeMedia(fx.bg, 20*time.Second, normalize.Dimensions{Width: 1920, Height: 1080}); err != nil {
		t.Fatalf("write background: %v", err)
	}
	if err := os.WriteFile(fx.image.Path, []byte("png"), 0644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	return fx
}

func (fx *fixture) assembler(opts Options) *Assembler {
	opts.Canvas = canvas
	if opts.MinimumOverlay == 0 {
		opts.MinimumOverlay = 3 * time.Second
	}
	opts.WordsPerSecond = 2.5
	return NewAssembler(fx.backend, opts)
}

func (fx *fixture) request(title string) Request {
	return Request{Slug: "story", Dir: fx.dir, Title: title, Audio: fx.audio, Image: fx.image}
}

func assertNoScratch(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "assemble_") {
			t.Fatalf("scratch dir %s left behind", e.Name())
		}
	}
}

func TestOverlayDuration(t *testing.T) {
	t.Parallel()

	cases := []struct {
		title string
		want  time.Duration
	}{
		{"", 3 * time.Second},
		{"eating the last slice", 3 * time.Second},
		{"one two three four five six seven eight nine ten", 4 * time.Second},
		{strings.Repeat("word ", 25), 10 * time.Second},
	}
	for _, tc := range cases {
		if got := OverlayDuration(tc.title, 2.5, 3*time.Second); got != tc.want {
			t.Fatalf("OverlayDuration(%q) = %s, want %s", tc.title, got, tc.want)
		}
	}
}

func TestAssembleStillFollowsNarration(t *testing.T) {
	t.Parallel()

	for _, narration := range []time.Duration{40 * time.Second, 2 * time.Second, 3 * time.Second} {
		fx := newFixture(t, narration)
		res, err := fx.assembler(Options{}).Assemble(context.Background(), fx.request("eating the last slice"))
		if err != nil {
			t.Fatalf("Assemble: %v", err)
		}
		if res.Mode != ModeStill {
			t.Fatalf("expected still mode, got %s", res.Mode)
		}
		if res.Video.Duration != narration || res.Narration != narration {
			t.Fatalf("final duration %s and probed narration %s should equal %s", res.Video.Duration, res.Narration, narration)
		}
		if res.Video.Path != filepath.Join(fx.dir, "story.mp4") {
			t.Fatalf("unexpected output path %s", res.Video.Path)
		}
		if res.Video.Width != canvas.Width || res.Video.Height != canvas.Height {
			t.Fatalf("unexpected dimensions %dx%d", res.Video.Width, res.Video.Height)
		}
		assertNoScratch(t, fx.dir)
	}
}

func TestAssembleBackgroundTimeline(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, 30*time.Second)
	title := "one two three four five six seven eight nine ten"
	res, err := fx.assembler(Options{Background: fx.bg}).Assemble(context.Background(), fx.request(title))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if res.Mode != ModeBackground || res.Overlay != 4*time.Second {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(fx.backend.segments) != 2 {
		t.Fatalf("expected title and background segments, got %v", fx.backend.segments)
	}
	if fx.backend.duration(fx.backend.segments[0]) != 4*time.Second {
		t.Fatalf("title segment should last the overlay duration")
	}
	if fx.backend.duration(fx.backend.segments[1]) != 26*time.Second {
		t.Fatalf("background should fill the rest of the narration, got %s", fx.backend.duration(fx.backend.segments[1]))
	}
	if res.Video.Duration != 30*time.Second {
		t.Fatalf("final duration %s should equal narration", res.Video.Duration)
	}
	assertNoScratch(t, fx.dir)
}

func TestAssembleBackgroundShorterThanOverlay(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, 2*time.Second)
	res, err := fx.assembler(Options{Background: fx.bg}).Assemble(context.Background(), fx.request("short"))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	for _, c := range fx.backend.calls {
		if c == "normalize" || c == "concat" {
			t.Fatalf("background not needed when narration ends during the title card, calls=%v", fx.backend.calls)
		}
	}
	if res.Video.Duration != 2*time.Second {
		t.Fatalf("unexpected duration %s", res.Video.Duration)
	}
}

func TestAssembleMissingBackground(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, 10*time.Second)
	missing := filepath.Join(fx.dir, "nope.mp4")

	res, err := fx.assembler(Options{Background: missing}).Assemble(context.Background(), fx.request("title"))
	if err != nil {
		t.Fatalf("optional background should fall back: %v", err)
	}
	if res.Mode != ModeStill {
		t.Fatalf("expected fallback to still mode, got %s", res.Mode)
	}

	fx = newFixture(t, 10*time.Second)
	_, err = fx.assembler(Options{Background: missing, BackgroundRequired: true}).Assemble(context.Background(), fx.request("title"))
	if !fault.Is(err, fault.KindSourceMissing) {
		t.Fatalf("expected SourceMissing, got %v", err)
	}
	if len(fx.backend.calls) != 0 {
		t.Fatalf("no media work expected, got %v", fx.backend.calls)
	}
	for _, p := range []string{fx.audio.Path, fx.image.Path} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("input %s must survive the skip: %v", p, err)
		}
	}
	if _, err := os.Stat(filepath.Join(fx.dir, "story.mp4")); !os.IsNotExist(err) {
		t.Fatalf("no video expected")
	}
	assertNoScratch(t, fx.dir)
}

func TestAssembleWithoutTitleCard(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, 25*time.Second)
	req := fx.request("title")
	req.Image = nil

	res, err := fx.assembler(Options{Background: fx.bg}).Assemble(context.Background(), req)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if res.Mode != ModeBackgroundOnly || res.Video.Duration != 25*time.Second || res.Overlay != 0 {
		t.Fatalf("unexpected result %+v", res)
	}

	_, err = fx.assembler(Options{}).Assemble(context.Background(), req)
	if !fault.Is(err, fault.KindSourceMissing) {
		t.Fatalf("nothing to show should be SourceMissing, got %v", err)
	}
}

func TestAssembleMissingAudio(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, 10*time.Second)
	req := fx.request("title")
	req.Audio.Path = filepath.Join(fx.dir, "gone.mp3")
	if _, err := fx.assembler(Options{}).Assemble(context.Background(), req); !fault.Is(err, fault.KindSourceMissing) {
		t.Fatalf("expected SourceMissing, got %v", err)
	}
}

func TestAssembleBackendFailureCleansUp(t *testing.T) {
	t.Parallel()

	for _, op := range []string{"still", "normalize", "concat", "mux"} {
		fx := newFixture(t, 30*time.Second)
		fx.backend.failOn = op

		_, err := fx.assembler(Options{Background: fx.bg}).Assemble(context.Background(), fx.request("a title"))
		if !fault.Is(err, fault.KindExternalToolFailed) {
			t.Fatalf("%s: expected ExternalToolFailed, got %v", op, err)
		}
		if !strings.Contains(err.Error(), "Conversion failed!") {
			t.Fatalf("%s: tool output should be surfaced: %v", op, err)
		}
		assertNoScratch(t, fx.dir)
		if _, err := os.Stat(filepath.Join(fx.dir, "story.mp4")); !os.IsNotExist(err) {
			t.Fatalf("%s: no final video expected", op)
		}
	}
}

func TestAssembleBurnsCaptions(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, 10*time.Second)
	req := fx.request("title")
	req.Subtitles = filepath.Join(fx.dir, "story.srt")
	if err := os.WriteFile(req.Subtitles, []byte("1\n00:00:00,000 --> 00:00:01,000\nhi\n"), 0644); err != nil {
		t.Fatalf("write srt: %v", err)
	}

	if _, err := fx.assembler(Options{BurnCaptions: true}).Assemble(context.Background(), req); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if fx.backend.calls[len(fx.backend.calls)-1] != "burn" {
		t.Fatalf("expected burn as the last pass, calls=%v", fx.backend.calls)
	}

	fx.backend.failOn = "burn"
	res, err := fx.assembler(Options{BurnCaptions: true}).Assemble(context.Background(), req)
	if err != nil {
		t.Fatalf("failed burn should keep the uncaptioned video: %v", err)
	}
	if res.Video.Duration != 10*time.Second {
		t.Fatalf("unexpected duration %s", res.Video.Duration)
	}
}

func TestPartDurations(t *testing.T) {
	t.Parallel()

	if got := PartDurations(60*time.Second, 60*time.Second); got != nil {
		t.Fatalf("no split expected, got %v", got)
	}
	if got := PartDurations(time.Minute, 0); got != nil {
		t.Fatalf("no limit means no split, got %v", got)
	}
	got := PartDurations(150*time.Second, 60*time.Second)
	if len(got) != 3 || got[0] != 50*time.Second || got[2] != 50*time.Second {
		t.Fatalf("unexpected parts %v", got)
	}
	got = PartDurations(61*time.Second+1, 60*time.Second)
	var total time.Duration
	for _, d := range got {
		total += d
		if d > 60*time.Second {
			t.Fatalf("part %s exceeds the limit", d)
		}
	}
	if len(got) != 2 || total != 61*time.Second+1 {
		t.Fatalf("parts must cover the whole video: %v", got)
	}
}

func TestAssembleSplitsLongVideos(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, 150*time.Second)
	res, err := fx.assembler(Options{MaxDuration: time.Minute, SplitParts: true}).Assemble(context.Background(), fx.request("title"))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(res.Parts) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(res.Parts))
	}
	for i, p := range res.Parts {
		if p.Duration != 50*time.Second {
			t.Fatalf("part %d has duration %s", i, p.Duration)
		}
		if _, err := os.Stat(p.Path); err != nil {
			t.Fatalf("part %d missing: %v", i, err)
		}
	}
	if _, err := os.Stat(res.Video.Path); err != nil {
		t.Fatalf("full video must be kept: %v", err)
	}
}
