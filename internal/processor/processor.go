// Package processor assembles a story's finished video from its narration,
// title card and an optional background template.
package processor

import (
	"context"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZacxDev/story-reels/internal/ffmpeg"
	"github.com/ZacxDev/story-reels/internal/logging"
	"github.com/ZacxDev/story-reels/internal/normalize"
	"github.com/ZacxDev/story-reels/pkg/types"
	"github.com/pkg/errors"
)

// Backend performs the media operations the assembler sequences.
// *ffmpeg.Processor is the production implementation.
type Backend interface {
	Probe(ctx context.Context, path string) (ffmpeg.Metadata, error)
	StillToVideo(ctx context.Context, image string, d time.Duration, plan normalize.Plan, out string) error
	NormalizeVideo(ctx context.Context, in string, plan normalize.Plan, maxDur time.Duration, out string) error
	Concat(ctx context.Context, segments []string, manifest, out string) error
	Mux(ctx context.Context, video, audio string, maxDur time.Duration, out string) error
	BurnCaptions(ctx context.Context, video, subtitles, style, out string) error
	Segment(ctx context.Context, in string, start, d time.Duration, out string) error
	Extension() string
}

type Options struct {
	Canvas             normalize.Dimensions
	WordsPerSecond     float64
	MinimumOverlay     time.Duration
	Background         string
	BackgroundRequired bool
	BurnCaptions       bool
	CaptionStyle       string
	// MaxDuration is the platform's length limit; zero means unlimited.
	MaxDuration time.Duration
	SplitParts  bool
	TempPrefix  string
	Logger      *slog.Logger
}

// Assembler builds finished videos. It holds no per-story state and is safe
// for concurrent use.
type Assembler struct {
	backend Backend
	opts    Options
	logger  *slog.Logger
}

func NewAssembler(backend Backend, opts Options) *Assembler {
	if opts.WordsPerSecond <= 0 {
		opts.WordsPerSecond = 2.5
	}
	if opts.TempPrefix == "" {
		opts.TempPrefix = "assemble_"
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Assembler{
		backend: backend,
		opts:    opts,
		logger:  opts.Logger.With("component", "assembler"),
	}
}

// OverlayDuration is how long the title card stays on screen: the time to
// read the title at wordsPerSecond, never less than minimum.
func OverlayDuration(title string, wordsPerSecond float64, minimum time.Duration) time.Duration {
	words := len(strings.Fields(title))
	if wordsPerSecond <= 0 {
		return minimum
	}
	d := time.Duration(math.Round(float64(words) / wordsPerSecond * float64(time.Second)))
	if d < minimum {
		return minimum
	}
	return d
}

// OverlayDuration applies the assembler's reading-speed settings to title.
func (a *Assembler) OverlayDuration(title string) time.Duration {
	return OverlayDuration(title, a.opts.WordsPerSecond, a.opts.MinimumOverlay)
}

// ensureOutputPath creates the directory of dir/name+ext and returns the path.
func ensureOutputPath(dir, name, ext string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrapf(err, "create %s", dir)
	}
	return ffmpeg.EnsureExtension(filepath.Join(dir, name), ext), nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func videoAsset(path string, md ffmpeg.Metadata) types.VideoAsset {
	return types.VideoAsset{Path: path, Width: md.Width, Height: md.Height, Duration: md.Duration}
}
