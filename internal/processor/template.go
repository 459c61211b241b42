package processor

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/ZacxDev/story-reels/internal/fault"
	"github.com/ZacxDev/story-reels/internal/normalize"
	"github.com/ZacxDev/story-reels/pkg/types"
	"github.com/pkg/errors"
)

// Mode names the input combination an assembly used.
type Mode string

const (
	// ModeStill is the title card held over the narration.
	ModeStill Mode = "still"
	// ModeBackground is the title card followed by the background template.
	ModeBackground Mode = "background"
	// ModeBackgroundOnly is the background template without a title card.
	ModeBackgroundOnly Mode = "background_only"
)

// Request carries one story's inputs. Image is nil when no title card exists.
type Request struct {
	Slug      string
	Dir       string
	Title     string
	Audio     types.AudioAsset
	Image     *types.ImageAsset
	Subtitles string
}

type Result struct {
	Mode  Mode
	Video types.VideoAsset
	Parts []types.VideoAsset
	// Overlay is how long the title card is shown; zero without one.
	Overlay time.Duration
	// Narration is the probed length of the audio track.
	Narration time.Duration
}

// Assemble produces the story's video in req.Dir. Scratch files live in a
// private temporary directory under req.Dir that is removed on every return.
func (a *Assembler) Assemble(ctx context.Context, req Request) (Result, error) {
	const op = "assemble"
	logger := a.logger.With("slug", req.Slug)

	if !fileExists(req.Audio.Path) {
		return Result{}, fault.Newf(fault.KindSourceMissing, op, "narration audio %q not found", req.Audio.Path)
	}

	hasImage := req.Image != nil && fileExists(req.Image.Path)
	useBackground := false
	if a.opts.Background != "" {
		switch {
		case fileExists(a.opts.Background):
			useBackground = true
		case a.opts.BackgroundRequired:
			logger.Warn("skipping video: background template missing", "background", a.opts.Background)
			return Result{}, fault.Newf(fault.KindSourceMissing, op, "background template %q not found", a.opts.Background)
		default:
			logger.Info("background template missing, using title card only", "background", a.opts.Background)
		}
	}
	if !hasImage && !useBackground {
		return Result{}, fault.Newf(fault.KindSourceMissing, op, "no title card or background to show")
	}

	audio := req.Audio
	if audio.Duration <= 0 {
		md, err := a.backend.Probe(ctx, audio.Path)
		if err != nil {
			return Result{}, errors.Wrap(err, "probe narration")
		}
		audio.Duration = md.Duration
	}

	tmp, err := os.MkdirTemp(req.Dir, a.opts.TempPrefix+req.Slug+"_")
	if err != nil {
		return Result{}, errors.Wrap(err, "create assembly scratch dir")
	}
	defer os.RemoveAll(tmp)

	ext := a.backend.Extension()
	scratch := func(name string) string { return filepath.Join(tmp, name+ext) }

	var (
		res   = Result{Narration: audio.Duration}
		video string
	)
	switch {
	case hasImage && !useBackground:
		res.Mode = ModeStill
		res.Overlay = a.OverlayDuration(req.Title)
		video, err = a.stillSegment(ctx, *req.Image, maxDuration(audio.Duration, res.Overlay), scratch("title"))
	case hasImage:
		res.Mode = ModeBackground
		res.Overlay = a.OverlayDuration(req.Title)
		video, err = a.backgroundTimeline(ctx, req.Image, res.Overlay, audio.Duration, tmp, scratch)
	default:
		res.Mode = ModeBackgroundOnly
		video, err = a.backgroundTimeline(ctx, nil, 0, audio.Duration, tmp, scratch)
	}
	if err != nil {
		return Result{}, err
	}

	muxed := scratch("muxed")
	if err := a.backend.Mux(ctx, video, audio.Path, 0, muxed); err != nil {
		return Result{}, err
	}

	out, err := ensureOutputPath(req.Dir, req.Slug, ext)
	if err != nil {
		return Result{}, err
	}
	if err := a.finish(ctx, muxed, req.Subtitles, out); err != nil {
		return Result{}, err
	}

	md, err := a.backend.Probe(ctx, out)
	if err != nil {
		_ = os.Remove(out)
		return Result{}, errors.Wrap(err, "probe assembled video")
	}
	res.Video = videoAsset(out, md)

	if parts, err := a.split(ctx, res.Video, req); err != nil {
		logger.Warn("splitting into parts failed, keeping full video", "error", err)
	} else {
		res.Parts = parts
	}

	logger.Info("assembled video", "mode", res.Mode, "duration", res.Video.Duration, "overlay", res.Overlay, "path", out)
	return res, nil
}

// stillSegment loops the title card for d, padded onto the canvas.
func (a *Assembler) stillSegment(ctx context.Context, img types.ImageAsset, d time.Duration, out string) (string, error) {
	plan, err := normalize.Compute(
		normalize.Dimensions{Width: img.Width, Height: img.Height},
		a.opts.Canvas,
		normalize.ScalePad,
	)
	if err != nil {
		return "", errors.Wrap(err, "plan title card")
	}
	if err := a.backend.StillToVideo(ctx, img.Path, d, plan, out); err != nil {
		return "", err
	}
	return out, nil
}

// backgroundTimeline builds [title card (overlay), background] where the
// background fills the rest of the narration. Without a title card the
// background covers the whole narration.
func (a *Assembler) backgroundTimeline(ctx context.Context, img *types.ImageAsset, overlay, narration time.Duration, tmp string, scratch func(string) string) (string, error) {
	var segments []string
	if img != nil {
		title, err := a.stillSegment(ctx, *img, overlay, scratch("title"))
		if err != nil {
			return "", err
		}
		segments = append(segments, title)
	}

	if remaining := narration - overlay; remaining > 0 {
		md, err := a.backend.Probe(ctx, a.opts.Background)
		if err != nil {
			return "", errors.Wrap(err, "probe background")
		}
		plan, err := normalize.Compute(
			normalize.Dimensions{Width: md.Width, Height: md.Height},
			a.opts.Canvas,
			normalize.ScaleCrop,
		)
		if err != nil {
			return "", errors.Wrap(err, "plan background")
		}
		bg := scratch("background")
		if err := a.backend.NormalizeVideo(ctx, a.opts.Background, plan, remaining, bg); err != nil {
			return "", err
		}
		segments = append(segments, bg)
	}

	if len(segments) == 1 {
		return segments[0], nil
	}
	joined := scratch("joined")
	if err := a.backend.Concat(ctx, segments, filepath.Join(tmp, "concat.txt"), joined); err != nil {
		return "", err
	}
	return joined, nil
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
