package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZacxDev/story-reels/internal/normalize"
	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// DefaultCaptionStyle is the libass style used when burning subtitles.
const DefaultCaptionStyle = "FontName=Arial,FontSize=14,Bold=1,PrimaryColour=&H00FFFFFF,OutlineColour=&H00000000,Outline=2,Alignment=2,MarginV=60"

// subtitlePlayResY is the script height libass assumes for SRT input; style
// margins are measured against it, not against the video.
const subtitlePlayResY = 288

// CaptionStyle returns the default style with the bottom margin set from a
// pixel margin on a canvas of the given height.
func CaptionStyle(marginPx, height int) string {
	if marginPx <= 0 || height <= 0 {
		return DefaultCaptionStyle
	}
	base := strings.TrimSuffix(DefaultCaptionStyle, ",MarginV=60")
	return fmt.Sprintf("%s,MarginV=%d", base, marginPx*subtitlePlayResY/height)
}

func applyPlan(s *ffmpeg.Stream, plan normalize.Plan, padColor string) *ffmpeg.Stream {
	for _, f := range plan.Filters(padColor) {
		s = s.Filter(f.Name, ffmpeg.Args(f.Args))
	}
	return s
}

func (p *Processor) stillStream(image string, d time.Duration, plan normalize.Plan, out string) *ffmpeg.Stream {
	in := ffmpeg.Input(image, ffmpeg.KwArgs{
		"loop":      1,
		"framerate": p.fps,
		"t":         seconds(d),
	})
	kw := p.encoderArgs()
	kw["an"] = ""
	if kw["c:v"] == "libx264" {
		kw["tune"] = "stillimage"
	}
	return applyPlan(in, plan, "black").Output(out, kw).OverWriteOutput()
}

// StillToVideo loops a still image into a silent segment of length d,
// normalized to the plan's target.
func (p *Processor) StillToVideo(ctx context.Context, image string, d time.Duration, plan normalize.Plan, out string) error {
	if d <= 0 {
		return errors.Errorf("still segment needs a positive duration, got %s", d)
	}
	return p.run(ctx, "still to video", p.stillStream(image, d, plan, out))
}

func (p *Processor) normalizeStream(in string, plan normalize.Plan, maxDur time.Duration, out string) *ffmpeg.Stream {
	inKw := ffmpeg.KwArgs{}
	if maxDur > 0 {
		// Loop short backgrounds so the segment always reaches maxDur.
		inKw["stream_loop"] = -1
		inKw["t"] = seconds(maxDur)
	}
	s := applyPlan(ffmpeg.Input(in, inKw), plan, "black").
		Filter("fps", ffmpeg.Args{fmt.Sprint(p.fps)})
	kw := p.encoderArgs()
	kw["an"] = ""
	return s.Output(out, kw).OverWriteOutput()
}

// NormalizeVideo re-encodes a video to the plan's target with the same codec
// settings as still segments so the two can be concatenated without re-encoding.
// Audio is dropped. A positive maxDur fixes the segment length, looping the
// input when it is shorter.
func (p *Processor) NormalizeVideo(ctx context.Context, in string, plan normalize.Plan, maxDur time.Duration, out string) error {
	return p.run(ctx, "normalize video", p.normalizeStream(in, plan, maxDur, out))
}

// WriteConcatManifest writes a concat demuxer list for segments.
func WriteConcatManifest(manifest string, segments []string) error {
	var b strings.Builder
	for _, seg := range segments {
		abs, err := filepath.Abs(seg)
		if err != nil {
			return errors.WithStack(err)
		}
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	return errors.Wrap(os.WriteFile(manifest, []byte(b.String()), 0644), "write concat manifest")
}

func concatStream(manifest, out string) *ffmpeg.Stream {
	return ffmpeg.Input(manifest, ffmpeg.KwArgs{"f": "concat", "safe": 0}).
		Output(out, ffmpeg.KwArgs{"c": "copy"}).
		OverWriteOutput()
}

// Concat joins segments in order through a manifest file at manifest.
// Segments must share codec parameters.
func (p *Processor) Concat(ctx context.Context, segments []string, manifest, out string) error {
	if len(segments) == 0 {
		return errors.New("nothing to concatenate")
	}
	if err := WriteConcatManifest(manifest, segments); err != nil {
		return err
	}
	return p.run(ctx, "concat", concatStream(manifest, out))
}

func (p *Processor) muxStream(video, audio string, maxDur time.Duration, out string) *ffmpeg.Stream {
	kw := p.audioArgs(ffmpeg.KwArgs{
		"c:v":      "copy",
		"shortest": "",
		"movflags": "+faststart",
	})
	if maxDur > 0 {
		kw["t"] = seconds(maxDur)
	}
	v := ffmpeg.Input(video).Video()
	a := ffmpeg.Input(audio).Audio()
	return ffmpeg.Output([]*ffmpeg.Stream{v, a}, out, kw).OverWriteOutput()
}

// Mux attaches the audio track to the video, ending at the shorter of the two.
// A positive maxDur caps the result further.
func (p *Processor) Mux(ctx context.Context, video, audio string, maxDur time.Duration, out string) error {
	return p.run(ctx, "mux", p.muxStream(video, audio, maxDur, out))
}

func (p *Processor) burnStream(video, subtitles, style, out string) *ffmpeg.Stream {
	if style == "" {
		style = p.captionStyle()
	}
	in := ffmpeg.Input(video)
	v := in.Video().Filter("subtitles", ffmpeg.Args{subtitles}, ffmpeg.KwArgs{"force_style": style})
	kw := p.encoderArgs()
	kw["c:a"] = "copy"
	kw["movflags"] = "+faststart"
	return ffmpeg.Output([]*ffmpeg.Stream{v, in.Audio()}, out, kw).OverWriteOutput()
}

func (p *Processor) captionStyle() string {
	if p.platform == nil {
		return DefaultCaptionStyle
	}
	_, h := p.platform.GetDimensions()
	return CaptionStyle(p.platform.GetCaptionMargin(), h)
}

// BurnCaptions renders an SRT file into the video frames.
func (p *Processor) BurnCaptions(ctx context.Context, video, subtitles, style, out string) error {
	return p.run(ctx, "burn captions", p.burnStream(video, subtitles, style, out))
}

func (p *Processor) segmentStream(in string, start, d time.Duration, out string) *ffmpeg.Stream {
	src := ffmpeg.Input(in, ffmpeg.KwArgs{"ss": seconds(start), "t": seconds(d)})
	kw := p.audioArgs(p.encoderArgs())
	kw["movflags"] = "+faststart"
	return ffmpeg.Output([]*ffmpeg.Stream{src.Video(), src.Audio()}, out, kw).OverWriteOutput()
}

// Segment re-encodes the [start, start+d) window of in.
func (p *Processor) Segment(ctx context.Context, in string, start, d time.Duration, out string) error {
	return p.run(ctx, "segment", p.segmentStream(in, start, d, out))
}
