package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/ZacxDev/story-reels/internal/fault"
	"github.com/ZacxDev/story-reels/internal/logging"
	"github.com/ZacxDev/story-reels/internal/platform"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Keep the end of ffmpeg's stderr; the cause is almost always in the last lines.
const maxDetailBytes = 4096

type Options struct {
	Binary   string
	Timeout  time.Duration
	FPS      int
	Platform platform.Platform
	Logger   *slog.Logger
}

const probeBinary = "ffprobe"

// Processor runs ffmpeg and ffprobe for the assembler. Every invocation is
// bounded by Timeout and classified with the fault kinds.
type Processor struct {
	binary   string
	timeout  time.Duration
	fps      int
	platform platform.Platform
	logger   *slog.Logger
}

// NewProcessor creates a new FFmpeg processor
func NewProcessor(opts Options) *Processor {
	if opts.Binary == "" {
		opts.Binary = "ffmpeg"
	}
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Processor{
		binary:   opts.Binary,
		timeout:  opts.Timeout,
		fps:      opts.FPS,
		platform: opts.Platform,
		logger:   opts.Logger.With("component", "ffmpeg"),
	}
}

// Available reports whether the ffmpeg binary can be found.
func (p *Processor) Available() error {
	if _, err := exec.LookPath(p.binary); err != nil {
		return fault.New(fault.KindExternalToolUnavailable, "locate "+p.binary, err)
	}
	return nil
}

func (p *Processor) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout > 0 {
		return context.WithTimeout(ctx, p.timeout)
	}
	return context.WithCancel(ctx)
}

// run executes the compiled stream under the processor's timeout.
func (p *Processor) run(ctx context.Context, op string, stream *ffmpeg.Stream) error {
	return p.exec(ctx, op, p.binary, stream.GetArgs())
}

func (p *Processor) exec(ctx context.Context, op, binary string, args []string) error {
	bin, err := exec.LookPath(binary)
	if err != nil {
		return fault.New(fault.KindExternalToolUnavailable, op, err)
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	p.logger.Debug("running", "op", op, "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = 2 * time.Second

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fault.WithDetail(fault.KindExternalTimeout, op, tail(stderr.String()), ctx.Err())
		}
		if ctx.Err() != nil {
			return fault.New(fault.KindExternalToolFailed, op, ctx.Err())
		}
		return fault.WithDetail(fault.KindExternalToolFailed, op, tail(stderr.String()), err)
	}

	p.logger.Debug("finished", "op", op, "elapsed", time.Since(start))
	return nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxDetailBytes {
		return s
	}
	return s[len(s)-maxDetailBytes:]
}

// encoderArgs returns output kwargs for the video stream of the target platform.
func (p *Processor) encoderArgs() ffmpeg.KwArgs {
	kw := ffmpeg.KwArgs{
		"pix_fmt":    "yuv420p",
		"r":          p.fps,
		"threads":    GetOptimalThreadCount(),
		"g":          p.fps * 2,
		"keyint_min": p.fps,
	}
	if p.platform == nil {
		kw["c:v"] = "libx264"
		kw["preset"] = "medium"
		return kw
	}

	kw["c:v"] = p.platform.GetVideoCodec()
	bitrate := p.platform.GetVideoBitrate()
	kw["b:v"] = bitrate

	switch p.platform.GetVideoCodec() {
	case "libx264":
		kw["profile:v"] = "high"
		kw["level"] = "4.0"
		kw["preset"] = "medium"
		kw["x264opts"] = "no-scenecut"
		kw["maxrate"] = bitrate
		kw["bufsize"] = FormatBitrate(2 * ParseBitrate(bitrate))
	case "libvpx-vp9":
		kw["deadline"] = "good"
		kw["cpu-used"] = 2
		kw["row-mt"] = 1
	}
	return kw
}

func (p *Processor) audioArgs(kw ffmpeg.KwArgs) ffmpeg.KwArgs {
	if p.platform == nil {
		kw["c:a"] = "aac"
		kw["b:a"] = "128k"
		return kw
	}
	kw["c:a"] = p.platform.GetAudioCodec()
	kw["b:a"] = p.platform.GetAudioBitrate()
	return kw
}

// Extension returns the output container extension, with the dot.
func (p *Processor) Extension() string {
	if p.platform == nil {
		return ".mp4"
	}
	return "." + p.platform.GetOutputFormat()
}

func GetOptimalThreadCount() int {
	cpuCount := runtime.NumCPU()
	// Use 75% of available cores to prevent overload
	return int(math.Max(1, float64(cpuCount)*0.75))
}

// ParseBitrate converts "2M", "128k" or "500000" to bits per second.
// Unparseable values fall back to 2M.
func ParseBitrate(bitrate string) int {
	b := strings.TrimSpace(bitrate)
	mult := 1
	switch {
	case strings.HasSuffix(b, "M"):
		mult, b = 1_000_000, strings.TrimSuffix(b, "M")
	case strings.HasSuffix(b, "k"):
		mult, b = 1000, strings.TrimSuffix(b, "k")
	}
	v, err := strconv.ParseFloat(b, 64)
	if err != nil || v <= 0 {
		return 2_000_000
	}
	return int(v * float64(mult))
}

// FormatBitrate renders bits per second the way ffmpeg options expect.
func FormatBitrate(bps int) string {
	switch {
	case bps >= 1_000_000 && bps%1_000_000 == 0:
		return fmt.Sprintf("%dM", bps/1_000_000)
	case bps >= 1000:
		return fmt.Sprintf("%dk", bps/1000)
	default:
		return strconv.Itoa(bps)
	}
}

// EnsureExtension swaps any known video extension on filename for extension.
func EnsureExtension(filename, extension string) string {
	for _, ext := range []string{".mp4", ".webm", ".mkv", ".avi", ".mov"} {
		filename = strings.TrimSuffix(filename, ext)
	}
	return filename + extension
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
