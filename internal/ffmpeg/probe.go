package ffmpeg

import (
	"context"
	"encoding/json"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/ZacxDev/story-reels/internal/fault"
	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Metadata describes a probed media file. Width and Height are zero for
// audio-only files.
type Metadata struct {
	Duration time.Duration
	Width    int
	Height   int
	Codec    string
}

// Probe reads duration and dimensions with ffprobe.
func (p *Processor) Probe(ctx context.Context, path string) (Metadata, error) {
	const op = "ffprobe"

	if _, err := exec.LookPath(probeBinary); err != nil {
		return Metadata{}, fault.New(fault.KindExternalToolUnavailable, op, err)
	}

	timeout := p.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); timeout <= 0 || left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		timeout = time.Minute
	}

	out, err := ffmpeg.ProbeWithTimeout(path, timeout, ffmpeg.KwArgs{})
	if err != nil {
		if ctx.Err() != nil {
			return Metadata{}, fault.FromContext(ctx, fault.KindExternalToolFailed, op, err)
		}
		return Metadata{}, fault.WithDetail(fault.KindExternalToolFailed, op, tail(out), err)
	}

	md, err := ParseProbe(out)
	if err != nil {
		return Metadata{}, fault.New(fault.KindExternalToolFailed, op, errors.Wrapf(err, "probe %s", path))
	}
	return md, nil
}

type probeStream struct {
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Duration   string `json:"duration"`
	NbFrames   string `json:"nb_frames"`
	RFrameRate string `json:"r_frame_rate"`
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ParseProbe extracts metadata from ffprobe's JSON. Duration comes from the
// primary stream, then the container, then frame count over frame rate.
func ParseProbe(raw string) (Metadata, error) {
	var data probeOutput
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return Metadata{}, errors.WithStack(err)
	}
	if len(data.Streams) == 0 {
		return Metadata{}, errors.New("no streams found")
	}

	stream := data.Streams[0]
	for _, s := range data.Streams {
		if s.CodecType == "video" {
			stream = s
			break
		}
	}

	duration := parseSeconds(stream.Duration)
	if duration == 0 {
		duration = parseSeconds(data.Format.Duration)
	}
	if duration == 0 {
		if frames, err := strconv.ParseFloat(stream.NbFrames, 64); err == nil {
			if rate := parseFrameRate(stream.RFrameRate); rate > 0 {
				duration = frames / rate
			}
		}
	}
	if duration == 0 {
		return Metadata{}, errors.New("could not determine duration")
	}

	md := Metadata{
		Duration: time.Duration(duration * float64(time.Second)).Round(time.Millisecond),
		Codec:    stream.CodecName,
	}
	if stream.CodecType == "video" {
		md.Width, md.Height = stream.Width, stream.Height
	}
	return md, nil
}

func parseSeconds(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func parseFrameRate(r string) float64 {
	nums := strings.Split(r, "/")
	if len(nums) != 2 {
		return 0
	}
	num, err1 := strconv.ParseFloat(nums[0], 64)
	den, err2 := strconv.ParseFloat(nums[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}
