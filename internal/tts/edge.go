package tts

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ZacxDev/story-reels/internal/fault"
	"github.com/pkg/errors"
)

// EdgeOptions configures the edge-tts CLI.
type EdgeOptions struct {
	Binary string
	Voice  string
	Rate   string
	Volume string
}

// EdgeClient drives the edge-tts command line tool.
type EdgeClient struct {
	opts EdgeOptions
}

func NewEdgeClient(opts EdgeOptions) *EdgeClient {
	if opts.Binary == "" {
		opts.Binary = "edge-tts"
	}
	return &EdgeClient{opts: opts}
}

// noAudioMarker is what edge-tts prints when the service returned no audio frames.
const noAudioMarker = "No audio was received"

func (c *EdgeClient) Save(ctx context.Context, text, path string) error {
	return c.run(ctx, text, "--write-media", path)
}

func (c *EdgeClient) StreamBoundaries(ctx context.Context, text string, emit func(Boundary) error) error {
	scratch, err := os.MkdirTemp("", "edge_captions_")
	if err != nil {
		return errors.Wrap(err, "create caption scratch dir")
	}
	defer os.RemoveAll(scratch)

	subs := filepath.Join(scratch, "captions.vtt")
	if err := c.run(ctx, text,
		"--write-media", filepath.Join(scratch, "discard.mp3"),
		"--write-subtitles", subs,
	); err != nil {
		return err
	}

	f, err := os.Open(subs)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNoAudio
		}
		return errors.Wrap(err, "open captions")
	}
	defer f.Close()

	// edge-tts groups words into phrase or sentence cues depending on the
	// release; callers get one boundary per word either way.
	return ParseCues(f, func(b Boundary) error {
		return SplitWords(b, emit)
	})
}

// SplitWords emits one boundary per word of a multi-word cue. The cue's span
// is shared out in proportion to each word's length, and the last word ends
// exactly where the cue ends.
func SplitWords(b Boundary, emit func(Boundary) error) error {
	words := strings.Fields(b.Text)
	if len(words) <= 1 {
		return emit(b)
	}

	total := 0
	for _, w := range words {
		total += utf8.RuneCountInString(w)
	}

	var (
		offset = b.Offset
		used   int
	)
	for i, w := range words {
		used += utf8.RuneCountInString(w)
		end := b.Offset + b.Duration*time.Duration(used)/time.Duration(total)
		if i == len(words)-1 {
			end = b.Offset + b.Duration
		}
		if err := emit(Boundary{Text: w, Offset: offset, Duration: end - offset}); err != nil {
			return err
		}
		offset = end
	}
	return nil
}

func (c *EdgeClient) run(ctx context.Context, text string, extra ...string) error {
	bin, err := exec.LookPath(c.opts.Binary)
	if err != nil {
		return fault.New(fault.KindExternalToolUnavailable, "edge-tts lookup", err)
	}

	args := []string{"--text", text}
	if c.opts.Voice != "" {
		args = append(args, "--voice", c.opts.Voice)
	}
	if c.opts.Rate != "" {
		args = append(args, "--rate="+c.opts.Rate)
	}
	if c.opts.Volume != "" {
		args = append(args, "--volume="+c.opts.Volume)
	}
	args = append(args, extra...)

	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if strings.Contains(stderr.String(), noAudioMarker) {
			return ErrNoAudio
		}
		if ctx.Err() != nil {
			return errors.Wrap(ctx.Err(), "edge-tts")
		}
		return errors.Wrapf(err, "edge-tts: %s", strings.TrimSpace(stderr.String()))
	}
	return nil
}

var cueTimingRe = regexp.MustCompile(`^(\d+):(\d{2}):(\d{2})[.,](\d{3})\s*-->\s*(\d+):(\d{2}):(\d{2})[.,](\d{3})`)

// ParseCues reads WebVTT or SubRip cues and emits one boundary per cue.
// Headers, cue indices and styling lines outside a cue are ignored.
func ParseCues(r io.Reader, emit func(Boundary) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		inCue      bool
		start, end time.Duration
		lines      []string
	)

	flush := func() error {
		if !inCue {
			return nil
		}
		inCue = false
		text := strings.TrimSpace(strings.Join(lines, " "))
		lines = lines[:0]
		if text == "" {
			return nil
		}
		return emit(Boundary{Text: text, Offset: start, Duration: end - start})
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if m := cueTimingRe.FindStringSubmatch(line); m != nil {
			if err := flush(); err != nil {
				return err
			}
			start = clockToDuration(m[1], m[2], m[3], m[4])
			end = clockToDuration(m[5], m[6], m[7], m[8])
			inCue = true
			continue
		}
		if strings.TrimSpace(line) == "" {
			if err := flush(); err != nil {
				return err
			}
			continue
		}
		if inCue {
			lines = append(lines, strings.TrimSpace(line))
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "read captions")
	}
	return flush()
}

func clockToDuration(h, m, s, ms string) time.Duration {
	hours, _ := strconv.Atoi(h)
	minutes, _ := strconv.Atoi(m)
	seconds, _ := strconv.Atoi(s)
	millis, _ := strconv.Atoi(ms)
	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond
}
