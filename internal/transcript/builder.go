package transcript

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/ZacxDev/story-reels/internal/fault"
	"github.com/ZacxDev/story-reels/internal/tts"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Builder synthesizes narration and collects its caption timeline.
//
// The caption pass and the audio pass are two separate requests to the
// synthesis client. They run concurrently and share nothing but the input text.
type Builder struct {
	client  tts.Client
	timeout time.Duration
}

func NewBuilder(client tts.Client, timeout time.Duration) *Builder {
	return &Builder{client: client, timeout: timeout}
}

// Build writes the narration audio to audioPath and returns its transcript.
func (b *Builder) Build(ctx context.Context, text, audioPath string) (Transcript, error) {
	const op = "synthesize"

	if strings.TrimSpace(text) == "" {
		return Transcript{}, fault.Newf(fault.KindSynthesisEmpty, op, "narration text is empty")
	}

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	var events []CaptionEvent
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var c collector
		if err := b.client.StreamBoundaries(gctx, text, c.add); err != nil {
			return errors.Wrap(err, "caption pass")
		}
		events = c.events
		return nil
	})
	g.Go(func() error {
		return errors.Wrap(b.client.Save(gctx, text, audioPath), "audio pass")
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, tts.ErrNoAudio) {
			_ = os.Remove(audioPath)
			return Transcript{}, fault.New(fault.KindSynthesisEmpty, op, err)
		}
		return Transcript{}, fault.FromContext(ctx, fault.KindExternalService, op, err)
	}

	info, err := os.Stat(audioPath)
	if err != nil || info.Size() == 0 {
		_ = os.Remove(audioPath)
		return Transcript{}, fault.Newf(fault.KindSynthesisEmpty, op, "no audio written to %s", audioPath)
	}

	return Transcript{Events: events}, nil
}

// collector normalizes raw boundaries into valid caption events: offsets are
// rounded to milliseconds, starts never move backwards and every event lasts
// at least one millisecond.
type collector struct {
	events []CaptionEvent
	last   time.Duration
}

func (c *collector) add(bd tts.Boundary) error {
	text := strings.Join(strings.Fields(bd.Text), " ")
	if text == "" {
		return nil
	}

	start := bd.Offset.Round(time.Millisecond)
	end := (bd.Offset + bd.Duration).Round(time.Millisecond)
	if start < 0 {
		start = 0
	}
	if start < c.last {
		start = c.last
	}
	if end <= start {
		end = start + time.Millisecond
	}

	c.last = start
	c.events = append(c.events, CaptionEvent{Text: text, Start: start, End: end})
	return nil
}
