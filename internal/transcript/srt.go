package transcript

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// CueOptions controls how word events are grouped into subtitle cues.
type CueOptions struct {
	MaxWords int
	// A silence longer than MaxGap always starts a new cue.
	MaxGap time.Duration
}

var DefaultCueOptions = CueOptions{MaxWords: 4, MaxGap: 700 * time.Millisecond}

// Cues groups consecutive events into short phrases for on-screen captions.
func Cues(t Transcript, opts CueOptions) []CaptionEvent {
	if opts.MaxWords <= 0 {
		opts.MaxWords = 1
	}

	var (
		cues  []CaptionEvent
		words []string
		cur   CaptionEvent
	)
	flush := func() {
		if len(words) == 0 {
			return
		}
		cur.Text = strings.Join(words, " ")
		cues = append(cues, cur)
		words = words[:0]
	}

	for _, ev := range t.Events {
		n := len(strings.Fields(ev.Text))
		gap := ev.Start - cur.End
		if len(words) > 0 && (len(words)+n > opts.MaxWords || (opts.MaxGap > 0 && gap > opts.MaxGap)) {
			flush()
		}
		if len(words) == 0 {
			cur = CaptionEvent{Start: ev.Start}
		}
		words = append(words, ev.Text)
		if ev.End > cur.End {
			cur.End = ev.End
		}
	}
	flush()
	return cues
}

// WriteSRT writes t as SubRip, one cue per phrase.
func WriteSRT(w io.Writer, t Transcript, opts CueOptions) error {
	bw := bufio.NewWriter(w)
	for i, cue := range Cues(t, opts) {
		if _, err := fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n\n",
			i+1, formatClock(cue.Start, ','), formatClock(cue.End, ','), cue.Text); err != nil {
			return errors.Wrap(err, "write srt")
		}
	}
	return errors.Wrap(bw.Flush(), "write srt")
}

func WriteSRTFile(path string, t Transcript, opts CueOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := WriteSRT(f, t, opts); err != nil {
		f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}
