// Package transcript turns speech-synthesis word boundaries into a time-coded
// transcript and persists it.
package transcript

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// CaptionEvent is one spoken unit on the narration timeline.
type CaptionEvent struct {
	Text  string
	Start time.Duration
	End   time.Duration
}

// Transcript is the ordered narration timeline of one story. It may be empty.
type Transcript struct {
	Events []CaptionEvent
}

func (t Transcript) Len() int { return len(t.Events) }

// End is the end offset of the last event.
func (t Transcript) End() time.Duration {
	if len(t.Events) == 0 {
		return 0
	}
	return t.Events[len(t.Events)-1].End
}

// Text joins every event's text with single spaces.
func (t Transcript) Text() string {
	parts := make([]string, 0, len(t.Events))
	for _, ev := range t.Events {
		parts = append(parts, ev.Text)
	}
	return strings.Join(parts, " ")
}

// Validate checks that starts never decrease, every event ends after it
// starts and no text is empty or spans lines.
func (t Transcript) Validate() error {
	var prev time.Duration
	for i, ev := range t.Events {
		switch {
		case strings.TrimSpace(ev.Text) == "":
			return errors.Errorf("event %d: empty text", i)
		case strings.ContainsAny(ev.Text, "\r\n"):
			return errors.Errorf("event %d: text spans lines", i)
		case ev.Start < 0:
			return errors.Errorf("event %d: negative start %s", i, ev.Start)
		case ev.End <= ev.Start:
			return errors.Errorf("event %d: end %s not after start %s", i, ev.End, ev.Start)
		case ev.Start < prev:
			return errors.Errorf("event %d: start %s before previous start %s", i, ev.Start, prev)
		}
		prev = ev.Start
	}
	return nil
}
