// Package tts adapts speech-synthesis backends. Every backend exposes the
// same two single-purpose requests: one that reports word boundaries and one
// that writes audio. Callers correlate them only through the input text.
package tts

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ErrNoAudio is returned when the backend produced no audio for the input.
var ErrNoAudio = errors.New("no audio received")

// Boundary is one timed speech unit reported by a backend.
type Boundary struct {
	Text     string
	Offset   time.Duration
	Duration time.Duration
}

// Client is a speech-synthesis backend.
type Client interface {
	// StreamBoundaries runs one synthesis request and calls emit for each
	// word boundary in the order the backend reports them.
	StreamBoundaries(ctx context.Context, text string, emit func(Boundary) error) error

	// Save runs one synthesis request and writes the audio to path.
	Save(ctx context.Context, text, path string) error
}
