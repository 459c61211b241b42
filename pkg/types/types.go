package types

import "time"

type AssetKind string

const (
	AssetKindAudio AssetKind = "audio"
	AssetKindImage AssetKind = "image"
	AssetKindVideo AssetKind = "video"
	// Transcripts are not media, but they live next to the media in a story's subtree.
	AssetKindTranscript AssetKind = "transcript"
)

// Asset is a file produced for one story. The concrete types form a closed set.
type Asset interface {
	Kind() AssetKind
	FilePath() string
	isAsset()
}

type AudioAsset struct {
	Path     string        `json:"path"`
	Duration time.Duration `json:"duration"`
}

type ImageAsset struct {
	Path   string `json:"path"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type VideoAsset struct {
	Path     string        `json:"path"`
	Width    int           `json:"width"`
	Height   int           `json:"height"`
	Duration time.Duration `json:"duration"`
}

type TranscriptAsset struct {
	Path   string `json:"path"`
	Events int    `json:"events"`
}

func (a AudioAsset) Kind() AssetKind      { return AssetKindAudio }
func (a ImageAsset) Kind() AssetKind      { return AssetKindImage }
func (a VideoAsset) Kind() AssetKind      { return AssetKindVideo }
func (a TranscriptAsset) Kind() AssetKind { return AssetKindTranscript }

func (a AudioAsset) FilePath() string      { return a.Path }
func (a ImageAsset) FilePath() string      { return a.Path }
func (a VideoAsset) FilePath() string      { return a.Path }
func (a TranscriptAsset) FilePath() string { return a.Path }

func (AudioAsset) isAsset()      {}
func (ImageAsset) isAsset()      {}
func (VideoAsset) isAsset()      {}
func (TranscriptAsset) isAsset() {}

// AssetRecord is the flattened form of an Asset used in run reports.
type AssetRecord struct {
	Kind       AssetKind `json:"kind"`
	Path       string    `json:"path"`
	Width      int       `json:"width,omitempty"`
	Height     int       `json:"height,omitempty"`
	DurationMs int64     `json:"duration_ms,omitempty"`
	Events     int       `json:"events,omitempty"`
}

// Record flattens any asset for serialization.
func Record(a Asset) AssetRecord {
	rec := AssetRecord{Kind: a.Kind(), Path: a.FilePath()}
	switch v := a.(type) {
	case AudioAsset:
		rec.DurationMs = v.Duration.Milliseconds()
	case ImageAsset:
		rec.Width, rec.Height = v.Width, v.Height
	case VideoAsset:
		rec.Width, rec.Height = v.Width, v.Height
		rec.DurationMs = v.Duration.Milliseconds()
	case TranscriptAsset:
		rec.Events = v.Events
	}
	return rec
}
