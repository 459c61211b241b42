package platform

import (
	"fmt"
	"sort"
)

// Platform describes the canvas and encoder settings a finished story video targets.
type Platform interface {
	// GetName returns the platform name
	GetName() string

	// GetDimensions returns the exact output canvas
	GetDimensions() (width, height int)

	// GetMaxDuration returns the longest video the platform accepts, in seconds
	GetMaxDuration() int

	// GetCaptionMargin returns the bottom margin, in pixels, that keeps burned
	// captions clear of the platform's own overlay controls
	GetCaptionMargin() int

	GetVideoCodec() string
	GetAudioCodec() string
	GetVideoBitrate() string
	GetAudioBitrate() string

	// GetOutputFormat returns the container extension without the dot
	GetOutputFormat() string
}

// Profile is a Platform described by plain values.
type Profile struct {
	Name          string
	Width         int
	Height        int
	MaxDuration   int
	CaptionMargin int
	VideoCodec    string
	AudioCodec    string
	VideoBitrate  string
	AudioBitrate  string
	Format        string
}

func (p *Profile) GetName() string                    { return p.Name }
func (p *Profile) GetDimensions() (width, height int) { return p.Width, p.Height }
func (p *Profile) GetMaxDuration() int                { return p.MaxDuration }
func (p *Profile) GetCaptionMargin() int              { return p.CaptionMargin }
func (p *Profile) GetVideoCodec() string              { return p.VideoCodec }
func (p *Profile) GetAudioCodec() string              { return p.AudioCodec }
func (p *Profile) GetVideoBitrate() string            { return p.VideoBitrate }
func (p *Profile) GetAudioBitrate() string            { return p.AudioBitrate }
func (p *Profile) GetOutputFormat() string            { return p.Format }

var platforms = make(map[string]Platform)

// Register adds a platform to the registry
func Register(p Platform) {
	platforms[p.GetName()] = p
}

// Get returns a platform by name
func Get(name string) (Platform, error) {
	p, ok := platforms[name]
	if !ok {
		return nil, fmt.Errorf("unsupported platform: %s", name)
	}
	return p, nil
}

// GetSupportedPlatforms returns the registered platform names in sorted order
func GetSupportedPlatforms() []string {
	names := make([]string, 0, len(platforms))
	for name := range platforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsPortrait reports whether the platform canvas is taller than it is wide
func IsPortrait(p Platform) bool {
	w, h := p.GetDimensions()
	return h > w
}
