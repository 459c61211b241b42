package platform

func init() {
	// Vertical short-form feeds. Captions sit above the like/comment rail and
	// the description overlay.
	Register(&Profile{
		Name: "tiktok", Width: 1080, Height: 1920, MaxDuration: 180, CaptionMargin: 320,
		VideoCodec: "libx264", AudioCodec: "aac", VideoBitrate: "2M", AudioBitrate: "128k", Format: "mp4",
	})
	Register(&Profile{
		Name: "instagram-reel", Width: 1080, Height: 1920, MaxDuration: 90, CaptionMargin: 300,
		VideoCodec: "libx264", AudioCodec: "aac", VideoBitrate: "2M", AudioBitrate: "128k", Format: "mp4",
	})
	Register(&Profile{
		Name: "youtube-shorts", Width: 1080, Height: 1920, MaxDuration: 60, CaptionMargin: 260,
		VideoCodec: "libx264", AudioCodec: "aac", VideoBitrate: "4M", AudioBitrate: "192k", Format: "mp4",
	})

	// Landscape feeds
	Register(&Profile{
		Name: "reddit", Width: 1920, Height: 1080, MaxDuration: 900, CaptionMargin: 60,
		VideoCodec: "libx264", AudioCodec: "aac", VideoBitrate: "4M", AudioBitrate: "192k", Format: "mp4",
	})
	Register(&Profile{
		Name: "x-twitter", Width: 1920, Height: 1200, MaxDuration: 140, CaptionMargin: 80,
		VideoCodec: "libx264", AudioCodec: "aac", VideoBitrate: "2M", AudioBitrate: "128k", Format: "mp4",
	})
}
