// Package storyreels wires configuration, story sources, speech synthesis,
// title cards and the media backend into one runnable pipeline.
package storyreels

import (
	"context"
	"log/slog"
	"time"

	"github.com/ZacxDev/story-reels/internal/config"
	"github.com/ZacxDev/story-reels/internal/fault"
	"github.com/ZacxDev/story-reels/internal/ffmpeg"
	"github.com/ZacxDev/story-reels/internal/logging"
	"github.com/ZacxDev/story-reels/internal/normalize"
	"github.com/ZacxDev/story-reels/internal/pipeline"
	"github.com/ZacxDev/story-reels/internal/platform"
	"github.com/ZacxDev/story-reels/internal/processor"
	"github.com/ZacxDev/story-reels/internal/story"
	"github.com/ZacxDev/story-reels/internal/titlecard"
	"github.com/ZacxDev/story-reels/internal/transcript"
	"github.com/ZacxDev/story-reels/internal/tts"
	"github.com/pkg/errors"
)

// RunOptions are the command-line overrides applied on top of the loaded config.
type RunOptions struct {
	ConfigPath  string
	StoriesFile string
	OutputRoot  string
	Platform    string
	Limit       int
	Verbose     bool
}

// App is one fully wired pipeline.
type App struct {
	cfg          config.Config
	source       story.Source
	media        *ffmpeg.Processor
	orchestrator *pipeline.Orchestrator
	logger       *slog.Logger
}

// Run loads configuration, applies opts and executes a single batch.
func Run(ctx context.Context, opts *RunOptions) (pipeline.Report, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return pipeline.Report{}, err
	}
	applyRunOptions(&cfg, opts)

	logger := logging.New(cfg.Logging.Level)
	source, err := NewSource(cfg.Reddit, opts.StoriesFile)
	if err != nil {
		return pipeline.Report{}, err
	}
	app, err := NewApp(cfg, source, logger)
	if err != nil {
		return pipeline.Report{}, err
	}
	return app.Execute(ctx)
}

func applyRunOptions(cfg *config.Config, opts *RunOptions) {
	if opts.OutputRoot != "" {
		cfg.Pipeline.OutputRoot = opts.OutputRoot
	}
	if opts.Platform != "" {
		cfg.Video.Platform = opts.Platform
	}
	if opts.Limit > 0 {
		cfg.Reddit.Limit = opts.Limit
	}
	if opts.Verbose {
		cfg.Logging.Level = "debug"
	}
}

// NewSource reads stories from storiesFile when it is set, otherwise from reddit.
func NewSource(cfg config.RedditConfig, storiesFile string) (story.Source, error) {
	if storiesFile != "" {
		return story.FileSource{Path: storiesFile}, nil
	}
	return story.NewRedditSource(cfg)
}

// NewSpeechClient selects the synthesis engine named in the config.
func NewSpeechClient(cfg config.TTSConfig) (tts.Client, error) {
	switch cfg.Engine {
	case "", "edge":
		return tts.NewEdgeClient(tts.EdgeOptions{
			Binary: cfg.Binary,
			Voice:  cfg.Voice,
			Rate:   cfg.Rate,
			Volume: cfg.Volume,
		}), nil
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, errors.New("tts engine openai needs an API key (OPENAI_API_KEY)")
		}
		return tts.NewOpenAIClient(tts.OpenAIOptions{
			APIKey: cfg.OpenAIKey,
			Model:  cfg.OpenAIModel,
			Voice:  cfg.OpenAIVoice,
		}), nil
	default:
		return nil, errors.Errorf("unsupported tts engine: %s", cfg.Engine)
	}
}

// NewApp builds every component from cfg. Nothing touches the filesystem
// until Execute.
func NewApp(cfg config.Config, source story.Source, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	p, err := platform.Get(cfg.Video.Platform)
	if err != nil {
		return nil, err
	}
	width, height := p.GetDimensions()
	canvas := normalize.Dimensions{Width: width, Height: height}

	padColor, err := normalize.ParseHexColor(cfg.Video.PadColor)
	if err != nil {
		return nil, errors.Wrap(err, "video.pad_color")
	}

	speech, err := NewSpeechClient(cfg.TTS)
	if err != nil {
		return nil, err
	}

	media := ffmpeg.NewProcessor(ffmpeg.Options{
		Binary:   cfg.Pipeline.FFmpegBinary,
		Timeout:  cfg.Pipeline.MediaTimeout,
		FPS:      cfg.Video.FPS,
		Platform: p,
		Logger:   logger,
	})

	assembler := processor.NewAssembler(media, processor.Options{
		Canvas:             canvas,
		WordsPerSecond:     cfg.Video.WordsPerSecond,
		MinimumOverlay:     cfg.Video.MinimumOverlay,
		Background:         cfg.Video.Background,
		BackgroundRequired: cfg.Video.BackgroundRequired,
		BurnCaptions:       cfg.Captions.Burn,
		CaptionStyle:       cfg.Captions.Style,
		MaxDuration:        time.Duration(p.GetMaxDuration()) * time.Second,
		SplitParts:         cfg.Video.SplitParts,
		TempPrefix:         config.TempDirPrefix,
		Logger:             logger,
	})

	cues := transcript.DefaultCueOptions
	if cfg.Captions.MaxWords > 0 {
		cues.MaxWords = cfg.Captions.MaxWords
	}

	orchestrator := pipeline.New(
		transcript.NewBuilder(speech, cfg.Pipeline.SynthesisTimeout),
		titlecard.New(titlecard.OptionsFromConfig(cfg.TitleCard)),
		assembler,
		pipeline.Options{
			Concurrency:  cfg.Pipeline.Concurrency,
			Retries:      cfg.Pipeline.Retries,
			RetryBackoff: cfg.Pipeline.RetryBackoff,
			Canvas:       canvas,
			CardFill:     padColor,
			WriteSRT:     cfg.Captions.WriteSRT || cfg.Captions.Burn,
			Cues:         cues,
			Logger:       logger,
		},
	)

	return &App{
		cfg:          cfg,
		source:       source,
		media:        media,
		orchestrator: orchestrator,
		logger:       logger,
	}, nil
}

// Execute fetches the batch, creates a fresh run directory and processes
// every story. Only fetch and run-directory failures are returned; story
// failures live in the report.
func (a *App) Execute(ctx context.Context) (pipeline.Report, error) {
	if err := a.media.Available(); err != nil {
		a.logger.Warn("ffmpeg not found, assembly will fail for every story", "error", err)
	}

	stories, err := a.source.Fetch(ctx)
	if err != nil {
		return pipeline.Report{}, errors.Wrap(err, "fetch stories")
	}
	a.logger.Info("fetched stories", "count", len(stories), "platform", a.cfg.Video.Platform)

	run, err := pipeline.NewRunContext(a.cfg.Pipeline.OutputRoot, time.Now())
	if err != nil {
		return pipeline.Report{}, err
	}
	a.logger.Debug("run directory ready", "run_id", run.ID, "dir", run.Dir)

	return a.orchestrator.Run(ctx, run, stories)
}

// CaptionOptions converts a stored transcript into SubRip cues.
type CaptionOptions struct {
	InputPath  string
	OutputPath string
	MaxWords   int
	MaxGap     time.Duration
}

func WriteCaptions(opts *CaptionOptions) error {
	tr, err := transcript.ReadFile(opts.InputPath)
	if err != nil {
		return err
	}
	cues := transcript.DefaultCueOptions
	if opts.MaxWords > 0 {
		cues.MaxWords = opts.MaxWords
	}
	if opts.MaxGap > 0 {
		cues.MaxGap = opts.MaxGap
	}
	return transcript.WriteSRTFile(opts.OutputPath, tr, cues)
}

// GetVideoMetadata probes a media file with ffprobe.
func GetVideoMetadata(ctx context.Context, path string) (ffmpeg.Metadata, error) {
	if path == "" {
		return ffmpeg.Metadata{}, fault.Newf(fault.KindResourceMissing, "probe", "no input file")
	}
	return ffmpeg.NewProcessor(ffmpeg.Options{}).Probe(ctx, path)
}

// GetSupportedPlatforms returns the names of all registered output platforms.
func GetSupportedPlatforms() []string {
	return platform.GetSupportedPlatforms()
}
