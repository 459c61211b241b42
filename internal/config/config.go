package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	// Default output canvas (portrait, TikTok aspect)
	OutputWidth  = 1080
	OutputHeight = 1920

	// Reading speed used to size the title-card segment
	DefaultWordsPerSecond = 2.5
	// Floor for very short titles
	DefaultMinimumOverlay = 3 * time.Second

	DefaultFPS = 30

	// Temporary directory prefix for per-story assembly scratch space
	TempDirPrefix = "assemble_"

	// Longest slug used as a shared base filename
	MaxSlugLength = 50

	DefaultSubreddit = "AmItheAsshole"
	DefaultLimit     = 10
	DefaultVoice     = "en-US-JennyNeural"

	configPathEnv   = "STORY_REELS_CONFIG"
	outputRootEnv   = "STORY_REELS_OUTPUT"
	redditIDEnv     = "REDDIT_CLIENT_ID"
	redditSecretEnv = "REDDIT_CLIENT_SECRET"
	redditAgentEnv  = "REDDIT_USER_AGENT"
	openAIKeyEnv    = "OPENAI_API_KEY"
	concurrencyEnv  = "STORY_REELS_CONCURRENCY"
)

// Config holds every setting the pipeline reads.
type Config struct {
	Reddit    RedditConfig    `yaml:"reddit"`
	TTS       TTSConfig       `yaml:"tts"`
	TitleCard TitleCardConfig `yaml:"titlecard"`
	Video     VideoConfig     `yaml:"video"`
	Captions  CaptionsConfig  `yaml:"captions"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type RedditConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	UserAgent    string `yaml:"user_agent"`
	Subreddit    string `yaml:"subreddit"`
	Limit        int    `yaml:"limit"`
	TimeWindow   string `yaml:"time_window"`
}

type TTSConfig struct {
	// Engine is "edge" (edge-tts CLI) or "openai".
	Engine string `yaml:"engine"`
	Voice  string `yaml:"voice"`
	Rate   string `yaml:"rate"`
	Volume string `yaml:"volume"`
	Binary string `yaml:"binary"`

	OpenAIKey   string `yaml:"openai_api_key"`
	OpenAIModel string `yaml:"openai_model"`
	OpenAIVoice string `yaml:"openai_voice"`
}

type TitleCardConfig struct {
	Template   string  `yaml:"template"`
	Font       string  `yaml:"font"`
	FontSize   float64 `yaml:"font_size"`
	MaxWidth   float64 `yaml:"max_width"`
	Left       float64 `yaml:"left"`
	Top        float64 `yaml:"top"`
	TextColor  string  `yaml:"text_color"`
	UpvotesX   float64 `yaml:"upvotes_x"`
	CommentsX  float64 `yaml:"comments_x"`
	CountersY  float64 `yaml:"counters_y"`
	CountersSz float64 `yaml:"counters_font_size"`
}

type VideoConfig struct {
	Platform           string        `yaml:"platform"`
	Background         string        `yaml:"background"`
	BackgroundRequired bool          `yaml:"background_required"`
	WordsPerSecond     float64       `yaml:"words_per_second"`
	MinimumOverlay     time.Duration `yaml:"minimum_overlay"`
	FPS                int           `yaml:"fps"`
	// SplitParts cuts videos longer than the platform limit into numbered parts.
	SplitParts bool `yaml:"split_parts"`
	// PadColor fills the canvas around a title card that does not match it.
	PadColor string `yaml:"pad_color"`
}

type CaptionsConfig struct {
	WriteSRT bool `yaml:"write_srt"`
	Burn     bool `yaml:"burn"`
	// Style is an ASS force_style override for burned captions.
	Style    string `yaml:"style"`
	MaxWords int    `yaml:"max_words"`
}

type PipelineConfig struct {
	OutputRoot       string        `yaml:"output_root"`
	Concurrency      int           `yaml:"concurrency"`
	Retries          int           `yaml:"retries"`
	RetryBackoff     time.Duration `yaml:"retry_backoff"`
	SynthesisTimeout time.Duration `yaml:"synthesis_timeout"`
	MediaTimeout     time.Duration `yaml:"media_timeout"`
	FFmpegBinary     string        `yaml:"ffmpeg_binary"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns a configuration that runs without a config file.
func Default() Config {
	return Config{
		Reddit: RedditConfig{
			UserAgent:  "story-reels/1.0",
			Subreddit:  DefaultSubreddit,
			Limit:      DefaultLimit,
			TimeWindow: "day",
		},
		TTS: TTSConfig{
			Engine:      "edge",
			Voice:       DefaultVoice,
			Rate:        "+0%",
			Volume:      "+0%",
			Binary:      "edge-tts",
			OpenAIModel: "tts-1",
			OpenAIVoice: "alloy",
		},
		TitleCard: TitleCardConfig{
			Template:   "assets/template.png",
			Font:       "assets/font.ttf",
			FontSize:   44,
			MaxWidth:   900,
			Left:       90,
			Top:        120,
			TextColor:  "#1a1a1b",
			UpvotesX:   130,
			CommentsX:  420,
			CountersY:  560,
			CountersSz: 32,
		},
		Video: VideoConfig{
			Platform:       "tiktok",
			Background:     "assets/background.mp4",
			WordsPerSecond: DefaultWordsPerSecond,
			MinimumOverlay: DefaultMinimumOverlay,
			FPS:            DefaultFPS,
			PadColor:       "#000000",
		},
		Captions: CaptionsConfig{WriteSRT: true, MaxWords: 4},
		Pipeline: PipelineConfig{
			OutputRoot:       "output",
			Concurrency:      2,
			Retries:          2,
			RetryBackoff:     2 * time.Second,
			SynthesisTimeout: 2 * time.Minute,
			MediaTimeout:     10 * time.Minute,
			FFmpegBinary:     "ffmpeg",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads .env, then the YAML file at path (or $STORY_REELS_CONFIG), then
// applies environment overrides. A missing file is not an error; a broken one is.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return cfg, errors.Wrapf(err, "read config %s", path)
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return cfg, errors.Wrapf(err, "parse config %s", path)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.fillZeroes()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(redditIDEnv); v != "" {
		c.Reddit.ClientID = v
	}
	if v := os.Getenv(redditSecretEnv); v != "" {
		c.Reddit.ClientSecret = v
	}
	if v := os.Getenv(redditAgentEnv); v != "" {
		c.Reddit.UserAgent = v
	}
	if v := os.Getenv(openAIKeyEnv); v != "" {
		c.TTS.OpenAIKey = v
	}
	if v := os.Getenv(outputRootEnv); v != "" {
		c.Pipeline.OutputRoot = v
	}
	if v := os.Getenv(concurrencyEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Pipeline.Concurrency = n
		}
	}
}

// fillZeroes restores defaults for numeric fields a partial YAML file zeroed out.
func (c *Config) fillZeroes() {
	def := Default()
	if c.Video.WordsPerSecond <= 0 {
		c.Video.WordsPerSecond = def.Video.WordsPerSecond
	}
	if c.Video.MinimumOverlay <= 0 {
		c.Video.MinimumOverlay = def.Video.MinimumOverlay
	}
	if c.Video.FPS <= 0 {
		c.Video.FPS = def.Video.FPS
	}
	if c.Pipeline.Concurrency <= 0 {
		c.Pipeline.Concurrency = 1
	}
	if c.Pipeline.Retries < 0 {
		c.Pipeline.Retries = 0
	}
	if c.Reddit.Limit <= 0 {
		c.Reddit.Limit = def.Reddit.Limit
	}
	if c.TTS.Voice == "" {
		c.TTS.Voice = def.TTS.Voice
	}
	if c.TTS.Binary == "" {
		c.TTS.Binary = def.TTS.Binary
	}
}
