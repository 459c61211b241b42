package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/pkg/errors"
)

type OpenAIOptions struct {
	APIKey  string
	Model   string
	Voice   string
	BaseURL string
}

// OpenAIClient synthesizes with the speech endpoint. Word boundaries come from
// transcribing a dedicated synthesis of the same text with word timestamps.
type OpenAIClient struct {
	client openai.Client
	model  string
	voice  string
}

func NewOpenAIClient(opts OpenAIOptions) *OpenAIClient {
	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL), option.WithMaxRetries(0))
	}
	if opts.Model == "" {
		opts.Model = "tts-1"
	}
	if opts.Voice == "" {
		opts.Voice = "alloy"
	}
	return &OpenAIClient{
		client: openai.NewClient(reqOpts...),
		model:  opts.Model,
		voice:  opts.Voice,
	}
}

func (c *OpenAIClient) speech(ctx context.Context, text string) ([]byte, error) {
	resp, err := c.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(c.model),
		Voice:          openai.AudioSpeechNewParamsVoice(c.voice),
		Input:          text,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, errors.Wrap(err, "openai speech")
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read openai speech")
	}
	if len(audio) == 0 {
		return nil, ErrNoAudio
	}
	return audio, nil
}

func (c *OpenAIClient) Save(ctx context.Context, text, path string) error {
	audio, err := c.speech(ctx, text)
	if err != nil {
		return err
	}
	return errors.Wrap(os.WriteFile(path, audio, 0644), "write audio")
}

type verboseTranscription struct {
	Words []struct {
		Word  string  `json:"word"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"words"`
}

func (c *OpenAIClient) StreamBoundaries(ctx context.Context, text string, emit func(Boundary) error) error {
	audio, err := c.speech(ctx, text)
	if err != nil {
		return err
	}

	tr, err := c.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:                   openai.File(bytes.NewReader(audio), "speech.mp3", "audio/mpeg"),
		Model:                  openai.AudioModelWhisper1,
		ResponseFormat:         openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []string{"word"},
	})
	if err != nil {
		return errors.Wrap(err, "openai transcription")
	}

	var parsed verboseTranscription
	if err := json.Unmarshal([]byte(tr.RawJSON()), &parsed); err != nil {
		return errors.Wrap(err, "decode transcription words")
	}

	for _, w := range parsed.Words {
		start := secondsToDuration(w.Start)
		if err := emit(Boundary{
			Text:     w.Word,
			Offset:   start,
			Duration: secondsToDuration(w.End) - start,
		}); err != nil {
			return err
		}
	}
	return nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
