// Package openai implements the TTS Synthesizer using the OpenAI speech API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nadzzz/speechkit/internal/config"
	"github.com/nadzzz/speechkit/internal/speech"
	"github.com/nadzzz/speechkit/internal/tts"
)

// Synthesizer implements tts.Synthesizer with CreateSpeech.
type Synthesizer struct {
	client *openai.Client
	model  string
	voice  string
}

// New creates an OpenAI synthesizer from config.
func New(cfg config.OpenAIConfig) *Synthesizer {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	model := cfg.TTSModel
	if model == "" {
		model = string(openai.TTSModel1)
	}
	voice := cfg.Voice
	if voice == "" {
		voice = string(openai.VoiceAlloy)
	}
	return &Synthesizer{
		client: openai.NewClientWithConfig(oc),
		model:  model,
		voice:  voice,
	}
}

// Name returns the backend identifier.
func (s *Synthesizer) Name() string { return "openai" }

// Synthesize requests WAV audio. The model detects the language of the text,
// so opts.Language is not sent.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	voice := opts.Voice
	if voice == "" {
		voice = s.voice
	}

	slog.Debug("openai synthesize", "text_length", len(text), "model", s.model, "voice", voice)

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.model),
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatWav,
	})
	if err != nil {
		var svcErr *speech.ServiceError
		if errors.As(speech.ErrorFromOpenAI(err), &svcErr) {
			return tts.Canceled(svcErr.Code, svcErr.Details), nil
		}
		return nil, fmt.Errorf("openai create speech: %w", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("reading openai speech: %w", err)
	}
	if len(data) == 0 {
		return tts.Canceled(speech.ServiceErrorCode, "empty audio response"), nil
	}
	return tts.Completed(data), nil
}

// Close is a no-op.
func (s *Synthesizer) Close() error { return nil }
