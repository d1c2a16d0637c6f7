// Package openai implements the STT Backend using the OpenAI transcription API.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nadzzz/speechkit/internal/config"
	"github.com/nadzzz/speechkit/internal/speech"
	"github.com/nadzzz/speechkit/internal/stt"
)

// Backend implements stt.Backend with CreateTranscription.
type Backend struct {
	client *openai.Client
	model  string
}

// New creates an OpenAI recognition backend from config.
func New(cfg config.OpenAIConfig) *Backend {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	model := cfg.TranscriptionModel
	if model == "" {
		model = openai.Whisper1
	}
	return &Backend{client: openai.NewClientWithConfig(oc), model: model}
}

// Name returns the backend identifier.
func (b *Backend) Name() string { return "openai" }

// RecognizeSegment uploads the segment WAV. Whisper takes ISO-639-1 language
// codes, so only the primary subtag of req.Language is sent.
func (b *Backend) RecognizeSegment(ctx context.Context, req stt.SegmentRequest) (*stt.Result, error) {
	resp, err := b.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    b.model,
		FilePath: fmt.Sprintf("segment%04d.wav", req.Index),
		Reader:   bytes.NewReader(req.Audio),
		Language: primaryLanguage(req.Language),
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return nil, speech.ErrorFromOpenAI(err)
	}

	slog.Debug("openai transcription", "segment", req.Index, "text_length", len(resp.Text))
	return stt.Recognized(strings.TrimSpace(resp.Text)), nil
}

// Close is a no-op.
func (b *Backend) Close() error { return nil }

func primaryLanguage(tag string) string {
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}
