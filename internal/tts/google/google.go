// Package google implements the TTS Synthesizer using Google Cloud
// Text-to-Speech.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"

	"github.com/nadzzz/speechkit/internal/gcloud"
	"github.com/nadzzz/speechkit/internal/speech"
	"github.com/nadzzz/speechkit/internal/tts"
)

const defaultLanguage = "en-US"

// Synthesizer implements tts.Synthesizer with the Cloud Text-to-Speech API.
type Synthesizer struct {
	client *texttospeech.Client
	voice  string
}

// New dials the Text-to-Speech service. Extra client options are appended
// after the ones derived from creds.
func New(ctx context.Context, creds gcloud.Credentials, voice string, extra ...option.ClientOption) (*Synthesizer, error) {
	opts := append(gcloud.ClientOptions("texttospeech", creds), extra...)
	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating texttospeech client: %w", err)
	}
	return &Synthesizer{client: client, voice: voice}, nil
}

// Name returns the backend identifier.
func (s *Synthesizer) Name() string { return "google" }

// Synthesize requests LINEAR16 audio, which the service returns inside a WAV
// container.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	voice := opts.Voice
	if voice == "" {
		voice = s.voice
	}
	lang := languageFor(opts.Language, voice)

	slog.Debug("google synthesize", "text_length", len(text), "voice", voice, "language", lang)

	resp, err := s.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: lang,
			Name:         voice,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_LINEAR16,
		},
	})
	if err != nil {
		err = speech.ErrorFromGRPC(ctx, err)
		var svcErr *speech.ServiceError
		if errors.As(err, &svcErr) {
			return tts.Canceled(svcErr.Code, svcErr.Details), nil
		}
		return nil, fmt.Errorf("google synthesize: %w", err)
	}
	if len(resp.GetAudioContent()) == 0 {
		return tts.Canceled(speech.ServiceErrorCode, "empty audio response"), nil
	}
	return tts.Completed(resp.GetAudioContent()), nil
}

// Close closes the gRPC connection.
func (s *Synthesizer) Close() error {
	return s.client.Close()
}

// languageFor picks the voice language. Google has no automatic detection,
// so it falls back to the locale prefix of a named voice ("de-DE-Wavenet-B")
// and then to English.
func languageFor(language, voice string) string {
	if language != "" {
		return language
	}
	if parts := strings.SplitN(voice, "-", 3); len(parts) == 3 {
		return parts[0] + "-" + parts[1]
	}
	return defaultLanguage
}
