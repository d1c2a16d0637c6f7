package main

import (
	"context"
	"fmt"

	"github.com/nadzzz/speechkit/internal/config"
	"github.com/nadzzz/speechkit/internal/gcloud"
	"github.com/nadzzz/speechkit/internal/publish"
	"github.com/nadzzz/speechkit/internal/stt"
	sttazure "github.com/nadzzz/speechkit/internal/stt/azure"
	sttgoogle "github.com/nadzzz/speechkit/internal/stt/google"
	sttopenai "github.com/nadzzz/speechkit/internal/stt/openai"
	"github.com/nadzzz/speechkit/internal/stt/whisper"
	"github.com/nadzzz/speechkit/internal/tts"
	ttsazure "github.com/nadzzz/speechkit/internal/tts/azure"
	ttsgoogle "github.com/nadzzz/speechkit/internal/tts/google"
	ttsopenai "github.com/nadzzz/speechkit/internal/tts/openai"
	"github.com/nadzzz/speechkit/internal/tts/piper"
)

func googleCredentials(cfg *config.Config) gcloud.Credentials {
	return gcloud.Credentials{
		CredentialsFile: cfg.Google.CredentialsFile,
		APIKey:          cfg.SubscriptionKey,
		Region:          cfg.Google.Region,
	}
}

// openAIConfig falls back to the subscription key when no OpenAI key is set.
func openAIConfig(cfg *config.Config) config.OpenAIConfig {
	oc := cfg.OpenAI
	if oc.APIKey == "" {
		oc.APIKey = cfg.SubscriptionKey
	}
	return oc
}

// newSynthesizer initializes the text-to-speech backend named by backend.
func newSynthesizer(ctx context.Context, cfg *config.Config, backend string) (tts.Synthesizer, error) {
	switch backend {
	case "azure":
		s, err := ttsazure.New(cfg.SubscriptionKey, cfg.Region, cfg.Azure)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "google":
		s, err := ttsgoogle.New(ctx, googleCredentials(cfg), cfg.Google.Voice)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "openai":
		return ttsopenai.New(openAIConfig(cfg)), nil
	case "piper":
		return piper.New(cfg.Piper), nil
	default:
		return nil, fmt.Errorf("unknown text-to-speech backend %q", backend)
	}
}

// newRecognizer initializes the speech-to-text backend named by backend.
func newRecognizer(ctx context.Context, cfg *config.Config, backend string) (stt.Backend, error) {
	switch backend {
	case "azure":
		b, err := sttazure.New(cfg.SubscriptionKey, cfg.Region, cfg.Azure)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "google":
		b, err := sttgoogle.New(ctx, googleCredentials(cfg))
		if err != nil {
			return nil, err
		}
		return b, nil
	case "openai":
		return sttopenai.New(openAIConfig(cfg)), nil
	case "whisper":
		return whisper.New(cfg.Whisper), nil
	default:
		return nil, fmt.Errorf("unknown speech-to-text backend %q", backend)
	}
}

// newUploader returns nil when publishing is disabled.
func newUploader(ctx context.Context, cfg *config.Config) (*publish.Uploader, error) {
	if !cfg.Publish.Enabled {
		return nil, nil
	}
	u, err := publish.New(ctx, cfg.Publish)
	if err != nil {
		return nil, fmt.Errorf("initializing publisher: %w", err)
	}
	return u, nil
}
