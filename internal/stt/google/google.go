// Package google implements the STT Backend using Google Cloud Speech-to-Text.
//
// Segments go through the synchronous Recognize call, which accepts up to one
// minute of audio.
package google

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	speechapi "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"

	"github.com/nadzzz/speechkit/internal/gcloud"
	"github.com/nadzzz/speechkit/internal/speech"
	"github.com/nadzzz/speechkit/internal/stt"
)

const defaultLanguage = "en-US"

// Backend implements stt.Backend with the Cloud Speech-to-Text API.
type Backend struct {
	client *speechapi.Client
}

// New dials the Speech-to-Text service. Extra client options are appended
// after the ones derived from creds.
func New(ctx context.Context, creds gcloud.Credentials, extra ...option.ClientOption) (*Backend, error) {
	opts := append(gcloud.ClientOptions("speech", creds), extra...)
	client, err := speechapi.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating speech client: %w", err)
	}
	return &Backend{client: client}, nil
}

// Name returns the backend identifier.
func (b *Backend) Name() string { return "google" }

// RecognizeSegment sends the segment as LINEAR16 audio. A response without
// any transcript is reported as NoMatch.
func (b *Backend) RecognizeSegment(ctx context.Context, req stt.SegmentRequest) (*stt.Result, error) {
	if req.Format.BitDepth != 16 {
		return nil, &speech.ServiceError{
			Code:    speech.BadRequest,
			Details: fmt.Sprintf("LINEAR16 requires 16-bit audio, got %d-bit", req.Format.BitDepth),
		}
	}
	lang := req.Language
	if lang == "" {
		lang = defaultLanguage
	}

	resp, err := b.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:            int32(req.Format.SampleRate),
			AudioChannelCount:          int32(req.Format.Channels),
			LanguageCode:               lang,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: req.Audio},
		},
	})
	if err != nil {
		return nil, speech.ErrorFromGRPC(ctx, err)
	}

	var parts []string
	for _, r := range resp.GetResults() {
		if alts := r.GetAlternatives(); len(alts) > 0 {
			if t := strings.TrimSpace(alts[0].GetTranscript()); t != "" {
				parts = append(parts, t)
			}
		}
	}

	slog.Debug("google recognition", "segment", req.Index, "results", len(resp.GetResults()))

	if len(parts) == 0 {
		return stt.NoMatch(), nil
	}
	return stt.Recognized(strings.Join(parts, " ")), nil
}

// Close closes the gRPC connection.
func (b *Backend) Close() error {
	return b.client.Close()
}
