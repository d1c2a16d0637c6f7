// Package azure implements the STT Backend using the Azure Speech
// short-audio REST API.
//
// The short-audio endpoint accepts up to 60 seconds of audio per request and
// answers with a single recognition result, which is why the input is cut
// into segments before it reaches this backend. The service expects 16 kHz
// mono 16-bit PCM; other formats are sent as-is and may be rejected.
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nadzzz/speechkit/internal/config"
	"github.com/nadzzz/speechkit/internal/speech"
	"github.com/nadzzz/speechkit/internal/stt"
)

const defaultLanguage = "en-US"

// Backend implements stt.Backend against the Azure Speech service.
type Backend struct {
	endpoint string
	key      string
	client   *http.Client
}

// New creates an Azure recognition backend. The endpoint is derived from
// region unless cfg.STTEndpoint overrides it.
func New(subscriptionKey, region string, cfg config.AzureConfig) (*Backend, error) {
	endpoint := cfg.STTEndpoint
	if endpoint == "" {
		if region == "" {
			return nil, fmt.Errorf("azure stt: region or endpoint required")
		}
		endpoint = fmt.Sprintf("https://%s.stt.speech.microsoft.com/speech/recognition/conversation/cognitiveservices/v1", region)
	}
	return &Backend{
		endpoint: endpoint,
		key:      subscriptionKey,
		client:   &http.Client{Timeout: 2 * time.Minute},
	}, nil
}

// Name returns the backend identifier.
func (b *Backend) Name() string { return "azure" }

// recognitionResponse is the "simple" format response body.
type recognitionResponse struct {
	RecognitionStatus string `json:"RecognitionStatus"`
	DisplayText       string `json:"DisplayText"`
	Offset            int64  `json:"Offset"`
	Duration          int64  `json:"Duration"`
}

// RecognizeSegment posts the segment WAV and maps the recognition status.
func (b *Backend) RecognizeSegment(ctx context.Context, req stt.SegmentRequest) (*stt.Result, error) {
	lang := req.Language
	if lang == "" {
		lang = defaultLanguage
	}
	q := url.Values{}
	q.Set("language", lang)
	q.Set("format", "simple")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint+"?"+q.Encode(), bytes.NewReader(req.Audio))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", b.key)
	httpReq.Header.Set("Content-Type", fmt.Sprintf("audio/wav; codecs=audio/pcm; samplerate=%d", req.Format.SampleRate))
	httpReq.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("azure recognition request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		details := strings.TrimSpace(string(body))
		if details == "" {
			details = resp.Status
		}
		return nil, &speech.ServiceError{
			Code:    speech.ErrorCodeFromHTTPStatus(resp.StatusCode),
			Details: details,
		}
	}

	var rr recognitionResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, fmt.Errorf("decoding azure recognition: %w", err)
	}

	slog.Debug("azure recognition", "segment", req.Index, "status", rr.RecognitionStatus, "text_length", len(rr.DisplayText))

	switch rr.RecognitionStatus {
	case "Success":
		return stt.Recognized(rr.DisplayText), nil
	case "NoMatch", "InitialSilenceTimeout", "BabbleTimeout":
		return stt.NoMatch(), nil
	default:
		return nil, &speech.ServiceError{
			Code:    speech.ServiceErrorCode,
			Details: "recognition status " + rr.RecognitionStatus,
		}
	}
}

// Close is a no-op.
func (b *Backend) Close() error { return nil }
