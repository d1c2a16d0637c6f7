// Package whisper implements the STT Backend using a self-hosted Whisper
// server.
//
// It supports any Whisper-compatible transcription endpoint (e.g., whisper.cpp
// server, faster-whisper) as well as ahmetoner/whisper-asr-webservice.
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/nadzzz/speechkit/internal/config"
	"github.com/nadzzz/speechkit/internal/speech"
	"github.com/nadzzz/speechkit/internal/stt"
)

// Backend sends segments to a Whisper server over HTTP.
type Backend struct {
	endpoint  string
	flavor    string // "openai" or "asr"
	vadFilter bool
	client    *http.Client
}

// New creates a Whisper backend from config.
func New(cfg config.WhisperConfig) *Backend {
	flavor := cfg.Type
	if flavor == "" {
		flavor = "openai"
	}
	return &Backend{
		endpoint:  cfg.Endpoint,
		flavor:    flavor,
		vadFilter: cfg.VADFilter,
		client:    &http.Client{},
	}
}

// Name returns the backend identifier.
func (b *Backend) Name() string { return "whisper" }

// RecognizeSegment sends the segment to the Whisper endpoint.
// Supports two flavors:
//   - "openai": OpenAI-compatible API (whisper.cpp server, faster-whisper)
//   - "asr":    ahmetoner/whisper-asr-webservice (POST /asr with query params)
func (b *Backend) RecognizeSegment(ctx context.Context, req stt.SegmentRequest) (*stt.Result, error) {
	var (
		httpReq *http.Request
		err     error
	)
	switch b.flavor {
	case "asr":
		httpReq, err = b.asrRequest(ctx, req)
	default:
		httpReq, err = b.openAIRequest(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("whisper request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &speech.ServiceError{
			Code:    speech.ErrorCodeFromHTTPStatus(resp.StatusCode),
			Details: fmt.Sprintf("status %d: %s", resp.StatusCode, bytes.TrimSpace(respBody)),
		}
	}

	// Both flavors answer {"text": "...", "language": "..."} for verbose_json.
	var result struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding transcription: %w", err)
	}

	slog.Debug("whisper transcription complete", "segment", req.Index, "text_length", len(result.Text), "language", result.Language)
	return stt.Recognized(strings.TrimSpace(result.Text)), nil
}

// asrRequest builds the whisper-asr-webservice request.
// API: POST /asr?task=transcribe&language=en&output=json&vad_filter=true
// Body: multipart/form-data with field "audio_file"
func (b *Backend) asrRequest(ctx context.Context, req stt.SegmentRequest) (*http.Request, error) {
	body, contentType, err := multipartBody("audio_file", req, nil)
	if err != nil {
		return nil, err
	}

	q := make(url.Values)
	q.Set("task", "transcribe")
	q.Set("output", "json")
	q.Set("encode", "true")
	if lang := primaryLanguage(req.Language); lang != "" {
		q.Set("language", lang)
	}
	if b.vadFilter {
		q.Set("vad_filter", "true")
	}

	reqURL := b.endpoint + "?" + q.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	slog.Debug("whisper-asr request", "url", reqURL)
	return httpReq, nil
}

// openAIRequest builds a request for OpenAI-compatible whisper endpoints.
func (b *Backend) openAIRequest(ctx context.Context, req stt.SegmentRequest) (*http.Request, error) {
	fields := map[string]string{"response_format": "verbose_json"}
	if lang := primaryLanguage(req.Language); lang != "" {
		fields["language"] = lang
	}
	body, contentType, err := multipartBody("file", req, fields)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	return httpReq, nil
}

func multipartBody(fileField string, req stt.SegmentRequest, fields map[string]string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile(fileField, fmt.Sprintf("segment%04d.wav", req.Index))
	if err != nil {
		return nil, "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(req.Audio); err != nil {
		return nil, "", fmt.Errorf("writing audio: %w", err)
	}
	for k, v := range fields {
		_ = writer.WriteField(k, v)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}

// Close is a no-op for the Whisper backend.
func (b *Backend) Close() error { return nil }

// primaryLanguage reduces a BCP-47 tag to the ISO-639-1 code Whisper expects.
func primaryLanguage(tag string) string {
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}
