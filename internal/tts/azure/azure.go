// Package azure implements the TTS Synthesizer using the Azure Speech REST API.
//
// Each call posts one SSML document and receives the complete audio in the
// response body. With no language given the text is spoken by a multilingual
// neural voice, which detects the language of the text by itself.
package azure

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nadzzz/speechkit/internal/config"
	"github.com/nadzzz/speechkit/internal/speech"
	"github.com/nadzzz/speechkit/internal/tts"
)

const (
	defaultVoice        = "en-US-JennyMultilingualNeural"
	defaultOutputFormat = "riff-24khz-16bit-mono-pcm"
)

// Synthesizer implements tts.Synthesizer against the Azure Speech service.
type Synthesizer struct {
	endpoint     string
	key          string
	voice        string
	outputFormat string
	client       *http.Client
}

// New creates an Azure synthesizer. The endpoint is derived from region
// unless cfg.TTSEndpoint overrides it.
func New(subscriptionKey, region string, cfg config.AzureConfig) (*Synthesizer, error) {
	endpoint := cfg.TTSEndpoint
	if endpoint == "" {
		if region == "" {
			return nil, fmt.Errorf("azure tts: region or endpoint required")
		}
		endpoint = fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", region)
	}
	voice := cfg.Voice
	if voice == "" {
		voice = defaultVoice
	}
	format := cfg.OutputFormat
	if format == "" {
		format = defaultOutputFormat
	}
	if !strings.HasPrefix(format, "riff-") {
		return nil, fmt.Errorf("azure tts: output format %q is not a wav (riff) format", format)
	}

	return &Synthesizer{
		endpoint:     endpoint,
		key:          subscriptionKey,
		voice:        voice,
		outputFormat: format,
		client:       &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

// Name returns the backend identifier.
func (s *Synthesizer) Name() string { return "azure" }

// Synthesize posts the text as SSML and returns the WAV body.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	voice := opts.Voice
	if voice == "" {
		voice = s.voice
	}

	body := buildSSML(text, voice, opts.Language)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", s.key)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", s.outputFormat)
	req.Header.Set("User-Agent", "speechkit")

	slog.Debug("azure synthesize", "text_length", len(text), "voice", voice, "language", opts.Language)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling azure tts: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading azure tts response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		details := strings.TrimSpace(string(data))
		if details == "" {
			details = resp.Status
		}
		return tts.Canceled(speech.ErrorCodeFromHTTPStatus(resp.StatusCode), details), nil
	}
	if len(data) == 0 {
		return tts.Canceled(speech.ServiceErrorCode, "empty audio response"), nil
	}

	return tts.Completed(data), nil
}

// Close is a no-op.
func (s *Synthesizer) Close() error { return nil }

// buildSSML renders the request document. A language pins the text to that
// locale; without one the voice picks the language itself.
func buildSSML(text, voice, language string) []byte {
	docLang := language
	if docLang == "" {
		docLang = "en-US"
	}

	var b bytes.Buffer
	b.WriteString(`<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xml:lang="`)
	_ = xml.EscapeText(&b, []byte(docLang))
	b.WriteString(`"><voice name="`)
	_ = xml.EscapeText(&b, []byte(voice))
	b.WriteString(`">`)
	if language != "" {
		b.WriteString(`<lang xml:lang="`)
		_ = xml.EscapeText(&b, []byte(language))
		b.WriteString(`">`)
	}
	_ = xml.EscapeText(&b, []byte(text))
	if language != "" {
		b.WriteString(`</lang>`)
	}
	b.WriteString(`</voice></speak>`)
	return b.Bytes()
}
