package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/speechkit/internal/config"
	"github.com/nadzzz/speechkit/internal/speech"
	"github.com/nadzzz/speechkit/internal/tts"
)

func TestSynthesize(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/speech", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write([]byte("RIFF-openai"))
	}))
	defer srv.Close()

	s := New(config.OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1"})
	res, err := s.Synthesize(context.Background(), "page one", tts.SynthesizeOpts{Voice: "nova"})
	require.NoError(t, err)
	assert.Equal(t, speech.ReasonSynthesizingAudioCompleted, res.Reason)
	assert.Equal(t, []byte("RIFF-openai"), res.Audio)

	assert.Equal(t, "page one", got["input"])
	assert.Equal(t, "nova", got["voice"])
	assert.Equal(t, "tts-1", got["model"])
	assert.Equal(t, "wav", got["response_format"])
}

func TestSynthesizeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	s := New(config.OpenAIConfig{APIKey: "bad", BaseURL: srv.URL + "/v1"})
	res, err := s.Synthesize(context.Background(), "page one", tts.SynthesizeOpts{})
	require.NoError(t, err)
	assert.Equal(t, speech.ReasonCanceled, res.Reason)
	assert.Equal(t, speech.AuthenticationFailure, res.Cancellation.ErrorCode)
	assert.Equal(t, "Incorrect API key provided", res.Cancellation.ErrorDetails)
}
