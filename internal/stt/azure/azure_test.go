package azure

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/speechkit/internal/audio"
	"github.com/nadzzz/speechkit/internal/config"
	"github.com/nadzzz/speechkit/internal/speech"
	"github.com/nadzzz/speechkit/internal/stt"
)

func segmentRequest() stt.SegmentRequest {
	format := audio.Format{SampleRate: 16000, Channels: 1, BitDepth: 16, AudioFormat: 1}
	return stt.SegmentRequest{
		Audio:    audio.WrapPCM(make([]byte, 320), format),
		Format:   format,
		Language: "fr-FR",
	}
}

func newTestBackend(t *testing.T, h http.HandlerFunc) *Backend {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	b, err := New("secret", "", config.AzureConfig{STTEndpoint: srv.URL + "/recognize"})
	require.NoError(t, err)
	return b
}

func TestRecognizeSegment(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/recognize", r.URL.Path)
		assert.Equal(t, "fr-FR", r.URL.Query().Get("language"))
		assert.Equal(t, "simple", r.URL.Query().Get("format"))
		assert.Equal(t, "secret", r.Header.Get("Ocp-Apim-Subscription-Key"))
		assert.Equal(t, "audio/wav; codecs=audio/pcm; samplerate=16000", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Len(t, body, 44+320)
		_, _ = w.Write([]byte(`{"RecognitionStatus":"Success","DisplayText":"Bonjour à tous.","Offset":100000,"Duration":12000000}`))
	})

	res, err := b.RecognizeSegment(context.Background(), segmentRequest())
	require.NoError(t, err)
	assert.Equal(t, speech.ReasonRecognizedSpeech, res.Reason)
	assert.Equal(t, "Bonjour à tous.", res.Text)
}

func TestRecognizeSegmentNoMatch(t *testing.T) {
	for _, status := range []string{"NoMatch", "InitialSilenceTimeout", "BabbleTimeout"} {
		t.Run(status, func(t *testing.T) {
			b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"RecognitionStatus":"` + status + `"}`))
			})
			res, err := b.RecognizeSegment(context.Background(), segmentRequest())
			require.NoError(t, err)
			assert.Equal(t, speech.ReasonNoMatch, res.Reason)
		})
	}
}

func TestRecognizeSegmentErrorStatus(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"RecognitionStatus":"Error"}`))
	})
	_, err := b.RecognizeSegment(context.Background(), segmentRequest())
	var svcErr *speech.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, speech.ServiceErrorCode, svcErr.Code)
}

func TestRecognizeSegmentUnauthorized(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := b.RecognizeSegment(context.Background(), segmentRequest())
	var svcErr *speech.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, speech.AuthenticationFailure, svcErr.Code)
	assert.Equal(t, "401 Unauthorized", svcErr.Details)
}

func TestNew(t *testing.T) {
	_, err := New("k", "", config.AzureConfig{})
	assert.Error(t, err)

	b, err := New("k", "westeurope", config.AzureConfig{})
	require.NoError(t, err)
	assert.Equal(t, "https://westeurope.stt.speech.microsoft.com/speech/recognition/conversation/cognitiveservices/v1", b.endpoint)
}
