package stt

import (
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/speechkit/internal/audio"
	"github.com/nadzzz/speechkit/internal/speech"
)

var mono16k = audio.Format{SampleRate: 16000, Channels: 1, BitDepth: 16, AudioFormat: 1}

// span is a stretch of test audio: a 440Hz tone or digital silence.
type span struct {
	d     time.Duration
	voice bool
}

func writeSpeech(t *testing.T, spans ...span) string {
	t.Helper()
	var pcm []byte
	for _, sp := range spans {
		n := int(sp.d.Seconds() * float64(mono16k.SampleRate))
		for i := 0; i < n; i++ {
			var v int16
			if sp.voice {
				v = int16(12000 * math.Sin(2*math.Pi*440*float64(i)/float64(mono16k.SampleRate)))
			}
			pcm = binary.LittleEndian.AppendUint16(pcm, uint16(v))
		}
	}
	path := filepath.Join(t.TempDir(), "input.wav")
	require.NoError(t, os.WriteFile(path, audio.WrapPCM(pcm, mono16k), 0o644))
	return path
}

type fakeBackend struct {
	results []*Result
	errs    []error
	reqs    []SegmentRequest
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) RecognizeSegment(_ context.Context, req SegmentRequest) (*Result, error) {
	i := len(f.reqs)
	f.reqs = append(f.reqs, req)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.results) {
		return f.results[i], nil
	}
	return Recognized(""), nil
}

func (f *fakeBackend) Close() error { return nil }

var testSegments = audio.SegmentOpts{
	Target:     time.Second,
	Max:        10 * time.Second,
	MinSilence: 500 * time.Millisecond,
}

func TestStreamRecognizesSegmentsInOrder(t *testing.T) {
	path := writeSpeech(t,
		span{2 * time.Second, true}, span{time.Second, false},
		span{2 * time.Second, true}, span{time.Second, false},
	)
	backend := &fakeBackend{results: []*Result{Recognized("one"), Recognized("two")}}

	s, err := NewStream(path, backend, StreamOpts{Segment: testSegments, Language: "de-DE"})
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()

	res, err := s.RecognizeOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, speech.ReasonRecognizedSpeech, res.Reason)
	assert.Equal(t, "one", res.Text)
	assert.Equal(t, time.Duration(0), res.Offset)
	assert.Equal(t, 2500*time.Millisecond, res.Duration)

	res, err = s.RecognizeOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, "two", res.Text)
	assert.Equal(t, 2500*time.Millisecond, res.Offset)

	// Trailing half second of silence.
	res, err = s.RecognizeOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, speech.ReasonNoMatch, res.Reason)
	assert.Equal(t, 5500*time.Millisecond, res.Offset)

	res, err = s.RecognizeOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, speech.ReasonCanceled, res.Reason)
	assert.Equal(t, speech.CancellationEndOfStream, res.Cancellation.Reason)

	require.Len(t, backend.reqs, 2)
	assert.Equal(t, "de-DE", backend.reqs[0].Language)
	assert.Equal(t, 1, backend.reqs[1].Index)
	assert.Equal(t, mono16k, backend.reqs[1].Format)
	format, err := audio.DecodeFormat(backend.reqs[0].Audio)
	require.NoError(t, err)
	assert.Equal(t, mono16k, format)
}

func TestStreamEndOfStream(t *testing.T) {
	path := writeSpeech(t, span{time.Second, true})
	s, err := NewStream(path, &fakeBackend{results: []*Result{Recognized("only")}}, StreamOpts{Segment: testSegments})
	require.NoError(t, err)
	defer s.Close()

	res, err := s.RecognizeOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "only", res.Text)

	res, err = s.RecognizeOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, speech.ReasonCanceled, res.Reason)
	assert.Equal(t, speech.EndOfStream(), res.Cancellation)
}

func TestStreamBackendError(t *testing.T) {
	path := writeSpeech(t, span{time.Second, true})
	backend := &fakeBackend{errs: []error{&speech.ServiceError{Code: speech.AuthenticationFailure, Details: "invalid subscription key"}}}

	s, err := NewStream(path, backend, StreamOpts{Segment: testSegments})
	require.NoError(t, err)
	defer s.Close()

	res, err := s.RecognizeOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, speech.ReasonCanceled, res.Reason)
	assert.Equal(t, &speech.CancellationDetails{
		Reason:       speech.CancellationError,
		ErrorCode:    speech.AuthenticationFailure,
		ErrorDetails: "invalid subscription key",
	}, res.Cancellation)
	assert.Equal(t, time.Second, res.Duration)
}

func TestStreamContextCanceled(t *testing.T) {
	path := writeSpeech(t, span{time.Second, true})
	backend := &fakeBackend{}
	s, err := NewStream(path, backend, StreamOpts{Segment: testSegments})
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := s.RecognizeOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, speech.ReasonCanceled, res.Reason)
	assert.Equal(t, speech.CancellationCancelledByUser, res.Cancellation.Reason)
	assert.Empty(t, backend.reqs)
}

func TestNewStreamMissingFile(t *testing.T) {
	_, err := NewStream(filepath.Join(t.TempDir(), "missing.wav"), &fakeBackend{}, StreamOpts{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
