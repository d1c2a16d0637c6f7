package google

import (
	"context"
	"net"
	"sync"
	"testing"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/nadzzz/speechkit/internal/audio"
	"github.com/nadzzz/speechkit/internal/gcloud"
	"github.com/nadzzz/speechkit/internal/speech"
	"github.com/nadzzz/speechkit/internal/stt"
)

type fakeSpeech struct {
	speechpb.UnimplementedSpeechServer

	mu   sync.Mutex
	resp *speechpb.RecognizeResponse
	err  error
	last *speechpb.RecognizeRequest
}

func (f *fakeSpeech) Recognize(_ context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func startFake(t *testing.T, fake *fakeSpeech) *Backend {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := grpc.NewServer()
	speechpb.RegisterSpeechServer(srv, fake)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	b, err := New(context.Background(), gcloud.Credentials{},
		option.WithEndpoint(lis.Addr().String()),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func request() stt.SegmentRequest {
	format := audio.Format{SampleRate: 16000, Channels: 1, BitDepth: 16, AudioFormat: 1}
	return stt.SegmentRequest{Audio: audio.WrapPCM(make([]byte, 64), format), Format: format}
}

func alternative(text string) *speechpb.SpeechRecognitionResult {
	return &speechpb.SpeechRecognitionResult{
		Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: text}},
	}
}

func TestRecognizeSegment(t *testing.T) {
	fake := &fakeSpeech{resp: &speechpb.RecognizeResponse{
		Results: []*speechpb.SpeechRecognitionResult{alternative("Hello world."), alternative(" How are you?")},
	}}
	b := startFake(t, fake)

	res, err := b.RecognizeSegment(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, speech.ReasonRecognizedSpeech, res.Reason)
	assert.Equal(t, "Hello world. How are you?", res.Text)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, speechpb.RecognitionConfig_LINEAR16, fake.last.GetConfig().GetEncoding())
	assert.EqualValues(t, 16000, fake.last.GetConfig().GetSampleRateHertz())
	assert.Equal(t, "en-US", fake.last.GetConfig().GetLanguageCode())
}

func TestRecognizeSegmentNoResults(t *testing.T) {
	b := startFake(t, &fakeSpeech{resp: &speechpb.RecognizeResponse{}})

	res, err := b.RecognizeSegment(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, speech.ReasonNoMatch, res.Reason)
}

func TestRecognizeSegmentServiceError(t *testing.T) {
	b := startFake(t, &fakeSpeech{err: status.Error(codes.ResourceExhausted, "quota")})

	_, err := b.RecognizeSegment(context.Background(), request())
	var svcErr *speech.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, speech.TooManyRequests, svcErr.Code)
	assert.Equal(t, "quota", svcErr.Details)
}

func TestRecognizeSegmentInterrupted(t *testing.T) {
	b := startFake(t, &fakeSpeech{resp: &speechpb.RecognizeResponse{}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.RecognizeSegment(ctx, request())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, speech.CancellationCancelledByUser, speech.CancellationFromError(err).Reason)
}

func TestRecognizeSegmentRejects24Bit(t *testing.T) {
	b := &Backend{}
	req := request()
	req.Format.BitDepth = 24

	_, err := b.RecognizeSegment(context.Background(), req)
	var svcErr *speech.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, speech.BadRequest, svcErr.Code)
}
