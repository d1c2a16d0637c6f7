package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/nadzzz/speechkit/internal/audio"
	"github.com/nadzzz/speechkit/internal/speech"
)

// StreamOpts configures a Stream.
type StreamOpts struct {
	Segment  audio.SegmentOpts
	Language string
	Logger   *slog.Logger
}

// Stream recognizes a WAV file segment by segment.
//
// Each RecognizeOnce call returns exactly one of:
//   - speech.ReasonRecognizedSpeech with the backend's text,
//   - speech.ReasonNoMatch for a segment with no sound above the silence threshold,
//   - speech.ReasonCanceled with CancellationEndOfStream once the audio is used up,
//   - speech.ReasonCanceled with the backend's error otherwise.
type Stream struct {
	seg      *audio.Segmenter
	backend  Backend
	language string
	logger   *slog.Logger
}

// NewStream opens the WAV file at path for recognition with backend. The
// backend remains owned by the caller.
func NewStream(path string, backend Backend, opts StreamOpts) (*Stream, error) {
	seg, err := audio.OpenSegmenter(path, opts.Segment)
	if err != nil {
		return nil, fmt.Errorf("opening audio: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Stream{
		seg:      seg,
		backend:  backend,
		language: opts.Language,
		logger:   logger.With("component", "stt", "backend", backend.Name()),
	}, nil
}

// RecognizeOnce recognizes the next segment. The error return is reserved
// for failures reading the input file.
func (s *Stream) RecognizeOnce(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return canceled(speech.CancellationFromError(err)), nil
	}

	seg, err := s.seg.Next()
	if errors.Is(err, io.EOF) {
		return canceled(speech.EndOfStream()), nil
	}
	if err != nil {
		return nil, err
	}

	log := s.logger.With("segment", seg.Index, "offset", seg.Offset, "duration", seg.Duration)
	if seg.Silent {
		log.Debug("segment is silent")
		res := NoMatch()
		res.Offset, res.Duration = seg.Offset, seg.Duration
		return res, nil
	}

	res, err := s.backend.RecognizeSegment(ctx, SegmentRequest{
		Audio:    seg.WAV(),
		Format:   seg.Format,
		Index:    seg.Index,
		Offset:   seg.Offset,
		Duration: seg.Duration,
		Language: s.language,
	})
	if err != nil {
		log.Debug("segment recognition failed", "error", err)
		res = canceled(speech.CancellationFromError(err))
	}
	res.Offset, res.Duration = seg.Offset, seg.Duration
	return res, nil
}

// Close releases the input file.
func (s *Stream) Close() error {
	return s.seg.Close()
}
