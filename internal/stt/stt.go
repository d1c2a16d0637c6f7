// Package stt defines speech recognition over a WAV file, one segment at a
// time.
//
// A Backend recognizes a single segment of audio. A Stream cuts the input
// file into segments and feeds them to a Backend, so that each call to
// RecognizeOnce yields the result for the next stretch of speech.
package stt

import (
	"context"
	"time"

	"github.com/nadzzz/speechkit/internal/audio"
	"github.com/nadzzz/speechkit/internal/speech"
)

// SegmentRequest is one unit of audio sent to a Backend.
type SegmentRequest struct {
	// Audio is the segment as a standalone WAV file.
	Audio  []byte
	Format audio.Format

	Index    int
	Offset   time.Duration
	Duration time.Duration

	// Language is a BCP-47 tag such as "en-US".
	Language string
}

// Backend recognizes speech in a single segment.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string

	// RecognizeSegment returns the recognition result for req. Service
	// rejections are returned as *speech.ServiceError.
	RecognizeSegment(ctx context.Context, req SegmentRequest) (*Result, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Recognizer yields one recognition result per call until the audio ends.
type Recognizer interface {
	RecognizeOnce(ctx context.Context) (*Result, error)
	Close() error
}

// Result is the outcome of recognizing one segment.
type Result struct {
	Reason speech.Reason
	// Text is the recognized text. It may be blank for a pause.
	Text string

	Offset   time.Duration
	Duration time.Duration

	// Cancellation is set when Reason is speech.ReasonCanceled.
	Cancellation *speech.CancellationDetails
}

// Recognized returns a RecognizedSpeech result.
func Recognized(text string) *Result {
	return &Result{Reason: speech.ReasonRecognizedSpeech, Text: text}
}

// NoMatch returns a result for audio without recognizable speech.
func NoMatch() *Result {
	return &Result{Reason: speech.ReasonNoMatch}
}

func canceled(details *speech.CancellationDetails) *Result {
	return &Result{Reason: speech.ReasonCanceled, Cancellation: details}
}
