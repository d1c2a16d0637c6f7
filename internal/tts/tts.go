// Package tts defines the interface for text-to-speech synthesis.
//
// The narrate pipeline sends one page of text per call and writes the
// returned WAV audio to the page file. A backend reports the outcome of each
// call through the Reason of its result: anything other than
// speech.ReasonSynthesizingAudioCompleted means no usable audio was produced.
package tts

import (
	"context"

	"github.com/nadzzz/speechkit/internal/speech"
)

// SynthesizeOpts controls synthesis behavior.
type SynthesizeOpts struct {
	// Language is the language of the text (e.g., "en-US", "fr"). Empty asks
	// the backend to detect the language from the text.
	Language string

	// Voice overrides the backend's voice selection.
	Voice string
}

// Synthesizer converts text to audio.
type Synthesizer interface {
	// Name identifies the backend in logs.
	Name() string

	// Synthesize generates WAV audio from the given text.
	//
	// A service that answers but refuses the request yields a result with
	// speech.ReasonCanceled and its CancellationDetails; the error return is
	// reserved for failures to reach the service at all.
	Synthesize(ctx context.Context, text string, opts SynthesizeOpts) (*SynthesizeResult, error)

	// Close releases any resources held by the synthesizer.
	Close() error
}

// SynthesizeResult holds the output of TTS synthesis.
type SynthesizeResult struct {
	Reason speech.Reason

	// Audio is the synthesized audio as a WAV file.
	Audio []byte

	// ContentType is the MIME type of the audio (e.g., "audio/wav").
	ContentType string

	// Cancellation is set when Reason is speech.ReasonCanceled.
	Cancellation *speech.CancellationDetails
}

// Completed wraps finished WAV audio in a successful result.
func Completed(wav []byte) *SynthesizeResult {
	return &SynthesizeResult{
		Reason:      speech.ReasonSynthesizingAudioCompleted,
		Audio:       wav,
		ContentType: "audio/wav",
	}
}

// Canceled builds the result for a call the service refused.
func Canceled(code speech.CancellationErrorCode, details string) *SynthesizeResult {
	return &SynthesizeResult{
		Reason: speech.ReasonCanceled,
		Cancellation: &speech.CancellationDetails{
			Reason:       speech.CancellationError,
			ErrorCode:    code,
			ErrorDetails: details,
		},
	}
}
