// Package transcribe implements the speech-to-text pipeline: a WAV file is
// recognized segment by segment and every recognized segment is appended as
// one line to a transcript next to the input ("talk.wav" -> "talk.txt").
//
// Recognition continues until the recognizer reports NoMatch or Canceled.
// Neither ends the run with an error; a cancellation caused by a service
// error is logged with its code and details and recorded on the Result.
package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nadzzz/speechkit/internal/audio"
	"github.com/nadzzz/speechkit/internal/config"
	"github.com/nadzzz/speechkit/internal/speech"
	"github.com/nadzzz/speechkit/internal/stt"
)

// Publisher uploads a finished artifact and returns its object key.
type Publisher interface {
	Upload(ctx context.Context, path string) (string, error)
}

// Options controls a transcription run.
type Options struct {
	Segment  audio.SegmentOpts
	Language string
}

// Result summarizes a transcription run.
type Result struct {
	TranscriptPath string
	// Segments counts the recognition results, including the final one.
	Segments int
	Lines    int
	Pauses   int

	// Termination is speech.ReasonNoMatch or speech.ReasonCanceled.
	Termination  speech.Reason
	Cancellation *speech.CancellationDetails

	Published []string
}

// Pipeline runs transcriptions with one recognition backend.
type Pipeline struct {
	backend   stt.Backend
	publisher Publisher
	logger    *slog.Logger
	opts      Options
}

// New creates a pipeline. publisher may be nil to skip uploading.
func New(backend stt.Backend, publisher Publisher, logger *slog.Logger, opts Options) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		backend:   backend,
		publisher: publisher,
		logger:    logger.With("component", "transcribe", "backend", backend.Name()),
		opts:      opts,
	}
}

// Run transcribes the WAV file at path.
func (p *Pipeline) Run(ctx context.Context, path string) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("audio file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("audio file: %s is a directory", path)
	}

	stream, err := stt.NewStream(path, p.backend, stt.StreamOpts{
		Segment:  p.opts.Segment,
		Language: p.opts.Language,
		Logger:   p.logger,
	})
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	res := &Result{TranscriptPath: filepath.Join(filepath.Dir(path), base+".txt")}

	if err := p.recognize(ctx, stream, res); err != nil {
		return res, err
	}

	if p.publisher != nil {
		if res.Lines == 0 {
			p.logger.Info("nothing transcribed, skipping publish")
			return res, nil
		}
		key, err := p.publisher.Upload(ctx, res.TranscriptPath)
		if err != nil {
			return res, fmt.Errorf("publishing transcript: %w", err)
		}
		p.logger.Info("published transcript", "key", key)
		res.Published = append(res.Published, key)
	}
	return res, nil
}

// recognize loops until the recognizer stops producing speech.
func (p *Pipeline) recognize(ctx context.Context, rec stt.Recognizer, res *Result) error {
	for {
		r, err := rec.RecognizeOnce(ctx)
		if err != nil {
			return fmt.Errorf("recognizing: %w", err)
		}
		res.Segments++

		switch r.Reason {
		case speech.ReasonRecognizedSpeech:
			text := strings.TrimSpace(r.Text)
			if text == "" {
				res.Pauses++
				p.logger.Info("recognized", config.KindKey, config.KindPause, "text", "(pause)", "offset", r.Offset)
			} else {
				p.logger.Info("recognized", config.KindKey, config.KindSpeech, "text", text, "offset", r.Offset)
			}
			if err := appendLine(res.TranscriptPath, text); err != nil {
				return err
			}
			res.Lines++

		case speech.ReasonNoMatch:
			p.logger.Info("speech could not be recognized", "offset", r.Offset)
			res.Termination = speech.ReasonNoMatch
			return nil

		default:
			res.Termination = speech.ReasonCanceled
			res.Cancellation = r.Cancellation
			p.logCancellation(r.Cancellation)
			return nil
		}
	}
}

func (p *Pipeline) logCancellation(c *speech.CancellationDetails) {
	if c == nil {
		p.logger.Warn("recognition canceled")
		return
	}
	switch c.Reason {
	case speech.CancellationEndOfStream:
		p.logger.Info("recognition canceled", "reason", c.Reason.String())
	case speech.CancellationError:
		p.logger.Error("recognition canceled",
			"reason", c.Reason.String(),
			"error_code", string(c.ErrorCode),
			"error_details", c.ErrorDetails,
			"hint", "did you update the subscription key and region?")
	default:
		p.logger.Warn("recognition canceled", "reason", c.Reason.String())
	}
}

// appendLine appends one line to the transcript, opening and closing the
// file each time so that every recognized line survives an interrupted run.
func appendLine(path, text string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening transcript: %w", err)
	}
	if _, err := f.WriteString(text + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("writing transcript: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing transcript: %w", err)
	}
	return nil
}
