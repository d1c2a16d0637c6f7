// Package narrate implements the text-to-speech pipeline: a text file is cut
// into pages, each page is synthesized to its own WAV file, the page files
// are joined into one WAV and that WAV is encoded to MP3.
//
// For an input "dir/book.txt" the pipeline writes dir/book0000.wav,
// dir/book0001.wav, ..., dir/book.wav and dir/book.mp3.
package narrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nadzzz/speechkit/internal/audio"
	"github.com/nadzzz/speechkit/internal/pages"
	"github.com/nadzzz/speechkit/internal/speech"
	"github.com/nadzzz/speechkit/internal/tts"
)

// ErrNoPages is returned when the text has no lines to narrate.
var ErrNoPages = errors.New("no pages to narrate")

// Transcoder encodes a WAV file to MP3.
type Transcoder interface {
	ToMP3(ctx context.Context, src, dst string) error
}

// Publisher uploads a finished artifact and returns its object key.
type Publisher interface {
	Upload(ctx context.Context, path string) (string, error)
}

// Options controls a narration run.
type Options struct {
	// PageSize is the number of lines per page.
	PageSize int
	// StartPage skips the pages before it, whose files are expected to exist
	// from an earlier run.
	StartPage int
	// KeepPages leaves the page files in place after concatenation.
	KeepPages bool
	// Transcode enables the MP3 step.
	Transcode bool

	Language string
	Voice    string
}

// Result summarizes a narration run.
type Result struct {
	Pages       int
	Synthesized int
	PageFiles   []string
	WAVPath     string
	MP3Path     string
	Frames      int64
	Duration    time.Duration
	// TranscodeErr is set when the MP3 step failed; the WAV is still valid.
	TranscodeErr error
	Published    []string
}

// PageError reports a page whose synthesis did not complete. The run stops
// at the first such page.
type PageError struct {
	Page         int
	Reason       speech.Reason
	Cancellation *speech.CancellationDetails
	Err          error
}

func (e *PageError) Error() string {
	msg := fmt.Sprintf("page %d: synthesis ended with %s", e.Page, e.Reason)
	if c := e.Cancellation; c != nil {
		msg += fmt.Sprintf(" (%s", c.Reason)
		if c.Reason == speech.CancellationError {
			msg += fmt.Sprintf(": %s: %s", c.ErrorCode, c.ErrorDetails)
		}
		msg += ")"
	}
	return msg
}

func (e *PageError) Unwrap() error { return e.Err }

// Pipeline runs narrations with one synthesizer.
type Pipeline struct {
	synth      tts.Synthesizer
	transcoder Transcoder
	publisher  Publisher
	logger     *slog.Logger
	opts       Options
}

// New creates a pipeline. transcoder may be nil when opts.Transcode is off,
// and publisher may be nil to skip uploading.
func New(synth tts.Synthesizer, transcoder Transcoder, publisher Publisher, logger *slog.Logger, opts Options) *Pipeline {
	if opts.PageSize <= 0 {
		opts.PageSize = pages.DefaultSize
	}
	if opts.StartPage < 0 {
		opts.StartPage = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		synth:      synth,
		transcoder: transcoder,
		publisher:  publisher,
		logger:     logger.With("component", "narrate", "backend", synth.Name()),
		opts:       opts,
	}
}

// Run narrates the text file at path.
func (p *Pipeline) Run(ctx context.Context, path string) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("text file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("text file: %s is a directory", path)
	}

	dir := filepath.Dir(path)
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	res := &Result{
		WAVPath: filepath.Join(dir, base+".wav"),
		MP3Path: filepath.Join(dir, base+".mp3"),
	}

	if err := p.synthesizeAll(ctx, path, dir, base, res); err != nil {
		return res, err
	}

	if res.Pages == 0 {
		return res, fmt.Errorf("%w for %s", ErrNoPages, base)
	}
	files, err := PageFiles(dir, base, res.Pages)
	if err != nil {
		return res, err
	}
	res.PageFiles = files

	p.logger.Info("concatenating wav files", "count", len(files), "output", res.WAVPath)
	frames, err := audio.Concatenate(res.WAVPath, files)
	if err != nil {
		return res, fmt.Errorf("concatenating pages: %w", err)
	}
	res.Frames = frames
	if format, err := audio.ReadFormat(res.WAVPath); err == nil {
		res.Duration = format.Duration(frames)
	}

	if p.opts.Transcode && p.transcoder != nil {
		p.logger.Info("converting to mp3", "output", res.MP3Path)
		if err := p.transcoder.ToMP3(ctx, res.WAVPath, res.MP3Path); err != nil {
			p.logger.Warn("mp3 conversion failed, keeping wav", "error", err)
			res.TranscodeErr = err
		}
	}

	if !p.opts.KeepPages {
		p.removePages(files)
	}

	if p.publisher != nil {
		artifact := res.WAVPath
		if p.opts.Transcode && res.TranscodeErr == nil {
			artifact = res.MP3Path
		}
		key, err := p.publisher.Upload(ctx, artifact)
		if err != nil {
			return res, fmt.Errorf("publishing %s: %w", filepath.Base(artifact), err)
		}
		p.logger.Info("published narration", "key", key)
		res.Published = append(res.Published, key)
	}

	return res, nil
}

func (p *Pipeline) synthesizeAll(ctx context.Context, path, dir, base string, res *Result) error {
	lines, err := pages.ReadLines(path)
	if err != nil {
		return fmt.Errorf("reading text: %w", err)
	}
	pgs := pages.Paginate(lines, p.opts.PageSize)
	res.Pages = len(pgs)

	p.logger.Info("paged text", "lines", len(lines), "pages", len(pgs), "page_size", p.opts.PageSize, "start_page", p.opts.StartPage)

	opts := tts.SynthesizeOpts{Language: p.opts.Language, Voice: p.opts.Voice}
	for i := p.opts.StartPage; i < len(pgs); i++ {
		out := PagePath(dir, base, i)
		p.logger.Info("synthesizing page", "page", i, "of", len(pgs))

		sr, err := p.synth.Synthesize(ctx, pages.Join(pgs[i]), opts)
		if err != nil {
			return &PageError{
				Page:         i,
				Reason:       speech.ReasonCanceled,
				Cancellation: speech.CancellationFromError(err),
				Err:          err,
			}
		}
		if sr.Reason != speech.ReasonSynthesizingAudioCompleted {
			return &PageError{Page: i, Reason: sr.Reason, Cancellation: sr.Cancellation}
		}

		if err := os.WriteFile(out, sr.Audio, 0o644); err != nil {
			return fmt.Errorf("writing page %d: %w", i, err)
		}
		res.Synthesized++
	}
	return nil
}

func (p *Pipeline) removePages(files []string) {
	for _, f := range files {
		if err := os.Remove(f); err != nil {
			p.logger.Warn("removing page file", "path", f, "error", err)
		}
	}
}

// PagePath returns the file name of page index of the text named base.
func PagePath(dir, base string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("%s%04d.wav", base, index))
}

// PageFiles returns the files of pages 0..count-1 of base in dir. Every
// page must exist; files of other texts sharing the prefix, such as
// book20000.wav next to book.txt, are never picked up.
func PageFiles(dir, base string, count int) ([]string, error) {
	files := make([]string, count)
	for i := range files {
		path := PagePath(dir, base, i)
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		files[i] = path
	}
	return files, nil
}
