package config

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// KindKey is the log attribute that selects the terminal color of a line
// independent of its level. See the Kind* values.
const KindKey = "kind"

// Values for KindKey.
const (
	KindSpeech = "speech"
	KindPause  = "pause"
	KindDone   = "done"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
	ansiGray   = "\x1b[90m"
)

// SetupLogging configures the global slog logger based on config.
//
// Format "auto" writes colored text when stdout is a terminal and JSON
// otherwise.
func SetupLogging(cfg LoggingConfig) {
	tty := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	slog.SetDefault(slog.New(newHandler(colorable.NewColorableStdout(), cfg, tty)))
}

func newHandler(w io.Writer, cfg LoggingConfig, tty bool) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	switch strings.ToLower(cfg.Format) {
	case "json":
		return slog.NewJSONHandler(w, opts)
	case "text":
		if tty {
			return newColorHandler(w, opts)
		}
		return slog.NewTextHandler(w, opts)
	default:
		if tty {
			return newColorHandler(w, opts)
		}
		return slog.NewJSONHandler(w, opts)
	}
}

// colorHandler formats records with a text handler and wraps each line in
// an ANSI color picked from the record's kind or level.
type colorHandler struct {
	text slog.Handler
	out  *colorSink
}

// colorSink is shared by a handler and everything derived from it.
type colorSink struct {
	mu  sync.Mutex
	w   io.Writer
	buf bytes.Buffer
}

func newColorHandler(w io.Writer, opts *slog.HandlerOptions) *colorHandler {
	out := &colorSink{w: w}
	return &colorHandler{text: slog.NewTextHandler(&out.buf, opts), out: out}
}

func (h *colorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.text.Enabled(ctx, level)
}

func (h *colorHandler) Handle(ctx context.Context, r slog.Record) error {
	h.out.mu.Lock()
	defer h.out.mu.Unlock()

	h.out.buf.Reset()
	if err := h.text.Handle(ctx, r); err != nil {
		return err
	}
	line := bytes.TrimSuffix(h.out.buf.Bytes(), []byte("\n"))

	color := colorFor(r)
	if color == "" {
		_, err := h.out.w.Write(append(line, '\n'))
		return err
	}
	_, err := io.WriteString(h.out.w, color+string(line)+ansiReset+"\n")
	return err
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &colorHandler{text: h.text.WithAttrs(attrs), out: h.out}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	return &colorHandler{text: h.text.WithGroup(name), out: h.out}
}

func colorFor(r slog.Record) string {
	var kind string
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == KindKey {
			kind = a.Value.String()
			return false
		}
		return true
	})
	switch kind {
	case KindSpeech:
		return ansiCyan
	case KindPause:
		return ansiGray
	case KindDone:
		return ansiGreen
	}

	switch {
	case r.Level >= slog.LevelError:
		return ansiRed
	case r.Level >= slog.LevelWarn:
		return ansiYellow
	case r.Level < slog.LevelInfo:
		return ansiGray
	default:
		return ""
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
