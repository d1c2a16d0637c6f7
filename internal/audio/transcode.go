package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Transcoder converts WAV files to MP3 by running ffmpeg.
type Transcoder struct {
	// FFmpegPath is the ffmpeg binary; "ffmpeg" is looked up on PATH when empty.
	FFmpegPath string
	// Quality is the libmp3lame VBR quality, 0 (best) to 9.
	Quality int
}

// ToMP3 encodes src into dst, overwriting dst if it exists.
func (t *Transcoder) ToMP3(ctx context.Context, src, dst string) error {
	bin := t.FFmpegPath
	if bin == "" {
		bin = "ffmpeg"
	}
	quality := t.Quality
	if quality < 0 || quality > 9 {
		quality = 2
	}

	cmd := exec.CommandContext(ctx, bin,
		"-y",
		"-i", src,
		"-c:a", "libmp3lame",
		"-q:a", strconv.Itoa(quality),
		dst,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("ffmpeg: %w", err)
		}
		return fmt.Errorf("ffmpeg: %w: %s", err, lastLine(msg))
	}
	return nil
}

// lastLine keeps the ffmpeg error short; the banner and stream info come first.
func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
