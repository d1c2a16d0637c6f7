package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrNoSources is returned by Concatenate when there is nothing to join.
var ErrNoSources = errors.New("no wav files to concatenate")

// Concatenate writes the PCM frames of every source, in order, into a new WAV
// file at dst and returns the number of frames written.
//
// All sources must share the format of the first one. The formats are checked
// before dst is touched; on any failure no file is left at dst.
func Concatenate(dst string, sources []string) (int64, error) {
	if len(sources) == 0 {
		return 0, ErrNoSources
	}

	format, err := ReadFormat(sources[0])
	if err != nil {
		return 0, err
	}
	for _, src := range sources[1:] {
		f, err := ReadFormat(src)
		if err != nil {
			return 0, err
		}
		if f != format {
			return 0, fmt.Errorf("%w: %s is %s, want %s", ErrFormatMismatch, src, f, format)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+"-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("creating output: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	enc := wav.NewEncoder(tmp, format.SampleRate, format.BitDepth, format.Channels, encoderFormat(format))

	var frames int64
	for _, src := range sources {
		n, err := appendPCM(enc, src, format)
		if err != nil {
			return 0, err
		}
		frames += n
	}
	if frames == 0 {
		// An empty write still emits the header and data chunk.
		if err := enc.Write(&goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
			Data:           []int{},
			SourceBitDepth: format.BitDepth,
		}); err != nil {
			return 0, fmt.Errorf("writing %s: %w", dst, err)
		}
	}

	if err := enc.Close(); err != nil {
		return 0, fmt.Errorf("finalizing %s: %w", dst, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("closing %s: %w", dst, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return 0, fmt.Errorf("renaming output: %w", err)
	}
	committed = true
	return frames, nil
}

func appendPCM(enc *wav.Encoder, src string, want Format) (int64, error) {
	f, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	d, format, err := decodeHeader(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", src, err)
	}
	if format != want {
		return 0, fmt.Errorf("%w: %s is %s, want %s", ErrFormatMismatch, src, format, want)
	}

	var samples int64
	err = eachPCMBlock(d, format, func(buf *goaudio.IntBuffer) error {
		samples += int64(len(buf.Data))
		return enc.Write(buf)
	})
	if err != nil {
		return 0, fmt.Errorf("copying %s: %w", src, err)
	}
	return samples / int64(format.Channels), nil
}

func encoderFormat(f Format) int {
	if f.AudioFormat == 0 {
		return wavFormatPCM
	}
	return f.AudioFormat
}
