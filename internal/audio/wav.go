// Package audio reads, writes, joins and splits WAV files, and hands the
// MP3 encoding of finished narrations to ffmpeg.
//
// Header parsing and PCM frame I/O go through github.com/go-audio/wav; the
// package only adds the format checks and file-level operations the
// pipelines need.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var (
	// ErrInvalidWAV is returned for files that are not RIFF/WAVE audio.
	ErrInvalidWAV = errors.New("not a valid wav file")
	// ErrNoPCM is returned when a WAV file has no data chunk.
	ErrNoPCM = errors.New("wav file has no pcm data")
	// ErrFormatMismatch is returned when WAV files that must share a format do not.
	ErrFormatMismatch = errors.New("wav files do not share the same format")
)

// wavFormatPCM is the WAVE format tag for integer PCM.
const wavFormatPCM = 1

// Format describes the layout of PCM audio in a WAV file.
type Format struct {
	SampleRate  int
	Channels    int
	BitDepth    int
	AudioFormat int
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/%dbit", f.SampleRate, f.Channels, f.BitDepth)
}

// BlockAlign is the size in bytes of one frame (one sample per channel).
func (f Format) BlockAlign() int {
	return f.Channels * f.BitDepth / 8
}

// Duration returns the playing time of the given number of frames.
func (f Format) Duration(frames int64) time.Duration {
	if f.SampleRate == 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// FileInfo summarizes a WAV file.
type FileInfo struct {
	Format   Format
	Frames   int64
	Duration time.Duration
}

// ReadFormat returns the format of the WAV file at path.
func ReadFormat(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return Format{}, err
	}
	defer f.Close()

	_, format, err := decodeHeader(f)
	if err != nil {
		return Format{}, fmt.Errorf("%s: %w", path, err)
	}
	return format, nil
}

// DecodeFormat returns the format of WAV data held in memory.
func DecodeFormat(data []byte) (Format, error) {
	_, format, err := decodeHeader(bytes.NewReader(data))
	return format, err
}

// Info reads the format and counts the frames of the WAV file at path.
func Info(path string) (*FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d, format, err := decodeHeader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var samples int64
	err = eachPCMBlock(d, format, func(buf *goaudio.IntBuffer) error {
		samples += int64(len(buf.Data))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	frames := samples / int64(format.Channels)
	return &FileInfo{
		Format:   format,
		Frames:   frames,
		Duration: format.Duration(frames),
	}, nil
}

func decodeHeader(r io.ReadSeeker) (*wav.Decoder, Format, error) {
	d := wav.NewDecoder(r)
	d.ReadInfo()
	if err := d.Err(); err != nil {
		return nil, Format{}, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}
	if d.NumChans < 1 || d.BitDepth < 8 || d.SampleRate == 0 {
		return nil, Format{}, ErrInvalidWAV
	}
	return d, Format{
		SampleRate:  int(d.SampleRate),
		Channels:    int(d.NumChans),
		BitDepth:    int(d.BitDepth),
		AudioFormat: int(d.WavAudioFormat),
	}, nil
}

// eachPCMBlock streams the decoder's PCM data in blocks of whole frames.
// The buffer passed to fn is reused between calls.
func eachPCMBlock(d *wav.Decoder, format Format, fn func(*goaudio.IntBuffer) error) error {
	if err := d.FwdToPCM(); err != nil {
		return fmt.Errorf("%w: %v", ErrNoPCM, err)
	}

	const blockFrames = 4096
	data := make([]int, blockFrames*format.Channels)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
		SourceBitDepth: format.BitDepth,
	}
	for {
		buf.Data = data
		n, err := d.PCMBuffer(buf)
		if err != nil {
			return fmt.Errorf("reading pcm: %w", err)
		}
		if n == 0 {
			return nil
		}
		buf.Data = data[:n]
		if err := fn(buf); err != nil {
			return err
		}
	}
}

type wavHeader struct {
	RiffID        [4]byte
	RiffSize      uint32
	WaveID        [4]byte
	FmtID         [4]byte
	FmtSize       uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	DataID        [4]byte
	DataSize      uint32
}

// WrapPCM wraps raw little-endian PCM in a canonical 44-byte WAV header.
func WrapPCM(pcm []byte, f Format) []byte {
	audioFormat := f.AudioFormat
	if audioFormat == 0 {
		audioFormat = wavFormatPCM
	}
	h := wavHeader{
		RiffID:        [4]byte{'R', 'I', 'F', 'F'},
		RiffSize:      uint32(36 + len(pcm)),
		WaveID:        [4]byte{'W', 'A', 'V', 'E'},
		FmtID:         [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		AudioFormat:   uint16(audioFormat),
		NumChannels:   uint16(f.Channels),
		SampleRate:    uint32(f.SampleRate),
		ByteRate:      uint32(f.SampleRate * f.BlockAlign()),
		BlockAlign:    uint16(f.BlockAlign()),
		BitsPerSample: uint16(f.BitDepth),
		DataID:        [4]byte{'d', 'a', 't', 'a'},
		DataSize:      uint32(len(pcm)),
	}

	buf := bytes.NewBuffer(make([]byte, 0, 44+len(pcm)))
	_ = binary.Write(buf, binary.LittleEndian, h)
	buf.Write(pcm)
	return buf.Bytes()
}
