package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"time"
)

// SegmentOpts controls where a Segmenter cuts the input.
type SegmentOpts struct {
	// Target is the length after which a segment ends at the next pause.
	Target time.Duration
	// Max is the hard upper bound on a segment's length.
	Max time.Duration
	// MinSilence is how long a pause must last to end a segment.
	MinSilence time.Duration
	// SilenceThresholdDB is the RMS level in dBFS below which audio counts as silence.
	SilenceThresholdDB float64
}

// DefaultSegmentOpts returns the options used when none are configured.
func DefaultSegmentOpts() SegmentOpts {
	return SegmentOpts{
		Target:             15 * time.Second,
		Max:                55 * time.Second,
		MinSilence:         500 * time.Millisecond,
		SilenceThresholdDB: -40,
	}
}

func (o SegmentOpts) withDefaults() SegmentOpts {
	def := DefaultSegmentOpts()
	if o.Target <= 0 {
		o.Target = def.Target
	}
	if o.Max <= 0 {
		o.Max = def.Max
	}
	if o.Max < o.Target {
		o.Max = o.Target
	}
	if o.MinSilence <= 0 {
		o.MinSilence = def.MinSilence
	}
	if o.SilenceThresholdDB == 0 {
		o.SilenceThresholdDB = def.SilenceThresholdDB
	}
	return o
}

// Segment is a contiguous run of PCM frames cut from a WAV file.
type Segment struct {
	Index    int
	Offset   time.Duration
	Duration time.Duration
	Format   Format
	PCM      []byte
	// Silent is set when no block of the segment rose above the silence threshold.
	Silent bool
}

// WAV returns the segment as a standalone WAV file.
func (s *Segment) WAV() []byte {
	return WrapPCM(s.PCM, s.Format)
}

// Segmenter splits a WAV file into segments at pauses in the audio.
type Segmenter struct {
	file   *os.File
	pcm    io.Reader
	format Format
	opts   SegmentOpts

	block          []byte
	targetFrames   int64
	maxFrames      int64
	silenceFrames  int64
	consumedFrames int64
	index          int
	done           bool
}

// OpenSegmenter opens the WAV file at path for segmenting. Only integer PCM
// input is supported.
func OpenSegmenter(path string, opts SegmentOpts) (*Segmenter, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	d, format, err := decodeHeader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if format.AudioFormat != wavFormatPCM || format.BitDepth%8 != 0 || format.BitDepth > 32 {
		f.Close()
		return nil, fmt.Errorf("%s: unsupported sample format %s (tag %d)", path, format, format.AudioFormat)
	}
	if err := d.FwdToPCM(); err != nil || d.PCMChunk == nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrNoPCM)
	}

	opts = opts.withDefaults()
	framesFor := func(dur time.Duration) int64 {
		return int64(dur) * int64(format.SampleRate) / int64(time.Second)
	}

	// 10ms analysis blocks.
	blockFrames := format.SampleRate / 100
	if blockFrames < 1 {
		blockFrames = 1
	}

	return &Segmenter{
		file:          f,
		pcm:           d.PCMChunk.R,
		format:        format,
		opts:          opts,
		block:         make([]byte, blockFrames*format.BlockAlign()),
		targetFrames:  framesFor(opts.Target),
		maxFrames:     framesFor(opts.Max),
		silenceFrames: framesFor(opts.MinSilence),
	}, nil
}

// Format returns the format of the audio being segmented.
func (s *Segmenter) Format() Format {
	return s.format
}

// Next returns the next segment, or io.EOF once the audio is exhausted.
func (s *Segmenter) Next() (*Segment, error) {
	if s.done {
		return nil, io.EOF
	}

	align := s.format.BlockAlign()
	var (
		buf       bytes.Buffer
		frames    int64
		silentRun int64
		hasVoice  bool
	)
	for {
		n, err := io.ReadFull(s.pcm, s.block)
		n -= n % align
		if n > 0 {
			chunk := s.block[:n]
			buf.Write(chunk)
			f := int64(n / align)
			frames += f
			if s.isSilent(chunk) {
				silentRun += f
			} else {
				silentRun = 0
				hasVoice = true
			}
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			s.done = true
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading pcm: %w", err)
		}
		if frames >= s.maxFrames || (frames >= s.targetFrames && silentRun >= s.silenceFrames) {
			break
		}
	}

	if frames == 0 {
		return nil, io.EOF
	}

	seg := &Segment{
		Index:    s.index,
		Offset:   s.format.Duration(s.consumedFrames),
		Duration: s.format.Duration(frames),
		Format:   s.format,
		PCM:      buf.Bytes(),
		Silent:   !hasVoice,
	}
	s.index++
	s.consumedFrames += frames
	return seg, nil
}

// Close releases the underlying file.
func (s *Segmenter) Close() error {
	return s.file.Close()
}

func (s *Segmenter) isSilent(pcm []byte) bool {
	return RMSLevel(pcm, s.format.BitDepth) < s.opts.SilenceThresholdDB
}

// RMSLevel returns the RMS level of little-endian integer PCM in dBFS.
// Digital silence is reported as negative infinity.
func RMSLevel(pcm []byte, bitDepth int) float64 {
	width := bitDepth / 8
	if width == 0 || len(pcm) < width {
		return math.Inf(-1)
	}

	var sum float64
	n := 0
	for i := 0; i+width <= len(pcm); i += width {
		v := sampleValue(pcm[i : i+width])
		sum += v * v
		n++
	}

	fullScale := float64(int64(1) << (bitDepth - 1))
	rms := math.Sqrt(sum/float64(n)) / fullScale
	if rms == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms)
}

func sampleValue(b []byte) float64 {
	switch len(b) {
	case 1:
		// 8-bit WAV is unsigned.
		return float64(int(b[0]) - 128)
	case 2:
		return float64(int16(binary.LittleEndian.Uint16(b)))
	case 3:
		v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
		if v&0x800000 != 0 {
			v |= -1 << 24
		}
		return float64(v)
	case 4:
		return float64(int32(binary.LittleEndian.Uint32(b)))
	default:
		return 0
	}
}
