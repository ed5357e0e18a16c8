package audio

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// Format describes interleaved signed PCM samples.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// DefaultFormat is what the speech backend returns: 24kHz mono 16-bit.
func DefaultFormat() Format {
	return Format{
		SampleRate: 24000,
		Channels:   1,
		BitDepth:   16,
	}
}

// BytesPerFrame returns the size of one sample across all channels.
func (f Format) BytesPerFrame() int {
	return f.Channels * f.BitDepth / 8
}

// Duration returns the play time of n bytes.
func (f Format) Duration(n int) time.Duration {
	frame := f.BytesPerFrame()
	if frame <= 0 || f.SampleRate <= 0 {
		return 0
	}
	frames := n / frame
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// ByteOffset converts d into a frame-aligned byte offset.
func (f Format) ByteOffset(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	frames := int64(d) * int64(f.SampleRate) / int64(time.Second)
	return frames * int64(f.BytesPerFrame())
}

// Buffer is decoded audio ready for playback.
type Buffer struct {
	PCM      []byte
	Format   Format
	Duration time.Duration
}

// Clamp limits d to [0, b.Duration].
func (b *Buffer) Clamp(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if d > b.Duration {
		return b.Duration
	}
	return d
}

// DecodePCM decodes a base64 payload of little-endian PCM in format f.
func DecodePCM(payload []byte, f Format) (*Buffer, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidAudio)
	}

	pcm := make([]byte, base64.StdEncoding.DecodedLen(len(payload)))
	n, err := base64.StdEncoding.Decode(pcm, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAudio, err)
	}
	pcm = pcm[:n]

	frame := f.BytesPerFrame()
	if frame <= 0 {
		return nil, fmt.Errorf("%w: unsupported format %+v", ErrInvalidAudio, f)
	}
	if len(pcm) < frame {
		return nil, fmt.Errorf("%w: %d bytes is shorter than one frame", ErrInvalidAudio, len(pcm))
	}
	// Drop a partial trailing frame.
	pcm = pcm[:len(pcm)-len(pcm)%frame]

	return &Buffer{
		PCM:      pcm,
		Format:   f,
		Duration: f.Duration(len(pcm)),
	}, nil
}

// EncodePCM is the inverse of DecodePCM.
func EncodePCM(pcm []byte) []byte {
	out := make([]byte, base64.StdEncoding.EncodedLen(len(pcm)))
	base64.StdEncoding.Encode(out, pcm)
	return out
}

// Tone generates a 16-bit sine wave of length d in format f.
func Tone(d time.Duration, hz float64, f Format) []byte {
	frames := int(int64(d) * int64(f.SampleRate) / int64(time.Second))
	buf := new(bytes.Buffer)
	buf.Grow(frames * f.BytesPerFrame())

	for i := 0; i < frames; i++ {
		v := int16(0.2 * math.MaxInt16 * math.Sin(2*math.Pi*hz*float64(i)/float64(f.SampleRate)))
		for c := 0; c < f.Channels; c++ {
			_ = binary.Write(buf, binary.LittleEndian, v)
		}
	}

	return buf.Bytes()
}
