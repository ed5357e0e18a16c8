package audio

import (
	"errors"
	"sync"
	"time"
)

// Common errors for the audio package.
var (
	ErrInvalidAudio   = errors.New("invalid audio payload")
	ErrPipelineClosed = errors.New("audio pipeline is closed")
	ErrInvalidGain    = errors.New("gain must be between 0.0 and 1.0")
)

// Pipeline decodes and plays audio buffers. At most one buffer plays at a
// time; starting a new one stops the previous one first.
type Pipeline interface {
	// Decode turns an encoded payload into a playable buffer.
	Decode(payload []byte) (*Buffer, error)

	// Play starts buf at offset. The returned handle completes only when
	// the buffer plays to its end.
	Play(buf *Buffer, offset time.Duration) (*Handle, error)

	// Stop silences the current buffer without completing its handle.
	Stop() error

	// Suspend freezes the clock and the device; Resume continues both.
	Suspend() error
	Resume() error

	// Now returns the pipeline clock.
	Now() time.Duration

	// SetGain sets the output gain in [0, 1].
	SetGain(gain float64) error

	// Close releases the device. The pipeline cannot be used afterwards.
	Close() error
}

// Handle tracks one Play call.
type Handle struct {
	done chan struct{}
	once sync.Once
}

func newHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

// Done is closed when the buffer has played to its end. It is never closed
// for a buffer that was stopped or replaced.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

func (h *Handle) finish() {
	h.once.Do(func() { close(h.done) })
}

func validateGain(gain float64) error {
	if gain < 0 || gain > 1 {
		return ErrInvalidGain
	}
	return nil
}
