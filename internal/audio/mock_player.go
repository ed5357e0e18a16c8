package audio

import (
	"sync"
	"sync/atomic"
	"time"
)

// MockPipeline implements Pipeline for testing purposes. It never opens a
// device. Its clock only moves through Advance, and a buffer completes when
// Complete is called or, with WithAutoComplete, after a real-time delay.
type MockPipeline struct {
	mu sync.Mutex

	format    Format
	callbacks MockCallbacks

	// Manual clock
	clock     time.Duration
	suspended bool

	gain   float64
	closed bool

	// Current buffer
	current *Handle
	buffer  *Buffer
	offset  time.Duration
	plays   []MockPlay

	// Auto completion
	autoComplete bool
	delayFactor  float64
	timer        *time.Timer
	deadline     time.Time
	remaining    time.Duration

	// Failure injection
	decodeErr error
	playErr   error

	// Metrics for testing
	playCount    atomic.Int64
	stopCount    atomic.Int64
	suspendCount atomic.Int64
	resumeCount  atomic.Int64
}

// MockPlay records one Play call.
type MockPlay struct {
	Buffer *Buffer
	Offset time.Duration
}

// MockCallbacks provides hooks for testing.
type MockCallbacks struct {
	OnPlay    func(buf *Buffer, offset time.Duration)
	OnStop    func()
	OnSuspend func()
	OnResume  func()
}

// MockOption configures a MockPipeline.
type MockOption func(*MockPipeline)

// WithAutoComplete completes each buffer after its remaining duration scaled
// by factor. A factor of 0.01 plays one second of audio in 10ms.
func WithAutoComplete(factor float64) MockOption {
	return func(mp *MockPipeline) {
		mp.autoComplete = true
		mp.delayFactor = factor
	}
}

// WithMockCallbacks installs test hooks.
func WithMockCallbacks(cb MockCallbacks) MockOption {
	return func(mp *MockPipeline) {
		mp.callbacks = cb
	}
}

// WithMockFormat sets the format Decode assumes.
func WithMockFormat(f Format) MockOption {
	return func(mp *MockPipeline) {
		mp.format = f
	}
}

// NewMockPipeline creates a mock pipeline with the default format.
func NewMockPipeline(opts ...MockOption) *MockPipeline {
	mp := &MockPipeline{
		format:      DefaultFormat(),
		gain:        1.0,
		delayFactor: 1.0,
	}
	for _, opt := range opts {
		opt(mp)
	}
	return mp
}

// Decode implements Pipeline.
func (mp *MockPipeline) Decode(payload []byte) (*Buffer, error) {
	mp.mu.Lock()
	err := mp.decodeErr
	f := mp.format
	mp.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return DecodePCM(payload, f)
}

// Play implements Pipeline.
func (mp *MockPipeline) Play(buf *Buffer, offset time.Duration) (*Handle, error) {
	mp.mu.Lock()

	if mp.closed {
		mp.mu.Unlock()
		return nil, ErrPipelineClosed
	}
	if mp.playErr != nil {
		err := mp.playErr
		mp.mu.Unlock()
		return nil, err
	}
	if buf == nil || len(buf.PCM) == 0 {
		mp.mu.Unlock()
		return nil, ErrInvalidAudio
	}

	mp.stopLocked()

	offset = buf.Clamp(offset)
	h := newHandle()
	mp.current = h
	mp.buffer = buf
	mp.offset = offset
	mp.plays = append(mp.plays, MockPlay{Buffer: buf, Offset: offset})
	mp.playCount.Add(1)

	if mp.autoComplete {
		mp.remaining = time.Duration(float64(buf.Duration-offset) * mp.delayFactor)
		if !mp.suspended {
			mp.armLocked(h)
		}
	}

	onPlay := mp.callbacks.OnPlay
	mp.mu.Unlock()

	if onPlay != nil {
		onPlay(buf, offset)
	}
	return h, nil
}

func (mp *MockPipeline) armLocked(h *Handle) {
	mp.deadline = time.Now().Add(mp.remaining)
	mp.timer = time.AfterFunc(mp.remaining, func() {
		mp.finish(h)
	})
}

func (mp *MockPipeline) finish(h *Handle) bool {
	mp.mu.Lock()
	if mp.current != h || h == nil {
		mp.mu.Unlock()
		return false
	}
	mp.clearLocked()
	mp.mu.Unlock()

	h.finish()
	return true
}

// Complete finishes the current buffer as if it had played to the end and
// reports whether one was playing.
func (mp *MockPipeline) Complete() bool {
	mp.mu.Lock()
	h := mp.current
	mp.mu.Unlock()

	return mp.finish(h)
}

// Stop implements Pipeline.
func (mp *MockPipeline) Stop() error {
	mp.mu.Lock()
	mp.stopLocked()
	mp.mu.Unlock()
	return nil
}

func (mp *MockPipeline) stopLocked() {
	if mp.current == nil {
		return
	}
	mp.clearLocked()
	mp.stopCount.Add(1)

	if mp.callbacks.OnStop != nil {
		mp.callbacks.OnStop()
	}
}

func (mp *MockPipeline) clearLocked() {
	if mp.timer != nil {
		mp.timer.Stop()
		mp.timer = nil
	}
	mp.current = nil
	mp.buffer = nil
	mp.offset = 0
}

// Suspend implements Pipeline.
func (mp *MockPipeline) Suspend() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.closed {
		return ErrPipelineClosed
	}
	if mp.suspended {
		return nil
	}

	mp.suspended = true
	mp.suspendCount.Add(1)
	if mp.timer != nil {
		mp.timer.Stop()
		mp.timer = nil
		mp.remaining = time.Until(mp.deadline)
		if mp.remaining < 0 {
			mp.remaining = 0
		}
	}

	if mp.callbacks.OnSuspend != nil {
		mp.callbacks.OnSuspend()
	}
	return nil
}

// Resume implements Pipeline.
func (mp *MockPipeline) Resume() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.closed {
		return ErrPipelineClosed
	}
	if !mp.suspended {
		return nil
	}

	mp.suspended = false
	mp.resumeCount.Add(1)
	if mp.autoComplete && mp.current != nil {
		mp.armLocked(mp.current)
	}

	if mp.callbacks.OnResume != nil {
		mp.callbacks.OnResume()
	}
	return nil
}

// Now implements Pipeline.
func (mp *MockPipeline) Now() time.Duration {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	return mp.clock
}

// Advance moves the clock forward by d. The clock does not move while
// suspended.
func (mp *MockPipeline) Advance(d time.Duration) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if !mp.suspended {
		mp.clock += d
	}
}

// SetGain implements Pipeline.
func (mp *MockPipeline) SetGain(gain float64) error {
	if err := validateGain(gain); err != nil {
		return err
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.gain = gain
	return nil
}

// Close implements Pipeline.
func (mp *MockPipeline) Close() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.stopLocked()
	mp.closed = true
	return nil
}

// SetDecodeError makes every Decode fail with err until cleared with nil.
func (mp *MockPipeline) SetDecodeError(err error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.decodeErr = err
}

// SetPlayError makes every Play fail with err until cleared with nil.
func (mp *MockPipeline) SetPlayError(err error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.playErr = err
}

// Playing reports whether a buffer is loaded.
func (mp *MockPipeline) Playing() bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.current != nil
}

// Suspended reports whether the pipeline is suspended.
func (mp *MockPipeline) Suspended() bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.suspended
}

// Closed reports whether Close was called.
func (mp *MockPipeline) Closed() bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.closed
}

// Gain returns the last gain set.
func (mp *MockPipeline) Gain() float64 {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.gain
}

// Plays returns every Play call in order.
func (mp *MockPipeline) Plays() []MockPlay {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	out := make([]MockPlay, len(mp.plays))
	copy(out, mp.plays)
	return out
}

// PlayCount returns the number of Play calls.
func (mp *MockPipeline) PlayCount() int64 {
	return mp.playCount.Load()
}

// StopCount returns the number of times a loaded buffer was stopped.
func (mp *MockPipeline) StopCount() int64 {
	return mp.stopCount.Load()
}

// SuspendCount returns the number of Suspend calls that took effect.
func (mp *MockPipeline) SuspendCount() int64 {
	return mp.suspendCount.Load()
}

// ResumeCount returns the number of Resume calls that took effect.
func (mp *MockPipeline) ResumeCount() int64 {
	return mp.resumeCount.Load()
}
