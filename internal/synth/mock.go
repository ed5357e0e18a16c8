package synth

import (
	"context"
	"hash/fnv"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/recite/internal/audio"
)

// MockBackend implements Backend for testing and offline use. It returns a
// tone whose length follows the word count of the request, so playback
// timing behaves like real speech.
type MockBackend struct {
	mu sync.Mutex

	// Configuration
	delay       time.Duration
	wordLength  time.Duration
	failureRate float64
	rng         *rand.Rand

	// Control for testing
	err   error
	calls []Request
}

// MockOption configures a MockBackend.
type MockOption func(*MockBackend)

// WithMockDelay simulates backend latency.
func WithMockDelay(d time.Duration) MockOption {
	return func(m *MockBackend) {
		m.delay = d
	}
}

// WithFailureRate makes a fraction of calls fail with ErrNoAudio.
func WithFailureRate(rate float64) MockOption {
	return func(m *MockBackend) {
		m.failureRate = rate
	}
}

// WithWordLength sets the audio length produced per word.
func WithWordLength(d time.Duration) MockOption {
	return func(m *MockBackend) {
		m.wordLength = d
	}
}

// WithSeed fixes the failure sequence.
func WithSeed(seed int64) MockOption {
	return func(m *MockBackend) {
		m.rng = rand.New(rand.NewSource(seed))
	}
}

// NewMockBackend creates a mock backend with sensible defaults.
func NewMockBackend(opts ...MockOption) *MockBackend {
	m := &MockBackend{
		wordLength: 400 * time.Millisecond,
		rng:        rand.New(rand.NewSource(1)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Synthesize implements Backend.
func (m *MockBackend) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	text := CleanText(req.Text)
	if text == "" {
		return nil, ErrEmptyText
	}

	m.mu.Lock()
	m.calls = append(m.calls, req)
	forced := m.err
	fail := m.failureRate > 0 && m.rng.Float64() < m.failureRate
	delay := m.delay
	wordLength := m.wordLength
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if forced != nil {
		return nil, forced
	}
	if fail {
		return nil, ErrNoAudio
	}

	words := len(strings.Fields(text))
	d := time.Duration(words) * wordLength
	if req.Speed > 0 {
		d = time.Duration(float64(d) / req.Speed)
	}

	return audio.EncodePCM(audio.Tone(d, toneFor(req), audio.DefaultFormat())), nil
}

// toneFor gives each voice its own frequency.
func toneFor(req Request) float64 {
	h := fnv.New32a()
	h.Write([]byte(req.Voice))
	hz := 180 + float64(h.Sum32()%120)
	if req.Pitch > 0 {
		hz *= req.Pitch
	}
	return hz
}

// SetError makes every call fail with err until cleared with nil.
func (m *MockBackend) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns every request received, in order.
func (m *MockBackend) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of requests received.
func (m *MockBackend) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
