package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// pollInterval is how often a playing buffer is checked for its end.
const pollInterval = 20 * time.Millisecond

// PlayerConfig contains configuration for the oto pipeline.
type PlayerConfig struct {
	SampleRate int // 22050, 24000, 44100 or 48000 Hz
	Channels   int // 1 = mono, 2 = stereo
	BitDepth   int // 16 bits per sample
	BufferSize int // device buffer in bytes
}

// DefaultPlayerConfig returns the configuration matching DefaultFormat.
func DefaultPlayerConfig() PlayerConfig {
	f := DefaultFormat()
	return PlayerConfig{
		SampleRate: f.SampleRate,
		Channels:   f.Channels,
		BitDepth:   f.BitDepth,
		BufferSize: 4096,
	}
}

// Format returns the PCM format the configuration plays.
func (c PlayerConfig) Format() Format {
	return Format{
		SampleRate: c.SampleRate,
		Channels:   c.Channels,
		BitDepth:   c.BitDepth,
	}
}

// validateConfig validates the player configuration.
func validateConfig(config PlayerConfig) error {
	switch config.SampleRate {
	case 22050, 24000, 44100, 48000:
	default:
		return fmt.Errorf("sample rate must be 22050, 24000, 44100 or 48000 Hz, got %d", config.SampleRate)
	}

	if config.Channels != 1 && config.Channels != 2 {
		return fmt.Errorf("channels must be 1 (mono) or 2 (stereo), got %d", config.Channels)
	}

	if config.BitDepth != 16 {
		return fmt.Errorf("bit depth must be 16, got %d", config.BitDepth)
	}

	if config.BufferSize <= 0 {
		return errors.New("buffer size must be positive")
	}

	return nil
}

// OtoPipeline plays buffers through the system audio device.
//
// The oto context is created on the first Play. oto allows one context per
// process, so an OtoPipeline should be shared rather than recreated.
type OtoPipeline struct {
	config PlayerConfig
	format Format

	initOnce sync.Once
	initErr  error
	context  *oto.Context

	mu     sync.Mutex
	player *oto.Player
	// data keeps the PCM alive while oto reads from it.
	data   []byte
	handle *Handle
	gain   float64
	closed bool

	// clock
	suspended bool
	base      time.Duration
	resumedAt time.Time
}

// NewOtoPipeline validates config and returns a pipeline. No device is opened
// until the first Play.
func NewOtoPipeline(config PlayerConfig) (*OtoPipeline, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &OtoPipeline{
		config:    config,
		format:    config.Format(),
		gain:      1.0,
		resumedAt: time.Now(),
	}, nil
}

func (p *OtoPipeline) ensureContext() error {
	p.initOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   p.config.SampleRate,
			ChannelCount: p.config.Channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   p.format.Duration(p.config.BufferSize),
		}

		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			p.initErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-ready

		log.Debug("audio device ready", "rate", p.config.SampleRate, "channels", p.config.Channels)
		p.context = ctx
	})
	return p.initErr
}

// Decode implements Pipeline.
func (p *OtoPipeline) Decode(payload []byte) (*Buffer, error) {
	return DecodePCM(payload, p.format)
}

// Play implements Pipeline.
func (p *OtoPipeline) Play(buf *Buffer, offset time.Duration) (*Handle, error) {
	if buf == nil || len(buf.PCM) == 0 {
		return nil, fmt.Errorf("%w: empty buffer", ErrInvalidAudio)
	}
	if buf.Format != p.format {
		return nil, fmt.Errorf("%w: buffer format %+v does not match device %+v", ErrInvalidAudio, buf.Format, p.format)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPipelineClosed
	}
	if err := p.ensureContext(); err != nil {
		return nil, err
	}

	p.stopLocked()

	reader := bytes.NewReader(buf.PCM)
	if _, err := reader.Seek(p.format.ByteOffset(buf.Clamp(offset)), io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAudio, err)
	}

	player := p.context.NewPlayer(reader)
	player.SetVolume(p.gain)
	player.Play()

	h := newHandle()
	p.player = player
	p.data = buf.PCM
	p.handle = h

	go p.watch(player, h)

	return h, nil
}

// watch completes h once player drains, unless it is replaced first.
func (p *OtoPipeline) watch(player *oto.Player, h *Handle) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for range ticker.C {
		p.mu.Lock()
		if p.player != player {
			p.mu.Unlock()
			return
		}
		if p.suspended || player.IsPlaying() {
			p.mu.Unlock()
			continue
		}

		if err := player.Err(); err != nil {
			log.Warn("audio player error", "err", err)
		}
		p.releaseLocked()
		p.mu.Unlock()

		h.finish()
		return
	}
}

// Stop implements Pipeline.
func (p *OtoPipeline) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	return nil
}

func (p *OtoPipeline) stopLocked() {
	if p.player == nil {
		return
	}
	p.player.Pause()
	p.releaseLocked()
}

func (p *OtoPipeline) releaseLocked() {
	if err := p.player.Close(); err != nil {
		log.Debug("closing audio player", "err", err)
	}
	p.player = nil
	p.data = nil
	p.handle = nil
}

// Suspend implements Pipeline.
func (p *OtoPipeline) Suspend() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPipelineClosed
	}
	if p.suspended {
		return nil
	}

	if p.context != nil {
		if err := p.context.Suspend(); err != nil {
			return fmt.Errorf("failed to suspend audio device: %w", err)
		}
	}

	p.base = p.clockLocked()
	p.suspended = true
	return nil
}

// Resume implements Pipeline.
func (p *OtoPipeline) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPipelineClosed
	}
	if !p.suspended {
		return nil
	}

	if p.context != nil {
		if err := p.context.Resume(); err != nil {
			return fmt.Errorf("failed to resume audio device: %w", err)
		}
	}

	p.suspended = false
	p.resumedAt = time.Now()
	return nil
}

// Now implements Pipeline.
func (p *OtoPipeline) Now() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.clockLocked()
}

func (p *OtoPipeline) clockLocked() time.Duration {
	if p.suspended {
		return p.base
	}
	return p.base + time.Since(p.resumedAt)
}

// SetGain implements Pipeline.
func (p *OtoPipeline) SetGain(gain float64) error {
	if err := validateGain(gain); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.gain = gain
	if p.player != nil {
		p.player.SetVolume(gain)
	}
	return nil
}

// Close implements Pipeline. The device is suspended rather than destroyed
// since oto cannot create a second context.
func (p *OtoPipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.stopLocked()
	p.closed = true

	if p.context != nil && !p.suspended {
		if err := p.context.Suspend(); err != nil {
			return fmt.Errorf("failed to release audio device: %w", err)
		}
	}
	return nil
}
