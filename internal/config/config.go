// Package config holds the recite configuration and its validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dgnsrekt/recite/internal/audio"
	"github.com/dgnsrekt/recite/internal/cache"
	"github.com/dgnsrekt/recite/internal/playback"
)

// Config is the complete recite configuration.
type Config struct {
	Debug bool `yaml:"debug"`

	Playback   PlaybackConfig   `yaml:"playback"`
	Invocation InvocationConfig `yaml:"invocation"`
	Cache      CacheConfig      `yaml:"cache"`
	Synth      SynthConfig      `yaml:"synth"`
	Corpus     CorpusConfig     `yaml:"corpus"`
	Audio      AudioConfig      `yaml:"audio"`
}

// PlaybackConfig selects what is played and how.
type PlaybackConfig struct {
	Mode     string `yaml:"mode"`
	Reciter  string `yaml:"reciter"`
	Passage  int    `yaml:"passage"`
	Start    int    `yaml:"start"`
	End      int    `yaml:"end"`
	Repeat   int    `yaml:"repeat"`
	Infinite bool   `yaml:"infinite"`

	Volume float64 `yaml:"volume"`
	Speed  float64 `yaml:"speed"`
	Pitch  float64 `yaml:"pitch"`

	Chunking       bool `yaml:"chunking"`
	ChunkSize      int  `yaml:"chunk_size"`
	ChunkThreshold int  `yaml:"chunk_threshold"`
	Prefetch       bool `yaml:"prefetch"`

	VerseGap  time.Duration `yaml:"verse_gap"`
	ChunkGap  time.Duration `yaml:"chunk_gap"`
	LoopGap   time.Duration `yaml:"loop_gap"`
	RepeatGap time.Duration `yaml:"repeat_gap"`
	Tick      time.Duration `yaml:"tick"`
}

// InvocationConfig controls the opening phrase.
type InvocationConfig struct {
	Enabled bool   `yaml:"enabled"`
	Text    string `yaml:"text"`
	Exclude []int  `yaml:"exclude"`
}

// CacheConfig sizes the audio cache.
type CacheConfig struct {
	Dir              string        `yaml:"dir"`
	MemoryMB         int           `yaml:"memory_mb"`
	DiskMB           int           `yaml:"disk_mb"`
	CompressionLevel int           `yaml:"compression_level"`
	TTLDays          int           `yaml:"ttl_days"`
	CleanupInterval  time.Duration `yaml:"cleanup_interval"`
}

// SynthConfig selects the speech backend.
type SynthConfig struct {
	Engine            string        `yaml:"engine"`
	APIKey            string        `yaml:"api_key,omitempty"`
	Model             string        `yaml:"model"`
	BaseURL           string        `yaml:"base_url"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`

	MockDelay       time.Duration `yaml:"mock_delay"`
	MockFailureRate float64       `yaml:"mock_failure_rate"`
}

// CorpusConfig locates the passage text.
type CorpusConfig struct {
	// Path is empty for the built-in sample.
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// AudioConfig configures the output device.
type AudioConfig struct {
	SampleRate int `yaml:"sample_rate"`
	BufferSize int `yaml:"buffer_size"`
}

// Engines are the accepted synth.engine values.
var Engines = []string{"gemini", "mock"}

// Default returns the configuration used when nothing is set.
func Default() Config {
	delays := playback.DefaultDelays()
	chunk := playback.DefaultChunkPolicy()
	inv := playback.DefaultInvocation()
	cc := cache.DefaultConfig()
	pc := audio.DefaultPlayerConfig()

	return Config{
		Playback: PlaybackConfig{
			Mode:           playback.ModeVerseByVerse.String(),
			Reciter:        "zephyr",
			Passage:        1,
			Start:          1,
			Volume:         1.0,
			Speed:          1.0,
			Pitch:          1.0,
			Chunking:       true,
			ChunkSize:      chunk.Size,
			ChunkThreshold: chunk.Threshold,
			Prefetch:       true,
			VerseGap:       delays.VerseGap,
			ChunkGap:       delays.ChunkGap,
			LoopGap:        delays.PassageLoopGap,
			RepeatGap:      delays.RepeatGap,
			Tick:           100 * time.Millisecond,
		},
		Invocation: InvocationConfig{
			Enabled: true,
			Text:    inv.Text,
			Exclude: inv.Exclude,
		},
		Cache: CacheConfig{
			MemoryMB:         int(cc.MemoryCapacity / humanize.MiByte),
			DiskMB:           int(cc.DiskCapacity / humanize.MiByte),
			CompressionLevel: cc.CompressionLevel,
			TTLDays:          int(cc.TTL / (24 * time.Hour)),
			CleanupInterval:  cc.CleanupInterval,
		},
		Synth: SynthConfig{
			Engine:            "gemini",
			Timeout:           60 * time.Second,
			RequestsPerMinute: 10,
			MockDelay:         300 * time.Millisecond,
		},
		Audio: AudioConfig{
			SampleRate: pc.SampleRate,
			BufferSize: pc.BufferSize,
		},
	}
}

// Validate checks the configuration and normalizes names.
func (c *Config) Validate() error {
	if _, err := playback.ParseMode(c.Playback.Mode); err != nil {
		return err
	}
	if err := c.Playback.validate(); err != nil {
		return fmt.Errorf("playback: %w", err)
	}
	if err := c.Cache.validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.Synth.validate(); err != nil {
		return fmt.Errorf("synth: %w", err)
	}
	if err := c.Audio.validate(); err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	return nil
}

func (c *PlaybackConfig) validate() error {
	if c.Passage < 1 {
		return fmt.Errorf("passage must be at least 1, got %d", c.Passage)
	}
	if c.Start < 0 || c.End < 0 {
		return fmt.Errorf("range bounds cannot be negative, got %d-%d", c.Start, c.End)
	}
	if c.Repeat < 0 {
		return fmt.Errorf("repeat cannot be negative, got %d", c.Repeat)
	}
	if c.Volume < 0.0 || c.Volume > 1.0 {
		return fmt.Errorf("volume must be between 0.0 and 1.0, got %.2f", c.Volume)
	}
	if c.Speed < 0.25 || c.Speed > 4.0 {
		return fmt.Errorf("speed must be between 0.25 and 4.0, got %.2f", c.Speed)
	}
	if c.Pitch < 0.5 || c.Pitch > 2.0 {
		return fmt.Errorf("pitch must be between 0.5 and 2.0, got %.2f", c.Pitch)
	}
	if c.ChunkSize < 1 || c.ChunkThreshold < 1 {
		return fmt.Errorf("chunk size and threshold must be positive, got %d and %d", c.ChunkSize, c.ChunkThreshold)
	}
	for _, d := range []time.Duration{c.VerseGap, c.ChunkGap, c.LoopGap, c.RepeatGap} {
		if d < 0 {
			return fmt.Errorf("delays cannot be negative, got %v", d)
		}
	}
	if c.Tick < 10*time.Millisecond {
		return fmt.Errorf("tick must be at least 10ms, got %v", c.Tick)
	}
	return nil
}

func (c *CacheConfig) validate() error {
	if c.MemoryMB < 1 || c.MemoryMB > 4096 {
		return fmt.Errorf("memory_mb must be between 1 and 4096, got %d", c.MemoryMB)
	}
	if c.DiskMB < 1 {
		return fmt.Errorf("disk_mb must be positive, got %d", c.DiskMB)
	}
	if c.CompressionLevel < 0 || c.CompressionLevel > 4 {
		return fmt.Errorf("compression_level must be between 0 and 4, got %d", c.CompressionLevel)
	}
	if c.TTLDays < 0 {
		return fmt.Errorf("ttl_days cannot be negative, got %d", c.TTLDays)
	}
	return nil
}

func (c *SynthConfig) validate() error {
	valid := false
	for _, e := range Engines {
		if strings.EqualFold(c.Engine, e) {
			valid = true
			c.Engine = e
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid engine '%s': must be one of %v", c.Engine, Engines)
	}

	if c.Timeout < time.Second {
		return fmt.Errorf("timeout must be at least 1 second, got %v", c.Timeout)
	}
	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute cannot be negative, got %d", c.RequestsPerMinute)
	}
	if c.MockFailureRate < 0.0 || c.MockFailureRate > 1.0 {
		return fmt.Errorf("mock_failure_rate must be between 0.0 and 1.0, got %f", c.MockFailureRate)
	}
	return nil
}

func (c *AudioConfig) validate() error {
	switch c.SampleRate {
	case 22050, 24000, 44100, 48000:
	default:
		return fmt.Errorf("invalid sample rate %d", c.SampleRate)
	}
	if c.BufferSize < 256 {
		return fmt.Errorf("buffer_size must be at least 256 bytes, got %d", c.BufferSize)
	}
	return nil
}

// Mode returns the configured playback mode.
func (c Config) Mode() playback.Mode {
	m, _ := playback.ParseMode(c.Playback.Mode)
	return m
}

// Policy returns the playback policy. An end of 0 means the last unit; the
// scheduler clamps the range to the passage.
func (c Config) Policy() playback.Policy {
	end := c.Playback.End
	if end == 0 {
		end = int(^uint(0) >> 1)
	}
	return playback.Policy{
		Range:       playback.Range{Start: c.Playback.Start, End: end},
		RepeatCount: c.Playback.Repeat,
		Infinite:    c.Playback.Infinite,
		Chunking:    c.Playback.Chunking,
		Chunk: playback.ChunkPolicy{
			Size:      c.Playback.ChunkSize,
			Threshold: c.Playback.ChunkThreshold,
		},
	}
}

// Delays returns the gaps between segments.
func (c Config) Delays() playback.Delays {
	return playback.Delays{
		VerseGap:       c.Playback.VerseGap,
		ChunkGap:       c.Playback.ChunkGap,
		PassageLoopGap: c.Playback.LoopGap,
		RepeatGap:      c.Playback.RepeatGap,
	}
}

// InvocationPhrase returns the opening phrase settings.
func (c Config) InvocationPhrase() playback.Invocation {
	return playback.Invocation{
		Text:     c.Invocation.Text,
		Exclude:  c.Invocation.Exclude,
		Disabled: !c.Invocation.Enabled,
	}
}

// StoreConfig returns the cache configuration.
func (c Config) StoreConfig() cache.Config {
	return cache.Config{
		Dir:              c.Cache.Dir,
		MemoryCapacity:   int64(c.Cache.MemoryMB) * humanize.MiByte,
		DiskCapacity:     int64(c.Cache.DiskMB) * humanize.MiByte,
		CompressionLevel: c.Cache.CompressionLevel,
		TTL:              time.Duration(c.Cache.TTLDays) * 24 * time.Hour,
		CleanupInterval:  c.Cache.CleanupInterval,
	}
}

// PlayerConfig returns the audio device configuration.
func (c Config) PlayerConfig() audio.PlayerConfig {
	pc := audio.DefaultPlayerConfig()
	pc.SampleRate = c.Audio.SampleRate
	pc.BufferSize = c.Audio.BufferSize
	return pc
}
