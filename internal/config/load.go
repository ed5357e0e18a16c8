package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/recite/utils"
)

// AppName names the config file, the env prefix and the app directories.
const AppName = "recite"

// Env holds settings read only from the environment.
type Env struct {
	APIKey       string `env:"GEMINI_API_KEY"`
	LegacyAPIKey string `env:"API_KEY"`
	Debug        bool   `env:"RECITE_DEBUG"`
	ConfigHome   string `env:"RECITE_CONFIG_HOME"`
}

// ParseEnv reads Env from the process environment.
func ParseEnv() (Env, error) {
	e, err := env.ParseAs[Env]()
	if err != nil {
		return Env{}, fmt.Errorf("error parsing environment: %w", err)
	}
	return e, nil
}

// Key returns the API key from the environment, if any.
func (e Env) Key() string {
	if e.APIKey != "" {
		return e.APIKey
	}
	return e.LegacyAPIKey
}

// ConfigDirs returns the directories searched for recite.yml, most specific
// first.
func ConfigDirs() ([]string, error) {
	dirs, err := gap.NewScope(gap.User, AppName).ConfigDirs()
	if err != nil {
		return nil, fmt.Errorf("could not find configuration directory: %w", err)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, AppName)}, dirs...)
	}
	if c := os.Getenv("RECITE_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}
	return dirs, nil
}

// Setup prepares v to read recite.yml from dirs and RECITE_* variables, and
// registers every default.
func Setup(v *viper.Viper, dirs []string) {
	for _, d := range dirs {
		v.AddConfigPath(d)
	}
	v.SetConfigName(AppName)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(AppName)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)
}

// SetDefaults registers the values of Default with v.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("debug", d.Debug)

	v.SetDefault("playback.mode", d.Playback.Mode)
	v.SetDefault("playback.reciter", d.Playback.Reciter)
	v.SetDefault("playback.passage", d.Playback.Passage)
	v.SetDefault("playback.start", d.Playback.Start)
	v.SetDefault("playback.end", d.Playback.End)
	v.SetDefault("playback.repeat", d.Playback.Repeat)
	v.SetDefault("playback.infinite", d.Playback.Infinite)
	v.SetDefault("playback.volume", d.Playback.Volume)
	v.SetDefault("playback.speed", d.Playback.Speed)
	v.SetDefault("playback.pitch", d.Playback.Pitch)
	v.SetDefault("playback.chunking", d.Playback.Chunking)
	v.SetDefault("playback.chunk_size", d.Playback.ChunkSize)
	v.SetDefault("playback.chunk_threshold", d.Playback.ChunkThreshold)
	v.SetDefault("playback.prefetch", d.Playback.Prefetch)
	v.SetDefault("playback.verse_gap", d.Playback.VerseGap)
	v.SetDefault("playback.chunk_gap", d.Playback.ChunkGap)
	v.SetDefault("playback.loop_gap", d.Playback.LoopGap)
	v.SetDefault("playback.repeat_gap", d.Playback.RepeatGap)
	v.SetDefault("playback.tick", d.Playback.Tick)

	v.SetDefault("invocation.enabled", d.Invocation.Enabled)
	v.SetDefault("invocation.text", d.Invocation.Text)
	v.SetDefault("invocation.exclude", d.Invocation.Exclude)

	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.memory_mb", d.Cache.MemoryMB)
	v.SetDefault("cache.disk_mb", d.Cache.DiskMB)
	v.SetDefault("cache.compression_level", d.Cache.CompressionLevel)
	v.SetDefault("cache.ttl_days", d.Cache.TTLDays)
	v.SetDefault("cache.cleanup_interval", d.Cache.CleanupInterval)

	v.SetDefault("synth.engine", d.Synth.Engine)
	v.SetDefault("synth.api_key", d.Synth.APIKey)
	v.SetDefault("synth.model", d.Synth.Model)
	v.SetDefault("synth.base_url", d.Synth.BaseURL)
	v.SetDefault("synth.timeout", d.Synth.Timeout)
	v.SetDefault("synth.requests_per_minute", d.Synth.RequestsPerMinute)
	v.SetDefault("synth.mock_delay", d.Synth.MockDelay)
	v.SetDefault("synth.mock_failure_rate", d.Synth.MockFailureRate)

	v.SetDefault("corpus.path", d.Corpus.Path)
	v.SetDefault("corpus.watch", d.Corpus.Watch)

	v.SetDefault("audio.sample_rate", d.Audio.SampleRate)
	v.SetDefault("audio.buffer_size", d.Audio.BufferSize)
}

// Load builds a Config from v: defaults, then the config file, then
// RECITE_* variables, then flags bound to v. An API key missing from all of
// those is taken from GEMINI_API_KEY or API_KEY.
func Load(v *viper.Viper, e Env) (Config, error) {
	var cfg Config

	cfg.Debug = v.GetBool("debug") || e.Debug

	cfg.Playback = PlaybackConfig{
		Mode:           v.GetString("playback.mode"),
		Reciter:        v.GetString("playback.reciter"),
		Passage:        v.GetInt("playback.passage"),
		Start:          v.GetInt("playback.start"),
		End:            v.GetInt("playback.end"),
		Repeat:         v.GetInt("playback.repeat"),
		Infinite:       v.GetBool("playback.infinite"),
		Volume:         v.GetFloat64("playback.volume"),
		Speed:          v.GetFloat64("playback.speed"),
		Pitch:          v.GetFloat64("playback.pitch"),
		Chunking:       v.GetBool("playback.chunking"),
		ChunkSize:      v.GetInt("playback.chunk_size"),
		ChunkThreshold: v.GetInt("playback.chunk_threshold"),
		Prefetch:       v.GetBool("playback.prefetch"),
		VerseGap:       v.GetDuration("playback.verse_gap"),
		ChunkGap:       v.GetDuration("playback.chunk_gap"),
		LoopGap:        v.GetDuration("playback.loop_gap"),
		RepeatGap:      v.GetDuration("playback.repeat_gap"),
		Tick:           v.GetDuration("playback.tick"),
	}

	cfg.Invocation = InvocationConfig{
		Enabled: v.GetBool("invocation.enabled"),
		Text:    v.GetString("invocation.text"),
		Exclude: v.GetIntSlice("invocation.exclude"),
	}

	cfg.Cache = CacheConfig{
		Dir:              utils.ExpandPath(v.GetString("cache.dir")),
		MemoryMB:         v.GetInt("cache.memory_mb"),
		DiskMB:           v.GetInt("cache.disk_mb"),
		CompressionLevel: v.GetInt("cache.compression_level"),
		TTLDays:          v.GetInt("cache.ttl_days"),
		CleanupInterval:  v.GetDuration("cache.cleanup_interval"),
	}

	cfg.Synth = SynthConfig{
		Engine:            v.GetString("synth.engine"),
		APIKey:            v.GetString("synth.api_key"),
		Model:             v.GetString("synth.model"),
		BaseURL:           v.GetString("synth.base_url"),
		Timeout:           v.GetDuration("synth.timeout"),
		RequestsPerMinute: v.GetInt("synth.requests_per_minute"),
		MockDelay:         v.GetDuration("synth.mock_delay"),
		MockFailureRate:   v.GetFloat64("synth.mock_failure_rate"),
	}
	if cfg.Synth.APIKey == "" {
		cfg.Synth.APIKey = e.Key()
	}

	cfg.Corpus = CorpusConfig{
		Path:  utils.ExpandPath(v.GetString("corpus.path")),
		Watch: v.GetBool("corpus.watch"),
	}

	cfg.Audio = AudioConfig{
		SampleRate: v.GetInt("audio.sample_rate"),
		BufferSize: v.GetInt("audio.buffer_size"),
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
