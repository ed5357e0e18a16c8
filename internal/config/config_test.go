package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/dgnsrekt/recite/internal/playback"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
	if cfg.Mode() != playback.ModeVerseByVerse {
		t.Errorf("default mode = %v", cfg.Mode())
	}
	if cfg.Synth.Engine != "gemini" {
		t.Errorf("default engine = %s", cfg.Synth.Engine)
	}
	if cfg.StoreConfig().MemoryCapacity != 64*1024*1024 {
		t.Errorf("memory capacity = %d", cfg.StoreConfig().MemoryCapacity)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid config",
			modify: func(c *Config) {},
		},
		{
			name:    "unknown mode",
			modify:  func(c *Config) { c.Playback.Mode = "shuffle" },
			wantErr: true,
			errMsg:  "unknown playback mode",
		},
		{
			name:    "volume too high",
			modify:  func(c *Config) { c.Playback.Volume = 1.5 },
			wantErr: true,
			errMsg:  "volume must be between",
		},
		{
			name:    "speed too low",
			modify:  func(c *Config) { c.Playback.Speed = 0.1 },
			wantErr: true,
			errMsg:  "speed must be between",
		},
		{
			name:    "negative repeat",
			modify:  func(c *Config) { c.Playback.Repeat = -1 },
			wantErr: true,
			errMsg:  "repeat cannot be negative",
		},
		{
			name:    "zero chunk size",
			modify:  func(c *Config) { c.Playback.ChunkSize = 0 },
			wantErr: true,
			errMsg:  "chunk size",
		},
		{
			name:    "negative delay",
			modify:  func(c *Config) { c.Playback.VerseGap = -time.Second },
			wantErr: true,
			errMsg:  "delays cannot be negative",
		},
		{
			name:    "invalid engine",
			modify:  func(c *Config) { c.Synth.Engine = "piper" },
			wantErr: true,
			errMsg:  "invalid engine",
		},
		{
			name:   "engine case is normalized",
			modify: func(c *Config) { c.Synth.Engine = "MOCK" },
		},
		{
			name:    "short timeout",
			modify:  func(c *Config) { c.Synth.Timeout = 10 * time.Millisecond },
			wantErr: true,
			errMsg:  "timeout must be at least",
		},
		{
			name:    "compression level",
			modify:  func(c *Config) { c.Cache.CompressionLevel = 9 },
			wantErr: true,
			errMsg:  "compression_level",
		},
		{
			name:    "sample rate",
			modify:  func(c *Config) { c.Audio.SampleRate = 12345 },
			wantErr: true,
			errMsg:  "invalid sample rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error %q does not mention %q", err, tt.errMsg)
			}
		})
	}
}

func TestConfigValidation_NormalizesEngine(t *testing.T) {
	cfg := Default()
	cfg.Synth.Engine = "Mock"
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Synth.Engine != "mock" {
		t.Errorf("engine = %q, want mock", cfg.Synth.Engine)
	}
}

func TestPolicy(t *testing.T) {
	cfg := Default()
	cfg.Playback.Start = 3
	cfg.Playback.Repeat = 2

	p := cfg.Policy()
	if p.Range.Start != 3 || p.Range.End != math.MaxInt {
		t.Errorf("range = %v, want 3 to the end", p.Range)
	}
	if p.RepeatCount != 2 || !p.Chunking || p.Chunk.Size != 15 || p.Chunk.Threshold != 20 {
		t.Errorf("policy = %+v", p)
	}

	cfg.Playback.End = 7
	if got := playback.Clamp(cfg.Policy().Range, 10); got != (playback.Range{Start: 3, End: 7}) {
		t.Errorf("clamped range = %v", got)
	}
}

func TestInvocationPhrase(t *testing.T) {
	cfg := Default()
	cfg.Invocation.Enabled = false

	inv := cfg.InvocationPhrase()
	if !inv.Disabled || inv.Text == "" || len(inv.Exclude) != 1 {
		t.Errorf("invocation = %+v", inv)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "recite.yml"), []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoad(t *testing.T) {
	dir := writeConfig(t, `
playback:
  mode: full-passage
  passage: 36
  start: 5
  repeat: 1
  verse_gap: 1s
synth:
  engine: mock
cache:
  memory_mb: 16
invocation:
  exclude: [9, 1]
`)

	v := viper.New()
	Setup(v, []string{dir})
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig() error = %v", err)
	}

	cfg, err := Load(v, Env{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Mode() != playback.ModeFullPassage {
		t.Errorf("mode = %v", cfg.Mode())
	}
	if cfg.Playback.Passage != 36 || cfg.Playback.Start != 5 || cfg.Playback.Repeat != 1 {
		t.Errorf("playback = %+v", cfg.Playback)
	}
	if cfg.Playback.VerseGap != time.Second {
		t.Errorf("verse gap = %v", cfg.Playback.VerseGap)
	}
	if cfg.Playback.ChunkGap != playback.DefaultDelays().ChunkGap {
		t.Errorf("unset chunk gap = %v, want default", cfg.Playback.ChunkGap)
	}
	if cfg.Cache.MemoryMB != 16 || cfg.Cache.DiskMB != 1024 {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if len(cfg.Invocation.Exclude) != 2 {
		t.Errorf("exclude = %v", cfg.Invocation.Exclude)
	}
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	dir := writeConfig(t, "playback:\n  mode: single\n  repeat: 4\n")
	t.Setenv("RECITE_PLAYBACK_REPEAT", "2")
	t.Setenv("RECITE_SYNTH_ENGINE", "mock")

	v := viper.New()
	Setup(v, []string{dir})
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig() error = %v", err)
	}

	cfg, err := Load(v, Env{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Playback.Repeat != 2 {
		t.Errorf("repeat = %d, want the environment value 2", cfg.Playback.Repeat)
	}
	if cfg.Mode() != playback.ModeSingle {
		t.Errorf("mode = %v, want the file value", cfg.Mode())
	}
	if cfg.Synth.Engine != "mock" {
		t.Errorf("engine = %q", cfg.Synth.Engine)
	}
}

func TestLoad_APIKeyFallback(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v, Env{LegacyAPIKey: "legacy"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Synth.APIKey != "legacy" {
		t.Errorf("api key = %q", cfg.Synth.APIKey)
	}

	v.Set("synth.api_key", "from-file")
	cfg, _ = Load(v, Env{APIKey: "from-env"})
	if cfg.Synth.APIKey != "from-file" {
		t.Errorf("configured key should win, got %q", cfg.Synth.APIKey)
	}
}

func TestLoad_Invalid(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("playback.volume", 7)

	if _, err := Load(v, Env{}); err == nil {
		t.Error("Load() accepted an invalid volume")
	}
}

func TestParseEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "abc")
	t.Setenv("RECITE_DEBUG", "true")

	e, err := ParseEnv()
	if err != nil {
		t.Fatalf("ParseEnv() error = %v", err)
	}
	if e.Key() != "abc" || !e.Debug {
		t.Errorf("env = %+v", e)
	}
}

func TestConfigDirs(t *testing.T) {
	t.Setenv("RECITE_CONFIG_HOME", "/etc/recite-test")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")

	dirs, err := ConfigDirs()
	if err != nil {
		t.Fatalf("ConfigDirs() error = %v", err)
	}
	if len(dirs) < 2 || dirs[0] != "/etc/recite-test" || dirs[1] != filepath.Join("/xdg", "recite") {
		t.Errorf("dirs = %v", dirs)
	}
}
