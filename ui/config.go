package ui

import "time"

// Config contains TUI-specific configuration.
type Config struct {
	// MaxWidth caps the text column.
	MaxWidth int `env:"RECITE_MAX_WIDTH" envDefault:"100"`

	SeekStep   time.Duration `env:"RECITE_SEEK_STEP"   envDefault:"5s"`
	VolumeStep float64       `env:"RECITE_VOLUME_STEP" envDefault:"0.1"`

	// For debugging the UI
	AltScreen bool `env:"RECITE_ALT_SCREEN" envDefault:"true"`
}
