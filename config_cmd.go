package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const defaultConfig = `# write debug output to the log file
debug: false

playback:
  # single, verse-by-verse or full-passage
  mode: "verse-by-verse"
  # reciter ID or name, see "recite reciters"
  reciter: "zephyr"
  passage: 1
  # first and last unit; an end of 0 plays to the end of the passage
  start: 1
  end: 0
  # extra iterations after the first, ignored when infinite
  repeat: 0
  infinite: false
  # gain from 0.0 to 1.0
  volume: 1.0
  # forwarded to the synthesis engine
  speed: 1.0
  pitch: 1.0
  # split long full-passage ranges into chunks
  chunking: true
  chunk_size: 15
  chunk_threshold: 20
  # synthesize the next segment while the current one plays
  prefetch: true
  verse_gap: "500ms"
  chunk_gap: "50ms"
  loop_gap: "250ms"
  repeat_gap: "500ms"
  tick: "100ms"

# opening phrase prepended when playback starts after the first unit
invocation:
  enabled: true
  # text: "..."
  exclude: [9]

cache:
  # dir: "~/.cache/recite/audio"
  memory_mb: 64
  disk_mb: 1024
  # zstd level 1 to 4, 0 disables compression
  compression_level: 3
  ttl_days: 30
  cleanup_interval: "1h"

synth:
  # gemini or mock
  engine: "gemini"
  # api_key: "..."   (or set GEMINI_API_KEY)
  # model: "gemini-2.5-flash-preview-tts"
  timeout: "60s"
  requests_per_minute: 10
  mock_delay: "300ms"
  mock_failure_rate: 0.0

corpus:
  # passage file in "passage|unit|text" lines, or Markdown when it ends in .md;
  # empty uses the built-in sample
  # path: "~/quran-uthmani.txt"
  # reload the file when it changes
  watch: false

audio:
  sample_rate: 24000
  buffer_size: 4096
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the recite config file",
	Long:    paragraph(fmt.Sprintf("\n%s the recite config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("recite config\nrecite config --config path/to/config.yml\nrecite config show"),
	Args:    cobra.NoArgs,
	// Editing must work even when the current file does not validate.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Recite", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long:  paragraph(fmt.Sprintf("\n%s the configuration after the config file, RECITE_ variables and flags are merged.", keyword("Print"))),
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := loadConfig(cmd); err != nil {
			return err
		}

		shown := cfg
		shown.Synth.APIKey = maskSecret(shown.Synth.APIKey)

		out, err := yaml.Marshal(shown)
		if err != nil {
			return fmt.Errorf("unable to encode config: %w", err)
		}
		if used := viper.ConfigFileUsed(); used != "" {
			fmt.Println(faint("# " + used))
		}
		fmt.Print(string(out))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "********"
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
