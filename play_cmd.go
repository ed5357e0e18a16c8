package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/dgnsrekt/recite/internal/config"
	"github.com/dgnsrekt/recite/internal/corpus"
	"github.com/dgnsrekt/recite/internal/playback"
	"github.com/dgnsrekt/recite/ui"
	"github.com/dgnsrekt/recite/utils"
)

var plain bool

var playCmd = &cobra.Command{
	Use:   "play [PASSAGE [START [END]]]",
	Short: "Play a passage",
	Long: paragraph(fmt.Sprintf("\n%s a passage verse by verse, as a single verse, or in full. "+
		"Playback is interactive on a terminal; use --plain for line output.", keyword("Play"))),
	Example: paragraph("recite play 1\nrecite play 2 255 --mode single --repeat 3\n" +
		"recite play 18 1 10 --mode full-passage --reciter fenrir\nrecite play 36 --infinite --plain"),
	Args: cobra.MaximumNArgs(3),
	PreRunE: func(_ *cobra.Command, args []string) error {
		return applyRangeArgs(args)
	},
	RunE: runPlay,
}

func init() {
	d := config.Default().Playback

	f := playCmd.Flags()
	f.StringP("mode", "m", d.Mode, "single, verse-by-verse or full-passage")
	f.StringP("reciter", "r", d.Reciter, "reciter ID or name")
	f.IntP("passage", "P", d.Passage, "passage to play")
	f.IntP("start", "s", d.Start, "first unit")
	f.IntP("end", "e", d.End, "last unit (0 plays to the end)")
	f.IntP("repeat", "n", d.Repeat, "extra iterations after the first")
	f.BoolP("infinite", "i", d.Infinite, "loop until stopped")
	f.Float64("volume", d.Volume, "gain from 0 to 1")
	f.Float64("speed", d.Speed, "speaking rate passed to the engine")
	f.Float64("pitch", d.Pitch, "pitch passed to the engine")
	f.Bool("chunking", d.Chunking, "split long full-passage ranges")
	f.Bool("prefetch", d.Prefetch, "synthesize the next segment while playing")
	f.Bool("watch", false, "reload the corpus file when it changes")
	f.BoolVar(&plain, "plain", false, "print one line per segment instead of the interactive player")

	for flag, key := range map[string]string{
		"mode":     "playback.mode",
		"reciter":  "playback.reciter",
		"passage":  "playback.passage",
		"start":    "playback.start",
		"end":      "playback.end",
		"repeat":   "playback.repeat",
		"infinite": "playback.infinite",
		"volume":   "playback.volume",
		"speed":    "playback.speed",
		"pitch":    "playback.pitch",
		"chunking": "playback.chunking",
		"prefetch": "playback.prefetch",
		"watch":    "corpus.watch",
	} {
		_ = viper.BindPFlag(key, f.Lookup(flag))
	}

	_ = playCmd.RegisterFlagCompletionFunc("reciter", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return newApp(config.Default()).catalog.IDs(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = playCmd.RegisterFlagCompletionFunc("mode", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"single", "verse-by-verse", "full-passage"}, cobra.ShellCompDirectiveNoFileComp
	})
}

// applyRangeArgs lets "recite play 2 10 20" stand for --passage 2 --start 10
// --end 20.
func applyRangeArgs(args []string) error {
	keys := []string{"playback.passage", "playback.start", "playback.end"}
	for i, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 0 {
			return fmt.Errorf("%q is not a valid %s", arg, strings.TrimPrefix(keys[i], "playback."))
		}
		viper.Set(keys[i], n)
	}
	if len(args) == 0 {
		return nil
	}

	// The config was loaded before the arguments were seen.
	c, err := config.Load(viper.GetViper(), mustEnv())
	if err != nil {
		return err //nolint:wrapcheck
	}
	cfg = c
	return nil
}

func mustEnv() config.Env {
	e, err := config.ParseEnv()
	if err != nil {
		log.Warn("ignoring environment", "err", err)
	}
	return e
}

func runPlay(cmd *cobra.Command, _ []string) error {
	a := newApp(cfg)
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("closing", "err", err)
		}
	}()

	passage, err := a.Passage(cfg.Playback.Passage)
	if err != nil {
		return err
	}
	reciter, err := a.Reciter()
	if err != nil {
		return err
	}

	req := playback.Request{
		Passage: passage,
		Mode:    cfg.Mode(),
		Voice:   a.Voice(reciter),
		Policy:  cfg.Policy(),
	}
	log.Info("play", "passage", passage.ID, "mode", req.Mode, "reciter", reciter.ID, "range", req.Policy.Range)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if plain || !term.IsTerminal(int(os.Stdout.Fd())) { //nolint:gosec
		return playPlain(ctx, a, req, os.Stdout)
	}
	return playTUI(ctx, a, req, reciter.Name)
}

func playTUI(ctx context.Context, a *app, req playback.Request, reciter string) error {
	// Read environment to get UI settings
	uiCfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	events := &ui.Events{}
	sched, err := a.Scheduler(events.OnStateChange, events.OnProgress)
	if err != nil {
		return err
	}

	prog := ui.NewProgram(uiCfg, ui.Session{
		Player:  sched,
		Request: req,
		Reciter: reciter,
		Volume:  cfg.Playback.Volume,
	})
	events.Attach(prog)
	defer events.Detach()

	if cfg.Corpus.Watch {
		go watchCorpus(ctx, a, req.Passage.ID, events.OnReload)
	}

	if _, err := prog.Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

// playPlain plays req to its end, printing one line per segment.
func playPlain(ctx context.Context, a *app, req playback.Request, w io.Writer) error {
	type stateEvent struct {
		state playback.State
		err   error
	}
	events := make(chan stateEvent, 256)

	sched, err := a.Scheduler(func(st playback.State, err error) {
		select {
		case events <- stateEvent{st, err}:
		default:
		}
	}, nil)
	if err != nil {
		return err
	}

	if err := sched.SetVolume(cfg.Playback.Volume); err != nil {
		return fmt.Errorf("unable to set volume: %w", err)
	}

	if cfg.Corpus.Watch {
		go watchCorpus(ctx, a, req.Passage.ID, func(*corpus.Passage) {
			fmt.Fprintln(w, faint("corpus reloaded; changes apply to the next run"))
		})
	}

	if err := sched.PlayRange(ctx, req); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return errors.New(playback.UserMessage(err))
	}

	// Missed events are covered by polling the state.
	poll := time.NewTicker(500 * time.Millisecond)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = sched.Stop()
			fmt.Fprintln(w, faint("stopped"))
			return nil

		case ev := <-events:
			switch ev.state.Status {
			case playback.StatusError:
				return errors.New(playback.UserMessage(ev.err))
			case playback.StatusIdle:
				fmt.Fprintln(w, faint("done"))
				return nil
			default:
				if line := plainLine(req.Passage, ev.state, sched.Progress()); line != "" {
					fmt.Fprintln(w, line)
				}
			}

		case <-poll.C:
			switch st := sched.State(); {
			case st.IsIdle():
				fmt.Fprintln(w, faint("done"))
				return nil
			case st.Status == playback.StatusError:
				return errors.New(playback.UserMessage(sched.Err()))
			}
		}
	}
}

// plainLine describes a state change for line output.
func plainLine(p *corpus.Passage, st playback.State, prog playback.Progress) string {
	ref := fmt.Sprintf("%d:%d", st.PassageID, st.UnitID)

	switch st.Status {
	case playback.StatusLoading:
		return faint("⟳ synthesizing " + ref)
	case playback.StatusPlaying:
		if st.Mode == playback.ModeFullPassage && prog.Chunks > 0 {
			return fmt.Sprintf("▶ %s  %s", keyword(ref), faint(fmt.Sprintf("chunk %d/%d", prog.Chunk, prog.Chunks)))
		}
		u, ok := p.Unit(st.UnitID)
		if !ok {
			return "▶ " + keyword(ref)
		}
		return fmt.Sprintf("▶ %s  %s", keyword(ref), utils.Truncate(u.Text, 60))
	default:
		return ""
	}
}

// watchCorpus reloads the corpus file and reports the new version of the
// playing passage.
func watchCorpus(ctx context.Context, a *app, passageID int, onReload func(*corpus.Passage)) {
	l, err := a.Library()
	if err != nil {
		return
	}
	err = l.Watch(ctx, func(err error) {
		if err != nil {
			return
		}
		if p, ok := l.Passage(passageID); ok {
			onReload(p)
		}
	})
	if err != nil {
		log.Warn("corpus watch stopped", "err", err)
	}
}
