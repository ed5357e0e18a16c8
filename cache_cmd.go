package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dgnsrekt/recite/internal/playback"
	"github.com/dgnsrekt/recite/utils"
)

var (
	cacheReciter string
	cachePassage int
	warmJobs     int
	regenNow     bool

	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the audio cache",
		Long:  paragraph(fmt.Sprintf("\n%s the synthesized audio kept on disk between runs.", keyword("Manage"))),
		Args:  cobra.NoArgs,
	}

	cacheStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show cache size and usage",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return withApp(func(a *app) error {
				s, err := a.Store()
				if err != nil {
					return err
				}

				fmt.Print(s.Summary())
				entries := s.Entries()
				if len(entries) == 0 {
					return nil
				}
				fmt.Println()
				fmt.Println(keyword("recently used"))
				for _, e := range entries[:min(len(entries), 10)] {
					fmt.Printf("  %-32s %8s  %s\n", e.Key, humanize.Bytes(uint64(e.Size)), faint(humanize.Time(e.LastAccess))) //nolint:gosec
				}
				return nil
			})
		},
	}

	cacheClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Delete cached audio",
		Long: paragraph(fmt.Sprintf("\n%s cached audio: everything, or only one reciter with --reciter, "+
			"optionally narrowed to one passage with --passage.", keyword("Delete"))),
		Example: paragraph("recite cache clear\nrecite cache clear --reciter kore --passage 2"),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(func(a *app) error {
				s, err := a.Store()
				if err != nil {
					return err
				}

				if cacheReciter == "" {
					before := s.Summary().Disk
					if err := s.Clear(); err != nil {
						return fmt.Errorf("unable to clear cache: %w", err)
					}
					fmt.Printf("Removed %d entries (%s) from %s\n", before.ItemCount, humanize.Bytes(uint64(before.Size)), s.Dir()) //nolint:gosec
					return nil
				}

				a.cfg.Playback.Reciter = cacheReciter
				r, err := a.Reciter()
				if err != nil {
					return err
				}
				n, err := s.DeletePrefix(cmd.Context(), playback.KeyPrefix(r.ID, cachePassage))
				if err != nil {
					return fmt.Errorf("unable to clear cache: %w", err)
				}
				fmt.Printf("Removed %d entries for %s\n", n, r.ID)
				return nil
			})
		},
	}

	cacheRegenerateCmd = &cobra.Command{
		Use:   "regenerate PASSAGE UNIT",
		Short: "Drop the cached audio of one verse",
		Long: paragraph(fmt.Sprintf("\n%s the cached audio of one verse so it is synthesized again "+
			"the next time it plays, or right away with --now.", keyword("Drop"))),
		Example: paragraph("recite cache regenerate 2 255\nrecite cache regenerate 1 1 --reciter charon --now"),
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			passageID, unitID, err := parseUnitArgs(args)
			if err != nil {
				return err
			}

			return withApp(func(a *app) error {
				if cacheReciter != "" {
					a.cfg.Playback.Reciter = cacheReciter
				}
				return regenerate(cmd.Context(), a, passageID, unitID)
			})
		},
	}

	cacheWarmCmd = &cobra.Command{
		Use:   "warm PASSAGE [START [END]]",
		Short: "Synthesize a range ahead of time",
		Long: paragraph(fmt.Sprintf("\n%s every verse of a range into the cache so later playback "+
			"starts without waiting on the engine.", keyword("Synthesize"))),
		Example: paragraph("recite cache warm 1\nrecite cache warm 2 1 20 --reciter kore --jobs 2"),
		Args:    cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := playback.Range{Start: 1, End: int(^uint(0) >> 1)}
			nums := make([]int, len(args))
			for i, arg := range args {
				n, err := strconv.Atoi(arg)
				if err != nil || n < 1 {
					return fmt.Errorf("%q is not a valid number", arg)
				}
				nums[i] = n
			}
			if len(nums) > 1 {
				r.Start = nums[1]
			}
			if len(nums) > 2 {
				r.End = nums[2]
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return withApp(func(a *app) error {
				if cacheReciter != "" {
					a.cfg.Playback.Reciter = cacheReciter
				}
				return warm(ctx, a, nums[0], r)
			})
		},
	}
)

func init() {
	for _, c := range []*cobra.Command{cacheClearCmd, cacheRegenerateCmd, cacheWarmCmd} {
		c.Flags().StringVarP(&cacheReciter, "reciter", "r", "", "reciter ID or name (default from config)")
	}
	cacheClearCmd.Flags().IntVarP(&cachePassage, "passage", "P", 0, "only this passage (with --reciter)")
	cacheRegenerateCmd.Flags().BoolVar(&regenNow, "now", false, "synthesize the verse again immediately")
	cacheWarmCmd.Flags().IntVarP(&warmJobs, "jobs", "j", 2, "concurrent synthesis requests")

	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd, cacheRegenerateCmd, cacheWarmCmd)
}

// withApp runs f with an app built from the loaded config and closes it.
func withApp(f func(a *app) error) error {
	a := newApp(cfg)
	err := f(a)
	if cerr := a.Close(); cerr != nil {
		log.Warn("closing", "err", cerr)
	}
	return err
}

func parseUnitArgs(args []string) (int, int, error) {
	passageID, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, fmt.Errorf("%q is not a valid passage", args[0])
	}
	unitID, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%q is not a valid unit", args[1])
	}
	return passageID, unitID, nil
}

// regenerate drops both cached variants of one unit: on its own and with
// the invocation phrase.
func regenerate(ctx context.Context, a *app, passageID, unitID int) error {
	p, err := a.Passage(passageID)
	if err != nil {
		return err
	}
	if _, ok := p.Unit(unitID); !ok {
		return fmt.Errorf("%w: %d:%d", playback.ErrUnknownUnit, passageID, unitID)
	}
	r, err := a.Reciter()
	if err != nil {
		return err
	}
	res, err := a.Resolver()
	if err != nil {
		return err
	}

	voice := a.Voice(r)
	clips := []playback.Clip{playback.UnitClip(p, unitID, voice, "")}
	if inv := a.cfg.InvocationPhrase(); !inv.Disabled && inv.Text != "" {
		clips = append(clips, playback.UnitClip(p, unitID, voice, inv.Text))
	}

	for _, c := range clips {
		if err := res.Invalidate(ctx, c.Key); err != nil {
			return fmt.Errorf("unable to drop %s: %w", c.Key, err)
		}
		fmt.Println("Dropped", c.Key)
	}

	if !regenNow {
		return nil
	}
	start := time.Now()
	data, err := res.Fetch(ctx, clips[0])
	if err != nil {
		return fmt.Errorf("%s %w", playback.UserMessage(err), err)
	}
	res.Wait()
	fmt.Printf("Synthesized %s (%s in %s)\n", clips[0].Key, humanize.Bytes(uint64(len(data))), time.Since(start).Round(time.Millisecond))
	return nil
}

// warm synthesizes every unit of r with at most warmJobs requests in
// flight. Units already cached are served from the store.
func warm(ctx context.Context, a *app, passageID int, r playback.Range) error {
	p, err := a.Passage(passageID)
	if err != nil {
		return err
	}
	rec, err := a.Reciter()
	if err != nil {
		return err
	}
	res, err := a.Resolver()
	if err != nil {
		return err
	}

	r = playback.Clamp(r, p.UnitCount())
	voice := a.Voice(rec)
	units := p.Between(r.Start, r.End)

	var done, bytes atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(warmJobs, 1))

	for _, u := range units {
		clip := playback.UnitClip(p, u.ID, voice, "")
		g.Go(func() error {
			data, err := res.Fetch(ctx, clip)
			if err != nil {
				return fmt.Errorf("%d:%d: %w", p.ID, u.ID, err)
			}
			n := done.Add(1)
			bytes.Add(int64(len(data)))
			fmt.Printf("%s %3d/%d  %s\n", keyword(fmt.Sprintf("%d:%d", p.ID, u.ID)), n, len(units), faint(utils.Truncate(u.Text, 50)))
			return nil
		})
	}

	err = g.Wait()
	res.Wait()
	if err != nil {
		return fmt.Errorf("%s %w", playback.UserMessage(err), err)
	}

	fmt.Printf("Cached %d verses of %s (%s) for %s\n", done.Load(), p.Title(), humanize.Bytes(uint64(bytes.Load())), rec.ID) //nolint:gosec
	return nil
}
