package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/recite/internal/audio"
	"github.com/dgnsrekt/recite/internal/cache"
	"github.com/dgnsrekt/recite/internal/config"
	"github.com/dgnsrekt/recite/internal/corpus"
	"github.com/dgnsrekt/recite/internal/playback"
	"github.com/dgnsrekt/recite/internal/synth"
)

// app holds what the subcommands share. Parts are opened on first use so
// listing reciters never touches the cache or the network.
type app struct {
	cfg     config.Config
	catalog synth.Catalog
	metrics *synth.Metrics

	library *corpus.Library
	backend synth.Backend
	store   *cache.Store

	closers []func() error
}

func newApp(c config.Config) *app {
	return &app{
		cfg:     c,
		catalog: synth.DefaultCatalog(),
		metrics: &synth.Metrics{},
	}
}

func joinEngines() string {
	return strings.Join(config.Engines, "|")
}

// Library returns the configured corpus, or the built-in sample.
func (a *app) Library() (*corpus.Library, error) {
	if a.library != nil {
		return a.library, nil
	}
	if a.cfg.Corpus.Path == "" {
		a.library = corpus.Sample()
		return a.library, nil
	}
	l, err := corpus.Open(a.cfg.Corpus.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open corpus: %w", err)
	}
	a.library = l
	return l, nil
}

// Passage looks up a passage by ID.
func (a *app) Passage(id int) (*corpus.Passage, error) {
	l, err := a.Library()
	if err != nil {
		return nil, err
	}
	p, ok := l.Passage(id)
	if !ok {
		return nil, fmt.Errorf("passage %d is not in the corpus", id)
	}
	return p, nil
}

// Reciter resolves the configured reciter by ID or name.
func (a *app) Reciter() (synth.Reciter, error) {
	r, err := a.catalog.Find(a.cfg.Playback.Reciter)
	if err != nil {
		return synth.Reciter{}, fmt.Errorf("%w (see \"recite reciters\")", err)
	}
	return r, nil
}

// Voice returns the playback voice of r with the configured speed and
// pitch.
func (a *app) Voice(r synth.Reciter) playback.Voice {
	return playback.Voice{
		ID:    r.ID,
		Name:  r.Voice,
		Style: r.Style,
		Speed: a.cfg.Playback.Speed,
		Pitch: a.cfg.Playback.Pitch,
	}
}

// Backend opens the synthesis engine, wrapped so every request is counted.
func (a *app) Backend() (synth.Backend, error) {
	if a.backend != nil {
		return a.backend, nil
	}

	sc := a.cfg.Synth
	var b synth.Backend
	switch sc.Engine {
	case "mock":
		b = synth.NewMockBackend(
			synth.WithMockDelay(sc.MockDelay),
			synth.WithFailureRate(sc.MockFailureRate),
		)
	case "gemini":
		opts := []synth.Option{
			synth.WithAPIKey(sc.APIKey),
			synth.WithTimeout(sc.Timeout),
			synth.WithRateLimit(sc.RequestsPerMinute),
			synth.WithLogger(log.WithPrefix("synth")),
		}
		if sc.Model != "" {
			opts = append(opts, synth.WithModel(sc.Model))
		}
		if sc.BaseURL != "" {
			opts = append(opts, synth.WithBaseURL(sc.BaseURL))
		}
		g, err := synth.NewGeminiBackend(opts...)
		if errors.Is(err, synth.ErrNoAPIKey) {
			return nil, fmt.Errorf("%s Set GEMINI_API_KEY or synth.api_key: %w", playback.UserMessage(err), err)
		}
		if err != nil {
			return nil, fmt.Errorf("unable to create gemini backend: %w", err)
		}
		a.closers = append(a.closers, g.Close)
		b = g
	default:
		return nil, fmt.Errorf("unknown synthesis engine %q: use %s", sc.Engine, joinEngines())
	}

	a.backend = synth.Instrument(b, a.metrics)
	return a.backend, nil
}

// Store opens the persistent audio cache.
func (a *app) Store() (*cache.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	s, err := cache.NewStore(a.cfg.StoreConfig())
	if err != nil {
		return nil, fmt.Errorf("unable to open cache: %w", err)
	}
	a.store = s
	a.closers = append(a.closers, s.Close)
	return s, nil
}

// Resolver returns a resolver over the backend and the cache, for commands
// that synthesize without playing.
func (a *app) Resolver() (*playback.Resolver, error) {
	b, err := a.Backend()
	if err != nil {
		return nil, err
	}
	s, err := a.Store()
	if err != nil {
		return nil, err
	}
	return playback.NewResolver(b, s, 0), nil
}

// Scheduler builds a scheduler that plays through the system audio device.
// The listeners run on the scheduler goroutine.
func (a *app) Scheduler(onState func(playback.State, error), onProgress func(playback.Progress)) (*playback.Scheduler, error) {
	b, err := a.Backend()
	if err != nil {
		return nil, err
	}

	opts := playback.DefaultOptions()
	opts.Backend = b
	opts.Delays = a.cfg.Delays()
	opts.Invocation = a.cfg.InvocationPhrase()
	opts.Prefetch = a.cfg.Playback.Prefetch
	opts.ProgressInterval = a.cfg.Playback.Tick
	opts.OnStateChange = onState
	opts.OnProgress = onProgress
	opts.Logger = log.WithPrefix("playback")

	// A cache that cannot be opened only costs extra synthesis.
	if s, err := a.Store(); err != nil {
		log.Warn("playing without the audio cache", "err", err)
	} else {
		opts.Store = s
	}

	pc := a.cfg.PlayerConfig()
	opts.NewPipeline = func() (audio.Pipeline, error) {
		p, err := audio.NewOtoPipeline(pc)
		if err != nil {
			return nil, err //nolint:wrapcheck
		}
		return p, nil
	}

	s, err := playback.NewScheduler(opts)
	if err != nil {
		return nil, fmt.Errorf("unable to create scheduler: %w", err)
	}
	a.closers = append(a.closers, s.Close)
	return s, nil
}

// Close releases everything in reverse order of opening.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil

	if snap := a.metrics.Snapshot(); snap.Requests > 0 {
		log.Info("synthesis", "summary", snap)
	}
	return errors.Join(errs...)
}
