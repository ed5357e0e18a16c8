package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/dgnsrekt/recite/internal/corpus"
	"github.com/dgnsrekt/recite/internal/synth"
)

// Store is the persistent cache of encoded audio. Implementations must be
// safe for concurrent use and report a miss, not an error, on a cold store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Clip is one synthesizable piece of audio: a unit or a chunk.
type Clip struct {
	Key   string
	Text  string
	Voice Voice
}

// UnitClip returns the clip that plays unitID of p on its own. A non-empty
// invocation is prepended to the text and marks the key.
func UnitClip(p *corpus.Passage, unitID int, voice Voice, invocation string) Clip {
	u, _ := p.Unit(unitID)

	return Clip{
		Key: BuildKey(KeyParams{
			VoiceID:    voice.ID,
			PassageID:  p.ID,
			Range:      Range{Start: unitID, End: unitID},
			Single:     true,
			Invocation: invocation != "",
			Speed:      voice.Speed,
			Pitch:      voice.Pitch,
		}),
		Text:  invocation + u.Text,
		Voice: voice,
	}
}

// Resolver fetches encoded audio from the store, falling back to the
// backend. Concurrent fetches of one key share a single backend call.
type Resolver struct {
	backend synth.Backend
	store   Store
	timeout time.Duration
	log     *log.Logger

	group  singleflight.Group
	writes sync.WaitGroup
}

// NewResolver creates a resolver. store may be nil to disable caching.
func NewResolver(backend synth.Backend, store Store, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Resolver{
		backend: backend,
		store:   store,
		timeout: timeout,
		log:     log.WithPrefix("playback"),
	}
}

// Fetch returns the encoded audio for seg. The shared backend call is not
// cancelled when ctx is, so its result still reaches the cache; ctx only
// bounds how long this caller waits.
func (r *Resolver) Fetch(ctx context.Context, seg Clip) ([]byte, error) {
	ch := r.group.DoChan(seg.Key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.fetch(fctx, seg)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Resolver) fetch(ctx context.Context, seg Clip) ([]byte, error) {
	if r.store != nil {
		data, ok, err := r.store.Get(ctx, seg.Key)
		switch {
		case err != nil:
			r.log.Warn("cache read failed, treating as miss", "kind", KindCache, "key", seg.Key, "err", err)
		case ok:
			r.log.Debug("cache hit", "key", seg.Key)
			return data, nil
		}
	}

	data, err := r.backend.Synthesize(ctx, synth.Request{
		Text:  seg.Text,
		Voice: seg.Voice.Name,
		Style: seg.Voice.Style,
		Pitch: seg.Voice.Pitch,
		Speed: seg.Voice.Speed,
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize %s: %w", seg.Key, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("synthesize %s: %w", seg.Key, synth.ErrNoAudio)
	}

	if r.store != nil {
		r.writes.Add(1)
		go func() {
			defer r.writes.Done()

			wctx, cancel := context.WithTimeout(context.Background(), r.timeout)
			defer cancel()
			if err := r.store.Put(wctx, seg.Key, data); err != nil {
				r.log.Warn("cache write failed", "kind", KindCache, "key", seg.Key, "err", err)
			}
		}()
	}

	return data, nil
}

// Invalidate removes key from the store so the next fetch synthesizes it
// again.
func (r *Resolver) Invalidate(ctx context.Context, key string) error {
	r.group.Forget(key)
	if r.store == nil {
		return nil
	}
	return r.store.Delete(ctx, key)
}

// Wait blocks until pending cache writes finish.
func (r *Resolver) Wait() {
	r.writes.Wait()
}
