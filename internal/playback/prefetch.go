package playback

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/recite/internal/audio"
)

// FetchFunc resolves a segment to a playable buffer.
type FetchFunc func(ctx context.Context, seg Clip) (*audio.Buffer, error)

// Prefetcher resolves the segment expected to play next while the current
// one is playing. It holds a single slot; failures are dropped.
type Prefetcher struct {
	fetch FetchFunc
	log   *log.Logger

	mu     sync.Mutex
	key    string
	gen    uint64
	cancel context.CancelFunc
	buf    *audio.Buffer
	ready  bool

	wg sync.WaitGroup
}

// NewPrefetcher creates a prefetcher that resolves with fetch.
func NewPrefetcher(fetch FetchFunc) *Prefetcher {
	return &Prefetcher{
		fetch: fetch,
		log:   log.WithPrefix("playback"),
	}
}

// Request starts resolving seg in the background, replacing any earlier
// request. Requesting the key already in the slot does nothing.
func (p *Prefetcher) Request(seg Clip) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.key == seg.Key {
		return
	}
	p.resetLocked()

	ctx, cancel := context.WithCancel(context.Background())
	p.key = seg.Key
	p.cancel = cancel
	gen := p.gen

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer cancel()

		buf, err := p.fetch(ctx, seg)

		p.mu.Lock()
		defer p.mu.Unlock()
		if p.gen != gen {
			return
		}
		if err != nil {
			p.log.Debug("prefetch discarded", "key", seg.Key, "err", err)
			p.key = ""
			return
		}
		p.buf = buf
		p.ready = true
	}()
}

// Take returns the prefetched buffer for key and empties the slot. It never
// waits: a fetch still in flight reports false.
func (p *Prefetcher) Take(key string) (*audio.Buffer, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.key != key || !p.ready {
		return nil, false
	}

	buf := p.buf
	p.resetLocked()
	return buf, true
}

// Ready reports whether key has been prefetched.
func (p *Prefetcher) Ready(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.key == key && p.ready
}

// Clear cancels any fetch in flight and empties the slot.
func (p *Prefetcher) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.resetLocked()
}

// Close clears the slot and waits for background fetches to return.
func (p *Prefetcher) Close() {
	p.Clear()
	p.wg.Wait()
}

func (p *Prefetcher) resetLocked() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.gen++
	p.key = ""
	p.buf = nil
	p.ready = false
}
