package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// Store coordinates the memory and disk levels. Reads check L1 then L2 and
// promote L2 hits; writes go to both.
type Store struct {
	memory *MemoryCache
	disk   *DiskCache
	config Config

	session string
	log     *log.Logger

	// Cleanup goroutine control
	stop   chan struct{}
	wg     sync.WaitGroup
	closed atomic.Bool

	mu    sync.Mutex
	stats struct {
		MemoryHits  int64
		DiskHits    int64
		Misses      int64
		Writes      int64
		CleanupRuns int64
		LastCleanup time.Time
	}
}

// NewStore opens the cache described by config. An empty Dir uses the user
// cache directory.
func NewStore(config Config) (*Store, error) {
	if config.Dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get cache directory: %w", err)
		}
		config.Dir = filepath.Join(base, "recite", "audio")
	}

	disk, err := NewDiskCache(config.Dir, config.DiskCapacity, config.CompressionLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create disk cache: %w", err)
	}

	s := &Store{
		memory:  NewMemoryCache(config.MemoryCapacity),
		disk:    disk,
		config:  config,
		session: uuid.NewString(),
		stop:    make(chan struct{}),
	}
	s.log = log.WithPrefix("cache").With("session", s.session[:8])

	if config.CleanupInterval > 0 {
		s.startCleanupRoutine()
	}

	s.log.Debug("cache opened", "dir", config.Dir, "size", humanize.Bytes(uint64(disk.Size())))
	return s, nil
}

// Get retrieves a value. Disk errors are returned alongside a miss.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.closed.Load() {
		return nil, false, ErrClosed
	}

	if data, ok := s.memory.Get(key); ok {
		s.count(func() { s.stats.MemoryHits++ })
		return data, true, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	data, ok, err := s.disk.Get(key)
	if err != nil || !ok {
		s.count(func() { s.stats.Misses++ })
		return nil, false, err
	}

	s.count(func() { s.stats.DiskHits++ })
	// Promotion is best-effort.
	_ = s.memory.Put(key, data)
	return data, true, nil
}

// Put stores a value in both levels.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.memory.Put(key, value); err != nil && !errors.Is(err, ErrItemTooLarge) {
		return fmt.Errorf("L1 cache error: %w", err)
	}
	if err := s.disk.Put(key, value); err != nil {
		return fmt.Errorf("L2 cache error: %w", err)
	}

	s.count(func() { s.stats.Writes++ })
	return nil
}

// Delete removes a key from both levels.
func (s *Store) Delete(ctx context.Context, key string) error {
	if s.closed.Load() {
		return ErrClosed
	}

	s.memory.Delete(key)
	if err := s.disk.Delete(key); err != nil {
		return fmt.Errorf("L2 delete: %w", err)
	}
	return nil
}

// DeletePrefix removes every key starting with prefix and returns how many
// were removed.
func (s *Store) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	n := 0
	for _, e := range s.disk.Entries() {
		if !strings.HasPrefix(e.Key, prefix) {
			continue
		}
		if err := s.Delete(ctx, e.Key); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Contains reports whether key is cached at any level.
func (s *Store) Contains(key string) bool {
	return s.memory.Contains(key) || s.disk.Contains(key)
}

// Clear removes every entry from both levels.
func (s *Store) Clear() error {
	s.memory.Clear()
	if err := s.disk.Clear(); err != nil {
		return fmt.Errorf("L2 clear: %w", err)
	}
	return nil
}

// Entries lists the persisted items, most recently used first.
func (s *Store) Entries() []Entry {
	return s.disk.Entries()
}

// Dir returns the cache directory.
func (s *Store) Dir() string {
	return s.config.Dir
}

// Summary aggregates statistics from both levels.
type Summary struct {
	Session string
	Dir     string

	Memory Stats
	Disk   Stats

	MemoryHits  int64
	DiskHits    int64
	Misses      int64
	Writes      int64
	CleanupRuns int64
	LastCleanup time.Time
}

// HitRate returns the fraction of reads served from either level.
func (s Summary) HitRate() float64 {
	total := s.MemoryHits + s.DiskHits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.MemoryHits+s.DiskHits) / float64(total)
}

func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "dir:    %s\n", s.Dir)
	fmt.Fprintf(&b, "memory: %s\n", s.Memory)
	fmt.Fprintf(&b, "disk:   %s\n", s.Disk)
	if s.MemoryHits+s.DiskHits+s.Misses > 0 {
		fmt.Fprintf(&b, "reads:  %.0f%% hit rate (%d memory, %d disk, %d miss)\n",
			s.HitRate()*100, s.MemoryHits, s.DiskHits, s.Misses)
	}
	if !s.LastCleanup.IsZero() {
		fmt.Fprintf(&b, "cleanup: %s\n", humanize.Time(s.LastCleanup))
	}
	return b.String()
}

// Summary returns the current statistics.
func (s *Store) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Summary{
		Session:     s.session,
		Dir:         s.config.Dir,
		Memory:      s.memory.Stats(),
		Disk:        s.disk.Stats(),
		MemoryHits:  s.stats.MemoryHits,
		DiskHits:    s.stats.DiskHits,
		Misses:      s.stats.Misses,
		Writes:      s.stats.Writes,
		CleanupRuns: s.stats.CleanupRuns,
		LastCleanup: s.stats.LastCleanup,
	}
}

// Cleanup expires old entries and writes the index. It returns the number
// of entries removed.
func (s *Store) Cleanup() int {
	s.count(func() {
		s.stats.CleanupRuns++
		s.stats.LastCleanup = time.Now()
	})

	removed := 0
	if s.config.TTL > 0 {
		removed = s.disk.RemoveOlderThan(time.Now().Add(-s.config.TTL))
		s.memory.Prune(s.config.TTL)
	}
	if removed > 0 {
		s.log.Info("expired cache entries", "count", removed)
	}

	if err := s.disk.Sync(); err != nil {
		s.log.Warn("failed to write cache index", "err", err)
	}
	return removed
}

// Close stops the cleanup routine and writes the index.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	close(s.stop)
	s.wg.Wait()

	if err := s.disk.Close(); err != nil {
		return fmt.Errorf("failed to close disk cache: %w", err)
	}
	return nil
}

func (s *Store) count(f func()) {
	s.mu.Lock()
	f()
	s.mu.Unlock()
}

// startCleanupRoutine starts the background cleanup goroutine.
func (s *Store) startCleanupRoutine() {
	ticker := time.NewTicker(s.config.CleanupInterval)
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.Cleanup()
			case <-s.stop:
				return
			}
		}
	}()
}
