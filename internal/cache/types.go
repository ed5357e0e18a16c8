package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Common errors for cache operations
var (
	// ErrItemTooLarge is returned when an item exceeds the cache capacity
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrCacheCorrupted is returned when a cached file cannot be decoded
	ErrCacheCorrupted = errors.New("cache data corrupted")

	// ErrClosed is returned by a Store after Close
	ErrClosed = errors.New("cache is closed")
)

// Level represents the cache tier
type Level int

const (
	// LevelMemory is the L1 memory cache
	LevelMemory Level = iota

	// LevelDisk is the L2 persistent cache
	LevelDisk
)

// String returns the string representation of the cache level
func (l Level) String() string {
	switch l {
	case LevelMemory:
		return "L1-Memory"
	case LevelDisk:
		return "L2-Disk"
	default:
		return "Unknown"
	}
}

// Stats holds the counters of one cache level
type Stats struct {
	Capacity  int64
	Size      int64
	ItemCount int64

	Hits      int64
	Misses    int64
	Evictions int64

	LastAccess time.Time
	LastEvict  time.Time
}

// HitRate returns hits / (hits + misses).
func (s Stats) HitRate() float64 {
	if s.Hits+s.Misses == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Hits+s.Misses)
}

func (s Stats) String() string {
	return fmt.Sprintf("%s items, %s of %s, %.0f%% hit rate, %s evictions",
		humanize.Comma(s.ItemCount),
		humanize.Bytes(uint64(s.Size)), humanize.Bytes(uint64(s.Capacity)),
		s.HitRate()*100, humanize.Comma(s.Evictions))
}

// Entry describes one cached item
type Entry struct {
	Key        string
	Size       int64 // Uncompressed size
	DiskSize   int64
	Created    time.Time
	LastAccess time.Time
	Hits       int64
}

// Config holds configuration for a Store
type Config struct {
	// Memory cache (L1)
	MemoryCapacity int64 // Bytes

	// Disk cache (L2)
	DiskCapacity     int64  // Bytes
	Dir              string // Directory for cache files
	CompressionLevel int    // Zstd compression level, 0 disables

	// Cleanup settings
	TTL             time.Duration // Age before items expire, 0 keeps forever
	CleanupInterval time.Duration // How often to run cleanup, 0 disables
}

// DefaultConfig returns default cache configuration
func DefaultConfig() Config {
	return Config{
		MemoryCapacity:   64 * 1024 * 1024,  // 64MB
		DiskCapacity:     1024 * 1024 * 1024, // 1GB
		CompressionLevel: 3,
		TTL:              30 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}
