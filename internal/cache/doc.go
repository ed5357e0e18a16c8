// Package cache persists synthesized audio between sessions. A Store layers
// an in-memory LRU (L1) over a zstd-compressed disk cache (L2) and expires
// old entries in the background.
package cache
