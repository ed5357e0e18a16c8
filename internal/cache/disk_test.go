package cache

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDiskCache_PutGet(t *testing.T) {
	tests := []struct {
		name  string
		level int
	}{
		{"uncompressed", 0},
		{"compressed", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dc, err := NewDiskCache(t.TempDir(), 1<<20, tt.level)
			if err != nil {
				t.Fatalf("NewDiskCache() error = %v", err)
			}
			defer dc.Close()

			value := bytes.Repeat([]byte("AAAA"), 1024)
			if err := dc.Put("k", value); err != nil {
				t.Fatalf("Put() error = %v", err)
			}

			got, ok, err := dc.Get("k")
			if err != nil || !ok {
				t.Fatalf("Get() = %v, %v", ok, err)
			}
			if !bytes.Equal(got, value) {
				t.Error("Get() returned different bytes")
			}

			if tt.level > 0 && dc.Size() >= int64(len(value)) {
				t.Errorf("compressed size %d not smaller than %d", dc.Size(), len(value))
			}
		})
	}
}

func TestDiskCache_Miss(t *testing.T) {
	dc, _ := NewDiskCache(t.TempDir(), 1<<20, 3)
	defer dc.Close()

	if _, ok, err := dc.Get("missing"); ok || err != nil {
		t.Errorf("Get(missing) = %v, %v, want miss without error", ok, err)
	}
}

func TestDiskCache_Persistence(t *testing.T) {
	dir := t.TempDir()

	dc, _ := NewDiskCache(dir, 1<<20, 3)
	dc.Put("kore-1-1", []byte("audio"))
	if err := dc.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewDiskCache(dir, 1<<20, 3)
	if err != nil {
		t.Fatalf("NewDiskCache() error = %v", err)
	}
	defer reopened.Close()

	got, ok, err := reopened.Get("kore-1-1")
	if err != nil || !ok || string(got) != "audio" {
		t.Errorf("Get() after reopen = %q, %v, %v", got, ok, err)
	}
}

func TestDiskCache_Corrupted(t *testing.T) {
	dir := t.TempDir()
	dc, _ := NewDiskCache(dir, 1<<20, 3)
	defer dc.Close()

	dc.Put("k", bytes.Repeat([]byte("A"), 4096))
	os.WriteFile(filepath.Join(dir, fileName("k")), []byte("garbage"), 0o644)

	_, ok, err := dc.Get("k")
	if ok || !errors.Is(err, ErrCacheCorrupted) {
		t.Errorf("Get() = %v, %v, want ErrCacheCorrupted", ok, err)
	}
	if dc.Contains("k") {
		t.Error("corrupted entry kept in index")
	}
}

func TestDiskCache_MissingFile(t *testing.T) {
	dir := t.TempDir()
	dc, _ := NewDiskCache(dir, 1<<20, 0)
	defer dc.Close()

	dc.Put("k", []byte("audio"))
	os.Remove(filepath.Join(dir, fileName("k")))

	if _, ok, err := dc.Get("k"); ok || err != nil {
		t.Errorf("Get() = %v, %v, want a plain miss", ok, err)
	}
}

func TestDiskCache_Eviction(t *testing.T) {
	dc, _ := NewDiskCache(t.TempDir(), 100, 0)
	defer dc.Close()

	dc.Put("a", make([]byte, 40))
	time.Sleep(5 * time.Millisecond)
	dc.Put("b", make([]byte, 40))
	time.Sleep(5 * time.Millisecond)
	dc.Put("c", make([]byte, 40))

	if dc.Contains("a") {
		t.Error("oldest entry was not evicted")
	}
	if !dc.Contains("b") || !dc.Contains("c") {
		t.Error("newer entries were evicted")
	}
	if err := dc.Put("huge", make([]byte, 101)); !errors.Is(err, ErrItemTooLarge) {
		t.Errorf("Put(huge) error = %v, want ErrItemTooLarge", err)
	}
}

func TestDiskCache_RemoveOlderThan(t *testing.T) {
	dc, _ := NewDiskCache(t.TempDir(), 1<<20, 0)
	defer dc.Close()

	dc.Put("old", []byte("1"))
	cutoff := time.Now().Add(time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	dc.Put("new", []byte("2"))

	if n := dc.RemoveOlderThan(cutoff); n != 1 {
		t.Errorf("RemoveOlderThan() = %d, want 1", n)
	}
	if len(dc.Entries()) != 1 || dc.Entries()[0].Key != "new" {
		t.Errorf("Entries() = %+v", dc.Entries())
	}
}
