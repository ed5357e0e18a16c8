package playback

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects how a passage is played.
type Mode int

const (
	// ModeSingle plays one unit.
	ModeSingle Mode = iota
	// ModeVerseByVerse plays each unit of the range in turn.
	ModeVerseByVerse
	// ModeFullPassage plays the range as concatenated chunks.
	ModeFullPassage
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeSingle:
		return "single"
	case ModeVerseByVerse:
		return "verse-by-verse"
	case ModeFullPassage:
		return "full-passage"
	default:
		return "unknown"
	}
}

// ParseMode parses the names accepted in configuration and on the command
// line.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single", "unit":
		return ModeSingle, nil
	case "verse-by-verse", "verse", "verses":
		return ModeVerseByVerse, nil
	case "full-passage", "full", "passage", "full-surah":
		return ModeFullPassage, nil
	default:
		return ModeSingle, fmt.Errorf("unknown playback mode %q", s)
	}
}

// Status is the lifecycle stage of a playback session.
type Status int

const (
	// StatusIdle means nothing is loaded.
	StatusIdle Status = iota
	// StatusLoading means audio is being resolved.
	StatusLoading
	// StatusPlaying means audio is audible.
	StatusPlaying
	// StatusPaused means the audio clock is suspended.
	StatusPaused
	// StatusError means the last resolution failed.
	StatusError
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// State is the observable playback state. The zero value is idle.
//
// UnitID is the current unit in single and verse-by-verse mode, and the
// first unit of the playing chunk in full-passage mode.
type State struct {
	Status    Status
	PassageID int
	UnitID    int
	Mode      Mode
}

// IsIdle reports whether no session is active.
func (s State) IsIdle() bool {
	return s.Status == StatusIdle
}

// IsActive reports whether audio is playing or paused.
func (s State) IsActive() bool {
	return s.Status == StatusPlaying || s.Status == StatusPaused
}

func (s State) String() string {
	if s.IsIdle() {
		return "idle"
	}
	return fmt.Sprintf("%s passage=%d unit=%d mode=%s", s.Status, s.PassageID, s.UnitID, s.Mode)
}

// Progress is the scrub bar position within the current buffer.
type Progress struct {
	Elapsed time.Duration
	Total   time.Duration

	// Chunk is 1-based; both are zero outside full-passage mode.
	Chunk  int
	Chunks int
}

// Fraction returns Elapsed/Total in [0, 1].
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	f := float64(p.Elapsed) / float64(p.Total)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// Voice describes who recites and how. ID is the stable identity used in
// cache keys; Name is the backend voice.
type Voice struct {
	ID    string
	Name  string
	Style string
	Pitch float64
	Speed float64
}

// Policy is the caller-owned playback policy. A copy is taken when a session
// starts, so later changes to the caller's value do not leak in.
type Policy struct {
	Range       Range
	RepeatCount int
	Infinite    bool

	// Chunking enables segmenting full-passage ranges.
	Chunking bool
	Chunk    ChunkPolicy
}

// ShouldLoop reports whether another iteration follows the playCount-th.
func (p Policy) ShouldLoop(playCount int) bool {
	return p.Infinite || playCount < p.RepeatCount+1
}

func (p Policy) chunkPolicy() ChunkPolicy {
	if !p.Chunking {
		// One chunk covering any range.
		n := p.Range.Len()
		if n < 1 {
			n = 1
		}
		return ChunkPolicy{Size: n, Threshold: n}
	}
	return p.Chunk
}

// Delays are the pauses inserted between consecutive segments.
type Delays struct {
	VerseGap       time.Duration
	ChunkGap       time.Duration
	PassageLoopGap time.Duration
	RepeatGap      time.Duration
}

// DefaultDelays returns the standard inter-segment delays.
func DefaultDelays() Delays {
	return Delays{
		VerseGap:       500 * time.Millisecond,
		ChunkGap:       50 * time.Millisecond,
		PassageLoopGap: 250 * time.Millisecond,
		RepeatGap:      500 * time.Millisecond,
	}
}
