package playback

import "time"

// ActionKind is what the scheduler does after a segment finishes.
type ActionKind int

const (
	// ActionStop ends the session.
	ActionStop ActionKind = iota
	// ActionNextChunk plays the head of the chunk queue.
	ActionNextChunk
	// ActionRestartRange plays the range again from its first unit.
	ActionRestartRange
	// ActionNextUnit advances to NextAction.Unit.
	ActionNextUnit
	// ActionRepeatUnit replays the unit that just finished.
	ActionRepeatUnit
)

// String returns the string representation of the action.
func (k ActionKind) String() string {
	switch k {
	case ActionStop:
		return "stop"
	case ActionNextChunk:
		return "next-chunk"
	case ActionRestartRange:
		return "restart-range"
	case ActionNextUnit:
		return "next-unit"
	case ActionRepeatUnit:
		return "repeat-unit"
	default:
		return "unknown"
	}
}

// NextAction is the outcome of the completion policy. The scheduler's driver
// loop is the only place that carries it out.
type NextAction struct {
	Kind  ActionKind
	Unit  int
	Delay time.Duration

	// Loop is set when the action starts a new iteration, so the play
	// count must be incremented.
	Loop bool
}

// Completion describes the segment that just finished playing.
type Completion struct {
	Mode Mode

	// Chunked is set for full-passage sessions that segment their range.
	Chunked  bool
	QueueLen int

	UnitID int
	// NextUnitID is the unit after UnitID in passage order, or 0.
	NextUnitID int

	Policy    Policy
	PlayCount int
}

// Decide applies the completion policy, first match wins:
//
//  1. chunked full passage with chunks left: next chunk
//  2. chunked full passage drained: loop or stop
//  3. verse by verse before the range end: next unit
//  4. verse by verse at the end, single, unchunked full passage: loop or stop
//  5. stop
func Decide(c Completion, d Delays) NextAction {
	switch {
	case c.Mode == ModeFullPassage && c.Chunked && c.QueueLen > 0:
		return NextAction{Kind: ActionNextChunk, Delay: d.ChunkGap}

	case c.Mode == ModeFullPassage && c.Chunked:
		if c.Policy.ShouldLoop(c.PlayCount) {
			return NextAction{Kind: ActionRestartRange, Delay: d.PassageLoopGap, Loop: true}
		}
		return NextAction{Kind: ActionStop}

	case c.Mode == ModeVerseByVerse && !atRangeEnd(c):
		return NextAction{Kind: ActionNextUnit, Unit: c.NextUnitID, Delay: d.VerseGap}
	}

	if !c.Policy.ShouldLoop(c.PlayCount) {
		return NextAction{Kind: ActionStop}
	}

	switch c.Mode {
	case ModeVerseByVerse:
		return NextAction{Kind: ActionRestartRange, Delay: d.VerseGap, Loop: true}
	case ModeSingle:
		return NextAction{Kind: ActionRepeatUnit, Unit: c.UnitID, Delay: d.RepeatGap, Loop: true}
	case ModeFullPassage:
		return NextAction{Kind: ActionRestartRange, Delay: d.PassageLoopGap, Loop: true}
	}

	return NextAction{Kind: ActionStop}
}

func atRangeEnd(c Completion) bool {
	end := c.Policy.Range.End
	return c.UnitID >= end || c.NextUnitID == 0 || c.NextUnitID > end
}
