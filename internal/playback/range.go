package playback

import "fmt"

// Range is an inclusive span of unit IDs within a passage. It is used both
// for the caller's playback range and for the chunks cut from it.
type Range struct {
	Start int
	End   int
}

// Len returns the number of units in the range.
func (r Range) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// Contains reports whether unit lies within the range.
func (r Range) Contains(unit int) bool {
	return unit >= r.Start && unit <= r.End
}

func (r Range) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// Clamp fits r into a passage of unitCount units: start is clamped to
// [1, unitCount] and end to [start, unitCount]. It never fails.
func Clamp(r Range, unitCount int) Range {
	if unitCount < 1 {
		unitCount = 1
	}

	start := r.Start
	if start < 1 {
		start = 1
	}
	if start > unitCount {
		start = unitCount
	}

	end := r.End
	if end > unitCount {
		end = unitCount
	}
	if end < start {
		end = start
	}

	return Range{Start: start, End: end}
}
