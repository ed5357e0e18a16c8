package playback

import (
	"strconv"
	"strings"
)

// invocationSuffix marks audio whose text was prefixed with the invocation
// phrase. The suffix matches keys written by earlier releases.
const invocationSuffix = "-with-bismillah"

// KeyParams identifies one unit of synthesized audio.
type KeyParams struct {
	VoiceID   string
	PassageID int
	Range     Range

	// Single keys a lone unit (Range.Start) instead of a range.
	Single bool

	// Invocation is set when the invocation phrase was prepended.
	Invocation bool

	// Speed and Pitch are only encoded when they differ from 1.
	Speed float64
	Pitch float64
}

var voiceEscaper = strings.NewReplacer("%", "%25", "-", "%2D")

// BuildKey derives the cache key for p. Equal params always produce the same
// key and different params never do:
//
//	voice "-" passage "-" start ["-" end] ["-s" speed] ["-p" pitch] ["-with-bismillah"]
//
// The voice ID is escaped so it never contains the separator.
func BuildKey(p KeyParams) string {
	var b strings.Builder

	b.WriteString(voiceEscaper.Replace(p.VoiceID))
	b.WriteByte('-')
	b.WriteString(strconv.Itoa(p.PassageID))
	b.WriteByte('-')
	b.WriteString(strconv.Itoa(p.Range.Start))
	if !p.Single {
		b.WriteByte('-')
		b.WriteString(strconv.Itoa(p.Range.End))
	}

	if p.Speed != 0 && p.Speed != 1 {
		b.WriteString("-s")
		b.WriteString(strconv.FormatFloat(p.Speed, 'g', -1, 64))
	}
	if p.Pitch != 0 && p.Pitch != 1 {
		b.WriteString("-p")
		b.WriteString(strconv.FormatFloat(p.Pitch, 'g', -1, 64))
	}

	if p.Invocation {
		b.WriteString(invocationSuffix)
	}

	return b.String()
}

// UnitKey is a shorthand for the key of a single unit without invocation.
func UnitKey(voice Voice, passageID, unitID int) string {
	return BuildKey(KeyParams{
		VoiceID:   voice.ID,
		PassageID: passageID,
		Range:     Range{Start: unitID, End: unitID},
		Single:    true,
		Speed:     voice.Speed,
		Pitch:     voice.Pitch,
	})
}

// KeyPrefix returns the prefix shared by every key of voiceID, or of one
// passage when passageID is positive.
func KeyPrefix(voiceID string, passageID int) string {
	prefix := voiceEscaper.Replace(voiceID) + "-"
	if passageID > 0 {
		prefix += strconv.Itoa(passageID) + "-"
	}
	return prefix
}
