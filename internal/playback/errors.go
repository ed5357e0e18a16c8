package playback

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgnsrekt/recite/internal/audio"
	"github.com/dgnsrekt/recite/internal/synth"
)

// Common errors for the playback engine.
var (
	ErrInvalidState = errors.New("invalid state for operation")
	ErrNotSeekable  = errors.New("current segment is not seekable")
	ErrStopped      = errors.New("playback stopped before audio was ready")
	ErrClosed       = errors.New("scheduler is closed")
	ErrUnknownUnit  = errors.New("unit not found in passage")
	ErrNoPassage    = errors.New("no passage given")
	ErrInvalidMode  = errors.New("mode not valid for this operation")
)

// Kind classifies failures by how they propagate.
type Kind int

const (
	// KindValidation is an out-of-bounds range. It is recovered by
	// clamping and never surfaced.
	KindValidation Kind = iota
	// KindCache is a persistent cache read or write error. It is logged
	// and treated as a miss.
	KindCache
	// KindSynthesis is a backend that returned no audio.
	KindSynthesis
	// KindConfiguration is a backend that cannot be used at all.
	KindConfiguration
	// KindPlayback is an audio subsystem that rejected a buffer.
	KindPlayback
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindCache:
		return "cache"
	case KindSynthesis:
		return "synthesis"
	case KindConfiguration:
		return "configuration"
	case KindPlayback:
		return "playback"
	default:
		return "unknown"
	}
}

// Error is a failure tagged with the segment that was being played.
type Error struct {
	Kind      Kind
	Err       error
	PassageID int
	UnitID    int
	Mode      Mode
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s failure (passage %d, unit %d, %s): %v",
		e.Kind, e.PassageID, e.UnitID, e.Mode, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// classify maps a resolution error to its kind.
func classify(err error) Kind {
	switch {
	case errors.Is(err, synth.ErrNoAPIKey):
		return KindConfiguration
	case errors.Is(err, audio.ErrInvalidAudio),
		errors.Is(err, audio.ErrPipelineClosed):
		return KindPlayback
	default:
		return KindSynthesis
	}
}

func wrapError(err error, st State) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	return &Error{
		Kind:      classify(err),
		Err:       err,
		PassageID: st.PassageID,
		UnitID:    st.UnitID,
		Mode:      st.Mode,
	}
}

// IsFatal reports whether err leaves the session unusable until the
// configuration changes.
func IsFatal(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind == KindConfiguration
	}
	return errors.Is(err, synth.ErrNoAPIKey)
}

// UserMessage returns the text shown to the listener for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrStopped) {
		return "Playback stopped."
	}

	kind := classify(err)
	var pe *Error
	if errors.As(err, &pe) {
		kind = pe.Kind
	}

	switch kind {
	case KindConfiguration:
		return "API key is not configured."
	case KindSynthesis:
		if errors.Is(err, synth.ErrNoAudio) {
			return "Audio generation failed. The voice may be busy or the passage is too long for this mode."
		}
		return "Audio generation failed. Please try again."
	default:
		return "Audio playback failed. Please try again."
	}
}
