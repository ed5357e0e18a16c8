package synth

import (
	"context"
	"strings"
)

// Request is one synthesis call.
type Request struct {
	Text  string
	Voice string // backend voice name
	Style string // directive prepended to the text

	// Pitch and Speed are multipliers; 0 and 1 both mean unchanged.
	Pitch float64
	Speed float64
}

// Backend produces encoded audio: base64 PCM16LE, 24kHz mono.
type Backend interface {
	Synthesize(ctx context.Context, req Request) ([]byte, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, req Request) ([]byte, error)

// Synthesize implements Backend.
func (f BackendFunc) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	return f(ctx, req)
}

// sanitizer strips recitation markers the voice would otherwise read aloud.
var sanitizer = strings.NewReplacer("۞", "", "۩", "")

// CleanText removes section markers and surrounding space.
func CleanText(s string) string {
	return strings.TrimSpace(sanitizer.Replace(s))
}
