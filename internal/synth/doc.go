// Package synth turns recitation text into encoded speech. It holds the
// Gemini and mock backends, the reciter catalog, and request metrics.
package synth
