// Package audio decodes synthesized speech into PCM buffers and plays them
// through the oto/v3 device. A Pipeline owns one buffer source at a time and
// exposes a monotonic clock that stops advancing while suspended.
package audio
