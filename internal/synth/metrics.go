package synth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
)

// Metrics accumulates synthesis statistics. The zero value is ready to use.
type Metrics struct {
	mu     sync.Mutex
	totals MetricsSnapshot
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	Requests int64
	Failures int64
	Bytes    int64
	Latency  time.Duration
	Last     time.Time
}

// Record adds one request to the totals.
func (m *Metrics) Record(n int, latency time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totals.Requests++
	m.totals.Latency += latency
	m.totals.Last = time.Now()
	if err != nil {
		m.totals.Failures++
		return
	}
	m.totals.Bytes += int64(n)
}

// Snapshot returns the current totals.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.totals
}

// AverageLatency returns the mean request latency.
func (s MetricsSnapshot) AverageLatency() time.Duration {
	if s.Requests == 0 {
		return 0
	}
	return s.Latency / time.Duration(s.Requests)
}

func (s MetricsSnapshot) String() string {
	if s.Requests == 0 {
		return "no synthesis requests"
	}
	return fmt.Sprintf("%s requests, %d failed, %s received, avg %s, last %s",
		humanize.Comma(s.Requests), s.Failures, humanize.Bytes(uint64(s.Bytes)),
		s.AverageLatency().Round(time.Millisecond), humanize.Time(s.Last))
}

// Instrument wraps b so every call is logged and counted in m.
func Instrument(b Backend, m *Metrics) Backend {
	logger := log.WithPrefix("synth")

	return BackendFunc(func(ctx context.Context, req Request) ([]byte, error) {
		start := time.Now()
		logger.Debug("synthesis started", "voice", req.Voice, "chars", len(req.Text))

		data, err := b.Synthesize(ctx, req)
		elapsed := time.Since(start)
		m.Record(len(data), elapsed, err)

		if err != nil {
			logger.Warn("synthesis failed", "voice", req.Voice, "err", err, "after", elapsed)
			return nil, err
		}

		logger.Info("synthesis complete", "voice", req.Voice,
			"size", humanize.Bytes(uint64(len(data))), "took", elapsed.Round(time.Millisecond))
		return data, nil
	})
}
