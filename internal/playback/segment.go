package playback

// ChunkPolicy bounds how many units are sent to the synthesis backend in one
// call.
type ChunkPolicy struct {
	// Size is the number of units per chunk.
	Size int

	// Threshold is the longest range played as a single chunk. Longer
	// ranges are split.
	Threshold int
}

// DefaultChunkPolicy returns the policy used when none is configured.
func DefaultChunkPolicy() ChunkPolicy {
	return ChunkPolicy{
		Size:      15,
		Threshold: 20,
	}
}

func (p ChunkPolicy) normalized() ChunkPolicy {
	if p.Threshold < 1 {
		p.Threshold = 1
	}
	if p.Size < 1 {
		p.Size = p.Threshold
	}
	return p
}

// Segment partitions r into consecutive chunks. Ranges no longer than the
// threshold come back whole. Longer ranges are cut into chunks of Size units;
// a trailing remainder is folded into the previous chunk only when the
// merged chunk would still be shorter than the threshold.
func Segment(r Range, p ChunkPolicy) []Range {
	n := r.Len()
	if n == 0 {
		return nil
	}

	p = p.normalized()
	if n <= p.Threshold {
		return []Range{r}
	}

	chunks := make([]Range, 0, n/p.Size+1)
	for start := r.Start; start <= r.End; start += p.Size {
		end := start + p.Size - 1
		if end > r.End {
			end = r.End
		}

		rest := r.End - end
		if rest > 0 && p.Size+rest < p.Threshold {
			end = r.End
		}

		chunks = append(chunks, Range{Start: start, End: end})
		if end == r.End {
			break
		}
	}

	return chunks
}

// ChunkQueue is the FIFO of chunks still to play in full-passage mode. It is
// only rebuilt once drained.
type ChunkQueue struct {
	items []Range
}

// Fill rebuilds the queue from r when it is empty and reports whether it did.
// A non-empty queue is left untouched.
func (q *ChunkQueue) Fill(r Range, p ChunkPolicy) bool {
	if len(q.items) > 0 {
		return false
	}
	q.items = Segment(r, p)
	return true
}

// Pop removes and returns the head of the queue.
func (q *ChunkQueue) Pop() (Range, bool) {
	if len(q.items) == 0 {
		return Range{}, false
	}
	head := q.items[0]
	q.items = q.items[1:]
	return head, true
}

// Peek returns the head of the queue without removing it.
func (q *ChunkQueue) Peek() (Range, bool) {
	if len(q.items) == 0 {
		return Range{}, false
	}
	return q.items[0], true
}

// Len returns the number of queued chunks.
func (q *ChunkQueue) Len() int {
	return len(q.items)
}

// Clear drops every queued chunk.
func (q *ChunkQueue) Clear() {
	q.items = nil
}
