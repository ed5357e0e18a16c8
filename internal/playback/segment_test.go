package playback

import (
	"reflect"
	"testing"
)

func TestSegment(t *testing.T) {
	tests := []struct {
		name   string
		r      Range
		policy ChunkPolicy
		want   []Range
	}{
		{
			name:   "short range stays whole",
			r:      Range{3, 7},
			policy: ChunkPolicy{Size: 15, Threshold: 20},
			want:   []Range{{3, 7}},
		},
		{
			name:   "at threshold stays whole",
			r:      Range{1, 20},
			policy: ChunkPolicy{Size: 15, Threshold: 20},
			want:   []Range{{1, 20}},
		},
		{
			name:   "fifty units",
			r:      Range{1, 50},
			policy: ChunkPolicy{Size: 15, Threshold: 20},
			want:   []Range{{1, 15}, {16, 30}, {31, 45}, {46, 50}},
		},
		{
			name:   "small remainder folded",
			r:      Range{1, 13},
			policy: ChunkPolicy{Size: 4, Threshold: 10},
			want:   []Range{{1, 4}, {5, 13}},
		},
		{
			name:   "offset range",
			r:      Range{10, 40},
			policy: ChunkPolicy{Size: 10, Threshold: 12},
			want:   []Range{{10, 19}, {20, 29}, {30, 40}},
		},
		{
			name:   "empty range",
			r:      Range{5, 4},
			policy: DefaultChunkPolicy(),
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Segment(tt.r, tt.policy)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Segment(%v) = %v, want %v", tt.r, got, tt.want)
			}
		})
	}
}

func TestSegment_CoversRangeExactlyOnce(t *testing.T) {
	policies := []ChunkPolicy{
		{Size: 15, Threshold: 20},
		{Size: 5, Threshold: 8},
		{Size: 1, Threshold: 1},
		{Size: 7, Threshold: 3},
	}

	for _, p := range policies {
		for start := 1; start <= 12; start++ {
			for end := start; end <= 90; end++ {
				r := Range{Start: start, End: end}
				chunks := Segment(r, p)

				if len(chunks) == 0 {
					t.Fatalf("Segment(%v, %+v) returned no chunks", r, p)
				}
				if chunks[0].Start != r.Start || chunks[len(chunks)-1].End != r.End {
					t.Fatalf("Segment(%v, %+v) = %v does not span the range", r, p, chunks)
				}
				for i := 1; i < len(chunks); i++ {
					if chunks[i].Start != chunks[i-1].End+1 {
						t.Fatalf("Segment(%v, %+v) = %v is not contiguous", r, p, chunks)
					}
				}

				n := p.normalized()
				last := chunks[len(chunks)-1]
				if last.Len() > n.Size+n.Threshold-1 && len(chunks) > 1 {
					t.Fatalf("Segment(%v, %+v) last chunk %v too long", r, p, last)
				}
			}
		}
	}
}

func TestChunkQueue(t *testing.T) {
	var q ChunkQueue
	p := ChunkPolicy{Size: 15, Threshold: 20}

	if !q.Fill(Range{1, 50}, p) {
		t.Fatal("Fill() on empty queue did not rebuild")
	}
	if q.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", q.Len())
	}

	head, _ := q.Pop()
	if head != (Range{1, 15}) {
		t.Errorf("Pop() = %v", head)
	}

	if q.Fill(Range{1, 5}, p) {
		t.Error("Fill() rebuilt a non-empty queue")
	}
	if next, _ := q.Peek(); next != (Range{16, 30}) {
		t.Errorf("Peek() = %v", next)
	}

	q.Clear()
	if _, ok := q.Pop(); ok {
		t.Error("Pop() on cleared queue succeeded")
	}
}
