package corpus

import "testing"

func testPassage() *Passage {
	return &Passage{
		ID:   1,
		Name: "Test",
		Units: []Unit{
			{ID: 1, Text: "a"},
			{ID: 2, Text: "b"},
			{ID: 3, Text: "c"},
			{ID: 5, Text: "e"},
		},
	}
}

func TestPassageNavigation(t *testing.T) {
	p := testPassage()

	tests := []struct {
		id         int
		index      int
		next, prev int
	}{
		{1, 0, 2, 0},
		{2, 1, 3, 1},
		{3, 2, 5, 2},
		{5, 3, 0, 3},
		{4, -1, 0, 0},
	}

	for _, tt := range tests {
		if got := p.Index(tt.id); got != tt.index {
			t.Errorf("Index(%d) = %d, want %d", tt.id, got, tt.index)
		}
		if got := p.Next(tt.id); got != tt.next {
			t.Errorf("Next(%d) = %d, want %d", tt.id, got, tt.next)
		}
		if got := p.Previous(tt.id); got != tt.prev {
			t.Errorf("Previous(%d) = %d, want %d", tt.id, got, tt.prev)
		}
	}
}

func TestPassageBetween(t *testing.T) {
	p := testPassage()

	got := p.Between(2, 5)
	if len(got) != 3 || got[0].ID != 2 || got[2].ID != 5 {
		t.Errorf("Between(2, 5) = %+v", got)
	}
	if got := p.Between(6, 9); len(got) != 0 {
		t.Errorf("Between(6, 9) = %+v, want empty", got)
	}
	if p.UnitCount() != 4 {
		t.Errorf("UnitCount() = %d, want 4", p.UnitCount())
	}
}

func TestPassageUnit(t *testing.T) {
	p := testPassage()
	if u, ok := p.Unit(5); !ok || u.Text != "e" {
		t.Errorf("Unit(5) = %+v, %v", u, ok)
	}
	if _, ok := p.Unit(4); ok {
		t.Error("Unit(4) found a missing unit")
	}
}
