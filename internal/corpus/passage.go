package corpus

import "fmt"

// Unit is one verse.
type Unit struct {
	ID   int
	Text string
}

// Passage is an ordered run of units, e.g. a surah. Passages returned by a
// Library are shared and must not be modified.
type Passage struct {
	ID    int
	Name  string
	Units []Unit
}

// UnitCount returns the number of units.
func (p *Passage) UnitCount() int {
	return len(p.Units)
}

// Index returns the position of unit id, or -1.
func (p *Passage) Index(id int) int {
	// Units are usually numbered 1..n.
	if i := id - 1; i >= 0 && i < len(p.Units) && p.Units[i].ID == id {
		return i
	}
	for i, u := range p.Units {
		if u.ID == id {
			return i
		}
	}
	return -1
}

// Unit returns unit id.
func (p *Passage) Unit(id int) (Unit, bool) {
	i := p.Index(id)
	if i < 0 {
		return Unit{}, false
	}
	return p.Units[i], true
}

// Next returns the ID of the unit after id, or 0 at the end.
func (p *Passage) Next(id int) int {
	i := p.Index(id)
	if i < 0 || i+1 >= len(p.Units) {
		return 0
	}
	return p.Units[i+1].ID
}

// Previous returns the ID of the unit before id, or 0 at the start.
func (p *Passage) Previous(id int) int {
	i := p.Index(id)
	if i <= 0 {
		return 0
	}
	return p.Units[i-1].ID
}

// Between returns the units with start <= ID <= end.
func (p *Passage) Between(start, end int) []Unit {
	var out []Unit
	for _, u := range p.Units {
		if u.ID >= start && u.ID <= end {
			out = append(out, u)
		}
	}
	return out
}

// Title returns "id. name".
func (p *Passage) Title() string {
	return fmt.Sprintf("%d. %s", p.ID, p.Name)
}
