package corpus

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Parse errors.
var (
	ErrMalformedLine = errors.New("expected passage|unit|text")
	ErrDuplicateUnit = errors.New("duplicate unit")
	ErrEmptyCorpus   = errors.New("corpus has no units")
	ErrNoPassage     = errors.New("units before any passage heading")
)

// ParseError locates a parse failure.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// builder collects units from either corpus format.
type builder struct {
	passages map[int]*Passage
	names    map[int]string
	seen     map[[2]int]bool
}

func newBuilder() *builder {
	return &builder{
		passages: map[int]*Passage{},
		names:    map[int]string{},
		seen:     map[[2]int]bool{},
	}
}

func (b *builder) name(id int, name string) {
	b.names[id] = strings.TrimSpace(name)
}

func (b *builder) add(pid, uid int, text string) error {
	if b.seen[[2]int{pid, uid}] {
		return fmt.Errorf("%w %d:%d", ErrDuplicateUnit, pid, uid)
	}
	b.seen[[2]int{pid, uid}] = true

	p, ok := b.passages[pid]
	if !ok {
		p = &Passage{ID: pid}
		b.passages[pid] = p
	}
	p.Units = append(p.Units, Unit{
		ID:   uid,
		Text: norm.NFC.String(strings.TrimSpace(text)),
	})
	return nil
}

// build sorts passages by ID and their units by unit ID.
func (b *builder) build() ([]*Passage, error) {
	if len(b.passages) == 0 {
		return nil, ErrEmptyCorpus
	}

	out := make([]*Passage, 0, len(b.passages))
	for id, p := range b.passages {
		p.Name = b.names[id]
		if p.Name == "" {
			p.Name = fmt.Sprintf("Passage %d", id)
		}
		sort.Slice(p.Units, func(i, j int) bool { return p.Units[i].ID < p.Units[j].ID })
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Parse reads a corpus. Text is normalized to NFC so equal verses compare
// and hash equally. Passages are sorted by ID and their units by unit ID.
func Parse(r io.Reader) ([]*Passage, error) {
	b := newBuilder()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if line == 1 {
			raw = strings.TrimPrefix(raw, "\ufeff")
		}
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}

		if strings.HasPrefix(raw, "@") {
			id, name, ok := strings.Cut(raw[1:], "|")
			n, err := strconv.Atoi(strings.TrimSpace(id))
			if !ok || err != nil || n < 1 {
				return nil, &ParseError{Line: line, Err: fmt.Errorf("expected @passage|name")}
			}
			b.name(n, name)
			continue
		}

		parts := strings.SplitN(raw, "|", 3)
		if len(parts) != 3 {
			return nil, &ParseError{Line: line, Err: ErrMalformedLine}
		}

		pid, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
		uid, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err1 != nil || err2 != nil || pid < 1 || uid < 1 {
			return nil, &ParseError{Line: line, Err: ErrMalformedLine}
		}

		if err := b.add(pid, uid, parts[2]); err != nil {
			return nil, &ParseError{Line: line, Err: err}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}

	return b.build()
}
