package corpus

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ParseMarkdown reads a corpus written as Markdown. A heading that starts
// with a number opens that passage ("## 2 Al-Baqarah") and the items of the
// ordered lists under it are its units, numbered by their list markers.
// Other headings and paragraphs are ignored.
func ParseMarkdown(r io.Reader) ([]*Passage, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	src = bytes.TrimPrefix(src, []byte("\ufeff"))

	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	b := newBuilder()
	current := 0

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch n := n.(type) {
		case *ast.Heading:
			id, name, ok := splitHeading(plainText(n, src))
			if !ok {
				continue
			}
			current = id
			b.name(id, name)

		case *ast.List:
			if !n.IsOrdered() {
				continue
			}
			if current == 0 {
				return nil, &ParseError{Line: lineOf(n, src), Err: ErrNoPassage}
			}

			uid := n.Start
			for item := n.FirstChild(); item != nil; item = item.NextSibling() {
				if uid < 1 {
					return nil, &ParseError{Line: lineOf(item, src), Err: fmt.Errorf("unit %d out of range", uid)}
				}
				if err := b.add(current, uid, plainText(item, src)); err != nil {
					return nil, &ParseError{Line: lineOf(item, src), Err: err}
				}
				uid++
			}
		}
	}

	return b.build()
}

// splitHeading reads "12 Name", "12. Name" or "12: Name".
func splitHeading(s string) (int, string, bool) {
	end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
	if end == 0 {
		return 0, "", false
	}
	if end < 0 {
		end = len(s)
	}
	id, err := strconv.Atoi(s[:end])
	if err != nil || id < 1 {
		return 0, "", false
	}
	name := strings.TrimLeft(s[end:], " .:-\t")
	return id, name, true
}

// plainText joins the text of n without inline markup. Nested lists are
// skipped.
func plainText(n ast.Node, src []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch c := c.(type) {
		case *ast.List:
			if c != n {
				return ast.WalkSkipChildren, nil
			}
		case *ast.Text:
			sb.Write(c.Segment.Value(src))
			if c.SoftLineBreak() || c.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(c.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

// lineOf returns the 1-based line of the first text under n.
func lineOf(n ast.Node, src []byte) int {
	for ; n != nil; n = n.FirstChild() {
		if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
			return bytes.Count(src[:n.Lines().At(0).Start], []byte("\n")) + 1
		}
	}
	return 0
}

// Markdown writes p in the form ParseMarkdown reads.
func (p *Passage) Markdown() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %d %s\n\n", p.ID, p.Name)
	for _, u := range p.Units {
		fmt.Fprintf(&sb, "%d. %s\n", u.ID, u.Text)
	}
	return sb.String()
}
