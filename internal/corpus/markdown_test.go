package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/unicode/norm"
)

func TestParseMarkdown(t *testing.T) {
	f, err := os.Open("testdata/small.md")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	passages, err := ParseMarkdown(f)
	if err != nil {
		t.Fatalf("ParseMarkdown() error = %v", err)
	}

	if len(passages) != 2 {
		t.Fatalf("got %d passages, want 2", len(passages))
	}
	p := passages[0]
	if p.ID != 2 || p.Name != "Al-Baqarah" {
		t.Errorf("first passage = %d %q, want 2 Al-Baqarah", p.ID, p.Name)
	}
	if passages[1].Name != "Passage 9" {
		t.Errorf("unnamed passage Name = %q, want Passage 9", passages[1].Name)
	}

	if p.UnitCount() != 3 {
		t.Fatalf("UnitCount() = %d, want 3", p.UnitCount())
	}
	if want := norm.NFC.String("الم"); p.Units[0].Text != want {
		t.Errorf("unit 1 = %q, want %q", p.Units[0].Text, want)
	}
	if strings.Contains(p.Units[1].Text, "*") {
		t.Errorf("unit 2 kept markup: %q", p.Units[1].Text)
	}
	if want := norm.NFC.String("الَّذِينَ يُؤْمِنُونَ بِالْغَيْبِ"); p.Units[2].Text != want {
		t.Errorf("wrapped unit = %q, want %q", p.Units[2].Text, want)
	}
}

func TestParseMarkdownNumbering(t *testing.T) {
	passages, err := ParseMarkdown(strings.NewReader("# 5. Al-Ma'idah\n\n7. seven\n8. eight\n"))
	if err != nil {
		t.Fatalf("ParseMarkdown() error = %v", err)
	}
	p := passages[0]
	if p.ID != 5 || p.Name != "Al-Ma'idah" {
		t.Errorf("passage = %d %q", p.ID, p.Name)
	}
	if p.Units[0].ID != 7 || p.Units[1].ID != 8 {
		t.Errorf("unit IDs = %d, %d, want 7, 8", p.Units[0].ID, p.Units[1].ID)
	}
}

func TestParseMarkdownErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
		line    int
	}{
		{"no passage", "# Title\n\n1. orphan\n", ErrNoPassage, 3},
		{"duplicate", "# 1 A\n\n1. a\n\n# 1 A\n\n1. b\n", ErrDuplicateUnit, 7},
		{"empty", "# 1 A\n\njust prose\n", ErrEmptyCorpus, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMarkdown(strings.NewReader(tt.input))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseMarkdown() error = %v, want %v", err, tt.wantErr)
			}
			var perr *ParseError
			if tt.line > 0 && (!errors.As(err, &perr) || perr.Line != tt.line) {
				t.Errorf("error = %v, want line %d", err, tt.line)
			}
		})
	}
}

func TestOpenMarkdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.md")
	if err := os.WriteFile(path, []byte("## 1 Al-Fatihah\n\n1. one\n2. two\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	lib, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	p, ok := lib.Passage(1)
	if !ok || p.UnitCount() != 2 {
		t.Fatalf("Passage(1) = %v, %v", p, ok)
	}
}

func TestMarkdownRoundTrip(t *testing.T) {
	want := Sample().Passages()[0]

	got, err := ParseMarkdown(strings.NewReader(want.Markdown()))
	if err != nil {
		t.Fatalf("ParseMarkdown() error = %v", err)
	}
	if len(got) != 1 || got[0].Name != want.Name || got[0].UnitCount() != want.UnitCount() {
		t.Fatalf("round trip = %+v, want %+v", got[0], want)
	}
	for i, u := range got[0].Units {
		if u != want.Units[i] {
			t.Errorf("unit %d = %+v, want %+v", i, u, want.Units[i])
		}
	}
}
