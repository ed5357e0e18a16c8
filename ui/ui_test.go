package ui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dgnsrekt/recite/internal/corpus"
	"github.com/dgnsrekt/recite/internal/playback"
)

type fakePlayer struct {
	mu     sync.Mutex
	calls  []string
	seeks  []time.Duration
	volume float64
	policy playback.Policy
	err    error
}

func (f *fakePlayer) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	return f.err
}

func (f *fakePlayer) PlayRange(context.Context, playback.Request) error { return f.record("play") }
func (f *fakePlayer) Pause() error                                     { return f.record("pause") }
func (f *fakePlayer) Resume() error                                    { return f.record("resume") }
func (f *fakePlayer) Stop() error                                      { return f.record("stop") }
func (f *fakePlayer) Next(context.Context) error                       { return f.record("next") }
func (f *fakePlayer) Previous(context.Context) error                   { return f.record("previous") }

func (f *fakePlayer) Seek(offset time.Duration) error {
	f.mu.Lock()
	f.seeks = append(f.seeks, offset)
	f.mu.Unlock()
	return f.record("seek")
}

func (f *fakePlayer) SetVolume(v float64) error {
	f.mu.Lock()
	f.volume = v
	f.mu.Unlock()
	return f.record("volume")
}

func (f *fakePlayer) UpdatePolicy(p playback.Policy) error {
	f.mu.Lock()
	f.policy = p
	f.mu.Unlock()
	return f.record("policy")
}

func (f *fakePlayer) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return ""
	}
	return f.calls[len(f.calls)-1]
}

func testPassage() *corpus.Passage {
	p := &corpus.Passage{ID: 2, Name: "Al-Baqarah"}
	for i := 1; i <= 30; i++ {
		p.Units = append(p.Units, corpus.Unit{ID: i, Text: "verse text " + string(rune('a'+i%26))})
	}
	return p
}

func newTestModel(mode playback.Mode) (model, *fakePlayer) {
	fp := &fakePlayer{}
	m := newModel(Config{}, Session{
		Player: fp,
		Request: playback.Request{
			Passage: testPassage(),
			Mode:    mode,
			Policy: playback.Policy{
				Range:    playback.Range{Start: 1, End: 30},
				Chunking: true,
				Chunk:    playback.ChunkPolicy{Size: 15, Threshold: 20},
			},
		},
		Reciter: "Zephyr",
		Volume:  0.5,
	})
	return m, fp
}

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends k and runs the resulting command, feeding its message back.
func press(t *testing.T, m model, k tea.KeyMsg) model {
	t.Helper()
	next, cmd := m.Update(k)
	m = next.(model)
	if cmd != nil {
		if msg := cmd(); msg != nil {
			if _, ok := msg.(resultMsg); ok {
				next, _ = m.Update(msg)
				m = next.(model)
			}
		}
	}
	return m
}

func withState(m model, st playback.State) model {
	next, _ := m.Update(StateMsg{State: st})
	return next.(model)
}

func TestToggleFollowsState(t *testing.T) {
	tests := []struct {
		name   string
		status playback.Status
		want   string
	}{
		{"playing pauses", playback.StatusPlaying, "pause"},
		{"paused resumes", playback.StatusPaused, "resume"},
		{"idle starts", playback.StatusIdle, "play"},
		{"error retries", playback.StatusError, "play"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, fp := newTestModel(playback.ModeVerseByVerse)
			m = withState(m, playback.State{Status: tt.status, PassageID: 2, UnitID: 3, Mode: playback.ModeVerseByVerse})

			press(t, m, runeKey(" "))
			if got := fp.last(); got != tt.want {
				t.Errorf("space while %s called %q, want %q", tt.status, got, tt.want)
			}
		})
	}
}

func TestToggleIgnoredWhileLoading(t *testing.T) {
	m, fp := newTestModel(playback.ModeSingle)
	m = withState(m, playback.State{Status: playback.StatusLoading, PassageID: 2, UnitID: 1})

	_, cmd := m.Update(runeKey(" "))
	if cmd != nil {
		t.Fatal("space while loading should do nothing")
	}
	if got := fp.last(); got != "" {
		t.Errorf("unexpected call %q", got)
	}
}

func TestKeysCallPlayer(t *testing.T) {
	tests := []struct {
		key  tea.KeyMsg
		want string
	}{
		{runeKey("s"), "stop"},
		{runeKey("n"), "next"},
		{runeKey("p"), "previous"},
		{runeKey("r"), "play"},
		{tea.KeyMsg{Type: tea.KeyRight}, "seek"},
		{runeKey("+"), "volume"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			m, fp := newTestModel(playback.ModeVerseByVerse)
			press(t, m, tt.key)
			if got := fp.last(); got != tt.want {
				t.Errorf("key %q called %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestSeekIsRelative(t *testing.T) {
	m, fp := newTestModel(playback.ModeSingle)
	m = withState(m, playback.State{Status: playback.StatusPlaying, PassageID: 2, UnitID: 1})
	next, _ := m.Update(ProgressMsg{Elapsed: 3 * time.Second, Total: 20 * time.Second})
	m = next.(model)

	press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	press(t, m, tea.KeyMsg{Type: tea.KeyLeft})

	fp.mu.Lock()
	defer fp.mu.Unlock()
	want := []time.Duration{8 * time.Second, 0}
	if len(fp.seeks) != len(want) {
		t.Fatalf("seeks = %v, want %v", fp.seeks, want)
	}
	for i := range want {
		if fp.seeks[i] != want[i] {
			t.Errorf("seek %d = %v, want %v", i, fp.seeks[i], want[i])
		}
	}
}

func TestVolumeSteps(t *testing.T) {
	m, fp := newTestModel(playback.ModeSingle)

	for range 10 {
		m = press(t, m, runeKey("+"))
	}
	if m.volume != 1 {
		t.Errorf("volume = %v, want 1", m.volume)
	}

	m = press(t, m, runeKey("-"))
	if m.volume != 0.9 {
		t.Errorf("volume = %v, want 0.9", m.volume)
	}

	fp.mu.Lock()
	defer fp.mu.Unlock()
	if fp.volume != 0.9 {
		t.Errorf("player volume = %v, want 0.9", fp.volume)
	}
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel(playback.ModeSingle)

	next, cmd := m.Update(runeKey("q"))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
	if next.(model).View() != "" {
		t.Error("view should be empty after quitting")
	}
}

func TestRejectedControlsShowNotice(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{playback.ErrNotSeekable, "Seeking is not available"},
		{playback.ErrInvalidMode, "not available in full-passage mode"},
		{playback.ErrUnknownUnit, "No more verses"},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			m, _ := newTestModel(playback.ModeSingle)
			next, _ := m.Update(resultMsg{op: "x", err: tt.err})
			m = next.(model)
			if !strings.Contains(m.notice, tt.want) {
				t.Errorf("notice = %q, want it to contain %q", m.notice, tt.want)
			}
		})
	}
}

func TestStoppedIsSilent(t *testing.T) {
	m, _ := newTestModel(playback.ModeSingle)
	for _, err := range []error{playback.ErrStopped, context.Canceled, playback.ErrInvalidState} {
		next, _ := m.Update(resultMsg{op: "play", err: err})
		if n := next.(model).notice; n != "" {
			t.Errorf("%v produced notice %q", err, n)
		}
	}
}

func TestErrorState(t *testing.T) {
	m, _ := newTestModel(playback.ModeSingle)
	perr := &playback.Error{Kind: playback.KindSynthesis, Err: errors.New("boom"), PassageID: 2, UnitID: 1}

	next, _ := m.Update(StateMsg{State: playback.State{Status: playback.StatusError, PassageID: 2, UnitID: 1}, Err: perr})
	m = next.(model)
	if m.err == nil {
		t.Fatal("error state should keep the error")
	}
	if v := m.View(); !strings.Contains(v, "Audio generation failed") {
		t.Errorf("view does not show the user message:\n%s", v)
	}

	m = withState(m, playback.State{Status: playback.StatusPlaying, PassageID: 2, UnitID: 1})
	if m.err != nil {
		t.Error("playing should clear the error")
	}
}

func TestIdleResetsProgress(t *testing.T) {
	m, _ := newTestModel(playback.ModeSingle)
	next, _ := m.Update(ProgressMsg{Elapsed: time.Second, Total: 2 * time.Second})
	m = next.(model)

	m = withState(m, playback.State{})
	if m.progress != (playback.Progress{}) {
		t.Errorf("progress = %+v after idle", m.progress)
	}
}

func TestCurrentText(t *testing.T) {
	t.Run("unit", func(t *testing.T) {
		m, _ := newTestModel(playback.ModeVerseByVerse)
		m = withState(m, playback.State{Status: playback.StatusPlaying, PassageID: 2, UnitID: 4, Mode: playback.ModeVerseByVerse})
		if got, want := m.currentText(), m.req.Passage.Units[3].Text; got != want {
			t.Errorf("currentText() = %q, want %q", got, want)
		}
	})

	t.Run("chunk", func(t *testing.T) {
		m, _ := newTestModel(playback.ModeFullPassage)
		m = withState(m, playback.State{Status: playback.StatusPlaying, PassageID: 2, UnitID: 16, Mode: playback.ModeFullPassage})

		if r := m.chunkAt(16); r != (playback.Range{Start: 16, End: 30}) {
			t.Errorf("chunkAt(16) = %v", r)
		}
		got := m.currentText()
		if !strings.Contains(got, "(16)") || !strings.Contains(got, "(30)") || strings.Contains(got, "(15)") {
			t.Errorf("currentText() = %q, want units 16 to 30", got)
		}
	})

	t.Run("idle", func(t *testing.T) {
		m, _ := newTestModel(playback.ModeSingle)
		if got := m.currentText(); got != "" {
			t.Errorf("currentText() = %q while idle", got)
		}
	})
}

func TestStatusView(t *testing.T) {
	m, _ := newTestModel(playback.ModeFullPassage)
	m.req.Policy.Infinite = true
	m = withState(m, playback.State{Status: playback.StatusPlaying, PassageID: 2, UnitID: 1, Mode: playback.ModeFullPassage})
	next, _ := m.Update(ProgressMsg{Elapsed: time.Second, Total: 90 * time.Second, Chunk: 1, Chunks: 2})
	m = next.(model)

	v := m.View()
	for _, want := range []string{"2. Al-Baqarah", "Zephyr", "chunk 1/2", "loop ∞", "vol 50%", "0:01 / 1:30"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q:\n%s", want, v)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{-time.Second, "0:00"},
		{59 * time.Second, "0:59"},
		{61 * time.Second, "1:01"},
		{10*time.Minute + 5*time.Second, "10:05"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestClampVolume(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-0.2, 0},
		{0.30000000000000004, 0.3},
		{1.4, 1},
	}
	for _, tt := range tests {
		if got := clampVolume(tt.in); got != tt.want {
			t.Errorf("clampVolume(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPassageReload(t *testing.T) {
	m, _ := newTestModel(playback.ModeSingle)

	other := &corpus.Passage{ID: 3, Name: "Ali 'Imran"}
	next, _ := m.Update(PassageMsg{Passage: other})
	if next.(model).req.Passage.ID != 2 {
		t.Fatal("a different passage must not replace the playing one")
	}

	updated := testPassage()
	updated.Name = "The Cow"
	next, _ = m.Update(PassageMsg{Passage: updated})
	m = next.(model)
	if m.req.Passage.Name != "The Cow" {
		t.Errorf("passage = %q, want the reloaded one", m.req.Passage.Name)
	}
}

func TestCopy(t *testing.T) {
	m, _ := newTestModel(playback.ModeSingle)

	// Nothing is being recited yet.
	if _, cmd := m.Update(runeKey("c")); cmd != nil {
		t.Error("copy while idle returned a command")
	}

	m = withState(m, playback.State{Status: playback.StatusPlaying, PassageID: 2, UnitID: 3, Mode: playback.ModeSingle})
	if _, cmd := m.Update(runeKey("c")); cmd == nil {
		t.Error("copy while playing returned no command")
	}

	next, _ := m.Update(resultMsg{op: "copy"})
	if got := next.(model).notice; got != "Copied to clipboard." {
		t.Errorf("notice = %q", got)
	}
	next, _ = m.Update(resultMsg{op: "copy", err: errors.New("no clipboard utility")})
	if got := next.(model).notice; !strings.Contains(got, "no clipboard utility") {
		t.Errorf("notice = %q", got)
	}
}

func TestLoopToggle(t *testing.T) {
	m, fp := newTestModel(playback.ModeSingle)
	m = withState(m, playback.State{Status: playback.StatusPlaying, PassageID: 2, UnitID: 3, Mode: playback.ModeSingle})

	m = press(t, m, runeKey("i"))
	if fp.last() != "policy" || !fp.policy.Infinite {
		t.Fatalf("last = %q, policy = %+v", fp.last(), fp.policy)
	}
	if !m.req.Policy.Infinite || !strings.Contains(m.View(), "loop ∞") {
		t.Error("loop not shown after toggling on")
	}
	if fp.policy.Range != m.req.Policy.Range {
		t.Errorf("range = %+v, want %+v", fp.policy.Range, m.req.Policy.Range)
	}

	m = press(t, m, runeKey("i"))
	if fp.policy.Infinite || m.req.Policy.Infinite {
		t.Error("loop still on after toggling off")
	}

	// Toggling while idle is kept for the next play.
	m = withState(m, playback.State{})
	fp.err = playback.ErrInvalidState
	m = press(t, m, runeKey("i"))
	if !m.req.Policy.Infinite || m.notice != "" {
		t.Errorf("infinite = %v, notice = %q", m.req.Policy.Infinite, m.notice)
	}
}
