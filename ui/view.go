package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/dgnsrekt/recite/internal/playback"
)

const padding = 2

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	faintStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#909090", Dark: "#626262"})
	textStyle   = lipgloss.NewStyle().Padding(1, 0)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD75F"))
	appStyle    = lipgloss.NewStyle().Padding(1, padding)
)

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.headerView())
	b.WriteString("\n")
	b.WriteString(m.statusView())
	b.WriteString("\n")

	if text := m.currentText(); text != "" {
		b.WriteString(textStyle.Render(wordwrap.String(text, m.textWidth())))
		b.WriteString("\n")
	} else {
		b.WriteString("\n")
	}

	b.WriteString(m.progressView())
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(m.errorText()))
		b.WriteString("\n")
	case m.notice != "":
		b.WriteString(noticeStyle.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return appStyle.Render(b.String())
}

func (m model) headerView() string {
	title := "Recite"
	if p := m.req.Passage; p != nil {
		title = p.Title()
	}
	header := titleStyle.Render(title)
	if m.reciter != "" {
		header += faintStyle.Render(" · " + m.reciter)
	}
	return truncate.StringWithTail(header, uint(max(m.width-padding*2, 10)), "…") //nolint:gosec
}

func (m model) statusView() string {
	st := m.state

	parts := []string{stateIcon(st.Status) + " " + st.Status.String()}
	if !st.IsIdle() && st.Status != playback.StatusError {
		if st.Mode == playback.ModeFullPassage && m.progress.Chunks > 0 {
			parts = append(parts, fmt.Sprintf("chunk %d/%d", m.progress.Chunk, m.progress.Chunks))
		} else if n := m.unitCount(); n > 0 {
			parts = append(parts, fmt.Sprintf("verse %d/%d", st.UnitID, n))
		}
	}
	parts = append(parts, m.req.Mode.String())

	switch pol := m.req.Policy; {
	case pol.Infinite:
		parts = append(parts, "loop ∞")
	case pol.RepeatCount > 0:
		parts = append(parts, fmt.Sprintf("repeat ×%d", pol.RepeatCount))
	}

	parts = append(parts, fmt.Sprintf("vol %d%%", int(m.volume*100+0.5)))

	return faintStyle.Render(strings.Join(parts, "  "))
}

func (m model) progressView() string {
	p := m.progress
	bar := m.bar.ViewAs(p.Fraction())
	return bar + " " + faintStyle.Render(formatDuration(p.Elapsed)+" / "+formatDuration(p.Total))
}

func (m model) errorText() string {
	msg := playback.UserMessage(m.err)
	if playback.IsFatal(m.err) {
		msg += " Set GEMINI_API_KEY and restart."
	} else {
		msg += " Press space to retry."
	}
	return msg
}

func (m model) unitCount() int {
	if m.req.Passage == nil {
		return 0
	}
	return m.req.Passage.UnitCount()
}

// currentText returns the text being recited: the current unit, or every
// unit of the current chunk.
func (m model) currentText() string {
	st := m.state
	p := m.req.Passage
	if p == nil || st.IsIdle() || st.UnitID == 0 {
		return ""
	}

	if st.Mode != playback.ModeFullPassage {
		u, ok := p.Unit(st.UnitID)
		if !ok {
			return ""
		}
		return u.Text
	}

	r := m.chunkAt(st.UnitID)
	units := p.Between(r.Start, r.End)
	texts := make([]string, len(units))
	for i, u := range units {
		texts[i] = fmt.Sprintf("%s (%d)", u.Text, u.ID)
	}
	return strings.Join(texts, " ")
}

// chunkAt returns the chunk of the session range starting at unit.
func (m model) chunkAt(unit int) playback.Range {
	pol := m.req.Policy
	r := playback.Clamp(pol.Range, m.unitCount())

	chunks := []playback.Range{r}
	if pol.Chunking {
		chunks = playback.Segment(r, pol.Chunk)
	}
	for _, c := range chunks {
		if c.Start == unit {
			return c
		}
	}
	return playback.Range{Start: unit, End: unit}
}

func (m model) textWidth() int {
	w := m.width - padding*2
	if w <= 0 || w > m.cfg.MaxWidth {
		w = m.cfg.MaxWidth
	}
	return w
}

func stateIcon(s playback.Status) string {
	switch s {
	case playback.StatusPlaying:
		return "▶"
	case playback.StatusPaused:
		return "⏸"
	case playback.StatusLoading:
		return "⟳"
	case playback.StatusError:
		return "✗"
	default:
		return "■"
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "0:00"
	}

	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60

	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
