package ui

import (
	"context"
	"errors"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/recite/internal/playback"
)

// Player is the playback surface the view drives. *playback.Scheduler
// implements it.
type Player interface {
	PlayRange(ctx context.Context, req playback.Request) error
	Pause() error
	Resume() error
	Stop() error
	Seek(offset time.Duration) error
	SetVolume(gain float64) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	UpdatePolicy(p playback.Policy) error
}

// Session is what the view plays.
type Session struct {
	Player  Player
	Request playback.Request
	// Reciter is the display name of the voice.
	Reciter string
	Volume  float64
}

// NewProgram returns a new Tea program.
func NewProgram(cfg Config, s Session) *tea.Program {
	log.Debug("Starting recite player",
		"passage", s.Request.Passage.ID,
		"mode", s.Request.Mode,
		"range", s.Request.Policy.Range)

	var opts []tea.ProgramOption
	if cfg.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	return tea.NewProgram(newModel(cfg, s), opts...)
}

// resultMsg carries the outcome of a player call made from a command.
type resultMsg struct {
	op  string
	err error
}

type model struct {
	cfg Config
	ctx context.Context

	player  Player
	req     playback.Request
	reciter string

	state    playback.State
	progress playback.Progress
	err      error
	notice   string
	volume   float64

	keys keyMap
	help help.Model
	bar  progress.Model

	width    int
	quitting bool
}

func newModel(cfg Config, s Session) model {
	if cfg.MaxWidth <= 0 {
		cfg.MaxWidth = 100
	}
	if cfg.SeekStep <= 0 {
		cfg.SeekStep = 5 * time.Second
	}
	if cfg.VolumeStep <= 0 {
		cfg.VolumeStep = 0.1
	}

	return model{
		cfg:     cfg,
		ctx:     context.Background(),
		player:  s.Player,
		req:     s.Request,
		reciter: s.Reciter,
		volume:  clampVolume(s.Volume),
		keys:    newKeyMap(),
		help:    help.New(),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		width:   80,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.volumeCmd(m.volume), m.playCmd())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.bar.Width = max(min(m.textWidth(), msg.Width-padding*2-16), 10)
		return m, nil

	case StateMsg:
		m.state = msg.State
		switch {
		case msg.State.Status == playback.StatusError:
			m.err = msg.Err
		case msg.State.IsIdle():
			m.progress = playback.Progress{}
		default:
			m.err = nil
		}
		return m, nil

	case ProgressMsg:
		m.progress = playback.Progress(msg)
		return m, nil

	case PassageMsg:
		if msg.Passage != nil && m.req.Passage != nil && msg.Passage.ID == m.req.Passage.ID {
			m.req.Passage = msg.Passage
			m.notice = "Passage reloaded."
		}
		return m, nil

	case resultMsg:
		m.handleResult(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Toggle):
		switch m.state.Status {
		case playback.StatusPlaying:
			return m, m.call("pause", m.player.Pause)
		case playback.StatusPaused:
			return m, m.call("resume", m.player.Resume)
		case playback.StatusLoading:
			return m, nil
		default:
			m.err = nil
			return m, m.playCmd()
		}

	case key.Matches(msg, m.keys.Restart):
		m.err = nil
		return m, m.playCmd()

	case key.Matches(msg, m.keys.Stop):
		return m, m.call("stop", m.player.Stop)

	case key.Matches(msg, m.keys.Next):
		return m, m.call("next", func() error { return m.player.Next(m.ctx) })

	case key.Matches(msg, m.keys.Previous):
		return m, m.call("previous", func() error { return m.player.Previous(m.ctx) })

	case key.Matches(msg, m.keys.Forward):
		return m, m.seekCmd(m.progress.Elapsed + m.cfg.SeekStep)

	case key.Matches(msg, m.keys.Back):
		return m, m.seekCmd(max(m.progress.Elapsed-m.cfg.SeekStep, 0))

	case key.Matches(msg, m.keys.Louder):
		m.volume = clampVolume(m.volume + m.cfg.VolumeStep)
		return m, m.volumeCmd(m.volume)

	case key.Matches(msg, m.keys.Quieter):
		m.volume = clampVolume(m.volume - m.cfg.VolumeStep)
		return m, m.volumeCmd(m.volume)

	case key.Matches(msg, m.keys.Loop):
		m.req.Policy.Infinite = !m.req.Policy.Infinite
		pol := m.req.Policy
		return m, m.call("policy", func() error { return m.player.UpdatePolicy(pol) })

	case key.Matches(msg, m.keys.Copy):
		text := m.currentText()
		if text == "" {
			return m, nil
		}
		return m, m.call("copy", func() error { return clipboard.WriteAll(text) })

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}

	return m, nil
}

// handleResult turns rejected controls into a notice. Failures of the audio
// itself arrive as StateMsg.
func (m *model) handleResult(msg resultMsg) {
	err := msg.err
	switch {
	case msg.op == "copy":
		m.notice = "Copied to clipboard."
		if err != nil {
			m.notice = "Unable to copy: " + err.Error()
		}
	case err == nil,
		errors.Is(err, playback.ErrStopped),
		errors.Is(err, context.Canceled),
		errors.Is(err, playback.ErrInvalidState):
		return
	case errors.Is(err, playback.ErrNotSeekable):
		m.notice = "Seeking is not available here."
	case errors.Is(err, playback.ErrInvalidMode):
		m.notice = "Verse navigation is not available in full-passage mode."
	case errors.Is(err, playback.ErrUnknownUnit):
		m.notice = "No more verses in that direction."
	default:
		log.Debug("player call failed", "op", msg.op, "err", err)
		var perr *playback.Error
		if errors.As(err, &perr) {
			// Already reported through the state listener.
			return
		}
		m.notice = playback.UserMessage(err)
	}
}

// call runs f as a command. Update must never wait on the scheduler, whose
// listeners send into this program.
func (m model) call(op string, f func() error) tea.Cmd {
	return func() tea.Msg {
		return resultMsg{op: op, err: f()}
	}
}

func (m model) playCmd() tea.Cmd {
	p, ctx, req := m.player, m.ctx, m.req
	return m.call("play", func() error { return p.PlayRange(ctx, req) })
}

func (m model) seekCmd(offset time.Duration) tea.Cmd {
	p := m.player
	return m.call("seek", func() error { return p.Seek(offset) })
}

func (m model) volumeCmd(v float64) tea.Cmd {
	p := m.player
	return m.call("volume", func() error { return p.SetVolume(v) })
}

func clampVolume(v float64) float64 {
	// Round away float drift from repeated steps.
	v = float64(int(v*100+0.5)) / 100
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
