package playback

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/dgnsrekt/recite/internal/audio"
	"github.com/dgnsrekt/recite/internal/corpus"
	"github.com/dgnsrekt/recite/internal/synth"
)

// Invocation is the opening phrase prepended when playback starts part way
// into a passage.
type Invocation struct {
	Text string
	// Exclude lists passages that never take the phrase.
	Exclude []int
	Disabled bool
}

// DefaultInvocation returns the standard opening phrase. Passage 9 opens
// without it.
func DefaultInvocation() Invocation {
	return Invocation{
		Text:    "بِسْمِ ٱللَّهِ ٱلرَّحْمَـٰنِ ٱلرَّحِيمِ ",
		Exclude: []int{9},
	}
}

func (inv Invocation) applies(passageID int, r Range) bool {
	if inv.Disabled || inv.Text == "" || r.Start <= 1 {
		return false
	}
	for _, id := range inv.Exclude {
		if id == passageID {
			return false
		}
	}
	return true
}

// Request is what a caller asks to play. The policy is copied when the
// session starts.
type Request struct {
	Passage *corpus.Passage
	Mode    Mode
	Voice   Voice
	Policy  Policy
}

// Options configures a Scheduler.
type Options struct {
	Backend synth.Backend
	// Store is optional; nil disables the persistent cache.
	Store Store
	// NewPipeline creates the audio pipeline on first use.
	NewPipeline func() (audio.Pipeline, error)

	Delays     Delays
	Invocation Invocation

	// Prefetch resolves the next segment while the current one plays.
	Prefetch bool

	ProgressInterval time.Duration
	ResolveTimeout   time.Duration

	// Listeners run on the scheduler goroutine. They must not block or
	// call back into the Scheduler.
	OnStateChange func(State, error)
	OnProgress    func(Progress)

	Logger *log.Logger
}

// DefaultOptions returns options with the standard delays and prefetching
// enabled. Backend and NewPipeline must still be set.
func DefaultOptions() Options {
	return Options{
		Delays:           DefaultDelays(),
		Invocation:       DefaultInvocation(),
		Prefetch:         true,
		ProgressInterval: 100 * time.Millisecond,
		ResolveTimeout:   2 * time.Minute,
	}
}

// session is one fresh start and every continuation that follows it. Only
// the scheduler goroutine touches it.
type session struct {
	id      string
	ctx     context.Context
	cancel  context.CancelFunc
	passage *corpus.Passage
	mode    Mode
	voice   Voice
	policy  Policy

	playCount int
	queue     ChunkQueue
	chunk     int
	chunks    int

	unitID int
	key    string
	buffer *audio.Buffer

	handle    *audio.Handle
	release   chan struct{}
	startedAt time.Duration
	pausedAt  time.Duration

	timer  *time.Timer
	parked *NextAction

	ready    chan error
	signaled bool
}

func (sess *session) signal(err error) {
	if sess.signaled {
		return
	}
	sess.signaled = true
	sess.ready <- err
}

// Scheduler plays passages. Every transition runs on one goroutine; timers,
// resolutions and audio completions are posted back to it, and a token
// drops events that belong to a segment that has since been replaced.
type Scheduler struct {
	opts     Options
	resolver *Resolver
	prefetch *Prefetcher
	log      *log.Logger

	inbox     chan func()
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// Resolutions started by load; Close waits for them before the
	// pipeline goes away.
	loads sync.WaitGroup

	mu       sync.RWMutex
	state    State
	progress Progress
	err      error

	// Owned by the loop goroutine.
	pipeline audio.Pipeline
	gain     float64
	session  *session
	token    uint64
	ticker   chan struct{}
}

// NewScheduler creates a scheduler and starts its goroutine. Close releases
// it.
func NewScheduler(opts Options) (*Scheduler, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("playback: backend is required")
	}
	if opts.NewPipeline == nil {
		return nil, fmt.Errorf("playback: pipeline factory is required")
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = 100 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = log.WithPrefix("playback")
	}

	s := &Scheduler{
		opts:     opts,
		resolver: NewResolver(opts.Backend, opts.Store, opts.ResolveTimeout),
		log:      opts.Logger,
		inbox:    make(chan func(), 64),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		gain:     1.0,
	}
	s.prefetch = NewPrefetcher(s.resolve)

	go s.run()
	return s, nil
}

func (s *Scheduler) run() {
	defer close(s.done)

	for {
		select {
		case f := <-s.inbox:
			f()
		case <-s.quit:
			return
		}
	}
}

// post queues f on the scheduler goroutine.
func (s *Scheduler) post(f func()) bool {
	select {
	case s.inbox <- f:
		return true
	case <-s.quit:
		return false
	}
}

// call runs f on the scheduler goroutine and waits for its result.
func (s *Scheduler) call(f func() error) error {
	errc := make(chan error, 1)
	if !s.post(func() { errc <- f() }) {
		return ErrClosed
	}
	select {
	case err := <-errc:
		return err
	case <-s.done:
		return ErrClosed
	}
}

// Resolver returns the resolver shared by playback and prefetching.
func (s *Scheduler) Resolver() *Resolver {
	return s.resolver
}

// State returns the current state.
func (s *Scheduler) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Progress returns the position within the current buffer.
func (s *Scheduler) Progress() Progress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress
}

// Err returns the failure behind StatusError, or nil.
func (s *Scheduler) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// PlayUnit starts a fresh session at unitID and blocks until its audio is
// playing. In single mode the unit repeats per the policy; in verse-by-verse
// mode playback advances to the end of the policy range.
func (s *Scheduler) PlayUnit(ctx context.Context, req Request, unitID int) error {
	if req.Mode == ModeFullPassage {
		return ErrInvalidMode
	}
	return s.start(ctx, req, unitID, false)
}

// PlayRange starts a fresh session over the policy range and blocks until
// its audio is playing.
func (s *Scheduler) PlayRange(ctx context.Context, req Request) error {
	return s.start(ctx, req, 0, true)
}

func (s *Scheduler) start(ctx context.Context, req Request, unitID int, ranged bool) error {
	var sess *session
	var ready chan error

	err := s.call(func() error {
		var err error
		sess, err = s.begin(ctx, req, unitID, ranged)
		if err != nil {
			return err
		}
		ready = sess.ready
		return nil
	})
	if err != nil {
		return err
	}

	select {
	case err := <-ready:
		return err
	case <-ctx.Done():
		s.post(func() {
			if s.session == sess {
				s.stop()
			}
		})
		return ctx.Err()
	}
}

// begin stops whatever is playing and starts sess. It runs on the loop.
func (s *Scheduler) begin(ctx context.Context, req Request, unitID int, ranged bool) (*session, error) {
	if req.Passage == nil {
		return nil, ErrNoPassage
	}
	if !ranged {
		if _, ok := req.Passage.Unit(unitID); !ok {
			return nil, fmt.Errorf("%w: %d:%d", ErrUnknownUnit, req.Passage.ID, unitID)
		}
	}
	if err := s.ensurePipeline(); err != nil {
		return nil, err
	}

	s.stop()

	policy := req.Policy
	policy.Range = Clamp(policy.Range, req.Passage.UnitCount())

	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sess := &session{
		id:        uuid.NewString(),
		ctx:       sctx,
		cancel:    cancel,
		passage:   req.Passage,
		mode:      req.Mode,
		voice:     req.Voice,
		policy:    policy,
		playCount: 1,
		ready:     make(chan error, 1),
	}
	s.session = sess
	s.setErr(nil)

	s.log.Debug("session started",
		"session", sess.id,
		"passage", req.Passage.ID,
		"mode", req.Mode,
		"range", policy.Range,
		"repeat", policy.RepeatCount,
		"infinite", policy.Infinite,
	)

	switch {
	case !ranged:
		s.load(sess, s.unitClip(sess, unitID, false), unitID)
	case req.Mode == ModeFullPassage:
		s.nextChunk(sess, s.opts.Invocation.applies(req.Passage.ID, policy.Range))
	case req.Mode == ModeVerseByVerse:
		first := policy.Range.Start
		s.load(sess, s.unitClip(sess, first, s.opts.Invocation.applies(req.Passage.ID, policy.Range)), first)
	default:
		first := policy.Range.Start
		s.load(sess, s.unitClip(sess, first, false), first)
	}

	return sess, nil
}

func (s *Scheduler) ensurePipeline() error {
	if s.pipeline != nil {
		return nil
	}

	p, err := s.opts.NewPipeline()
	if err != nil {
		return &Error{Kind: KindPlayback, Err: err}
	}
	if s.gain != 1.0 {
		if err := p.SetGain(s.gain); err != nil {
			s.log.Warn("restoring volume", "err", err)
		}
	}
	s.pipeline = p
	return nil
}

func (s *Scheduler) unitClip(sess *session, unitID int, invocation bool) Clip {
	var phrase string
	if invocation {
		phrase = s.opts.Invocation.Text
	}
	return UnitClip(sess.passage, unitID, sess.voice, phrase)
}

// chunkClip joins the units of r into one synthesizable text.
func (s *Scheduler) chunkClip(sess *session, r Range, invocation bool) Clip {
	units := sess.passage.Between(r.Start, r.End)
	parts := make([]string, 0, len(units))
	for _, u := range units {
		if t := synth.CleanText(u.Text); t != "" {
			parts = append(parts, t)
		}
	}

	text := strings.Join(parts, " ")
	if invocation {
		text = s.opts.Invocation.Text + text
	}

	return Clip{
		Key: BuildKey(KeyParams{
			VoiceID:    sess.voice.ID,
			PassageID:  sess.passage.ID,
			Range:      r,
			Invocation: invocation,
			Speed:      sess.voice.Speed,
			Pitch:      sess.voice.Pitch,
		}),
		Text:  text,
		Voice: sess.voice,
	}
}

// nextChunk dequeues the next chunk, refilling the queue when it has
// drained.
func (s *Scheduler) nextChunk(sess *session, invocation bool) {
	if sess.queue.Fill(sess.policy.Range, sess.policy.chunkPolicy()) {
		sess.chunk = 0
		sess.chunks = sess.queue.Len()
	}

	r, ok := sess.queue.Pop()
	if !ok {
		s.finish(sess)
		return
	}
	sess.chunk++

	s.load(sess, s.chunkClip(sess, r, invocation), r.Start)
}

// resolve turns a segment into a playable buffer. It is safe to call off
// the loop.
func (s *Scheduler) resolve(ctx context.Context, seg Clip) (*audio.Buffer, error) {
	data, err := s.resolver.Fetch(ctx, seg)
	if err != nil {
		return nil, err
	}
	return s.pipeline.Decode(data)
}

// load makes seg the current segment and plays it once resolved.
func (s *Scheduler) load(sess *session, seg Clip, unitID int) {
	s.token++
	tok := s.token

	sess.unitID = unitID
	sess.key = seg.Key

	if buf, ok := s.prefetch.Take(seg.Key); ok {
		s.log.Debug("prefetch hit", "key", seg.Key)
		s.play(sess, buf, 0)
		return
	}

	s.setState(s.stateFor(sess, StatusLoading), nil)

	s.loads.Add(1)
	go func() {
		defer s.loads.Done()

		buf, err := s.resolve(sess.ctx, seg)
		s.post(func() {
			if s.session != sess || s.token != tok {
				return
			}
			if err != nil {
				s.fail(sess, err)
				return
			}
			s.play(sess, buf, 0)
		})
	}()
}

// play starts buf at offset, replacing any live handle.
func (s *Scheduler) play(sess *session, buf *audio.Buffer, offset time.Duration) {
	s.releaseHandle(sess)

	h, err := s.pipeline.Play(buf, offset)
	if err != nil {
		s.fail(sess, err)
		return
	}

	s.token++
	tok := s.token
	release := make(chan struct{})

	offset = buf.Clamp(offset)
	sess.buffer = buf
	sess.handle = h
	sess.release = release
	sess.startedAt = s.pipeline.Now() - offset

	s.setProgress(s.progressFor(sess, offset))
	s.setState(s.stateFor(sess, StatusPlaying), nil)
	sess.signal(nil)
	s.startTicker(sess)

	go func() {
		select {
		case <-h.Done():
			s.post(func() {
				if s.session != sess || s.token != tok {
					return
				}
				s.complete(sess)
			})
		case <-release:
		}
	}()

	if s.opts.Prefetch {
		s.prefetchNext(sess)
	}
}

// releaseHandle tears down the live handle, if any.
func (s *Scheduler) releaseHandle(sess *session) {
	s.stopTicker()
	if sess.release != nil {
		close(sess.release)
		sess.release = nil
	}
	if sess.handle != nil {
		sess.handle = nil
		if err := s.pipeline.Stop(); err != nil {
			s.log.Debug("stopping audio", "err", err)
		}
	}
}

// complete runs the completion policy once a segment finishes naturally.
func (s *Scheduler) complete(sess *session) {
	s.stopTicker()
	if sess.release != nil {
		close(sess.release)
		sess.release = nil
	}
	sess.handle = nil

	if sess.buffer != nil {
		s.setProgress(s.progressFor(sess, sess.buffer.Duration))
	}

	next := Decide(Completion{
		Mode:       sess.mode,
		Chunked:    sess.policy.Chunking,
		QueueLen:   sess.queue.Len(),
		UnitID:     sess.unitID,
		NextUnitID: sess.passage.Next(sess.unitID),
		Policy:     sess.policy,
		PlayCount:  sess.playCount,
	}, s.opts.Delays)

	s.log.Debug("segment complete",
		"session", sess.id,
		"unit", sess.unitID,
		"play", sess.playCount,
		"next", next.Kind,
	)

	if next.Kind == ActionStop {
		s.finish(sess)
		return
	}
	if next.Loop {
		sess.playCount++
	}
	s.arm(sess, next)
}

// arm schedules next after its delay. While paused the action is parked
// until Resume.
func (s *Scheduler) arm(sess *session, next NextAction) {
	sess.parked = &next
	if s.State().Status == StatusPaused {
		return
	}

	s.token++
	tok := s.token
	sess.timer = time.AfterFunc(next.Delay, func() {
		s.post(func() {
			if s.session != sess || s.token != tok {
				return
			}
			if s.State().Status == StatusPaused {
				// Resume arms it again.
				return
			}
			sess.timer = nil
			sess.parked = nil
			s.apply(sess, next)
		})
	})
}

func (s *Scheduler) disarm(sess *session) {
	if sess.timer != nil {
		sess.timer.Stop()
		sess.timer = nil
	}
}

// apply carries out a continuation.
func (s *Scheduler) apply(sess *session, next NextAction) {
	switch next.Kind {
	case ActionNextChunk:
		s.nextChunk(sess, false)

	case ActionRestartRange:
		if sess.mode == ModeFullPassage {
			sess.queue.Clear()
			s.nextChunk(sess, false)
			return
		}
		first := sess.policy.Range.Start
		s.load(sess, s.unitClip(sess, first, false), first)

	case ActionNextUnit:
		s.load(sess, s.unitClip(sess, next.Unit, false), next.Unit)

	case ActionRepeatUnit:
		if sess.buffer != nil && sess.unitID == next.Unit {
			s.play(sess, sess.buffer, 0)
			return
		}
		s.load(sess, s.unitClip(sess, next.Unit, false), next.Unit)

	default:
		s.finish(sess)
	}
}

// prefetchNext requests the segment the completion policy is expected to
// pick next.
func (s *Scheduler) prefetchNext(sess *session) {
	var seg Clip

	switch sess.mode {
	case ModeVerseByVerse:
		next := sess.passage.Next(sess.unitID)
		switch {
		case next != 0 && next <= sess.policy.Range.End && sess.unitID < sess.policy.Range.End:
			seg = s.unitClip(sess, next, false)
		case sess.policy.ShouldLoop(sess.playCount) && sess.policy.Range.Start != sess.unitID:
			seg = s.unitClip(sess, sess.policy.Range.Start, false)
		default:
			return
		}

	case ModeFullPassage:
		r, ok := sess.queue.Peek()
		if !ok {
			if !sess.policy.ShouldLoop(sess.playCount) {
				return
			}
			chunks := Segment(sess.policy.Range, sess.policy.chunkPolicy())
			if len(chunks) == 0 {
				return
			}
			r = chunks[0]
		}
		seg = s.chunkClip(sess, r, false)

	default:
		return
	}

	if seg.Key == sess.key {
		return
	}
	s.prefetch.Request(seg)
}

// finish ends a session that ran to completion.
func (s *Scheduler) finish(sess *session) {
	s.log.Debug("session finished", "session", sess.id, "plays", sess.playCount)
	s.stop()
}

// fail moves sess to the error state. No continuation is scheduled.
func (s *Scheduler) fail(sess *session, err error) {
	s.disarm(sess)
	sess.parked = nil
	s.releaseHandle(sess)
	s.prefetch.Clear()
	s.token++

	perr := wrapError(err, s.stateFor(sess, StatusError))
	s.log.Error("playback failed", "session", sess.id, "kind", perr.Kind, "err", err)

	s.setErr(perr)
	s.setState(s.stateFor(sess, StatusError), perr)
	sess.signal(perr)
}

// Stop ends the session and returns to idle. Stopping an idle scheduler does
// nothing.
func (s *Scheduler) Stop() error {
	return s.call(func() error {
		s.stop()
		return nil
	})
}

func (s *Scheduler) stop() {
	sess := s.session
	if sess != nil {
		s.disarm(sess)
		sess.parked = nil
		sess.cancel()
		s.releaseHandle(sess)
		sess.queue.Clear()
		sess.signal(ErrStopped)
		s.session = nil
	}
	s.stopTicker()
	s.prefetch.Clear()
	s.token++

	if s.pipeline != nil {
		// A pause leaves the device suspended.
		if err := s.pipeline.Resume(); err != nil {
			s.log.Debug("resuming audio", "err", err)
		}
	}

	s.setProgress(Progress{})
	s.setErr(nil)
	if !s.State().IsIdle() {
		s.setState(State{}, nil)
	}
}

// Pause suspends playback. It is only valid while playing.
func (s *Scheduler) Pause() error {
	return s.call(func() error {
		sess := s.session
		if sess == nil || s.State().Status != StatusPlaying {
			return ErrInvalidState
		}

		if err := s.pipeline.Suspend(); err != nil {
			return &Error{Kind: KindPlayback, Err: err, PassageID: sess.passage.ID, UnitID: sess.unitID, Mode: sess.mode}
		}
		sess.pausedAt = s.pipeline.Now()

		// A continuation waiting on its delay is parked until Resume.
		s.disarm(sess)
		s.stopTicker()
		s.tick(sess)

		s.setState(s.stateFor(sess, StatusPaused), nil)
		return nil
	})
}

// Resume continues paused playback. It is only valid while paused.
func (s *Scheduler) Resume() error {
	return s.call(func() error {
		sess := s.session
		if sess == nil || s.State().Status != StatusPaused {
			return ErrInvalidState
		}

		if err := s.pipeline.Resume(); err != nil {
			return &Error{Kind: KindPlayback, Err: err, PassageID: sess.passage.ID, UnitID: sess.unitID, Mode: sess.mode}
		}
		sess.startedAt += s.pipeline.Now() - sess.pausedAt

		s.setState(s.stateFor(sess, StatusPlaying), nil)

		if sess.parked != nil {
			s.arm(sess, *sess.parked)
		} else if sess.handle != nil {
			s.startTicker(sess)
		}
		return nil
	})
}

// Seek restarts the current buffer at offset without resolving it again.
// Chunked full-passage playback cannot seek until its last chunk.
func (s *Scheduler) Seek(offset time.Duration) error {
	return s.call(func() error {
		sess := s.session
		if sess == nil || sess.buffer == nil || !s.State().IsActive() {
			return ErrNotSeekable
		}
		if sess.mode == ModeFullPassage && sess.policy.Chunking && sess.queue.Len() > 0 {
			return ErrNotSeekable
		}

		s.disarm(sess)
		if sess.parked != nil && sess.parked.Loop {
			// The finished iteration plays again and is counted once.
			sess.playCount--
		}
		sess.parked = nil
		if s.State().Status == StatusPaused {
			if err := s.pipeline.Resume(); err != nil {
				return &Error{Kind: KindPlayback, Err: err, PassageID: sess.passage.ID, UnitID: sess.unitID, Mode: sess.mode}
			}
		}

		s.play(sess, sess.buffer, offset)
		return nil
	})
}

// SetVolume sets the playback gain in [0, 1].
func (s *Scheduler) SetVolume(gain float64) error {
	return s.call(func() error {
		if s.pipeline != nil {
			if err := s.pipeline.SetGain(gain); err != nil {
				return err
			}
		} else if gain < 0 || gain > 1 {
			return audio.ErrInvalidGain
		}
		s.gain = gain
		return nil
	})
}

// Volume returns the last gain set.
func (s *Scheduler) Volume() float64 {
	var gain float64
	_ = s.call(func() error {
		gain = s.gain
		return nil
	})
	return gain
}

// UpdatePolicy replaces the range and loop settings of the running session.
// It takes effect from the next completion. Chunking stays as the session
// started, so queued chunks still play.
func (s *Scheduler) UpdatePolicy(p Policy) error {
	return s.call(func() error {
		sess := s.session
		if sess == nil {
			return ErrInvalidState
		}
		p.Range = Clamp(p.Range, sess.passage.UnitCount())
		p.Chunking = sess.policy.Chunking
		p.Chunk = sess.policy.Chunk
		sess.policy = p
		return nil
	})
}

// Next stops and plays the unit after the current one on its own.
func (s *Scheduler) Next(ctx context.Context) error {
	return s.step(ctx, func(p *corpus.Passage, unit int) int { return p.Next(unit) })
}

// Previous stops and plays the unit before the current one on its own.
func (s *Scheduler) Previous(ctx context.Context) error {
	return s.step(ctx, func(p *corpus.Passage, unit int) int { return p.Previous(unit) })
}

func (s *Scheduler) step(ctx context.Context, adjacent func(*corpus.Passage, int) int) error {
	var req Request
	var unit int

	err := s.call(func() error {
		sess := s.session
		if sess == nil {
			return ErrInvalidState
		}
		if sess.mode == ModeFullPassage {
			return ErrInvalidMode
		}

		unit = adjacent(sess.passage, sess.unitID)
		if unit == 0 {
			return fmt.Errorf("%w: no unit next to %d:%d", ErrUnknownUnit, sess.passage.ID, sess.unitID)
		}
		req = Request{
			Passage: sess.passage,
			Mode:    ModeSingle,
			Voice:   sess.voice,
			Policy:  sess.policy,
		}
		return nil
	})
	if err != nil {
		return err
	}

	return s.PlayUnit(ctx, req, unit)
}

// Close stops playback, waits for background work and releases the audio
// pipeline.
func (s *Scheduler) Close() error {
	var err error
	s.closeOnce.Do(func() {
		_ = s.call(func() error {
			s.stop()
			return nil
		})
		close(s.quit)
		<-s.done

		s.prefetch.Close()
		s.loads.Wait()
		s.resolver.Wait()

		if s.pipeline != nil {
			err = s.pipeline.Close()
		}
	})
	return err
}

func (s *Scheduler) startTicker(sess *session) {
	s.stopTicker()

	stop := make(chan struct{})
	s.ticker = stop
	tok := s.token
	interval := s.opts.ProgressInterval

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				s.post(func() {
					if s.session != sess || s.token != tok || s.ticker != stop {
						return
					}
					s.tick(sess)
				})
			case <-stop:
				return
			case <-s.quit:
				return
			}
		}
	}()
}

func (s *Scheduler) stopTicker() {
	if s.ticker != nil {
		close(s.ticker)
		s.ticker = nil
	}
}

// tick samples the audio clock. The result is clamped to the buffer.
func (s *Scheduler) tick(sess *session) {
	if sess.buffer == nil || sess.handle == nil {
		return
	}

	elapsed := s.pipeline.Now() - sess.startedAt
	s.setProgress(s.progressFor(sess, sess.buffer.Clamp(elapsed)))
}

func (s *Scheduler) stateFor(sess *session, status Status) State {
	return State{
		Status:    status,
		PassageID: sess.passage.ID,
		UnitID:    sess.unitID,
		Mode:      sess.mode,
	}
}

func (s *Scheduler) progressFor(sess *session, elapsed time.Duration) Progress {
	p := Progress{Elapsed: elapsed}
	if sess.buffer != nil {
		p.Total = sess.buffer.Duration
	}
	if sess.mode == ModeFullPassage {
		p.Chunk = sess.chunk
		p.Chunks = sess.chunks
	}
	return p
}

func (s *Scheduler) setState(st State, err error) {
	s.mu.Lock()
	changed := s.state != st
	s.state = st
	s.mu.Unlock()

	if !changed && err == nil {
		return
	}
	s.log.Debug("state", "state", st)
	if s.opts.OnStateChange != nil {
		s.opts.OnStateChange(st, err)
	}
}

func (s *Scheduler) setProgress(p Progress) {
	s.mu.Lock()
	s.progress = p
	s.mu.Unlock()

	if s.opts.OnProgress != nil {
		s.opts.OnProgress(p)
	}
}

func (s *Scheduler) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}
