package audio

import (
	"errors"
	"testing"
	"time"
)

func testBuffer(t *testing.T, mp *MockPipeline, d time.Duration) *Buffer {
	t.Helper()
	buf, err := mp.Decode(EncodePCM(Tone(d, 440, DefaultFormat())))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return buf
}

func TestMockPipeline_CompleteClosesHandle(t *testing.T) {
	mp := NewMockPipeline()
	defer mp.Close()

	h, err := mp.Play(testBuffer(t, mp, time.Second), 0)
	if err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if !mp.Playing() {
		t.Fatal("expected a buffer to be loaded after Play")
	}

	if !mp.Complete() {
		t.Fatal("Complete() = false, want true")
	}

	select {
	case <-h.Done():
	default:
		t.Fatal("handle not done after Complete")
	}
	if mp.Playing() {
		t.Error("buffer still loaded after completion")
	}
	if mp.Complete() {
		t.Error("second Complete() = true, want false")
	}
}

func TestMockPipeline_StopDoesNotComplete(t *testing.T) {
	mp := NewMockPipeline()
	defer mp.Close()

	h, err := mp.Play(testBuffer(t, mp, time.Second), 0)
	if err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if err := mp.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	select {
	case <-h.Done():
		t.Fatal("handle completed after Stop")
	default:
	}
	if mp.StopCount() != 1 {
		t.Errorf("StopCount() = %d, want 1", mp.StopCount())
	}
}

func TestMockPipeline_ReplaceStopsPrevious(t *testing.T) {
	mp := NewMockPipeline()
	defer mp.Close()

	first, _ := mp.Play(testBuffer(t, mp, time.Second), 0)
	second, _ := mp.Play(testBuffer(t, mp, time.Second), 250*time.Millisecond)

	mp.Complete()

	select {
	case <-first.Done():
		t.Error("replaced handle completed")
	default:
	}
	select {
	case <-second.Done():
	default:
		t.Error("current handle not completed")
	}

	plays := mp.Plays()
	if len(plays) != 2 || plays[1].Offset != 250*time.Millisecond {
		t.Errorf("Plays() = %+v, want second play at 250ms", plays)
	}
}

func TestMockPipeline_AutoComplete(t *testing.T) {
	mp := NewMockPipeline(WithAutoComplete(0.01))
	defer mp.Close()

	h, err := mp.Play(testBuffer(t, mp, time.Second), 0)
	if err != nil {
		t.Fatalf("Play() error = %v", err)
	}

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("buffer did not auto-complete")
	}
}

func TestMockPipeline_SuspendHoldsCompletion(t *testing.T) {
	mp := NewMockPipeline(WithAutoComplete(0.05))
	defer mp.Close()

	h, _ := mp.Play(testBuffer(t, mp, time.Second), 0)
	if err := mp.Suspend(); err != nil {
		t.Fatalf("Suspend() error = %v", err)
	}

	select {
	case <-h.Done():
		t.Fatal("buffer completed while suspended")
	case <-time.After(100 * time.Millisecond):
	}

	if err := mp.Resume(); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("buffer did not complete after resume")
	}
}

func TestMockPipeline_Clock(t *testing.T) {
	mp := NewMockPipeline()
	defer mp.Close()

	mp.Advance(time.Second)
	if got := mp.Now(); got != time.Second {
		t.Errorf("Now() = %v, want 1s", got)
	}

	mp.Suspend()
	mp.Advance(time.Second)
	if got := mp.Now(); got != time.Second {
		t.Errorf("Now() advanced while suspended: %v", got)
	}

	mp.Resume()
	mp.Advance(500 * time.Millisecond)
	if got := mp.Now(); got != 1500*time.Millisecond {
		t.Errorf("Now() = %v, want 1.5s", got)
	}
}

func TestMockPipeline_FailureInjection(t *testing.T) {
	mp := NewMockPipeline()
	defer mp.Close()

	boom := errors.New("boom")
	mp.SetDecodeError(boom)
	if _, err := mp.Decode([]byte("AAAA")); !errors.Is(err, boom) {
		t.Errorf("Decode() error = %v, want %v", err, boom)
	}
	mp.SetDecodeError(nil)

	buf := testBuffer(t, mp, 100*time.Millisecond)
	mp.SetPlayError(ErrInvalidAudio)
	if _, err := mp.Play(buf, 0); !errors.Is(err, ErrInvalidAudio) {
		t.Errorf("Play() error = %v, want ErrInvalidAudio", err)
	}
}

func TestMockPipeline_Closed(t *testing.T) {
	mp := NewMockPipeline()
	buf := testBuffer(t, mp, 100*time.Millisecond)

	mp.Close()
	if !mp.Closed() {
		t.Fatal("Closed() = false after Close")
	}
	if _, err := mp.Play(buf, 0); !errors.Is(err, ErrPipelineClosed) {
		t.Errorf("Play() error = %v, want ErrPipelineClosed", err)
	}
}

func TestMockPipeline_Callbacks(t *testing.T) {
	var played, stopped int
	mp := NewMockPipeline(WithMockCallbacks(MockCallbacks{
		OnPlay: func(*Buffer, time.Duration) { played++ },
		OnStop: func() { stopped++ },
	}))
	defer mp.Close()

	buf := testBuffer(t, mp, 100*time.Millisecond)
	mp.Play(buf, 0)
	mp.Stop()

	if played != 1 || stopped != 1 {
		t.Errorf("callbacks played=%d stopped=%d, want 1 and 1", played, stopped)
	}
}
