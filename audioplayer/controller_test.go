package audioplayer

import (
	"errors"
	"testing"
)

func TestControllerPlayPauseResume(t *testing.T) {
	out := NewMemoryOutput()
	c := NewController(out)
	buf := testBuffer(t, 24000*10)

	if err := c.Play(buf, 0); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if c.State() != Playing {
		t.Fatalf("State() = %v, want Playing", c.State())
	}

	out.Advance(3)
	if err := c.Pause(); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if c.State() != Paused {
		t.Fatalf("State() = %v, want Paused", c.State())
	}
	if got := c.Position(); got != 3 {
		t.Errorf("Position() after pause = %v, want 3", got)
	}
	if out.Active() != 0 {
		t.Errorf("Active() after pause = %d, want 0", out.Active())
	}

	// Time passing while paused does not move the position.
	out.Advance(5)
	if got := c.Position(); got != 3 {
		t.Errorf("Position() while paused = %v, want 3", got)
	}

	if err := c.Resume(); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	srcs := out.Sources()
	if last := srcs[len(srcs)-1]; last.Offset != 3 {
		t.Errorf("resumed source offset = %v, want 3", last.Offset)
	}
	out.Advance(2)
	if got := c.Position(); got != 5 {
		t.Errorf("Position() after resume = %v, want 5", got)
	}
}

func TestControllerSingleActiveSource(t *testing.T) {
	out := NewMemoryOutput()
	c := NewController(out)
	a := testBuffer(t, 24000)
	b := testBuffer(t, 48000)

	for i := 0; i < 3; i++ {
		if err := c.Play(a, 0); err != nil {
			t.Fatal(err)
		}
		if err := c.Play(b, 0.5); err != nil {
			t.Fatal(err)
		}
		if got := out.Active(); got != 1 {
			t.Fatalf("Active() = %d, want 1", got)
		}
	}
	if got := len(out.Sources()); got != 6 {
		t.Errorf("sources created = %d, want 6", got)
	}
}

func TestControllerStop(t *testing.T) {
	out := NewMemoryOutput()
	c := NewController(out)

	// Stop when idle is a no-op.
	c.Stop()
	if c.State() != Idle {
		t.Fatalf("State() = %v, want Idle", c.State())
	}

	buf := testBuffer(t, 24000*2)
	if err := c.Play(buf, 0); err != nil {
		t.Fatal(err)
	}
	out.Advance(1)
	if err := c.Pause(); err != nil {
		t.Fatal(err)
	}
	c.Stop()
	if c.State() != Idle {
		t.Errorf("State() after Stop = %v, want Idle", c.State())
	}
	if got := c.Position(); got != 0 {
		t.Errorf("Position() after Stop = %v, want 0", got)
	}
	// Stop twice does not panic or revive anything.
	c.Stop()
	if out.Active() != 0 {
		t.Errorf("Active() = %d, want 0", out.Active())
	}
}

func TestControllerInvalidTransitions(t *testing.T) {
	c := NewController(NewMemoryOutput())
	if err := c.Pause(); !errors.Is(err, ErrNotPlaying) {
		t.Errorf("Pause() when idle error = %v, want ErrNotPlaying", err)
	}
	if err := c.Resume(); !errors.Is(err, ErrNotPaused) {
		t.Errorf("Resume() when idle error = %v, want ErrNotPaused", err)
	}
	if err := c.Play(nil, 0); !errors.Is(err, ErrNoBuffer) {
		t.Errorf("Play(nil) error = %v, want ErrNoBuffer", err)
	}
}

func TestControllerFinished(t *testing.T) {
	out := NewMemoryOutput()
	c := NewController(out)
	buf := testBuffer(t, 24000)

	if err := c.Play(buf, 0); err != nil {
		t.Fatal(err)
	}
	out.Advance(0.5)
	if c.Finished() {
		t.Error("Finished() = true halfway through")
	}
	out.Advance(0.6)
	if !c.Finished() {
		t.Error("Finished() = false past the end")
	}
	if got := c.Position(); got != 1 {
		t.Errorf("Position() = %v, want clamped 1", got)
	}
}

func TestMemorySourceStopTwice(t *testing.T) {
	out := NewMemoryOutput()
	src, err := out.NewSource(testBuffer(t, 10))
	if err != nil {
		t.Fatal(err)
	}
	if err := src.Stop(); err != nil {
		t.Errorf("first Stop() on unstarted source = %v, want nil", err)
	}
	if err := src.Stop(); !errors.Is(err, ErrSourceStopped) {
		t.Errorf("second Stop() = %v, want ErrSourceStopped", err)
	}
	if err := src.Start(0); err == nil {
		t.Error("Start() after Stop() should fail")
	}
}

func TestControllerClose(t *testing.T) {
	out := NewMemoryOutput()
	c := NewController(out)
	if err := c.Play(testBuffer(t, 100), 0); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if out.Active() != 0 {
		t.Error("Close() should stop playback")
	}
	if _, err := out.NewSource(testBuffer(t, 10)); err == nil {
		t.Error("NewSource() after Close() should fail")
	}
}
