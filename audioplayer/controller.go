package audioplayer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/tmc/novelcast/internal/helpers"
)

// State is the playback state of a Controller.
type State int

const (
	// Idle means nothing is playing and the position is zero.
	Idle State = iota
	// Playing means a source is running.
	Playing
	// Paused means playback stopped at a remembered offset.
	Paused
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var (
	ErrNoBuffer   = errors.New("no audio buffer to play")
	ErrNotPlaying = errors.New("audio is not playing")
	ErrNotPaused  = errors.New("audio is not paused")
)

// Controller plays one Buffer at a time on an Output. At most one Source is
// live; starting playback always stops the previous source first.
type Controller struct {
	mu  sync.Mutex
	out Output

	state        State
	buf          *Buffer
	src          Source
	startTime    float64
	pausedOffset float64
}

// NewController returns an idle controller bound to out.
func NewController(out Output) *Controller {
	return &Controller{out: out}
}

// Play starts buf at offset seconds.
func (c *Controller) Play(buf *Buffer, offset float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playLocked(buf, offset)
}

func (c *Controller) playLocked(buf *Buffer, offset float64) error {
	if buf == nil {
		return ErrNoBuffer
	}
	c.stopSourceLocked()

	src, err := c.out.NewSource(buf)
	if err != nil {
		c.state = Idle
		return fmt.Errorf("create audio source: %w", err)
	}
	if err := src.Start(offset); err != nil {
		_ = src.Stop()
		c.state = Idle
		return fmt.Errorf("start audio source: %w", err)
	}
	c.buf = buf
	c.src = src
	c.startTime = c.out.Now() - offset
	c.state = Playing
	if helpers.IsAudioTraceEnabled() {
		log.Debug("playback started", "component", "player", "offset", offset, "duration", buf.Seconds())
	}
	return nil
}

// Pause stops the running source and remembers where it was.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Playing {
		return ErrNotPlaying
	}
	c.stopSourceLocked()
	c.pausedOffset = c.out.Now() - c.startTime
	c.state = Paused
	return nil
}

// Resume restarts playback from the paused offset.
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Paused {
		return ErrNotPaused
	}
	return c.playLocked(c.buf, c.pausedOffset)
}

// Stop halts any playback and resets the position. It is safe when idle.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopSourceLocked()
	c.pausedOffset = 0
	c.state = Idle
}

func (c *Controller) stopSourceLocked() {
	if c.src == nil {
		return
	}
	if err := c.src.Stop(); err != nil && !errors.Is(err, ErrSourceStopped) {
		log.Debug("stop audio source", "component", "player", "err", err)
	}
	c.src = nil
}

// State returns the current playback state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Position returns seconds into the buffer. It is derived from the output clock.
func (c *Controller) Position() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.positionLocked()
}

func (c *Controller) positionLocked() float64 {
	switch c.state {
	case Playing:
		pos := c.out.Now() - c.startTime
		if total := c.buf.Seconds(); pos > total {
			return total
		}
		return max(pos, 0)
	case Paused:
		return c.pausedOffset
	}
	return 0
}

// Duration returns the length of the loaded buffer in seconds.
func (c *Controller) Duration() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Seconds()
}

// Finished reports whether a playing buffer has reached its end.
func (c *Controller) Finished() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == Playing && c.out.Now()-c.startTime >= c.buf.Seconds()
}

// Close stops playback and releases the output.
func (c *Controller) Close() error {
	c.Stop()
	return c.out.Close()
}
