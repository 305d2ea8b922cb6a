package audioplayer

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// OtoOutput plays through the system audio device. oto allows one context
// per process, so create a single OtoOutput at startup.
type OtoOutput struct {
	ctx   *oto.Context
	cfg   Config
	epoch time.Time

	mu     sync.Mutex
	active bufferedPlayer
}

// bufferedPlayer is the part of *oto.Player the clock needs.
type bufferedPlayer interface {
	BufferedSize() int
}

// NewOtoOutput opens the device for cfg and waits until it is ready.
func NewOtoOutput(cfg Config) (*OtoOutput, error) {
	op := &oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: cfg.Channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   100 * time.Millisecond,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready
	log.Debug("audio device ready", "component", "player", "rate", cfg.SampleRate, "channels", cfg.Channels)
	return &OtoOutput{ctx: ctx, cfg: cfg, epoch: time.Now()}, nil
}

// Now is wall time since the device opened, minus the samples the active
// player has queued but not yet handed to the device.
func (o *OtoOutput) Now() float64 {
	now := time.Since(o.epoch).Seconds()
	o.mu.Lock()
	p := o.active
	o.mu.Unlock()
	if p == nil {
		return now
	}
	return now - o.bufferedSeconds(p.BufferedSize())
}

// bufferedSeconds converts a byte count of float32 samples to seconds.
func (o *OtoOutput) bufferedSeconds(n int) float64 {
	frame := 4 * o.cfg.Channels
	if n <= 0 || frame <= 0 || o.cfg.SampleRate <= 0 {
		return 0
	}
	return float64(n) / float64(frame*o.cfg.SampleRate)
}

func (o *OtoOutput) setActive(p bufferedPlayer) {
	o.mu.Lock()
	o.active = p
	o.mu.Unlock()
}

func (o *OtoOutput) clearActive(p bufferedPlayer) {
	o.mu.Lock()
	if o.active == p {
		o.active = nil
	}
	o.mu.Unlock()
}

func (o *OtoOutput) NewSource(buf *Buffer) (Source, error) {
	if buf.SampleRate != o.cfg.SampleRate || buf.NumberOfChannels() != o.cfg.Channels {
		return nil, fmt.Errorf("buffer format %dHz/%dch does not match device %dHz/%dch",
			buf.SampleRate, buf.NumberOfChannels(), o.cfg.SampleRate, o.cfg.Channels)
	}
	return &otoSource{out: o, buf: buf}, nil
}

// Close suspends the device; oto contexts cannot be destroyed.
func (o *OtoOutput) Close() error {
	return o.ctx.Suspend()
}

type otoSource struct {
	mu      sync.Mutex
	out     *OtoOutput
	buf     *Buffer
	player  *oto.Player
	stopped bool
}

func (s *otoSource) Start(offset float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player != nil || s.stopped {
		return fmt.Errorf("audio source is single use")
	}
	// The samples must stay reachable while oto reads them.
	s.player = s.out.ctx.NewPlayer(bytes.NewReader(s.buf.Float32LE(offset)))
	s.player.Play()
	s.out.setActive(s.player)
	return s.player.Err()
}

func (s *otoSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrSourceStopped
	}
	s.stopped = true
	if s.player == nil {
		return nil
	}
	s.out.clearActive(s.player)
	s.player.Pause()
	return s.player.Close()
}
