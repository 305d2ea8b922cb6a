package audioplayer

import (
	"errors"
	"sync"
	"time"
)

// MemoryOutput is a silent Output. With a manual clock it backs tests; with
// NewSilentOutput it tracks wall time for headless runs.
type MemoryOutput struct {
	mu      sync.Mutex
	now     float64
	epoch   time.Time
	wall    bool
	closed  bool
	sources []*MemorySource
}

// NewMemoryOutput returns an output whose clock only moves via Advance.
func NewMemoryOutput() *MemoryOutput {
	return &MemoryOutput{}
}

// NewSilentOutput returns an output whose clock follows wall time.
func NewSilentOutput() *MemoryOutput {
	return &MemoryOutput{wall: true, epoch: time.Now()}
}

func (o *MemoryOutput) Now() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.wall {
		return time.Since(o.epoch).Seconds()
	}
	return o.now
}

// Advance moves the manual clock forward by d seconds.
func (o *MemoryOutput) Advance(d float64) {
	o.mu.Lock()
	o.now += d
	o.mu.Unlock()
}

func (o *MemoryOutput) NewSource(buf *Buffer) (Source, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil, errors.New("audio output closed")
	}
	s := &MemorySource{out: o, Buffer: buf}
	o.sources = append(o.sources, s)
	return s, nil
}

func (o *MemoryOutput) Close() error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	return nil
}

// Active returns how many sources are started and not yet stopped.
func (o *MemoryOutput) Active() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, s := range o.sources {
		if s.started && !s.stopped {
			n++
		}
	}
	return n
}

// Sources returns every source created so far.
func (o *MemoryOutput) Sources() []*MemorySource {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*MemorySource(nil), o.sources...)
}

// MemorySource records how it was driven.
type MemorySource struct {
	out     *MemoryOutput
	Buffer  *Buffer
	Offset  float64
	started bool
	stopped bool
}

func (s *MemorySource) Start(offset float64) error {
	s.out.mu.Lock()
	defer s.out.mu.Unlock()
	if s.started || s.stopped {
		return errors.New("audio source is single use")
	}
	s.started = true
	s.Offset = offset
	return nil
}

func (s *MemorySource) Stop() error {
	s.out.mu.Lock()
	defer s.out.mu.Unlock()
	if s.stopped {
		return ErrSourceStopped
	}
	s.stopped = true
	return nil
}
