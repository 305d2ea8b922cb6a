package audioplayer

import (
	"math"
	"testing"
	"time"
)

type queuedBytes int

func (q queuedBytes) BufferedSize() int { return int(q) }

func TestOtoOutputNowSubtractsQueuedAudio(t *testing.T) {
	cfg := Config{SampleRate: 24000, Channels: 1}
	tests := []struct {
		name   string
		active bufferedPlayer
		lag    float64
	}{
		{name: "no player", lag: 0},
		{name: "empty queue", active: queuedBytes(0), lag: 0},
		// 24000 float32 frames per second, mono.
		{name: "half second queued", active: queuedBytes(48000), lag: 0.5},
		{name: "one second queued", active: queuedBytes(96000), lag: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &OtoOutput{cfg: cfg, epoch: time.Now().Add(-10 * time.Second)}
			if tt.active != nil {
				o.setActive(tt.active)
			}
			got := o.Now()
			want := 10 - tt.lag
			if math.Abs(got-want) > 0.1 {
				t.Errorf("Now() = %.3f, want about %.3f", got, want)
			}
		})
	}
}

func TestOtoOutputClearActive(t *testing.T) {
	o := &OtoOutput{cfg: Config{SampleRate: 24000, Channels: 2}, epoch: time.Now()}
	first, second := queuedBytes(192000), queuedBytes(96000)
	o.setActive(first)
	o.setActive(second)
	o.clearActive(first)
	if o.active != bufferedPlayer(second) {
		t.Fatal("clearing a replaced player dropped the active one")
	}
	if got := o.bufferedSeconds(second.BufferedSize()); got != 0.5 {
		t.Errorf("bufferedSeconds(96000) stereo = %v, want 0.5", got)
	}
	o.clearActive(second)
	if o.active != nil {
		t.Error("active player not cleared")
	}
}
