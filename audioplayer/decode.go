package audioplayer

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

// Buffer is decoded PCM audio held as per-channel float samples in [-1, 1).
type Buffer struct {
	SampleRate int
	channels   [][]float32
}

// Decode turns a base64 payload of interleaved little-endian int16 PCM into a Buffer.
func Decode(b64 string, sampleRate, channels int) (*Buffer, error) {
	if sampleRate < 1 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if channels < 1 {
		return nil, fmt.Errorf("invalid channel count %d", channels)
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode audio payload: %w", err)
	}
	return DecodePCM(raw, sampleRate, channels)
}

// DecodePCM de-interleaves raw s16le bytes.
func DecodePCM(raw []byte, sampleRate, channels int) (*Buffer, error) {
	if len(raw)%2 != 0 {
		return nil, errors.New("audio payload is not a whole number of 16-bit samples")
	}
	if channels < 1 {
		return nil, fmt.Errorf("invalid channel count %d", channels)
	}
	samples := len(raw) / 2
	frames := samples / channels

	buf := &Buffer{SampleRate: sampleRate, channels: make([][]float32, channels)}
	for c := range buf.channels {
		buf.channels[c] = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			off := (i*channels + c) * 2
			v := int16(binary.LittleEndian.Uint16(raw[off:]))
			buf.channels[c][i] = float32(v) / 32768.0
		}
	}
	return buf, nil
}

// NumberOfChannels returns the channel count.
func (b *Buffer) NumberOfChannels() int { return len(b.channels) }

// Length returns the number of frames.
func (b *Buffer) Length() int {
	if len(b.channels) == 0 {
		return 0
	}
	return len(b.channels[0])
}

// Channel returns the samples of channel i.
func (b *Buffer) Channel(i int) []float32 { return b.channels[i] }

// Seconds returns the playback duration in seconds.
func (b *Buffer) Seconds() float64 {
	if b == nil || b.SampleRate == 0 {
		return 0
	}
	return float64(b.Length()) / float64(b.SampleRate)
}

// Duration is Seconds as a time.Duration.
func (b *Buffer) Duration() time.Duration {
	return time.Duration(b.Seconds() * float64(time.Second))
}

// frameAt converts a time offset into a clamped frame index.
func (b *Buffer) frameAt(offset float64) int {
	if offset <= 0 {
		return 0
	}
	f := int(offset * float64(b.SampleRate))
	if f > b.Length() {
		return b.Length()
	}
	return f
}

// Float32LE returns interleaved float32 little-endian bytes starting at offset seconds.
func (b *Buffer) Float32LE(offset float64) []byte {
	start := b.frameAt(offset)
	n := len(b.channels)
	out := make([]byte, (b.Length()-start)*n*4)
	pos := 0
	for i := start; i < b.Length(); i++ {
		for c := 0; c < n; c++ {
			binary.LittleEndian.PutUint32(out[pos:], math.Float32bits(b.channels[c][i]))
			pos += 4
		}
	}
	return out
}

// Int16LE returns interleaved s16le bytes starting at offset seconds.
func (b *Buffer) Int16LE(offset float64) []byte {
	start := b.frameAt(offset)
	n := len(b.channels)
	out := make([]byte, (b.Length()-start)*n*2)
	pos := 0
	for i := start; i < b.Length(); i++ {
		for c := 0; c < n; c++ {
			binary.LittleEndian.PutUint16(out[pos:], uint16(toInt16(b.channels[c][i])))
			pos += 2
		}
	}
	return out
}

func toInt16(v float32) int16 {
	s := math.Round(float64(v) * 32768.0)
	if s > math.MaxInt16 {
		return math.MaxInt16
	}
	if s < math.MinInt16 {
		return math.MinInt16
	}
	return int16(s)
}
