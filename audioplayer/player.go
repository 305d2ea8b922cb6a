package audioplayer

import "errors"

// Config describes the PCM format delivered by the speech provider.
type Config struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	Format        string // e.g., "s16le"
}

// DefaultConfig is the provider's fixed speech format.
var DefaultConfig = Config{
	SampleRate:    24000,
	Channels:      1,
	BitsPerSample: 16,
	Format:        "s16le", // Signed 16-bit Little Endian
}

// ErrSourceStopped is returned by Source.Stop when the source was already stopped.
var ErrSourceStopped = errors.New("audio source already stopped")

// Output is an audio device with its own clock. It is created once per process.
type Output interface {
	// Now returns the output clock in seconds.
	Now() float64
	// NewSource creates a single-use source bound to buf.
	NewSource(buf *Buffer) (Source, error)
	// Close releases the device.
	Close() error
}

// Source plays a Buffer once. It cannot be restarted after Stop.
type Source interface {
	// Start begins playback at offset seconds into the buffer.
	Start(offset float64) error
	// Stop halts playback. Stopping a never-started source returns nil;
	// stopping twice returns ErrSourceStopped.
	Stop() error
}
