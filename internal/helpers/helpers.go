package helpers

import (
	"encoding/binary"
	"os"
	"sync/atomic"
	"unicode/utf8"

	"github.com/charmbracelet/log"
)

var audioTraceEnabled atomic.Bool

func init() {
	if os.Getenv("NOVELCAST_AUDIO_TRACE") == "1" {
		audioTraceEnabled.Store(true)
		log.Debug("audio pipeline tracing enabled", "env", "NOVELCAST_AUDIO_TRACE")
	}
}

// IsAudioTraceEnabled reports whether NOVELCAST_AUDIO_TRACE=1 was set at startup.
func IsAudioTraceEnabled() bool {
	return audioTraceEnabled.Load()
}

// SetAudioTrace toggles audio tracing at runtime.
func SetAudioTrace(on bool) {
	audioTraceEnabled.Store(on)
}

// CreateWavHeader creates a canonical 44 byte PCM WAV header.
// dataSize is the size of the raw audio data chunk only.
func CreateWavHeader(dataSize, numChannels, sampleRate, bitsPerSample int) []byte {
	header := make([]byte, 44)
	totalSize := uint32(dataSize + 36)
	byteRate := uint32(sampleRate * numChannels * bitsPerSample / 8)
	blockAlign := uint16(numChannels * bitsPerSample / 8)

	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], totalSize)
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(numChannels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], byteRate)
	binary.LittleEndian.PutUint16(header[32:34], blockAlign)
	binary.LittleEndian.PutUint16(header[34:36], uint16(bitsPerSample))

	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataSize))

	return header
}

// Truncate returns at most n runes of s and whether anything was cut.
func Truncate(s string, n int) (string, bool) {
	if n < 0 || utf8.RuneCountInString(s) <= n {
		return s, false
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], true
		}
		i++
	}
	return s, false
}
