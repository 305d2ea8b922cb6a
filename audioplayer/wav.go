package audioplayer

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteWAV encodes buf as 16-bit PCM WAV.
func WriteWAV(w io.WriteSeeker, buf *Buffer) error {
	if buf == nil || buf.Length() == 0 {
		return ErrNoBuffer
	}
	n := buf.NumberOfChannels()
	data := make([]int, 0, buf.Length()*n)
	for i := 0; i < buf.Length(); i++ {
		for c := 0; c < n; c++ {
			data = append(data, int(toInt16(buf.channels[c][i])))
		}
	}
	ib := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: n, SampleRate: buf.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	enc := wav.NewEncoder(w, buf.SampleRate, 16, n, 1)
	if err := enc.Write(ib); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	return enc.Close()
}

// SaveWAV writes buf to path.
func SaveWAV(path string, buf *Buffer) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, f.Close()) }()
	return WriteWAV(f, buf)
}

// LoadWAV reads a 16-bit PCM WAV file into a Buffer.
func LoadWAV(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s: not a valid wav file", path)
	}
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	if dec.BitDepth != 16 {
		return nil, fmt.Errorf("%s: unsupported bit depth %d", path, dec.BitDepth)
	}
	channels := int(dec.NumChans)
	raw := make([]byte, 0, len(pcm.Data)*2)
	for _, v := range pcm.Data {
		u := uint16(int16(v))
		raw = append(raw, byte(u), byte(u>>8))
	}
	return DecodePCM(raw, int(dec.SampleRate), channels)
}
