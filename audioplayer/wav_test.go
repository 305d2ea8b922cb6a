package audioplayer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
)

func TestSaveWAV(t *testing.T) {
	in := pcmBytes(0, 1200, -1200, 32767, -32768, 5, -5, 0)
	buf, err := DecodePCM(in, 24000, 2)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "chapter.wav")
	if err := SaveWAV(path, buf); err != nil {
		t.Fatalf("SaveWAV() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Fatal("SaveWAV() produced an invalid wav file")
	}
	if dec.SampleRate != 24000 || dec.NumChans != 2 || dec.BitDepth != 16 {
		t.Errorf("header = %d Hz %d ch %d bit, want 24000/2/16", dec.SampleRate, dec.NumChans, dec.BitDepth)
	}

	got, err := LoadWAV(path)
	if err != nil {
		t.Fatalf("LoadWAV() error = %v", err)
	}
	if string(got.Int16LE(0)) != string(in) {
		t.Errorf("LoadWAV() samples = %v, want %v", got.Int16LE(0), in)
	}
}

func TestWriteWAVEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.wav")
	if err := SaveWAV(path, nil); err == nil {
		t.Error("SaveWAV(nil) should fail")
	}
}
