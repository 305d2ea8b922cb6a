package novelcast

import (
	"context"
	"errors"

	"github.com/tmc/novelcast/audioplayer"
	"github.com/tmc/novelcast/novel"
)

// WithReader sets the provider-backed reader. It is required.
func WithReader(r Reader) Option {
	return func(m *Model) error {
		if r == nil {
			return errors.New("reader is nil")
		}
		m.reader = r
		return nil
	}
}

// WithLibrary persists the book and last chapter in lib.
func WithLibrary(lib Library) Option {
	return func(m *Model) error {
		m.library = lib
		return nil
	}
}

// WithKeyStore enables the API key panel.
func WithKeyStore(ks KeyStore) Option {
	return func(m *Model) error {
		m.keyStore = ks
		return nil
	}
}

// WithAudioOutput plays synthesized speech on out. Without it audio is disabled.
func WithAudioOutput(out audioplayer.Output) Option {
	return func(m *Model) error {
		m.output = out
		return nil
	}
}

// WithInput pre-fills the input.
func WithInput(s string, mode novel.Mode) Option {
	return func(m *Model) error {
		m.initialInput = s
		m.initialMode = mode
		return nil
	}
}

// WithWAVDir sets where saved chapter audio is written.
func WithWAVDir(dir string) Option {
	return func(m *Model) error {
		m.wavDir = dir
		return nil
	}
}

// WithContext sets the context passed to provider requests.
func WithContext(ctx context.Context) Option {
	return func(m *Model) error {
		m.ctx = ctx
		return nil
	}
}
