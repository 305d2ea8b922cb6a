package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zstd"

	"github.com/tmc/novelcast/novel"
)

// Storage keys.
const (
	KeyBook           = "novelcast_book"
	KeyLastChapter    = "novelcast_last_chapter"
	KeyAPIKeyOverride = "user_custom_api_key"
)

// Library is the typed view over a StorageProvider: one book, one last
// chapter (without audio) and the API key override.
type Library struct {
	p       StorageProvider
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewLibrary wraps p.
func NewLibrary(p StorageProvider) (*Library, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &Library{p: p, encoder: enc, decoder: dec}, nil
}

// SaveBook writes book, or removes the saved book when book is nil.
func (l *Library) SaveBook(book *novel.BookDetails) error {
	if book == nil {
		return l.p.Delete(KeyBook)
	}
	data, err := json.Marshal(book)
	if err != nil {
		return err
	}
	return l.p.Put(KeyBook, data)
}

// LoadBook returns the saved book, or nil when there is none.
func (l *Library) LoadBook() (*novel.BookDetails, error) {
	data, err := l.p.Get(KeyBook)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var book novel.BookDetails
	if err := json.Unmarshal(data, &book); err != nil {
		return nil, fmt.Errorf("parse saved book: %w", err)
	}
	return &book, nil
}

// SaveStory writes story without its audio, or removes it when story is nil.
// The value is zstd-compressed JSON; chapter text can be large.
func (l *Library) SaveStory(story *novel.StoryContent) error {
	if story == nil {
		return l.p.Delete(KeyLastChapter)
	}
	data, err := json.Marshal(story)
	if err != nil {
		return err
	}
	return l.p.Put(KeyLastChapter, l.encoder.EncodeAll(data, nil))
}

// LoadStory returns the last chapter, or nil when there is none.
func (l *Library) LoadStory() (*novel.StoryContent, error) {
	data, err := l.p.Get(KeyLastChapter)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	raw, err := l.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress saved chapter: %w", err)
	}
	var story novel.StoryContent
	if err := json.Unmarshal(raw, &story); err != nil {
		return nil, fmt.Errorf("parse saved chapter: %w", err)
	}
	return &story, nil
}

// Restore loads the book and chapter, logging and dropping anything unreadable.
func (l *Library) Restore() (*novel.BookDetails, *novel.StoryContent) {
	book, err := l.LoadBook()
	if err != nil {
		log.Warn("ignoring saved book", "err", err)
		book = nil
	}
	story, err := l.LoadStory()
	if err != nil {
		log.Warn("ignoring saved chapter", "err", err)
		story = nil
	}
	return book, story
}

// Clear removes the book and the last chapter. The key override is kept.
func (l *Library) Clear() error {
	return errors.Join(l.p.Delete(KeyBook), l.p.Delete(KeyLastChapter))
}

// APIKeyOverride returns the stored key override, or "".
func (l *Library) APIKeyOverride() (string, error) {
	data, err := l.p.Get(KeyAPIKeyOverride)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SetAPIKeyOverride stores key; an empty key removes the override.
func (l *Library) SetAPIKeyOverride(key string) error {
	if key == "" {
		return l.p.Delete(KeyAPIKeyOverride)
	}
	return l.p.Put(KeyAPIKeyOverride, []byte(key))
}

// Close releases the codec and the provider.
func (l *Library) Close() error {
	l.decoder.Close()
	return errors.Join(l.encoder.Close(), l.p.Close())
}
