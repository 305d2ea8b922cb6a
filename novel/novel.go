// Package novel turns a chapter URL or pasted text into a translated story
// using a generative provider, and builds chapter directories for books.
package novel

import (
	"context"
	"errors"
	"strings"

	"github.com/tmc/novelcast/api"
	"github.com/tmc/novelcast/audioplayer"
)

// Mode selects how the input to FetchChapter is interpreted.
type Mode string

const (
	ModeURL  Mode = "url"
	ModeText Mode = "text"
)

// ParseMode accepts "url" or "text".
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeURL, ModeText:
		return Mode(s), nil
	}
	return "", errors.New(`mode must be "url" or "text"`)
}

// Chapter is one entry of a book directory.
type Chapter struct {
	Number string `json:"number,omitempty"`
	Title  string `json:"title"`
	URL    string `json:"url"`
}

// BookDetails describes an analyzed book.
type BookDetails struct {
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	CoverImage    string    `json:"coverImage,omitempty"`
	TotalChapters int       `json:"totalChaptersFound"`
	Chapters      []Chapter `json:"chapters"`
	SourceURL     string    `json:"sourceUrl,omitempty"`
}

// ChapterIndex returns the position of the chapter with url, or -1.
func (b *BookDetails) ChapterIndex(url string) int {
	if b == nil {
		return -1
	}
	for i, c := range b.Chapters {
		if c.URL == url {
			return i
		}
	}
	return -1
}

// ChapterNumberIndex returns the position of the chapter numbered number, or -1.
func (b *BookDetails) ChapterNumberIndex(number string) int {
	if b == nil {
		return -1
	}
	number = strings.TrimSpace(number)
	for i, c := range b.Chapters {
		if c.Number == number {
			return i
		}
	}
	return -1
}

// StoryContent is a translated chapter. Audio is filled lazily and never persisted.
type StoryContent struct {
	Title          string              `json:"title"`
	OriginalText   string              `json:"originalText"`
	TranslatedText string              `json:"translatedText"`
	SourceURL      string              `json:"sourceUrl,omitempty"`
	Audio          *audioplayer.Buffer `json:"-"`
}

// Generator performs one generateContent call.
type Generator interface {
	GenerateContent(ctx context.Context, req api.GenerateRequest) (*api.GenerateResponse, error)
}

// Synthesizer turns text into base64 PCM audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

var (
	// ErrCredentials means the provider rejected or never received an API key.
	ErrCredentials = errors.New("invalid API key: configure your key in settings")
	// ErrExtractionFailed means every model tier failed for non-credential reasons.
	ErrExtractionFailed = errors.New("could not extract the chapter: try again or paste the text manually")
	// ErrNoTranslation means the provider answered without translatedText.
	ErrNoTranslation = errors.New("response contains no translation")
	// ErrAnalysisFailed means the book structure could not be determined.
	ErrAnalysisFailed = errors.New("could not analyze the book structure")
	// ErrNoAudio means speech synthesis produced no payload.
	ErrNoAudio = errors.New("speech generation returned no audio")
	// ErrEmptyInput is returned for blank input.
	ErrEmptyInput = errors.New("input is empty")
)
