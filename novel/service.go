package novel

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/tmc/novelcast/api"
	"github.com/tmc/novelcast/audioplayer"
	"github.com/tmc/novelcast/internal/helpers"
)

const (
	DefaultProModel   = "gemini-3-pro-preview"
	DefaultFlashModel = "gemini-3-flash-preview"

	// MaxSpeechChars bounds the text sent for synthesis.
	MaxSpeechChars = 5000
)

// Tier is one model attempt in the extraction policy. Terminal reports errors
// that must end the whole request instead of moving to the next tier.
type Tier struct {
	Name     string
	Model    string
	Advanced bool
	Terminal func(error) bool
}

// DefaultTiers tries the pro model and then the flash model. Credential
// errors are terminal at every tier.
func DefaultTiers() []Tier {
	return []Tier{
		{Name: "pro", Model: DefaultProModel, Advanced: true, Terminal: api.IsCredentialError},
		{Name: "flash", Model: DefaultFlashModel, Terminal: api.IsCredentialError},
	}
}

// Config tunes a Service. Zero fields take defaults.
type Config struct {
	Tiers        []Tier
	AnalyzeModel string
	Language     string
	Audio        audioplayer.Config
}

// Service orchestrates provider requests for chapters, books and speech.
type Service struct {
	gen    Generator
	speech Synthesizer
	cfg    Config
}

// NewService returns a Service. speech may be nil when audio is not needed.
func NewService(gen Generator, speech Synthesizer, cfg Config) *Service {
	if len(cfg.Tiers) == 0 {
		cfg.Tiers = DefaultTiers()
	}
	if cfg.AnalyzeModel == "" {
		cfg.AnalyzeModel = DefaultFlashModel
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.Audio.SampleRate == 0 {
		cfg.Audio = audioplayer.DefaultConfig
	}
	return &Service{gen: gen, speech: speech, cfg: cfg}
}

// Tiers returns the extraction policy in order.
func (s *Service) Tiers() []Tier { return s.cfg.Tiers }

type chapterJSON struct {
	Title          string `json:"title"`
	OriginalText   string `json:"originalText"`
	TranslatedText string `json:"translatedText"`
}

// FetchChapter retrieves (URL mode) or takes (text mode) a chapter and
// translates it, walking the tiers in order.
func (s *Service) FetchChapter(ctx context.Context, input string, mode Mode) (*StoryContent, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyInput
	}
	var lastErr error
	for _, tier := range s.cfg.Tiers {
		story, err := s.attempt(ctx, tier, input, mode)
		if err == nil {
			log.Info("chapter extracted", "tier", tier.Name, "model", tier.Model, "title", story.Title)
			return story, nil
		}
		if tier.Terminal != nil && tier.Terminal(err) {
			log.Warn("terminal error, not falling back", "tier", tier.Name, "err", err)
			return nil, fmt.Errorf("%w: %w", ErrCredentials, err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn("tier failed, falling back", "tier", tier.Name, "model", tier.Model, "err", err)
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %w", ErrExtractionFailed, lastErr)
}

func (s *Service) attempt(ctx context.Context, tier Tier, input string, mode Mode) (*StoryContent, error) {
	resp, err := s.gen.GenerateContent(ctx, api.GenerateRequest{
		Model:     tier.Model,
		Prompt:    chapterPrompt(input, mode, tier.Advanced, s.cfg.Language),
		JSON:      true,
		WebSearch: mode == ModeURL,
	})
	if err != nil {
		return nil, err
	}
	var out chapterJSON
	if err := api.DecodeJSON(resp.Text, &out); err != nil {
		return nil, err
	}
	return normalize(out, input, mode)
}

func normalize(j chapterJSON, input string, mode Mode) (*StoryContent, error) {
	if strings.TrimSpace(j.TranslatedText) == "" {
		return nil, ErrNoTranslation
	}
	story := &StoryContent{
		Title:          strings.TrimSpace(j.Title),
		OriginalText:   j.OriginalText,
		TranslatedText: j.TranslatedText,
	}
	if story.Title == "" {
		story.Title = DefaultTitle
	}
	if story.OriginalText == "" {
		if mode == ModeText {
			story.OriginalText, _ = helpers.Truncate(input, OriginalExcerpt)
		} else {
			story.OriginalText = OriginalUnavailable
		}
	}
	if mode == ModeURL {
		story.SourceURL = input
	}
	return story, nil
}

// ApplyTitle replaces the placeholder title with a known chapter title.
func ApplyTitle(story *StoryContent, title string) {
	if story != nil && title != "" && story.Title == DefaultTitle {
		story.Title = title
	}
}

type analyzeJSON struct {
	Title              string `json:"title"`
	Description        string `json:"description"`
	CoverImage         string `json:"coverImage"`
	TotalChapters      int    `json:"totalChapters"`
	URLPattern         string `json:"urlPattern"`
	FirstChapterNumber int    `json:"firstChapterNumber"`
}

// AnalyzeBook asks the fast model for a book's title, size and chapter URL
// pattern, and synthesizes the chapter list from them.
func (s *Service) AnalyzeBook(ctx context.Context, url string) (*BookDetails, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, ErrEmptyInput
	}
	resp, err := s.gen.GenerateContent(ctx, api.GenerateRequest{
		Model:     s.cfg.AnalyzeModel,
		Prompt:    analyzePrompt(url),
		JSON:      true,
		WebSearch: true,
	})
	if err != nil {
		if api.IsCredentialError(err) {
			return nil, fmt.Errorf("%w: %w", ErrCredentials, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}
	var data analyzeJSON
	if err := api.DecodeJSON(resp.Text, &data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	total := data.TotalChapters
	if total <= 0 {
		total = 100
	}
	first := data.FirstChapterNumber
	if first <= 0 {
		first = 1
	}
	book := &BookDetails{
		Title:         data.Title,
		Description:   data.Description,
		CoverImage:    data.CoverImage,
		TotalChapters: total,
		Chapters:      BuildChapters(data.URLPattern, first, total),
		SourceURL:     url,
	}
	log.Info("book analyzed", "title", book.Title, "chapters", len(book.Chapters), "pattern", data.URLPattern)
	return book, nil
}

// NumberPlaceholder marks where the chapter number goes in a URL pattern.
const NumberPlaceholder = "{number}"

// MaxChapters caps synthesized directories.
const MaxChapters = 10000

// NormalizePattern appends the number placeholder when it is missing.
func NormalizePattern(pattern string) string {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || strings.Contains(pattern, NumberPlaceholder) {
		return pattern
	}
	if strings.HasSuffix(pattern, "/") {
		return pattern + NumberPlaceholder
	}
	return pattern + "/" + NumberPlaceholder
}

// BuildChapters makes one chapter per integer in [first, total]. An empty
// pattern yields an empty, non-nil list.
func BuildChapters(pattern string, first, total int) []Chapter {
	pattern = NormalizePattern(pattern)
	chapters := []Chapter{}
	if pattern == "" || first > total {
		return chapters
	}
	if total-first+1 > MaxChapters {
		log.Warn("chapter count capped", "requested", total-first+1, "max", MaxChapters)
		total = first + MaxChapters - 1
	}
	for i := first; i <= total; i++ {
		n := strconv.Itoa(i)
		chapters = append(chapters, Chapter{
			Number: n,
			Title:  "Chapter " + n,
			URL:    strings.ReplaceAll(pattern, NumberPlaceholder, n),
		})
	}
	return chapters
}

// SpeechText applies the synthesis ceiling, marking truncation with "...".
func SpeechText(text string) string {
	if cut, truncated := helpers.Truncate(text, MaxSpeechChars); truncated {
		return cut + "..."
	}
	return text
}

// GenerateSpeech returns base64 PCM for text.
func (s *Service) GenerateSpeech(ctx context.Context, text string) (string, error) {
	if s.speech == nil {
		return "", errors.New("speech synthesis is not configured")
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyInput
	}
	b64, err := s.speech.Synthesize(ctx, SpeechText(text))
	if err != nil {
		if errors.Is(err, api.ErrNoAudio) {
			return "", ErrNoAudio
		}
		if api.IsCredentialError(err) {
			return "", fmt.Errorf("%w: %w", ErrCredentials, err)
		}
		return "", fmt.Errorf("speech generation failed: %w", err)
	}
	if b64 == "" {
		return "", ErrNoAudio
	}
	return b64, nil
}

// Narrate synthesizes and decodes audio for a story's translation.
func (s *Service) Narrate(ctx context.Context, story *StoryContent) (*audioplayer.Buffer, error) {
	if story == nil {
		return nil, errors.New("no chapter loaded")
	}
	b64, err := s.GenerateSpeech(ctx, story.TranslatedText)
	if err != nil {
		return nil, err
	}
	buf, err := audioplayer.Decode(b64, s.cfg.Audio.SampleRate, s.cfg.Audio.Channels)
	if err != nil {
		return nil, fmt.Errorf("decode speech: %w", err)
	}
	log.Debug("speech decoded", "seconds", buf.Seconds())
	return buf, nil
}
