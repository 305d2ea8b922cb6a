package novelcast

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/tmc/novelcast/api"
	"github.com/tmc/novelcast/audioplayer"
	"github.com/tmc/novelcast/novel"
)

// ExampleURL is offered to first-time users.
const ExampleURL = "https://www.royalroad.com/fiction/21220/mother-of-learning/chapter/301778/1-good-morning-brother"

// Reader performs the provider requests behind the controller.
type Reader interface {
	AnalyzeBook(ctx context.Context, url string) (*novel.BookDetails, error)
	FetchChapter(ctx context.Context, input string, mode novel.Mode) (*novel.StoryContent, error)
	Narrate(ctx context.Context, story *novel.StoryContent) (*audioplayer.Buffer, error)
}

// Library persists the current book and last chapter.
type Library interface {
	SaveBook(book *novel.BookDetails) error
	SaveStory(story *novel.StoryContent) error
	Restore() (*novel.BookDetails, *novel.StoryContent)
	Clear() error
}

// KeyStore manages the API key override.
type KeyStore interface {
	APIKey() string
	Source() string
	SetOverride(key string) error
}

// Snapshot is a consistent copy of the controller state for rendering.
type Snapshot struct {
	State             ProcessingState
	Book              *novel.BookDetails
	Story             *novel.StoryContent
	Input             string
	Mode              novel.Mode
	Error             string
	SettingsRequested bool
	ShowOriginal      bool
	HasAudio          bool
	Position          float64
	Duration          float64
}

// Controller owns the reader state machine. At most one provider request is
// in flight; playback is always torn down before a new request starts.
type Controller struct {
	mu sync.Mutex

	reader Reader
	lib    Library
	keys   KeyStore
	player *audioplayer.Controller

	state             ProcessingState
	book              *novel.BookDetails
	story             *novel.StoryContent
	input             string
	mode              novel.Mode
	errMsg            string
	settingsRequested bool
	showOriginal      bool
}

// NewController returns an idle controller. lib and keys may be nil.
func NewController(reader Reader, player *audioplayer.Controller, lib Library, keys KeyStore) *Controller {
	return &Controller{
		reader: reader,
		player: player,
		lib:    lib,
		keys:   keys,
		mode:   novel.ModeURL,
	}
}

// Restore reloads the saved book and chapter. Unreadable values are dropped.
func (c *Controller) Restore() {
	if c.lib == nil {
		return
	}
	book, story := c.lib.Restore()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.book, c.story = book, story
	if story != nil && story.SourceURL != "" {
		c.input = story.SourceURL
	} else if book != nil {
		c.input = book.SourceURL
	}
	log.Debug("state restored", "book", book != nil, "chapter", story != nil)
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		State:             c.state,
		Book:              c.book,
		Story:             c.story,
		Input:             c.input,
		Mode:              c.mode,
		Error:             c.errMsg,
		SettingsRequested: c.settingsRequested,
		ShowOriginal:      c.showOriginal,
		HasAudio:          c.story != nil && c.story.Audio != nil,
	}
	if c.player != nil {
		s.Position = c.player.Position()
		s.Duration = c.player.Duration()
	}
	return s
}

// State returns the current processing state.
func (c *Controller) State() ProcessingState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetInput records the text or URL typed by the user.
func (c *Controller) SetInput(s string) {
	c.mu.Lock()
	c.input = s
	c.mu.Unlock()
}

// SetMode switches between URL and pasted-text input.
func (c *Controller) SetMode(m novel.Mode) {
	c.mu.Lock()
	c.mode = m
	c.mu.Unlock()
}

// ToggleOriginal shows or hides the original text next to the translation.
func (c *Controller) ToggleOriginal() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.showOriginal = !c.showOriginal
	return c.showOriginal
}

// UseExample loads the example URL into the input.
func (c *Controller) UseExample() {
	c.mu.Lock()
	c.mode = novel.ModeURL
	c.input = ExampleURL
	c.mu.Unlock()
}

// begin tears down playback and enters a busy state, or returns ErrBusy.
func (c *Controller) begin(next ProcessingState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Busy() {
		return ErrBusy
	}
	c.stopPlaybackLocked()
	c.state = next
	c.errMsg = ""
	return nil
}

func (c *Controller) stopPlaybackLocked() {
	if c.player != nil {
		c.player.Stop()
	}
}

// failLocked moves to the error state with a readable message.
func (c *Controller) failLocked(err error) error {
	c.state = StateError
	if errors.Is(err, novel.ErrCredentials) || api.IsCredentialError(err) {
		c.errMsg = novel.ErrCredentials.Error()
		c.settingsRequested = true
	} else {
		c.errMsg = err.Error()
	}
	log.Error("operation failed", "err", err)
	return err
}

func (c *Controller) saveBookLocked() {
	if c.lib == nil {
		return
	}
	if err := c.lib.SaveBook(c.book); err != nil {
		log.Warn("save book", "err", err)
	}
}

func (c *Controller) saveStoryLocked() {
	if c.lib == nil {
		return
	}
	if err := c.lib.SaveStory(c.story); err != nil {
		log.Warn("save chapter", "err", err)
	}
}

// Analyze replaces the current book with the directory found at url.
func (c *Controller) Analyze(ctx context.Context, url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return novel.ErrEmptyInput
	}
	if err := c.begin(StateAnalyzingBook); err != nil {
		return err
	}
	c.mu.Lock()
	c.input = url
	c.book, c.story = nil, nil
	// The stored book is only replaced once the new one is known.
	c.saveStoryLocked()
	c.mu.Unlock()

	book, err := c.reader.AnalyzeBook(ctx, url)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		return c.failLocked(err)
	}
	c.book = book
	c.state = StateIdle
	c.saveBookLocked()
	return nil
}

// FetchChapter retrieves and translates input. title, when known, replaces
// the placeholder title of the result.
func (c *Controller) FetchChapter(ctx context.Context, input string, mode novel.Mode, title string) error {
	input = strings.TrimSpace(input)
	if input == "" {
		return novel.ErrEmptyInput
	}
	next := StateExtracting
	if mode == novel.ModeText {
		next = StateTranslating
	}
	if err := c.begin(next); err != nil {
		return err
	}

	story, err := c.reader.FetchChapter(ctx, input, mode)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		return c.failLocked(err)
	}
	novel.ApplyTitle(story, title)
	c.story = story
	c.state = StateIdle
	c.saveStoryLocked()
	return nil
}

// Submit runs the current input: a chapter fetch in either mode.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	input, mode := c.input, c.mode
	c.mu.Unlock()
	return c.FetchChapter(ctx, input, mode, "")
}

// ReadChapter fetches the i-th chapter of the loaded book.
func (c *Controller) ReadChapter(ctx context.Context, i int) error {
	c.mu.Lock()
	if c.book == nil {
		c.mu.Unlock()
		return ErrNoBook
	}
	if i < 0 || i >= len(c.book.Chapters) {
		c.mu.Unlock()
		return ErrNoChapter
	}
	ch := c.book.Chapters[i]
	c.input = ch.URL
	c.mode = novel.ModeURL
	c.mu.Unlock()
	return c.FetchChapter(ctx, ch.URL, novel.ModeURL, ch.Title)
}

// ReadChapterNumber fetches the chapter of the loaded book whose Number is number.
func (c *Controller) ReadChapterNumber(ctx context.Context, number string) error {
	c.mu.Lock()
	if c.book == nil {
		c.mu.Unlock()
		return ErrNoBook
	}
	i := c.book.ChapterNumberIndex(number)
	c.mu.Unlock()
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNoChapter, number)
	}
	return c.ReadChapter(ctx, i)
}

// NextChapter fetches the chapter after the current one.
func (c *Controller) NextChapter(ctx context.Context) error {
	return c.step(ctx, 1)
}

// PreviousChapter fetches the chapter before the current one.
func (c *Controller) PreviousChapter(ctx context.Context) error {
	return c.step(ctx, -1)
}

func (c *Controller) step(ctx context.Context, delta int) error {
	c.mu.Lock()
	if c.book == nil {
		c.mu.Unlock()
		return ErrNoBook
	}
	cur := -1
	if c.story != nil {
		cur = c.book.ChapterIndex(c.story.SourceURL)
	}
	c.mu.Unlock()
	if cur < 0 {
		return ErrNoChapter
	}
	return c.ReadChapter(ctx, cur+delta)
}

// GenerateAudio synthesizes speech for the current chapter and plays it.
func (c *Controller) GenerateAudio(ctx context.Context) error {
	c.mu.Lock()
	story := c.story
	c.mu.Unlock()
	if story == nil {
		return ErrNoStory
	}
	if err := c.begin(StateGeneratingAudio); err != nil {
		return err
	}

	buf, err := c.reader.Narrate(ctx, story)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		return c.failLocked(err)
	}
	story.Audio = buf
	if c.player == nil {
		c.state = StateIdle
		return nil
	}
	if err := c.player.Play(buf, 0); err != nil {
		return c.failLocked(err)
	}
	c.state = StatePlaying
	return nil
}

// TogglePlay pauses, resumes, replays or generates audio depending on state.
func (c *Controller) TogglePlay(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.state.Busy():
		c.mu.Unlock()
		return ErrBusy
	case c.story == nil:
		c.mu.Unlock()
		return ErrNoStory
	case c.player == nil:
		c.mu.Unlock()
		return errors.New("audio output is disabled")
	case c.state == StatePlaying:
		defer c.mu.Unlock()
		if err := c.player.Pause(); err != nil {
			return err
		}
		c.state = StatePaused
		return nil
	case c.state == StatePaused:
		defer c.mu.Unlock()
		if err := c.player.Resume(); err != nil {
			return c.failLocked(err)
		}
		c.state = StatePlaying
		return nil
	case c.story.Audio != nil:
		defer c.mu.Unlock()
		if err := c.player.Play(c.story.Audio, 0); err != nil {
			return c.failLocked(err)
		}
		c.state = StatePlaying
		c.errMsg = ""
		return nil
	}
	c.mu.Unlock()
	return c.GenerateAudio(ctx)
}

// Stop halts playback. Only playing and paused states change.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopPlaybackLocked()
	if c.state == StatePlaying || c.state == StatePaused {
		c.state = StateIdle
	}
}

// Tick checks for the end of playback and returns true when it just ended.
func (c *Controller) Tick() bool {
	if c.player == nil || !c.player.Finished() {
		return false
	}
	c.Stop()
	return true
}

// BackToChapters closes the current chapter and returns to the book directory.
func (c *Controller) BackToChapters() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Busy() {
		return
	}
	c.stopPlaybackLocked()
	c.story = nil
	c.state = StateIdle
	c.errMsg = ""
	c.saveStoryLocked()
}

// ClearSaved forgets the book, chapter, input and error together.
func (c *Controller) ClearSaved() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Busy() {
		return ErrBusy
	}
	c.stopPlaybackLocked()
	c.book, c.story = nil, nil
	c.input, c.errMsg = "", ""
	c.state = StateIdle
	if c.lib != nil {
		if err := c.lib.Clear(); err != nil {
			log.Warn("clear saved state", "err", err)
		}
	}
	return nil
}

// SettingsRequested reports and resets the request to open settings that
// follows a credential error.
func (c *Controller) SettingsRequested() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.settingsRequested
	c.settingsRequested = false
	return r
}

// SetAPIKey stores a key override; an empty key clears it. A credential
// error on screen is dismissed.
func (c *Controller) SetAPIKey(key string) error {
	if c.keys == nil {
		return errors.New("no key store configured")
	}
	if err := c.keys.SetOverride(key); err != nil {
		return fmt.Errorf("save api key: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settingsRequested = false
	if c.state == StateError && c.errMsg == novel.ErrCredentials.Error() {
		c.state = StateIdle
		c.errMsg = ""
	}
	return nil
}

// KeyStatus returns the masked active key and where it comes from.
func (c *Controller) KeyStatus() (masked, source string) {
	if c.keys == nil {
		return "", ""
	}
	key := c.keys.APIKey()
	if key == "" {
		return "", ""
	}
	return api.MaskKey(key), c.keys.Source()
}

// SaveAudio writes the current chapter audio as a WAV file.
func (c *Controller) SaveAudio(path string) error {
	c.mu.Lock()
	var buf *audioplayer.Buffer
	if c.story != nil {
		buf = c.story.Audio
	}
	c.mu.Unlock()
	if buf == nil {
		return ErrNoAudio
	}
	return audioplayer.SaveWAV(path, buf)
}

// Close stops playback and releases the audio output.
func (c *Controller) Close() error {
	if c.player == nil {
		return nil
	}
	return c.player.Close()
}
