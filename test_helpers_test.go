package novelcast

import (
	"context"
	"sync"
	"testing"

	"github.com/tmc/novelcast/api"
	"github.com/tmc/novelcast/audioplayer"
	"github.com/tmc/novelcast/novel"
	"github.com/tmc/novelcast/store"
)

// stubReader answers controller requests from fixed data.
type stubReader struct {
	mu sync.Mutex

	book     *novel.BookDetails
	bookErr  error
	stories  map[string]*novel.StoryContent
	storyErr error
	audio    *audioplayer.Buffer
	audioErr error

	// When block is set, FetchChapter signals started and waits on block.
	block   chan struct{}
	started chan struct{}

	fetched  []string
	narrated int
}

func (r *stubReader) AnalyzeBook(ctx context.Context, url string) (*novel.BookDetails, error) {
	if r.bookErr != nil {
		return nil, r.bookErr
	}
	return r.book, nil
}

func (r *stubReader) FetchChapter(ctx context.Context, input string, mode novel.Mode) (*novel.StoryContent, error) {
	if r.block != nil {
		r.started <- struct{}{}
		<-r.block
	}
	r.mu.Lock()
	r.fetched = append(r.fetched, input)
	r.mu.Unlock()
	if r.storyErr != nil {
		return nil, r.storyErr
	}
	if s, ok := r.stories[input]; ok {
		c := *s
		return &c, nil
	}
	return &novel.StoryContent{Title: novel.DefaultTitle, OriginalText: input, TranslatedText: "traducido: " + input, SourceURL: input}, nil
}

func (r *stubReader) Narrate(ctx context.Context, story *novel.StoryContent) (*audioplayer.Buffer, error) {
	r.mu.Lock()
	r.narrated++
	r.mu.Unlock()
	if r.audioErr != nil {
		return nil, r.audioErr
	}
	return r.audio, nil
}

func (r *stubReader) fetchedURLs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.fetched...)
}

// oneSecond returns a silent one second mono buffer at 24 kHz.
func oneSecond(t *testing.T) *audioplayer.Buffer {
	t.Helper()
	buf, err := audioplayer.DecodePCM(make([]byte, 24000*2), 24000, 1)
	if err != nil {
		t.Fatal(err)
	}
	return buf
}

func testBook() *novel.BookDetails {
	return &novel.BookDetails{
		Title:         "The Long Road",
		TotalChapters: 3,
		Chapters:      novel.BuildChapters("https://example.com/book/c/", 1, 3),
		SourceURL:     "https://example.com/book",
	}
}

func newLibrary(t *testing.T) *store.Library {
	t.Helper()
	lib, err := store.NewLibrary(store.NewMemoryStorageProvider())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { lib.Close() })
	return lib
}

func newCredentials(lib *store.Library) *api.Credentials {
	return api.NewCredentials(lib).WithEnvironment(func() map[string]string {
		return map[string]string{}
	})
}

type fixture struct {
	reader *stubReader
	out    *audioplayer.MemoryOutput
	lib    *store.Library
	keys   *api.Credentials
	ctrl   *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cleanup := api.SetupTestLogging(t)
	t.Cleanup(cleanup)

	f := &fixture{
		reader: &stubReader{book: testBook(), audio: oneSecond(t)},
		out:    audioplayer.NewMemoryOutput(),
		lib:    newLibrary(t),
	}
	f.keys = newCredentials(f.lib)
	f.ctrl = NewController(f.reader, audioplayer.NewController(f.out), f.lib, f.keys)
	return f
}
