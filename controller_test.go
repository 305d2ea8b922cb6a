package novelcast

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/tmc/novelcast/api"
	"github.com/tmc/novelcast/audioplayer"
	"github.com/tmc/novelcast/novel"
)

func TestProcessingStateBusy(t *testing.T) {
	tests := []struct {
		state ProcessingState
		busy  bool
	}{
		{StateIdle, false},
		{StateAnalyzingBook, true},
		{StateExtracting, true},
		{StateTranslating, true},
		{StateGeneratingAudio, true},
		{StatePlaying, false},
		{StatePaused, false},
		{StateError, false},
	}
	for _, tt := range tests {
		if got := tt.state.Busy(); got != tt.busy {
			t.Errorf("%v.Busy() = %v, want %v", tt.state, got, tt.busy)
		}
	}
}

func TestAnalyzeReplacesBook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.ctrl.FetchChapter(ctx, "https://example.com/other", novel.ModeURL, ""); err != nil {
		t.Fatal(err)
	}
	if err := f.ctrl.Analyze(ctx, " https://example.com/book "); err != nil {
		t.Fatal(err)
	}
	snap := f.ctrl.Snapshot()
	if snap.State != StateIdle {
		t.Errorf("state = %v, want idle", snap.State)
	}
	if snap.Story != nil {
		t.Error("Analyze() kept the previous chapter")
	}
	if snap.Book == nil || len(snap.Book.Chapters) != 3 {
		t.Fatalf("book = %+v", snap.Book)
	}
	book, story := f.lib.Restore()
	if book == nil || book.Title != "The Long Road" {
		t.Errorf("saved book = %+v", book)
	}
	if story != nil {
		t.Errorf("saved chapter = %+v, want none", story)
	}
}

func TestAnalyzeFailure(t *testing.T) {
	f := newFixture(t)
	f.reader.bookErr = fmt.Errorf("%w: bad json", novel.ErrAnalysisFailed)

	err := f.ctrl.Analyze(context.Background(), "https://example.com/book")
	if !errors.Is(err, novel.ErrAnalysisFailed) {
		t.Fatalf("Analyze() error = %v", err)
	}
	snap := f.ctrl.Snapshot()
	if snap.State != StateError || snap.Error == "" {
		t.Errorf("state = %v, error = %q", snap.State, snap.Error)
	}
	if f.ctrl.SettingsRequested() {
		t.Error("non-credential failure requested settings")
	}
}

func TestAnalyzeFailureKeepsStoredBook(t *testing.T) {
	f := newFixture(t)
	if err := f.lib.SaveBook(testBook()); err != nil {
		t.Fatal(err)
	}
	f.reader.bookErr = fmt.Errorf("%w: bad json", novel.ErrAnalysisFailed)

	if err := f.ctrl.Analyze(context.Background(), "https://example.com/other"); err == nil {
		t.Fatal("Analyze() succeeded, want failure")
	}
	book, _ := f.lib.Restore()
	if book == nil || book.Title != "The Long Road" {
		t.Errorf("stored book after failed analyze = %+v, want the previous book", book)
	}
}

func TestFetchChapterAppliesKnownTitle(t *testing.T) {
	f := newFixture(t)
	url := "https://example.com/book/c/2"
	if err := f.ctrl.FetchChapter(context.Background(), url, novel.ModeURL, "Chapter 2"); err != nil {
		t.Fatal(err)
	}
	snap := f.ctrl.Snapshot()
	if snap.Story == nil || snap.Story.Title != "Chapter 2" {
		t.Fatalf("story = %+v", snap.Story)
	}
	if _, story := f.lib.Restore(); story == nil || story.SourceURL != url {
		t.Errorf("saved chapter = %+v", story)
	}
}

func TestFetchChapterEmptyInput(t *testing.T) {
	f := newFixture(t)
	if err := f.ctrl.FetchChapter(context.Background(), "  ", novel.ModeText, ""); !errors.Is(err, novel.ErrEmptyInput) {
		t.Errorf("FetchChapter() error = %v, want ErrEmptyInput", err)
	}
	if s := f.ctrl.State(); s != StateIdle {
		t.Errorf("state = %v, want idle", s)
	}
}

func TestBusyGate(t *testing.T) {
	f := newFixture(t)
	f.reader.block = make(chan struct{})
	f.reader.started = make(chan struct{})

	done := make(chan error)
	go func() {
		done <- f.ctrl.FetchChapter(context.Background(), "pasted text", novel.ModeText, "")
	}()
	<-f.reader.started

	if s := f.ctrl.State(); s != StateTranslating {
		t.Errorf("state during text fetch = %v, want translating", s)
	}
	if err := f.ctrl.Analyze(context.Background(), "https://example.com/book"); !errors.Is(err, ErrBusy) {
		t.Errorf("Analyze() while busy = %v, want ErrBusy", err)
	}
	if err := f.ctrl.TogglePlay(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("TogglePlay() while busy = %v, want ErrBusy", err)
	}
	if err := f.ctrl.ClearSaved(); !errors.Is(err, ErrBusy) {
		t.Errorf("ClearSaved() while busy = %v, want ErrBusy", err)
	}

	close(f.reader.block)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if s := f.ctrl.State(); s != StateIdle {
		t.Errorf("state after fetch = %v, want idle", s)
	}
}

func TestErrorStateAcceptsNewOperations(t *testing.T) {
	f := newFixture(t)
	f.reader.storyErr = errors.New("network down")
	if err := f.ctrl.FetchChapter(context.Background(), "x", novel.ModeText, ""); err == nil {
		t.Fatal("expected error")
	}
	if s := f.ctrl.State(); s != StateError {
		t.Fatalf("state = %v, want error", s)
	}
	f.reader.storyErr = nil
	if err := f.ctrl.FetchChapter(context.Background(), "x", novel.ModeText, ""); err != nil {
		t.Fatalf("FetchChapter() from error state = %v", err)
	}
	if snap := f.ctrl.Snapshot(); snap.Error != "" || snap.State != StateIdle {
		t.Errorf("snapshot = %v %q", snap.State, snap.Error)
	}
}

func TestCredentialErrorRequestsSettings(t *testing.T) {
	f := newFixture(t)
	f.reader.storyErr = fmt.Errorf("%w: %w", novel.ErrCredentials, &api.APIError{HTTPStatus: 400, Reason: "API_KEY_INVALID"})

	err := f.ctrl.FetchChapter(context.Background(), "https://example.com/c/1", novel.ModeURL, "")
	if !errors.Is(err, novel.ErrCredentials) {
		t.Fatalf("FetchChapter() error = %v", err)
	}
	snap := f.ctrl.Snapshot()
	if snap.Error != novel.ErrCredentials.Error() {
		t.Errorf("error message = %q", snap.Error)
	}
	if !snap.SettingsRequested {
		t.Error("SettingsRequested not raised")
	}
	if !f.ctrl.SettingsRequested() || f.ctrl.SettingsRequested() {
		t.Error("SettingsRequested() should report once")
	}

	if err := f.ctrl.SetAPIKey("fresh-key"); err != nil {
		t.Fatal(err)
	}
	if got := f.keys.APIKey(); got != "fresh-key" {
		t.Errorf("APIKey() = %q", got)
	}
	snap = f.ctrl.Snapshot()
	if snap.State != StateIdle || snap.Error != "" {
		t.Errorf("after SetAPIKey: %v %q", snap.State, snap.Error)
	}
	masked, source := f.ctrl.KeyStatus()
	if masked != api.MaskKey("fresh-key") || source != "override" {
		t.Errorf("KeyStatus() = %q, %q", masked, source)
	}
}

func TestTogglePlayLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.ctrl.TogglePlay(ctx); !errors.Is(err, ErrNoStory) {
		t.Fatalf("TogglePlay() without chapter = %v", err)
	}
	if err := f.ctrl.FetchChapter(ctx, "texto", novel.ModeText, ""); err != nil {
		t.Fatal(err)
	}

	steps := []struct {
		name    string
		advance float64
		want    ProcessingState
	}{
		{"generate and play", 0, StatePlaying},
		{"pause", 0.25, StatePaused},
		{"resume", 0.5, StatePlaying},
	}
	for _, step := range steps {
		f.out.Advance(step.advance)
		if err := f.ctrl.TogglePlay(ctx); err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		if s := f.ctrl.State(); s != step.want {
			t.Fatalf("%s: state = %v, want %v", step.name, s, step.want)
		}
	}
	srcs := f.out.Sources()
	if last := srcs[len(srcs)-1]; last.Offset != 0.25 {
		t.Errorf("resume offset = %v, want 0.25", last.Offset)
	}
	if f.out.Active() != 1 {
		t.Errorf("active sources = %d, want 1", f.out.Active())
	}

	f.ctrl.Stop()
	if s := f.ctrl.State(); s != StateIdle {
		t.Errorf("state after Stop = %v", s)
	}
	if err := f.ctrl.TogglePlay(ctx); err != nil {
		t.Fatal(err)
	}
	if f.reader.narrated != 1 {
		t.Errorf("narrated %d times, want 1", f.reader.narrated)
	}
	srcs = f.out.Sources()
	if last := srcs[len(srcs)-1]; last.Offset != 0 {
		t.Errorf("replay offset = %v, want 0", last.Offset)
	}
}

func TestTickEndsPlayback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ctrl.FetchChapter(ctx, "texto", novel.ModeText, "")
	if err := f.ctrl.GenerateAudio(ctx); err != nil {
		t.Fatal(err)
	}
	f.out.Advance(0.5)
	if f.ctrl.Tick() {
		t.Fatal("Tick() ended playback early")
	}
	f.out.Advance(0.6)
	if !f.ctrl.Tick() {
		t.Fatal("Tick() did not detect the end")
	}
	if s := f.ctrl.State(); s != StateIdle {
		t.Errorf("state = %v, want idle", s)
	}
	if f.out.Active() != 0 {
		t.Errorf("active sources = %d", f.out.Active())
	}
}

func TestOperationsTearDownPlayback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ctrl.FetchChapter(ctx, "texto", novel.ModeText, "")
	f.ctrl.GenerateAudio(ctx)
	if f.out.Active() != 1 {
		t.Fatalf("active sources = %d, want 1", f.out.Active())
	}
	if err := f.ctrl.FetchChapter(ctx, "otro", novel.ModeText, ""); err != nil {
		t.Fatal(err)
	}
	if f.out.Active() != 0 {
		t.Errorf("active sources after fetch = %d, want 0", f.out.Active())
	}
	if snap := f.ctrl.Snapshot(); snap.HasAudio {
		t.Error("new chapter reports audio")
	}
}

func TestGenerateAudioFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.reader.audioErr = novel.ErrNoAudio
	f.ctrl.FetchChapter(ctx, "texto", novel.ModeText, "")
	if err := f.ctrl.GenerateAudio(ctx); !errors.Is(err, novel.ErrNoAudio) {
		t.Fatalf("GenerateAudio() = %v", err)
	}
	if s := f.ctrl.State(); s != StateError {
		t.Errorf("state = %v, want error", s)
	}
}

func TestReadChapterNumber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.ctrl.ReadChapterNumber(ctx, "1"); !errors.Is(err, ErrNoBook) {
		t.Fatalf("ReadChapterNumber() without book = %v", err)
	}
	f.reader.book = &novel.BookDetails{
		Title:    "Late Start",
		Chapters: novel.BuildChapters("https://example.com/late/{number}", 5, 7),
	}
	if err := f.ctrl.Analyze(ctx, "https://example.com/late"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		number  string
		wantURL string
		wantErr error
	}{
		{number: "6", wantURL: "https://example.com/late/6"},
		{number: " 5 ", wantURL: "https://example.com/late/5"},
		{number: "1", wantErr: ErrNoChapter},
		{number: "8", wantErr: ErrNoChapter},
	}
	for _, tt := range tests {
		err := f.ctrl.ReadChapterNumber(ctx, tt.number)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ReadChapterNumber(%q) = %v, want %v", tt.number, err, tt.wantErr)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ReadChapterNumber(%q) = %v", tt.number, err)
		}
		if snap := f.ctrl.Snapshot(); snap.Story == nil || snap.Story.SourceURL != tt.wantURL {
			t.Errorf("ReadChapterNumber(%q) story = %+v, want %s", tt.number, snap.Story, tt.wantURL)
		}
	}
}

func TestChapterNavigation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.ctrl.NextChapter(ctx); !errors.Is(err, ErrNoBook) {
		t.Fatalf("NextChapter() without book = %v", err)
	}
	f.ctrl.Analyze(ctx, "https://example.com/book")
	if err := f.ctrl.ReadChapter(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if err := f.ctrl.NextChapter(ctx); err != nil {
		t.Fatal(err)
	}
	if err := f.ctrl.NextChapter(ctx); !errors.Is(err, ErrNoChapter) {
		t.Errorf("NextChapter() past the end = %v", err)
	}
	if err := f.ctrl.PreviousChapter(ctx); err != nil {
		t.Fatal(err)
	}
	want := []string{"https://example.com/book/c/2", "https://example.com/book/c/3", "https://example.com/book/c/2"}
	got := f.reader.fetchedURLs()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("fetched = %v, want %v", got, want)
	}
	if snap := f.ctrl.Snapshot(); snap.Story.Title != "Chapter 2" {
		t.Errorf("title = %q", snap.Story.Title)
	}

	f.ctrl.BackToChapters()
	snap := f.ctrl.Snapshot()
	if snap.Story != nil || snap.Book == nil {
		t.Errorf("BackToChapters() left story=%v book=%v", snap.Story, snap.Book)
	}
}

func TestClearSaved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ctrl.Analyze(ctx, "https://example.com/book")
	f.ctrl.ReadChapter(ctx, 0)
	f.ctrl.SetAPIKey("keep-me")

	if err := f.ctrl.ClearSaved(); err != nil {
		t.Fatal(err)
	}
	snap := f.ctrl.Snapshot()
	if snap.Book != nil || snap.Story != nil || snap.Input != "" || snap.Error != "" || snap.State != StateIdle {
		t.Errorf("snapshot after ClearSaved = %+v", snap)
	}
	if book, story := f.lib.Restore(); book != nil || story != nil {
		t.Errorf("storage still holds %v %v", book, story)
	}
	if f.keys.APIKey() != "keep-me" {
		t.Error("ClearSaved() removed the key override")
	}
}

func TestRestore(t *testing.T) {
	f := newFixture(t)
	f.lib.SaveBook(testBook())
	f.lib.SaveStory(&novel.StoryContent{Title: "Saved", TranslatedText: "hola", SourceURL: "https://example.com/book/c/1"})

	f.ctrl.Restore()
	snap := f.ctrl.Snapshot()
	if snap.Book == nil || snap.Story == nil || snap.Story.Title != "Saved" {
		t.Fatalf("restored %+v", snap)
	}
	if snap.Input != "https://example.com/book/c/1" {
		t.Errorf("input = %q", snap.Input)
	}
	if snap.HasAudio {
		t.Error("restored chapter has audio")
	}
}

func TestSaveAudio(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "c.wav")
	f.ctrl.FetchChapter(ctx, "texto", novel.ModeText, "")
	if err := f.ctrl.SaveAudio(path); !errors.Is(err, ErrNoAudio) {
		t.Fatalf("SaveAudio() before audio = %v", err)
	}
	f.ctrl.GenerateAudio(ctx)
	if err := f.ctrl.SaveAudio(path); err != nil {
		t.Fatal(err)
	}
	buf, err := audioplayer.LoadWAV(path)
	if err != nil {
		t.Fatal(err)
	}
	if buf.Length() != 24000 {
		t.Errorf("saved length = %d, want 24000", buf.Length())
	}
}

func TestStopLeavesOtherStates(t *testing.T) {
	f := newFixture(t)
	f.reader.storyErr = errors.New("boom")
	f.ctrl.FetchChapter(context.Background(), "x", novel.ModeText, "")
	f.ctrl.Stop()
	if s := f.ctrl.State(); s != StateError {
		t.Errorf("Stop() changed error state to %v", s)
	}
}
