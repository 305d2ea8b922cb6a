package novelcast

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/wordwrap"

	"github.com/tmc/novelcast/novel"
)

const defaultWrap = 80

func wrapWidth(width int) int {
	if width <= 0 {
		return defaultWrap
	}
	return min(width-2, 100)
}

// renderBody builds the scrollable content: a chapter, a chapter list or a welcome.
func (m *Model) renderBody(snap Snapshot) string {
	switch {
	case snap.Story != nil:
		return renderStory(snap.Story, snap.ShowOriginal, wrapWidth(m.width))
	case snap.Book != nil:
		return renderBook(snap.Book, m.cursor, wrapWidth(m.width))
	}
	return renderWelcome(wrapWidth(m.width))
}

func renderWelcome(width int) string {
	var b strings.Builder
	b.WriteString(wordwrap.String("Paste a chapter URL and press enter to read it translated, or a book URL and press ctrl+a to list its chapters. Switch to text mode with ctrl+t to translate pasted text.", width))
	b.WriteString("\n\n")
	b.WriteString(statusStyle.Render("ctrl+e loads an example URL"))
	return b.String()
}

func bookHeader(book *novel.BookDetails, width int) string {
	var b strings.Builder
	b.WriteString(bookStyle.Render(book.Title))
	b.WriteString("\n")
	if book.Description != "" {
		b.WriteString(wordwrap.String(book.Description, width))
		b.WriteString("\n")
	}
	b.WriteString(statusStyle.Render(fmt.Sprintf("%s chapters", humanize.Comma(int64(book.TotalChapters)))))
	b.WriteString("\n\n")
	return b.String()
}

// bookHeaderLines counts the lines above the first chapter entry.
func bookHeaderLines(book *novel.BookDetails, width int) int {
	return strings.Count(bookHeader(book, wrapWidth(width)), "\n")
}

func renderBook(book *novel.BookDetails, cursor, width int) string {
	var b strings.Builder
	b.WriteString(bookHeader(book, width))
	if len(book.Chapters) == 0 {
		b.WriteString(errorStyle.Render("No chapters found. Try a chapter URL directly."))
		return b.String()
	}
	for i, ch := range book.Chapters {
		if i == cursor {
			b.WriteString(cursorStyle.Render("❯ " + ch.Title))
		} else {
			b.WriteString("  " + ch.Title)
		}
		if i < len(book.Chapters)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func renderStory(story *novel.StoryContent, showOriginal bool, width int) string {
	var b strings.Builder
	b.WriteString(chapterStyle.Render(story.Title))
	b.WriteString("\n")
	words := len(strings.Fields(story.TranslatedText))
	meta := humanize.Comma(int64(words)) + " words"
	if story.Audio != nil {
		bytes := uint64(story.Audio.Length() * story.Audio.NumberOfChannels() * 2)
		meta += " • audio " + humanize.Bytes(bytes)
	}
	b.WriteString(statusStyle.Render(meta))
	b.WriteString("\n\n")
	if showOriginal {
		b.WriteString(originalStyle.Render(wordwrap.String(story.OriginalText, width)))
		b.WriteString("\n\n")
	}
	b.WriteString(wordwrap.String(story.TranslatedText, width))
	return b.String()
}

func (m *Model) renderTitle(snap Snapshot) string {
	url, text := tabStyle.Render(" URL "), tabStyle.Render(" Text ")
	if snap.Mode == novel.ModeText {
		text = tabActiveStyle.Render("[Text]")
	} else {
		url = tabActiveStyle.Render("[URL]")
	}
	return titleStyle.Render("novelcast") + "  " + url + text
}

func (m *Model) renderStatusLine(snap Snapshot) string {
	switch {
	case snap.State.Busy():
		return spinnerStyle.Render(m.spinner.View()) + " " + statusStyle.Render(snap.State.Label())
	case snap.State == StateError && snap.Error != "":
		return errorStyle.Render("Error: " + snap.Error)
	case m.notice != "":
		return noticeStyle.Render(m.notice)
	}
	return statusStyle.Render(snap.State.Label())
}

// View renders the UI by composing calls to helper render functions.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	snap := m.ctrl.Snapshot()

	parts := []string{m.renderTitle(snap)}
	parts = append(parts, inputBoxStyle.Render(m.input.View()))
	parts = append(parts, m.renderStatusLine(snap))
	if m.settingsPanel.IsFocused() {
		parts = append(parts, m.settingsPanel.View())
	} else {
		parts = append(parts, m.viewport.View())
	}
	if snap.Story != nil && m.output != nil {
		m.audio.Sync()
		parts = append(parts, m.audio.View())
	}
	if m.focus == focusInput {
		parts = append(parts, m.help.View(m.keys.inputHelp()))
	} else {
		parts = append(parts, m.help.View(m.keys.contentHelp(snap.Story != nil)))
	}
	return strings.Join(parts, "\n")
}
