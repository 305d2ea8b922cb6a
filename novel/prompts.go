package novel

import (
	"fmt"

	"github.com/tmc/novelcast/internal/helpers"
)

const (
	// MaxTextInput bounds pasted text sent for translation, in characters.
	MaxTextInput = 45000
	// OriginalExcerpt is how much pasted text stands in for a missing originalText.
	OriginalExcerpt = 200
	// DefaultTitle replaces a missing chapter title.
	DefaultTitle = "Chapter"
	// PastedTitle is the title suggested for pasted text.
	PastedTitle = "Pasted Text"
	// OriginalUnavailable replaces a missing originalText in URL mode.
	OriginalUnavailable = "Not available"
	// DefaultLanguage is the translation target.
	DefaultLanguage = "Spanish (neutral)"
)

func chapterPrompt(input string, mode Mode, advanced bool, language string) string {
	if mode == ModeText {
		text, _ := helpers.Truncate(input, MaxTextInput)
		return fmt.Sprintf(`ROLE: Translator.
TASK: Translate to %[1]s. Translate verbatim; do not summarize.
INPUT: %[2]s

OUTPUT JSON:
{
  "title": %[3]q,
  "originalText": "...",
  "translatedText": "..."
}`, language, text, PastedTitle)
	}

	role := "Web Content Retriever & Translator."
	if advanced {
		role = "Advanced " + role
	}
	return fmt.Sprintf(`ROLE: %[1]s
INPUT URL: %[2]s

OBJECTIVE: Retrieve the COMPLETE text of this novel chapter and translate it to %[3]s.

INSTRUCTIONS:
1. SEARCH: Use googleSearch to find the full text of the chapter.
   Query: "Read [Novel Name] [Chapter Number] full text online".
2. VERIFY: Make sure the text has an ending (an "End of chapter" marker, next button text or a closing scene).
3. TRANSLATE: Translate verbatim to %[3]s. Do NOT summarize.

OUTPUT JSON:
{
  "title": "Chapter Title",
  "originalText": "Start: [first 200 chars] ... End: [last 200 chars]",
  "translatedText": "The FULL translated text..."
}`, role, input, language)
}

func analyzePrompt(url string) string {
	return fmt.Sprintf(`Act as a Web Scraper.
Target URL: %s

Task:
1. Identify the Novel Title.
2. Determine the TOTAL number of chapters available.
3. Analyze the URL structure of the chapters.

Return JSON:
{
  "title": "Novel Title",
  "description": "Brief summary",
  "coverImage": "https://example.com/cover.jpg",
  "totalChapters": 100,
  "urlPattern": "https://example.com/book/novel-slug/{number}",
  "firstChapterNumber": 1
}`, url)
}
