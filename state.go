package novelcast

import "errors"

// ProcessingState is the single active state of the reader.
type ProcessingState int

const (
	StateIdle ProcessingState = iota
	StateAnalyzingBook
	StateExtracting
	StateTranslating
	StateGeneratingAudio
	StatePlaying
	StatePaused
	StateError
)

func (s ProcessingState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAnalyzingBook:
		return "analyzing"
	case StateExtracting:
		return "extracting"
	case StateTranslating:
		return "translating"
	case StateGeneratingAudio:
		return "generating-audio"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Busy reports whether a provider request is in flight.
func (s ProcessingState) Busy() bool {
	switch s {
	case StateAnalyzingBook, StateExtracting, StateTranslating, StateGeneratingAudio:
		return true
	}
	return false
}

// Label is the status line text for s.
func (s ProcessingState) Label() string {
	switch s {
	case StateAnalyzingBook:
		return "Analyzing book structure..."
	case StateExtracting:
		return "Retrieving and translating chapter..."
	case StateTranslating:
		return "Translating text..."
	case StateGeneratingAudio:
		return "Generating audio..."
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	case StateError:
		return "Error"
	}
	return "Ready"
}

var (
	// ErrBusy is returned when an operation starts while another request is in flight.
	ErrBusy = errors.New("another request is in progress")
	// ErrNoStory is returned by audio operations when no chapter is loaded.
	ErrNoStory = errors.New("no chapter loaded")
	// ErrNoBook is returned by chapter navigation when no book is loaded.
	ErrNoBook = errors.New("no book loaded")
	// ErrNoChapter is returned when navigation runs past either end of the book.
	ErrNoChapter = errors.New("no such chapter")
	// ErrNoAudio is returned by SaveAudio before audio was generated.
	ErrNoAudio = errors.New("no audio generated for this chapter")
)
