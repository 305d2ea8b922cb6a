package novelcast

import "github.com/charmbracelet/lipgloss"

// progressBarWidth is the widest the playback bar gets.
const progressBarWidth = 30

// Styles
var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))
	tabActiveStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	tabStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	bookStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	chapterStyle   = lipgloss.NewStyle().Bold(true)
	cursorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	statusStyle    = lipgloss.NewStyle().Faint(true)
	noticeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	spinnerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	originalStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	inputBoxStyle  = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(lipgloss.Color("62"))
)
