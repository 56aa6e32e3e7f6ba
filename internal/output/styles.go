package output

import (
	"github.com/charmbracelet/lipgloss"
)

// Colors
var (
	ColorActive  = lipgloss.Color("#04B575") // green
	ColorWarning = lipgloss.Color("#FFB800") // yellow
	ColorError   = lipgloss.Color("#FF4040") // red
	ColorInfo    = lipgloss.Color("#00BFFF") // cyan
	ColorMuted   = lipgloss.Color("#666666") // gray
	ColorLabel   = lipgloss.Color("#AAAAAA") // light gray for labels
)

// Box styles
var (
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorInfo).
			Padding(0, 1)

	AnswerBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorActive).
			Padding(0, 1)

	WarningBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorWarning).
			Padding(0, 1)
)

// Text styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorInfo)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorLabel).
			Width(14)

	ValueStyle = lipgloss.NewStyle()

	ActiveText = lipgloss.NewStyle().
			Foreground(ColorActive).
			Bold(true)

	WarningText = lipgloss.NewStyle().
			Foreground(ColorWarning).
			Bold(true)

	ErrorText = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	MutedText = lipgloss.NewStyle().
			Foreground(ColorMuted)
)

// Indicators
const (
	IconActive  = "✅"
	IconWarning = "⚠"
	IconError   = "❌"
	IconChart   = "📊"
)
