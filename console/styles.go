package console

import "github.com/charmbracelet/lipgloss"

var (
	colorIn      = lipgloss.Color("#00CC33")
	colorOut     = lipgloss.Color("#FF6600")
	colorDim     = lipgloss.Color("#777777")
	colorError   = lipgloss.Color("#FF3300")
	colorRunning = lipgloss.Color("#00FF41")
)

var (
	styleTitle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Background(lipgloss.Color("#003355")).
			Foreground(lipgloss.Color("#FFFFFF"))

	styleCount = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 2).
			Border(lipgloss.RoundedBorder())

	styleLabel = lipgloss.NewStyle().
			Foreground(colorDim)

	styleValue = lipgloss.NewStyle().
			Bold(true)

	styleRunning = lipgloss.NewStyle().
			Foreground(colorRunning).
			Bold(true)

	styleStopped = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	styleMessage = lipgloss.NewStyle().
			Foreground(colorError)

	styleHelp = lipgloss.NewStyle().
			Foreground(colorDim)
)
