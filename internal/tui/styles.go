package tui

import "github.com/charmbracelet/lipgloss"

var (
	Orange   = lipgloss.Color("#e8761b")
	OffWhite = lipgloss.Color("#f8f7f4")
	Muted    = lipgloss.Color("#7a7a7a")
	Red      = lipgloss.Color("#ff6b6b")
	Green    = lipgloss.Color("#7bd88f")

	TitleStyle = lipgloss.NewStyle().
			Background(Orange).
			Foreground(lipgloss.Color("#111111")).
			Bold(true).
			Padding(0, 1)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Orange).
			Padding(0, 1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Width(12)

	ValueStyle = lipgloss.NewStyle().
			Foreground(OffWhite).
			Bold(true)

	BusyStyle  = lipgloss.NewStyle().Foreground(Orange).Bold(true)
	IdleStyle  = lipgloss.NewStyle().Foreground(Green)
	ErrorStyle = lipgloss.NewStyle().Foreground(Red)
	DimStyle   = lipgloss.NewStyle().Foreground(Muted)
)
