package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/moodysaroha/postboy/internal/notify"
)

var (
	primaryColor = lipgloss.Color("#F97316") // orange
	mutedColor   = lipgloss.Color("#6B7280") // gray

	severityColors = map[notify.Severity]lipgloss.Color{
		notify.SeverityInfo:    lipgloss.Color("#3B82F6"),
		notify.SeveritySuccess: lipgloss.Color("#10B981"),
		notify.SeverityWarning: lipgloss.Color("#F59E0B"),
		notify.SeverityError:   lipgloss.Color("#EF4444"),
	}

	appStyle = lipgloss.NewStyle().Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(primaryColor).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(1, 2).
			Width(60)

	detailStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	buttonStyle = lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(lipgloss.Color("#E5E7EB"))

	focusedButtonStyle = buttonStyle.
				Bold(true).
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(primaryColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(severityColors[notify.SeverityError])
)
