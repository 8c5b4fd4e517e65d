// Package tui provides the live service monitor for localdeck.
package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Colors
var (
	ColorPrimary   = lipgloss.Color("39")  // Blue
	ColorSecondary = lipgloss.Color("245") // Gray
	ColorSuccess   = lipgloss.Color("42")  // Green
	ColorWarning   = lipgloss.Color("214") // Orange
	ColorDanger    = lipgloss.Color("196") // Red
	ColorMuted     = lipgloss.Color("240") // Dark gray
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			Padding(0, 1)

	HealthyStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess).
			Bold(true)

	UnhealthyStyle = lipgloss.NewStyle().
			Foreground(ColorDanger).
			Bold(true)

	StartingStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	StoppedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	LabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorSecondary).
			Width(10)

	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15"))

	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Padding(1, 0)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorDanger).
			Bold(true)
)

// ServiceStyle returns the style for an observed service state.
func ServiceStyle(running bool, health string) lipgloss.Style {
	switch {
	case !running:
		return StoppedStyle
	case health == "healthy" || health == "":
		return HealthyStyle
	case health == "starting":
		return StartingStyle
	default:
		return UnhealthyStyle
	}
}

// ServiceIcon returns an icon for an observed service state.
func ServiceIcon(running bool, health string) string {
	switch {
	case !running:
		return "○"
	case health == "healthy" || health == "":
		return "●"
	case health == "starting":
		return "◐"
	default:
		return "✗"
	}
}
