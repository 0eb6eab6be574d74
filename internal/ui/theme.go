package ui

import "github.com/charmbracelet/lipgloss"

var (
	shopGreen = lipgloss.Color("#2E9E6B")

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF"))

	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	HelpBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(shopGreen).
			Padding(1, 2)

	HelpTitleStyle = lipgloss.NewStyle().
			Foreground(shopGreen).
			Bold(true)
)
