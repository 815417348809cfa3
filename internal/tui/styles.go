package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent = lipgloss.AdaptiveColor{Light: "#5A3FC0", Dark: "#B9A7FF"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "#8A8A8A", Dark: "#6C6C6C"}
	colorError  = lipgloss.AdaptiveColor{Light: "#C0392B", Dark: "#FF6B6B"}
	colorRating = lipgloss.AdaptiveColor{Light: "#B7950B", Dark: "#F4D03F"}

	appNameStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).PaddingRight(1)
	activeTabStyle = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(colorAccent).Padding(0, 1)
	tabStyle       = lipgloss.NewStyle().Foreground(colorMuted).Padding(0, 1)
	filterStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	selectedStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	itemStyle      = lipgloss.NewStyle()
	dimStyle       = lipgloss.NewStyle().Foreground(colorMuted)
	ratingStyle    = lipgloss.NewStyle().Foreground(colorRating)
	errorStyle     = lipgloss.NewStyle().Foreground(colorError)
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).MarginBottom(1)
	labelStyle     = lipgloss.NewStyle().Foreground(colorMuted).Width(12)
	detailStyle    = lipgloss.NewStyle().Padding(0, 1)
)
