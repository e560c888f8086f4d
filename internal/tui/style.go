package tui

import "github.com/charmbracelet/lipgloss"

var (
	violet = lipgloss.Color("#6D28D9")
	lilac  = lipgloss.Color("#A78BFA")
	green  = lipgloss.Color("#10B981")
	slate  = lipgloss.Color("#64748B")
	red    = lipgloss.Color("#EF4444")
)

var (
	headerStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lilac).
			Padding(0, 1)
	nameStyle = lipgloss.NewStyle().
			Foreground(violet).
			Bold(true)
	relationStyle = lipgloss.NewStyle().Foreground(slate)
	onlineStyle   = lipgloss.NewStyle().Foreground(green)

	userLabel   = lipgloss.NewStyle().Foreground(violet).Bold(true)
	avatarLabel = lipgloss.NewStyle().Foreground(lilac).Bold(true)
	timeStyle   = lipgloss.NewStyle().Foreground(slate).Faint(true)

	faint       = lipgloss.NewStyle().Foreground(slate)
	italic      = lipgloss.NewStyle().Foreground(slate).Italic(true)
	chipStyle   = lipgloss.NewStyle().Foreground(violet).Border(lipgloss.RoundedBorder()).BorderForeground(lilac).Padding(0, 1)
	errorStyle  = lipgloss.NewStyle().Foreground(red).Bold(true)
	spinnerTint = lipgloss.NewStyle().Foreground(lilac)
)
