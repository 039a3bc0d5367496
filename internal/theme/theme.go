// Package theme provides the Lip Gloss color palette and reusable styles
// for the chat TUI. It is a leaf package with no internal imports to avoid
// import cycles.
package theme

import "github.com/charmbracelet/lipgloss"

// Message colors.
var (
	ColorSelf   = lipgloss.Color("#22d3ee")
	ColorPeer   = lipgloss.Color("#a5b4fc")
	ColorDM     = lipgloss.Color("#e879f9")
	ColorSystem = lipgloss.Color("#9ca3af")
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorDanger  = lipgloss.Color("#dc2626")
	ColorAccent  = lipgloss.Color("#6366f1")
)

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
			Foreground(ColorDimmed)

	StyleSelf = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorSelf)

	StylePeer = lipgloss.NewStyle().
			Foreground(ColorPeer)

	StyleSystem = lipgloss.NewStyle().
			Italic(true).
			Foreground(ColorSystem)

	StyleTyping = lipgloss.NewStyle().
			Italic(true).
			Foreground(ColorDimmed)

	StyleDMBadge = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorDM)
)

// SenderColor returns the color for a message sender label.
func SenderColor(sender, self string) lipgloss.Color {
	if sender == self {
		return ColorSelf
	}
	return ColorPeer
}
