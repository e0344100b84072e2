// Package tui provides the terminal user interface for OpsDeck.
package tui

import "github.com/charmbracelet/lipgloss"

// Tokyo Night inspired color palette
var (
	ColorBg      = lipgloss.Color("#1a1b26")
	ColorBgAlt   = lipgloss.Color("#24283b")
	ColorFg      = lipgloss.Color("#c0caf5")
	ColorFgMuted = lipgloss.Color("#565f89")
	ColorHealthy = lipgloss.Color("#9ece6a")
	ColorInfo    = lipgloss.Color("#7aa2f7")
	ColorError   = lipgloss.Color("#f7768e")
	ColorWarning = lipgloss.Color("#e0af68")
	ColorDone    = lipgloss.Color("#565f89")
	ColorAccent  = lipgloss.Color("#d4a373")
)

// Status icons shared by the service and job tables
var StatusIcons = map[string]string{
	"running":   "●",
	"stopped":   "○",
	"degraded":  "◐",
	"error":     "✗",
	"queued":    "○",
	"succeeded": "✓",
	"failed":    "✗",
	"cancelled": "⊘",
	"active":    "●",
	"pending":   "○",
	"done":      "✓",
	"pass":      "✓",
	"warn":      "!",
	"fail":      "✗",
}

// StatusColor returns the color for a given status
func StatusColor(status string) lipgloss.Color {
	switch status {
	case "running", "succeeded", "done", "pass", "active", "healthy":
		return ColorHealthy
	case "queued", "pending":
		return ColorInfo
	case "error", "failed", "fail", "critical":
		return ColorError
	case "degraded", "warn", "warning", "cancelled":
		return ColorWarning
	case "stopped", "completed":
		return ColorDone
	default:
		return ColorFgMuted
	}
}

// Common styles
var (
	StyleTitle = lipgloss.NewStyle().
			Foreground(ColorFg).
			Bold(true).
			MarginBottom(1)

	StyleHeader = lipgloss.NewStyle().
			Foreground(ColorFgMuted).
			Bold(true)

	StyleSelected = lipgloss.NewStyle().
			Background(ColorBgAlt).
			Foreground(ColorFg)

	StyleNormal = lipgloss.NewStyle().
			Foreground(ColorFg)

	StyleMuted = lipgloss.NewStyle().
			Foreground(ColorFgMuted)

	StyleAccent = lipgloss.NewStyle().
			Foreground(ColorAccent)

	StyleTabActive = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	StyleTabInactive = lipgloss.NewStyle().
				Foreground(ColorFgMuted)

	StyleHelp = lipgloss.NewStyle().
			Foreground(ColorFgMuted).
			MarginTop(1)

	StyleBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorFgMuted).
			Padding(1, 2)
)

// StatusStyle returns styled text for a status
func StatusStyle(status string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(StatusColor(status))
}

// Logo returns the ASCII art logo
func Logo() string {
	return StyleAccent.Render("▐█▀█▌") + " " + StyleTitle.Render("opsdeck")
}
