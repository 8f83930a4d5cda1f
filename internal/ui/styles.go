// Package ui provides terminal styling for opsctl output.
package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/example/wrapshop-ops/api-go/internal/model"
)

var (
	ColorUrgent = lipgloss.AdaptiveColor{
		Light: "#f07171",
		Dark:  "#f07178",
	}
	ColorToday = lipgloss.AdaptiveColor{
		Light: "#f2ae49",
		Dark:  "#ffb454",
	}
	ColorMuted = lipgloss.AdaptiveColor{
		Light: "#828c99",
		Dark:  "#6c7680",
	}
	ColorAccent = lipgloss.AdaptiveColor{
		Light: "#399ee6",
		Dark:  "#59c2ff",
	}
	ColorOK = lipgloss.AdaptiveColor{
		Light: "#86b300",
		Dark:  "#c2d94c",
	}
)

var (
	UrgentStyle = lipgloss.NewStyle().Foreground(ColorUrgent).Bold(true)
	TodayStyle  = lipgloss.NewStyle().Foreground(ColorToday)
	MutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	AccentStyle = lipgloss.NewStyle().Foreground(ColorAccent)
	OKStyle     = lipgloss.NewStyle().Foreground(ColorOK)

	// SectionStyle renders worklist group headers.
	SectionStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
)

const Separator = "──────────────────────────────────────────"

// UrgencyStyle picks the style matching a task's urgency tier.
func UrgencyStyle(u model.Urgency) lipgloss.Style {
	switch u {
	case model.UrgencyUrgent:
		return UrgentStyle
	case model.UrgencyToday:
		return TodayStyle
	default:
		return MutedStyle
	}
}

// UrgencyBadge is the short uppercase tag shown next to a task title.
func UrgencyBadge(u model.Urgency) string {
	switch u {
	case model.UrgencyUrgent:
		return UrgentStyle.Render("URGENT")
	case model.UrgencyToday:
		return TodayStyle.Render("TODAY")
	default:
		return ""
	}
}
