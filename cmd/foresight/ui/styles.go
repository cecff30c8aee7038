// Package ui renders pipeline results for the terminal.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Brand palette, shared with the audit document banner.
var (
	ColorAccent   = lipgloss.Color("#00C3FF") // cyan headline
	ColorMuted    = lipgloss.Color("#6B7A8F")
	ColorBorder   = lipgloss.Color("#2A3850")
	ColorCritical = lipgloss.Color("#E53935")
	ColorHigh     = lipgloss.Color("#FF8A65")
	ColorMedium   = lipgloss.Color("#FFC107")
	ColorLow      = lipgloss.Color("#8BC34A")
	ColorInfo     = lipgloss.Color("#2196F3")
)

// Styles bundles the lipgloss styles the render helpers use.
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Body     lipgloss.Style
	Bold     lipgloss.Style
	Muted    lipgloss.Style

	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	High    lipgloss.Style
	Info    lipgloss.Style

	Divider lipgloss.Style
}

// NewStyles returns the styled set. Lipgloss degrades automatically on
// terminals without color support.
func NewStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Foreground(ColorAccent).Bold(true),
		Subtitle: lipgloss.NewStyle().Foreground(ColorMuted).Bold(true),
		Body:     lipgloss.NewStyle(),
		Bold:     lipgloss.NewStyle().Bold(true),
		Muted:    lipgloss.NewStyle().Foreground(ColorMuted),

		Success: lipgloss.NewStyle().Foreground(ColorLow),
		Warning: lipgloss.NewStyle().Foreground(ColorMedium),
		Error:   lipgloss.NewStyle().Foreground(ColorCritical).Bold(true),
		High:    lipgloss.NewStyle().Foreground(ColorHigh),
		Info:    lipgloss.NewStyle().Foreground(ColorInfo),

		Divider: lipgloss.NewStyle().Foreground(ColorBorder),
	}
}

// PlainStyles returns an unstyled set for --no-color output.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Title:    plain,
		Subtitle: plain,
		Body:     plain,
		Bold:     plain,
		Muted:    plain,
		Success:  plain,
		Warning:  plain,
		Error:    plain,
		High:     plain,
		Info:     plain,
		Divider:  plain,
	}
}

// SelectStyles picks styled or plain output.
func SelectStyles(color bool) Styles {
	if color {
		return NewStyles()
	}
	return PlainStyles()
}

// RiskStyle maps a risk or urgency label onto its severity color.
func (s Styles) RiskStyle(level string) lipgloss.Style {
	switch level {
	case "Critical":
		return s.Error
	case "High":
		return s.High
	case "Medium":
		return s.Warning
	case "Low":
		return s.Success
	default:
		return s.Muted
	}
}

// RenderDivider draws a horizontal rule of the given width.
func (s Styles) RenderDivider(width int) string {
	if width < 1 {
		width = 40
	}
	return s.Divider.Render(strings.Repeat("-", width))
}
