package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette.
var (
	colorGreen  = lipgloss.Color("#4ade80")
	colorYellow = lipgloss.Color("#facc15")
	colorRed    = lipgloss.Color("#f87171")
	colorCyan   = lipgloss.Color("#22d3ee")
	colorBlue   = lipgloss.Color("#60a5fa")
	colorWhite  = lipgloss.Color("#e5e7eb")
	colorGray   = lipgloss.Color("#6b7280")
	colorDim    = lipgloss.Color("#374151")
)

// Helpers for key-value rendering.
func kv(k, v string, vc lipgloss.Color) string {
	return lipgloss.NewStyle().Foreground(colorGray).Render(k+" ") +
		lipgloss.NewStyle().Foreground(vc).Render(v)
}

func divider(w int) string {
	return lipgloss.NewStyle().Foreground(colorDim).Render(strings.Repeat("─", w))
}

func dimText(s string) string {
	return lipgloss.NewStyle().Foreground(colorGray).Render(s)
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

func truncate(s string, maxWidth int) string {
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	runes := []rune(s)
	if len(runes) > maxWidth-1 {
		return string(runes[:maxWidth-1]) + "…"
	}
	return s
}
