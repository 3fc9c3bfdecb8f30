package main

import "github.com/charmbracelet/lipgloss"

var (
	colorSuccess = lipgloss.AdaptiveColor{Light: "2", Dark: "2"}
	colorError   = lipgloss.AdaptiveColor{Light: "1", Dark: "1"}
	colorWarning = lipgloss.AdaptiveColor{Light: "3", Dark: "3"}
	colorPrimary = lipgloss.AdaptiveColor{Light: "5", Dark: "5"}
	colorInfo    = lipgloss.AdaptiveColor{Light: "6", Dark: "6"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "8", Dark: "8"}

	StyleSuccess = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	StyleError   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	StyleWarning = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	StyleInfo    = lipgloss.NewStyle().Foreground(colorInfo)
	StyleMuted   = lipgloss.NewStyle().Foreground(colorMuted)
	StyleTitle   = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true).Underline(true)
	StyleKey     = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true).Width(12)
)

func FormatSuccess(msg string) string { return StyleSuccess.Render("✔ " + msg) }
func FormatError(msg string) string   { return StyleError.Render("✘ " + msg) }
func FormatWarning(msg string) string { return StyleWarning.Render("⚠ " + msg) }
func FormatInfo(msg string) string    { return StyleInfo.Render("ℹ " + msg) }

// RenderKeyValue renders an aligned "key  value" line.
func RenderKeyValue(key, value string) string {
	return StyleKey.Render(key) + " " + value
}
