package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/user/nocview/internal/model"
)

var (
	// Colors
	Primary   = lipgloss.Color("205")
	Secondary = lipgloss.Color("86")
	Subtle    = lipgloss.Color("241")
	Success   = lipgloss.Color("46")
	Warning   = lipgloss.Color("214")
	Error     = lipgloss.Color("196")
	Info      = lipgloss.Color("39")
	Minor     = lipgloss.Color("226")

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(Primary).
			Padding(0, 2)

	SectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Subtle).
			Padding(0, 1)

	SectionTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(Primary)

	LabelStyle = lipgloss.NewStyle().
			Foreground(Subtle)

	ValueStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Success)

	WarningStyle = lipgloss.NewStyle().
			Foreground(Warning)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(Subtle).
			Italic(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(Subtle).
			MarginTop(1)

	LoadingStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Padding(2, 4)

	// Tabs
	TabStyle = lipgloss.NewStyle().
			Foreground(Subtle).
			Padding(0, 2)

	ActiveTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(Subtle).
			Padding(0, 2)

	// Quick filter tags
	TagStyle = lipgloss.NewStyle().
			Foreground(Subtle).
			Border(lipgloss.NormalBorder(), false, true).
			BorderForeground(Subtle).
			Padding(0, 1)

	ActiveTagStyle = TagStyle.Copy().
			Foreground(lipgloss.Color("15")).
			Background(Primary)

	// KPI tiles
	TileStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			Width(22)

	CarouselStyle = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder(), false, false, false, true).
			BorderForeground(Error).
			Padding(0, 1)

	ToastSuccessStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(Success).
				Padding(0, 1)

	ToastErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Background(Error).
			Padding(0, 1)

	FormStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(Primary).
			Padding(1, 2)
)

// toneColor maps a KPI tone to its color.
func toneColor(tone string) lipgloss.Color {
	switch tone {
	case model.ToneCritical:
		return Error
	case model.ToneMajor:
		return Warning
	case model.ToneMinor:
		return Minor
	case model.ToneInfo:
		return Info
	case model.ToneSuccess:
		return Success
	}
	return Subtle
}

// severityStyle colors a severity or priority label.
func severityStyle(sev string) lipgloss.Style {
	switch sev {
	case model.SeverityCritical:
		return lipgloss.NewStyle().Foreground(Error).Bold(true)
	case model.SeverityMajor, model.PriorityHigh:
		return lipgloss.NewStyle().Foreground(Warning)
	case model.SeverityMinor, model.PriorityMedium:
		return lipgloss.NewStyle().Foreground(Minor)
	}
	return lipgloss.NewStyle().Foreground(Info)
}

// RenderTile renders a KPI card.
func RenderTile(c model.KPICard) string {
	color := toneColor(c.Tone)
	var sb strings.Builder
	sb.WriteString(LabelStyle.Render(c.Label))
	sb.WriteString("\n")
	sb.WriteString(lipgloss.NewStyle().Foreground(color).Bold(true).Render(c.Value))
	if c.Trend != nil {
		arrow := "→"
		switch c.Trend.Direction {
		case model.TrendUp:
			arrow = "↑"
		case model.TrendDown:
			arrow = "↓"
		}
		style := SuccessStyle
		if !c.Trend.IsPositive {
			style = WarningStyle
		}
		sb.WriteString(" " + style.Render(arrow+" "+c.Trend.Text))
	}
	if c.Subtitle != "" {
		sb.WriteString("\n" + DimStyle.Render(c.Subtitle))
	}
	if c.Badge != "" {
		sb.WriteString("\n" + WarningStyle.Render(c.Badge))
	}
	return TileStyle.Copy().BorderForeground(color).Render(sb.String())
}

// RenderBar renders a progress bar.
func RenderBar(value, max int, width int) string {
	if max == 0 {
		max = 1
	}
	filled := int(float64(value) / float64(max) * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	color := Success
	switch {
	case value*100/max < 50:
		color = Error
	case value*100/max < 70:
		color = Warning
	}
	return lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled) + strings.Repeat("░", width-filled))
}
