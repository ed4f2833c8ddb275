package render

import (
	"insightai/internal/conversation"

	"github.com/charmbracelet/lipgloss"
)

// Theme is the terminal styling of one skin
type Theme struct {
	Header       lipgloss.Style
	Status       lipgloss.Style
	Bot          lipgloss.Style
	FollowUp     lipgloss.Style
	Respondent   lipgloss.Style
	Error        lipgloss.Style
	Final        lipgloss.Style
	Label        lipgloss.Style
	Meta         lipgloss.Style
	Seen         lipgloss.Style
	Bold         lipgloss.Style
	Prompt       lipgloss.Style
	Hint         lipgloss.Style
	Typing       string
	ShowProgress bool
	BoldMarkup   bool
}

// ThemeFor returns the theme of a skin
func ThemeFor(skin string) Theme {
	bubble := lipgloss.NewStyle().Padding(0, 1)
	meta := lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	if skin == conversation.SkinWhatsApp {
		return Theme{
			Header:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).Background(lipgloss.Color("#075E54")).Padding(0, 1),
			Status:     lipgloss.NewStyle().Foreground(lipgloss.Color("#B2DFDB")).Background(lipgloss.Color("#075E54")).Padding(0, 1),
			Bot:        bubble.Foreground(lipgloss.Color("235")).Background(lipgloss.Color("231")),
			FollowUp:   bubble.Foreground(lipgloss.Color("235")).Background(lipgloss.Color("231")).Italic(true),
			Respondent: bubble.Foreground(lipgloss.Color("235")).Background(lipgloss.Color("#DCF8C6")),
			Error:      bubble.Foreground(lipgloss.Color("231")).Background(lipgloss.Color("#D32F2F")),
			Final:      bubble.Foreground(lipgloss.Color("235")).Background(lipgloss.Color("231")),
			Label:      meta.Italic(true),
			Meta:       meta,
			Seen:       lipgloss.NewStyle().Foreground(lipgloss.Color("#34B7F1")),
			Bold:       lipgloss.NewStyle().Bold(true),
			Prompt:     lipgloss.NewStyle().Foreground(lipgloss.Color("#25D366")),
			Hint:       meta,
			Typing:     "typing…",
			BoldMarkup: true,
		}
	}

	return Theme{
		Header:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4F6EF7")),
		Status:       meta,
		Bot:          bubble.Foreground(lipgloss.Color("252")).Background(lipgloss.Color("236")),
		FollowUp:     bubble.Foreground(lipgloss.Color("252")).Background(lipgloss.Color("236")).BorderLeft(true).BorderStyle(lipgloss.ThickBorder()).BorderForeground(lipgloss.Color("#F59E0B")),
		Respondent:   bubble.Foreground(lipgloss.Color("231")).Background(lipgloss.Color("#4F6EF7")),
		Error:        bubble.Foreground(lipgloss.Color("#EF4444")).Background(lipgloss.Color("236")),
		Final:        bubble.Foreground(lipgloss.Color("#10B981")).Background(lipgloss.Color("236")),
		Label:        lipgloss.NewStyle().Foreground(lipgloss.Color("#4F6EF7")),
		Meta:         meta,
		Seen:         meta,
		Bold:         lipgloss.NewStyle().Bold(true),
		Prompt:       lipgloss.NewStyle().Foreground(lipgloss.Color("#4F6EF7")),
		Hint:         meta,
		Typing:       "● ● ●",
		ShowProgress: true,
	}
}
