package theme

import "github.com/charmbracelet/lipgloss"

// Styles describes reusable Lip Gloss styles shared across the HUD.
type Styles struct {
	Loading               *lipgloss.Style
	Item                  *lipgloss.Style
	ItemIndicator         *lipgloss.Style
	SelectedItemIndicator *lipgloss.Style
	SelectedItem          *lipgloss.Style
	DisabledItem          *lipgloss.Style
	Accel                 *lipgloss.Style
	Error                 *lipgloss.Style
	Info                  *lipgloss.Style
	Header                *lipgloss.Style
	Footer                *lipgloss.Style
	Filter                *lipgloss.Style
	FilterPrompt          *lipgloss.Style
	FilterPlaceholder     *lipgloss.Style
	Cursor                *lipgloss.Style
}

var defaultStyles = Styles{
	Loading: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Italic(true),
	),
	Item: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("249")),
	),
	ItemIndicator: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
	),
	SelectedItemIndicator: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Background(lipgloss.Color("238")),
	),
	SelectedItem: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(lipgloss.Color("238")).Bold(true),
	),
	DisabledItem: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Strikethrough(true),
	),
	Accel: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
	),
	Error: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	),
	Info: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("249")),
	),
	Header: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true),
	),
	Footer: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("249")),
	),
	Filter: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("249")),
	),
	FilterPrompt: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("34")).Bold(true),
	),
	FilterPlaceholder: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	),
	Cursor: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("33")).Blink(true),
	),
}

// Default exposes the standard style set used by the HUD.
func Default() *Styles {
	return &defaultStyles
}

// Plain returns a style set without colours, used when rendering into
// non-terminal output.
func Plain() *Styles {
	plain := lipgloss.NewStyle()
	return &Styles{
		Loading:               ptr(plain),
		Item:                  ptr(plain),
		ItemIndicator:         ptr(plain),
		SelectedItemIndicator: ptr(plain),
		SelectedItem:          ptr(plain),
		DisabledItem:          ptr(plain),
		Accel:                 ptr(plain),
		Error:                 ptr(plain),
		Info:                  ptr(plain),
		Header:                ptr(plain),
		Footer:                ptr(plain),
		Filter:                ptr(plain),
		FilterPrompt:          ptr(plain),
		FilterPlaceholder:     ptr(plain),
		Cursor:                ptr(plain),
	}
}

func ptr(style lipgloss.Style) *lipgloss.Style {
	return &style
}
