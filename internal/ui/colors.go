package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Colors names the hex foregrounds a [Palette] is built from.
type Colors struct {
	Accent string // titles
	Good   string // prices & confirmations
	Bad    string // errors
	Warn   string // stale snapshots
	Muted  string // help & status lines
}

// Card-back red, grass green and electric yellow.
var styles = NewPalette(Colors{
	Accent: "#E3350D",
	Good:   "#04B575",
	Bad:    "#FF0000",
	Warn:   "#FFCB05",
	Muted:  "#626262",
})

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
	price lipgloss.Style
}

func NewPalette(c Colors) *Palette {
	return &Palette{
		title: bold(c.Accent).MarginBottom(1),
		ok:    bold(c.Good),
		err:   bold(c.Bad),
		warn:  fg(c.Warn),
		help:  fg(c.Muted).Italic(true),
		price: bold(c.Good).PaddingLeft(1),
	}
}

func fg(color string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

func bold(color string) lipgloss.Style {
	return fg(color).Bold(true)
}
