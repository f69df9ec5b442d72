// Package ui renders partition results for terminals.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"ravens/internal/partition"
)

// TableOpts configures RenderPlacements.
type TableOpts struct {
	Color bool
	Width int // ширина терминала, 0 - 80
	// Filter keeps only rows with this placement when set.
	Filter partition.Placement
}

type row struct {
	path, kind, placement, note string
}

// RenderPlacements draws the placement map as a table followed by the list
// of RPC stubs.
func RenderPlacements(out *partition.Output, opts TableOpts) string {
	if out == nil {
		return ""
	}
	width := opts.Width
	if width <= 0 {
		width = 80
	}

	stubbed := make(map[string]int, len(out.Stubs))
	for _, st := range out.Stubs {
		stubbed[st.Path] = len(st.Callers)
	}
	rows := make([]row, 0, len(out.Placements))
	for _, e := range out.Placements {
		if opts.Filter != partition.Unresolved && e.Placement != opts.Filter {
			continue
		}
		r := row{path: e.Path, kind: e.Kind, placement: e.Placement.String()}
		switch {
		case e.Dropped:
			r.note = "dropped"
		case stubbed[e.Path] > 0:
			r.note = fmt.Sprintf("rpc, %d caller(s)", stubbed[e.Path])
		}
		rows = append(rows, r)
	}

	kindW, placeW := len("KIND"), len("PLACEMENT")
	for _, r := range rows {
		kindW = max(kindW, runewidth.StringWidth(r.kind))
		placeW = max(placeW, runewidth.StringWidth(r.placement))
	}
	pathW := max(width-kindW-placeW-20, 16)

	st := newStyles(opts.Color)
	var b strings.Builder
	b.WriteString(st.title.Render(fmt.Sprintf("%s: %d declarations", out.Program, len(out.Placements))))
	b.WriteString("\n\n")
	header := fmt.Sprintf("  %s  %s  %s  %s",
		runewidth.FillRight("PATH", pathW), runewidth.FillRight("KIND", kindW),
		runewidth.FillRight("PLACEMENT", placeW), "NOTE")
	b.WriteString(st.header.Render(strings.TrimRight(header, " ")))
	b.WriteString("\n")
	for _, r := range rows {
		line := fmt.Sprintf("  %s  %s  %s  %s",
			runewidth.FillRight(truncate(r.path, pathW), pathW),
			runewidth.FillRight(r.kind, kindW),
			st.placement(r.placement).Render(runewidth.FillRight(r.placement, placeW)),
			st.note.Render(r.note))
		b.WriteString(strings.TrimRight(line, " "))
		b.WriteString("\n")
	}

	if len(out.Stubs) > 0 {
		b.WriteString("\n")
		b.WriteString(st.title.Render(fmt.Sprintf("rpc stubs: %d", len(out.Stubs))))
		b.WriteString("\n")
		for _, s := range out.Stubs {
			fmt.Fprintf(&b, "  %s  %s -> %s\n",
				truncate(s.StableName, pathW), s.Proxy.Symbol, s.Handler.Symbol)
		}
	}
	return b.String()
}

type styles struct {
	title, header, note lipgloss.Style
	sides               map[string]lipgloss.Style
	plain               bool
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{title: plain, header: plain, note: plain, plain: true}
	}
	return styles{
		title:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7")),
		header: lipgloss.NewStyle().Bold(true).Underline(true),
		note:   lipgloss.NewStyle().Faint(true),
		sides: map[string]lipgloss.Style{
			"server":     lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
			"client":     lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
			"shared":     lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
			"unresolved": lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		},
	}
}

func (s styles) placement(p string) lipgloss.Style {
	if s.plain {
		return lipgloss.NewStyle()
	}
	return s.sides[p]
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
