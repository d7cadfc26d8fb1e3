package legend

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/joeblew999/plat-geoview/internal/style"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#6B7280"})
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#243141")).Padding(0, 1)
)

// widthGlyphs step up with line width.
var widthGlyphs = []string{"▁", "▂", "▃", "▄", "▅", "▆", "▇", "█"}

// RenderTerminal renders lg as coloured blocks for a terminal.
func RenderTerminal(lg Legend) string {
	if lg.Empty() {
		return boxStyle.Render(dimStyle.Render("No layers selected"))
	}

	rows := make([]string, 0, 2*len(lg.Entries))
	for _, e := range lg.Entries {
		rows = append(rows, titleStyle.Render(e.Title))
		rows = append(rows, termSwatches(e))
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func termSwatches(e Row) string {
	var b strings.Builder
	if e.Graded() {
		b.WriteString(dimStyle.Render(e.MinLabel))
		b.WriteString(" ")
	}
	for _, s := range e.Swatches {
		b.WriteString(termGlyph(e.Kind, s.Visual))
	}
	if e.Graded() {
		b.WriteString(" ")
		b.WriteString(dimStyle.Render(e.MaxLabel))
	}
	return b.String()
}

func termGlyph(kind style.GeometryKind, v style.Visual) string {
	switch kind {
	case style.Polygon:
		return lipgloss.NewStyle().Background(hex(v.Fill)).Render("  ")
	case style.Line:
		if v.Stroke == nil {
			return " "
		}
		return lipgloss.NewStyle().Foreground(lipgloss.Color(v.Stroke.Color.Hex())).Render(widthGlyph(v.Stroke.Width))
	case style.Point:
		glyph := "•"
		if v.Radius >= 6 {
			glyph = "●"
		}
		return lipgloss.NewStyle().Foreground(hex(v.Fill)).Render(glyph) + " " + dimStyle.Render(fmt.Sprintf("r%g", v.Radius)) + " "
	}
	return ""
}

// widthGlyph maps a 1..10 stroke width onto the block glyphs.
func widthGlyph(width float64) string {
	i := int(math.Round((width - 1) / 9 * float64(len(widthGlyphs)-1)))
	i = max(0, min(len(widthGlyphs)-1, i))
	return widthGlyphs[i]
}

func hex(c *style.Color) lipgloss.Color {
	if c == nil {
		return lipgloss.Color("")
	}
	return lipgloss.Color(c.Hex())
}
