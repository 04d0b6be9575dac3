// Package ui renders the column tables printed by ukbc.
package ui

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
)

// Table is a plain column table. Cells are padded by display width, so
// names with wide runes still line up.
type Table struct {
	Headers []string
	// MaxWidth caps each column; 0 means unlimited. Longer cells are
	// truncated with "...".
	MaxWidth int
	// StatusColumn is colored by outcome when Color is set; -1 disables.
	StatusColumn int
	Color        bool

	rows [][]string
}

// NewTable creates a table with the given headers and no status column.
func NewTable(headers ...string) *Table {
	return &Table{Headers: headers, StatusColumn: -1}
}

// Append adds a row. Missing cells are left blank, extra cells dropped.
func (t *Table) Append(cells ...string) {
	row := make([]string, len(t.Headers))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Render writes the header and every row to w.
func (t *Table) Render(w io.Writer) error {
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(Truncate(cell, t.MaxWidth)))
		}
	}

	renderer := lipgloss.NewRenderer(w)
	if t.Color {
		renderer.SetColorProfile(termenv.ANSI)
	} else {
		renderer.SetColorProfile(termenv.Ascii)
	}
	headerStyle := renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))

	var b strings.Builder
	header := make([]string, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = runewidth.FillRight(h, widths[i])
	}
	b.WriteString(headerStyle.Render(strings.TrimRight(strings.Join(header, "  "), " ")))
	b.WriteString("\n")

	for _, row := range t.rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			padded := runewidth.FillRight(Truncate(cell, t.MaxWidth), widths[i])
			if t.Color && i == t.StatusColumn {
				padded = statusStyle(renderer, cell).Render(padded)
			}
			cells[i] = padded
		}
		b.WriteString(strings.TrimRight(strings.Join(cells, "  "), " "))
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func statusStyle(r *lipgloss.Renderer, status string) lipgloss.Style {
	switch status {
	case "found", "ok":
		return r.NewStyle().Foreground(lipgloss.Color("2"))
	case "failed", "error":
		return r.NewStyle().Foreground(lipgloss.Color("1"))
	case "absent":
		return r.NewStyle().Foreground(lipgloss.Color("3"))
	default:
		return r.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

// Truncate shortens value to at most width display cells.
func Truncate(value string, width int) string {
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
