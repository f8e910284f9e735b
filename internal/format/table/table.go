// Package table lays out plain-text columns for the non-interactive output
// modes.
package table

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
)

type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
)

// Column describes one column. Max caps the cell width; zero means no cap.
type Column struct {
	Title string
	Align Alignment
	Max   int
}

// Format returns the rows padded according to the widest entry in each
// column. When any column has a title, a header row is emitted first.
// Trailing padding is trimmed from every line.
func Format(rows [][]string, columns []Column) []string {
	if len(rows) == 0 {
		return nil
	}
	all := rows
	if hasTitles(columns) {
		header := make([]string, len(columns))
		for i, col := range columns {
			header[i] = col.Title
		}
		all = append([][]string{header}, rows...)
	}
	colCount := len(columns)
	for _, row := range all {
		if len(row) > colCount {
			colCount = len(row)
		}
	}
	widths := make([]int, colCount)
	for _, row := range all {
		for c, cell := range row {
			cell = clip(cell, columnAt(columns, c).Max)
			if w := lipgloss.Width(cell); w > widths[c] {
				widths[c] = w
			}
		}
	}
	out := make([]string, len(all))
	for i, row := range all {
		var b strings.Builder
		for c, cell := range row {
			col := columnAt(columns, c)
			cell = clip(cell, col.Max)
			if c > 0 {
				b.WriteString("  ")
			}
			pad := widths[c] - lipgloss.Width(cell)
			if pad < 0 {
				pad = 0
			}
			if col.Align == AlignRight {
				b.WriteString(strings.Repeat(" ", pad))
				b.WriteString(cell)
			} else {
				b.WriteString(cell)
				b.WriteString(strings.Repeat(" ", pad))
			}
		}
		out[i] = strings.TrimRight(b.String(), " ")
	}
	return out
}

func hasTitles(columns []Column) bool {
	for _, col := range columns {
		if col.Title != "" {
			return true
		}
	}
	return false
}

func columnAt(columns []Column, i int) Column {
	if i < len(columns) {
		return columns[i]
	}
	return Column{}
}

func clip(cell string, max int) string {
	if max <= 0 || lipgloss.Width(cell) <= max {
		return cell
	}
	return truncate.StringWithTail(cell, uint(max), "…")
}
