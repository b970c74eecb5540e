package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// column is one table column with a fixed alignment.
type column struct {
	title string
	right bool
}

// renderTable prints rows with columns padded to their widest cell. Cells
// are padded by display width so wide runes in descriptions and category
// names line up.
func renderTable(w io.Writer, columns []column, rows [][]string) {
	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = runewidth.StringWidth(c.title)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], runewidth.StringWidth(cell))
			}
		}
	}

	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = pad(c.title, widths[i], c.right)
	}
	_, _ = fmt.Fprintln(w, dimStyle.Render(strings.TrimRight(strings.Join(header, "  "), " ")))

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = pad(cell, widths[i], columns[i].right)
		}
		_, _ = fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, "  "), " "))
	}
}

func pad(s string, width int, right bool) string {
	if right {
		return runewidth.FillLeft(s, width)
	}
	return runewidth.FillRight(s, width)
}

// bar renders a proportional bar for a 0..1 weight, sized to the terminal.
func bar(weight float64) string {
	total := 20
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 100 {
		total = 40
	}
	filled := int(weight*float64(total) + 0.5)
	if filled > total {
		filled = total
	}
	return strings.Repeat("█", filled) + dimStyle.Render(strings.Repeat("░", total-filled))
}
