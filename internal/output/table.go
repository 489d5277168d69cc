package output

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	tableBorderStyle = lipgloss.NewStyle().Foreground(colorDimGray)
	tableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(colorBlue)
)

// Table accumulates rows and renders them with lipgloss.
type Table struct {
	headers []string
	rows    [][]string
	limits  map[int]int
}

// NewTable creates a table with the given column headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers, limits: map[int]int{}}
}

// Row appends a row. Missing trailing cells render empty.
func (t *Table) Row(cells ...string) *Table {
	t.rows = append(t.rows, cells)
	return t
}

// Limit truncates cells of column col to width runes, ending them with "...".
func (t *Table) Limit(col, width int) *Table {
	t.limits[col] = width
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

func (t *Table) String() string {
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(tableBorderStyle).
		Headers(t.headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return lipgloss.NewStyle()
		})

	for _, row := range t.rows {
		cells := make([]string, len(t.headers))
		copy(cells, row)
		for col, width := range t.limits {
			if col < len(cells) {
				cells[col] = truncate(cells[col], width)
			}
		}
		tbl.Row(cells...)
	}
	return tbl.String()
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 3 || len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}
