package style

import (
	"regexp"
	"strings"
)

// Alignment controls how cell text is placed within a column.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
	AlignCenter
)

// Column describes one table column.
type Column struct {
	Name  string
	Width int
	Align Alignment
}

// Table renders rows of styled text in fixed-width columns.
// Cell values may contain ANSI escapes; widths are computed on the
// stripped text so styling doesn't skew the layout.
type Table struct {
	columns   []Column
	rows      [][]string
	headerSep bool
	indent    string
}

// NewTable creates a table with the given columns.
func NewTable(columns ...Column) *Table {
	return &Table{
		columns:   columns,
		headerSep: true,
		indent:    "  ",
	}
}

// SetIndent sets the prefix for every rendered line.
func (t *Table) SetIndent(indent string) *Table {
	t.indent = indent
	return t
}

// SetHeaderSeparator toggles the line under the header row.
func (t *Table) SetHeaderSeparator(on bool) *Table {
	t.headerSep = on
	return t
}

// AddRow appends a row. Short rows are padded with empty cells,
// extra values beyond the column count are dropped.
func (t *Table) AddRow(values ...string) *Table {
	row := make([]string, len(t.columns))
	for i := range t.columns {
		if i < len(values) {
			row[i] = values[i]
		}
	}
	t.rows = append(t.rows, row)
	return t
}

const columnGap = "  "

// Render returns the table as a string, one line per row plus header.
func (t *Table) Render() string {
	if len(t.columns) == 0 {
		return ""
	}

	var b strings.Builder

	// Header
	b.WriteString(t.indent)
	for i, col := range t.columns {
		if i > 0 {
			b.WriteString(columnGap)
		}
		b.WriteString(t.pad(Bold.Render(col.Name), col.Name, col.Width, col.Align))
	}
	b.WriteString("\n")

	if t.headerSep {
		total := len(columnGap) * (len(t.columns) - 1)
		for _, col := range t.columns {
			total += col.Width
		}
		b.WriteString(t.indent)
		b.WriteString(Dim.Render(strings.Repeat("─", total)))
		b.WriteString("\n")
	}

	for _, row := range t.rows {
		b.WriteString(t.indent)
		for i, col := range t.columns {
			if i > 0 {
				b.WriteString(columnGap)
			}
			cell := row[i]
			plain := stripAnsi(cell)
			if len(plain) > col.Width {
				// Truncating styled text would split escape sequences,
				// so overlong cells render unstyled.
				if col.Width > 3 {
					plain = plain[:col.Width-3] + "..."
				} else {
					plain = plain[:col.Width]
				}
				cell = plain
			}
			b.WriteString(t.pad(cell, plain, col.Width, col.Align))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// pad places styled text in a field of the given width, measuring on the
// plain (ANSI-stripped) text. Text at or over width is returned unchanged.
func (t *Table) pad(styled, plain string, width int, align Alignment) string {
	padding := width - len(plain)
	if padding <= 0 {
		return styled
	}
	switch align {
	case AlignRight:
		return strings.Repeat(" ", padding) + styled
	case AlignCenter:
		left := padding / 2
		return strings.Repeat(" ", left) + styled + strings.Repeat(" ", padding-left)
	default:
		return styled + strings.Repeat(" ", padding)
	}
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// stripAnsi removes ANSI escape sequences for width calculations.
func stripAnsi(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}
