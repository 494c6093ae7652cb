package printer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/octandevelopment/mvnpub/internal/style"
	"github.com/pterm/pterm"
)

// Column selects a JSON field of each row and the heading shown above it.
type Column struct {
	Field string
	Title string
	// Right aligns the column, for sizes and counts.
	Right bool
	// Color picks a foreground for a cell value; nil or a nil result keeps
	// the default. Only used when colour is enabled.
	Color func(value string) lipgloss.TerminalColor
}

// ColumnMapping orders the columns of a table. Empty means every field of
// the first row, sorted by name.
type ColumnMapping []Column

type tableData struct {
	columns ColumnMapping
	rows    [][]string
}

// toTable flattens res, which must marshal to a JSON array of objects.
func toTable(res any, mapping ColumnMapping) (*tableData, error) {
	raw, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal data to JSON: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	// keep integers such as sizes out of float formatting
	dec.UseNumber()
	var objects []map[string]any
	if err := dec.Decode(&objects); err != nil {
		return nil, fmt.Errorf("table output needs a list of objects: %w", err)
	}
	if len(objects) == 0 {
		return nil, nil
	}

	columns := mapping
	if len(columns) == 0 {
		for field := range objects[0] {
			columns = append(columns, Column{Field: field, Title: field})
		}
		sort.Slice(columns, func(i, j int) bool { return columns[i].Field < columns[j].Field })
	}

	t := &tableData{columns: columns}
	for _, obj := range objects {
		row := make([]string, len(columns))
		for i, c := range columns {
			row[i] = cell(obj[c.Field])
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

func cell(v any) string {
	switch v := v.(type) {
	case nil:
		return "-"
	case string:
		if v == "" {
			return "-"
		}
		return v
	default:
		return fmt.Sprint(v)
	}
}

func (t *tableData) titles() []string {
	out := make([]string, len(t.columns))
	for i, c := range t.columns {
		out[i] = c.Title
	}
	return out
}

// renderStyled draws a rounded lipgloss table in the project theme.
func (t *tableData) renderStyled(w io.Writer) error {
	tbl := lgtable.New().
		Headers(t.titles()...).
		Rows(t.rows...).
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(style.Subtle)).
		StyleFunc(func(row, col int) lipgloss.Style {
			c := t.columns[col]
			s := style.TableCell
			if row == lgtable.HeaderRow {
				s = style.TableHeader
			} else if c.Color != nil {
				if color := c.Color(t.rows[row][col]); color != nil {
					s = s.Foreground(color)
				}
			}
			if c.Right {
				s = s.Align(lipgloss.Right)
			}
			return s
		})

	_, err := fmt.Fprintln(w, tbl.Render())
	return err
}

// renderPlain uses pterm's boxed table for pipes and --no-color.
func (t *tableData) renderPlain(w io.Writer) error {
	data := append(pterm.TableData{t.titles()}, t.rows...)
	out, err := pterm.DefaultTable.
		WithHasHeader().
		WithBoxed(true).
		WithData(data).
		Srender()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

// TableOptions provides configuration for table output
type TableOptions struct {
	Columns ColumnMapping
	Writer  io.Writer
}

// PrintTableWithOptions prints res as a table, styled when colour is
// enabled. An empty list prints nothing.
func PrintTableWithOptions(res any, options TableOptions) error {
	t, err := toTable(res, options.Columns)
	if err != nil || t == nil {
		return err
	}
	if options.Writer == nil {
		options.Writer = os.Stdout
	}
	if style.Enabled {
		return t.renderStyled(options.Writer)
	}
	return t.renderPlain(options.Writer)
}
