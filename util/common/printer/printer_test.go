package printer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/octandevelopment/mvnpub/internal/style"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
	Note string `json:"note,omitempty"`
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultPrintOptions("json")
	opts.Writer = &buf

	require.NoError(t, PrintWithOptions([]row{{Path: "a.jar", Size: 3}}, opts))
	assert.JSONEq(t, `[{"path":"a.jar","size":3}]`, buf.String())
}

func TestPrintTable(t *testing.T) {
	tests := []struct {
		name    string
		color   bool
		columns ColumnMapping
		want    []string
		notWant []string
	}{
		{
			name: "plain with mapping",
			columns: ColumnMapping{
				{Field: "path", Title: "File"},
				{Field: "size", Title: "Size", Right: true},
				{Field: "note", Title: "Note"},
			},
			want:    []string{"File", "a.jar", "a.pom", "1234567", "-"},
			notWant: []string{"e+06", "path"},
		},
		{
			name:    "plain without mapping",
			want:    []string{"path", "size", "a.jar"},
			notWant: []string{"File"},
		},
		{
			name:  "styled",
			color: true,
			columns: ColumnMapping{
				{Field: "path", Title: "File", Color: func(string) lipgloss.TerminalColor { return style.Green }},
				{Field: "size", Title: "Size", Right: true},
			},
			want: []string{"File", "a.jar", "1234567"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			style.Init(tt.color)
			defer style.Init(true)

			var buf bytes.Buffer
			opts := DefaultPrintOptions("table")
			opts.Writer = &buf
			opts.Columns = tt.columns
			require.NoError(t, PrintWithOptions([]row{{Path: "a.jar", Size: 1234567}, {Path: "a.pom", Size: 1}}, opts))

			out := buf.String()
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
			for _, w := range tt.notWant {
				assert.NotContains(t, out, w)
			}
		})
	}
}

func TestPrintTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultPrintOptions("table")
	opts.Writer = &buf
	require.NoError(t, PrintWithOptions([]row{}, opts))
	assert.Empty(t, buf.String())
}

func TestPrintTableRejectsScalars(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultPrintOptions("table")
	opts.Writer = &buf
	err := PrintWithOptions("not a list", opts)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "list of objects"))
}
