package progress

import (
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/octandevelopment/mvnpub/internal/style"
	"github.com/octandevelopment/mvnpub/util/common"
)

var (
	startStyle   = lipgloss.NewStyle().Bold(true).Foreground(style.Cyan)
	stepStyle    = lipgloss.NewStyle().Foreground(style.Dim).PaddingLeft(2)
	failureStyle = lipgloss.NewStyle().Foreground(style.Red).Bold(true).PaddingLeft(2)
	successStyle = lipgloss.NewStyle().Foreground(style.Green).Bold(true).PaddingLeft(2)
)

var styledTheme = theme{
	start:   func(m string) string { return startStyle.Render("⚡ " + m) },
	step:    func(m string) string { return stepStyle.Render("→ " + m + "...") },
	success: func(m string) string { return successStyle.Render("✓ " + m) },
	failure: func(m string) string { return failureStyle.Render("✗ " + m) },
	elapsed: func(d time.Duration) string {
		return " " + style.DimText.Render("("+common.GetDuration(d)+")")
	},
}

// NewStyledReporter reports lipgloss styled lines to w.
func NewStyledReporter(w io.Writer) *LineReporter {
	return &LineReporter{out: w, theme: styledTheme, now: time.Now}
}

// NewAutoReporter picks the styled reporter when colour is enabled and the
// plain one otherwise.
func NewAutoReporter(w io.Writer) Reporter {
	if style.Enabled {
		return NewStyledReporter(w)
	}
	return NewWriterReporter(w)
}
