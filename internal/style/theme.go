// Package style defines the visual theme for mvnpub output.
//
// Call Init(colorEnabled) once at startup. After that, use the exported
// styles and helper functions freely.
package style

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// ─── Colour palette ──────────────────────────────────────────────────────────

var (
	Blue   = lipgloss.Color("#0078D4")
	Cyan   = lipgloss.Color("#00B4D8")
	Indigo = lipgloss.Color("#6366F1")

	Green  = lipgloss.Color("#22C55E")
	Yellow = lipgloss.Color("#FACC15")
	Red    = lipgloss.Color("#EF4444")

	Dim    = lipgloss.Color("#6B7280")
	Subtle = lipgloss.Color("#374151")
)

// ─── Text styles ─────────────────────────────────────────────────────────────

var (
	// Title is used for the receipt heading.
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Blue)

	Success = lipgloss.NewStyle().
		Foreground(Green).
		Bold(true)

	Warning = lipgloss.NewStyle().
		Foreground(Yellow)

	Error = lipgloss.NewStyle().
		Foreground(Red).
		Bold(true)

	// DimText is used for hints and secondary info.
	DimText = lipgloss.NewStyle().
		Foreground(Dim)

	// Code style for coordinates, paths and key ids.
	Code = lipgloss.NewStyle().
		Foreground(Indigo)

	// TableCell pads every cell of a styled table.
	TableCell = lipgloss.NewStyle().
			Padding(0, 1)

	TableHeader = TableCell.
			Bold(true).
			Foreground(Cyan)
)

// Enabled tracks whether styles should render ANSI output.
var Enabled = true

// Init configures the style package. Call once at startup.
func Init(colorEnabled bool) {
	Enabled = colorEnabled
	if !colorEnabled {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

func SuccessIcon() string {
	if Enabled {
		return Success.Render("✓")
	}
	return "OK"
}

func ErrorIcon() string {
	if Enabled {
		return Error.Render("✗")
	}
	return "ERROR"
}

func WarningIcon() string {
	if Enabled {
		return Warning.Render("!")
	}
	return "WARN"
}

// Hint renders a "next step" hint message.
func Hint(msg string) string {
	return DimText.Render("→ " + msg)
}

// Failure renders a terminal error line prefixed with the failure kind.
func Failure(kind, msg string) string {
	if !Enabled {
		return kind + ": " + msg
	}
	return Error.Render(kind+":") + " " + msg
}
