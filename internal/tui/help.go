// Package tui holds the interactive pieces of mvnpub: prompts, spinners and
// the styled help output. Callers decide whether the terminal is interactive.
package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/octandevelopment/mvnpub/internal/style"
)

// StyledHelpTemplate returns a Cobra usage template with styled headings,
// or "" to keep Cobra's default when colour is disabled. Only the fixed
// headings are styled; command and flag names stay plain so piped help
// remains readable.
func StyledHelpTemplate() string {
	if !style.Enabled {
		return ""
	}

	heading := lipgloss.NewStyle().Bold(true).Foreground(style.Cyan).Render
	dim := style.DimText.Render

	return heading("Usage") + `:{{if .Runnable}}
  {{.UseLine}}{{end}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}{{if gt (len .Aliases) 0}}

` + heading("Aliases") + `:
  {{.NameAndAliases}}{{end}}{{if .HasExample}}

` + heading("Examples") + `:
{{.Example}}{{end}}{{if .HasAvailableSubCommands}}

` + heading("Commands") + `:{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}

` + heading("Flags") + `:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableInheritedFlags}}

` + heading("Global Flags") + `:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableSubCommands}}

` + dim(`Use "{{.CommandPath}} [command] --help" for more information about a command.`) + `{{end}}
`
}
