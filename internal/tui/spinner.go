package tui

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/octandevelopment/mvnpub/internal/style"
)

type spinnerDoneMsg struct {
	err error
}

// spinnerModel shows a spinner while a background operation runs.
type spinnerModel struct {
	spinner spinner.Model
	title   string
	run     func() error
	cancel  context.CancelFunc

	done bool
	err  error
}

func newSpinnerModel(title string, run func() error, cancel context.CancelFunc) spinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(style.Cyan)
	return spinnerModel{spinner: s, title: title, run: run, cancel: cancel}
}

func (m spinnerModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		func() tea.Msg {
			return spinnerDoneMsg{err: m.run()}
		},
	)
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// The terminal is in raw mode, so ctrl+c arrives as a key. Keep
		// spinning until the operation notices the cancellation.
		if msg.Type == tea.KeyCtrlC {
			m.cancel()
		}
	case spinnerDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.done {
		if m.err != nil {
			return fmt.Sprintf("%s %s\n", style.ErrorIcon(), m.title)
		}
		return fmt.Sprintf("%s %s\n", style.SuccessIcon(), m.title)
	}
	return m.spinner.View() + " " + m.title + "...\n"
}

// RunWithSpinner runs fn while drawing a spinner on w. Pressing ctrl+c
// cancels the context passed to fn.
func RunWithSpinner[T any](ctx context.Context, w io.Writer, title string, fn func(ctx context.Context) (T, error)) (T, error) {
	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var result T
	run := func() error {
		var err error
		result, err = fn(opCtx)
		return err
	}

	final, err := tea.NewProgram(newSpinnerModel(title, run, cancel),
		tea.WithContext(ctx), tea.WithOutput(w)).Run()
	if err != nil {
		var zero T
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, err
	}
	if m := final.(spinnerModel); m.err != nil {
		var zero T
		return zero, m.err
	}
	return result, nil
}
