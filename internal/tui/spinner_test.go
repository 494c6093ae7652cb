package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/octandevelopment/mvnpub/internal/style"

	"github.com/stretchr/testify/assert"
)

func TestSpinnerModel(t *testing.T) {
	style.Init(false)
	defer style.Init(true)

	canceled := false
	m := newSpinnerModel("Assembling", func() error { return nil }, func() { canceled = true })
	assert.Contains(t, m.View(), "Assembling...")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, canceled)
	assert.Nil(t, cmd, "ctrl+c waits for the operation to stop")
	assert.False(t, next.(spinnerModel).done)

	next, cmd = next.Update(spinnerDoneMsg{err: errors.New("boom")})
	final := next.(spinnerModel)
	assert.NotNil(t, cmd)
	assert.True(t, final.done)
	assert.EqualError(t, final.err, "boom")
	assert.Equal(t, "ERROR Assembling\n", final.View())

	next, _ = m.Update(spinnerDoneMsg{})
	assert.Equal(t, "OK Assembling\n", next.View())
}
