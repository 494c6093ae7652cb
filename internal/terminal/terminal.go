// Package terminal centralises TTY detection so that commands make
// consistent decisions about colour, prompting and output format.
package terminal

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Info holds the resolved terminal state for the current process.
type Info struct {
	// IsTerminal is true when stdout is connected to a TTY.
	IsTerminal bool
	// StdinIsTerminal is true when stdin can be used for prompts.
	StdinIsTerminal bool
	// ColorEnabled is true when ANSI colours should be emitted.
	ColorEnabled bool
	// ForceJSON is true when --json was explicitly passed.
	ForceJSON bool
}

// Detect inspects the environment and returns a populated Info.
//
//	noColor    – true when --no-color was passed (NO_COLOR env is honoured too)
//	forceJSON  – true when --json was passed
func Detect(noColor, forceJSON bool) Info {
	isTTY := term.IsTerminal(int(os.Stdout.Fd()))
	stdinTTY := term.IsTerminal(int(os.Stdin.Fd()))

	// https://no-color.org/
	envNoColor := os.Getenv("NO_COLOR") != ""

	return Info{
		IsTerminal:      isTTY,
		StdinIsTerminal: stdinTTY,
		ColorEnabled:    isTTY && !noColor && !envNoColor && !IsDumb(),
		ForceJSON:       forceJSON,
	}
}

// IsDumb returns true when the terminal is known to have no capabilities.
func IsDumb() bool {
	t := strings.ToLower(os.Getenv("TERM"))
	return t == "dumb" || t == ""
}

// IsCI returns true when a well-known CI environment variable is set.
func IsCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "JENKINS_URL", "GITLAB_CI", "CIRCLECI", "TRAVIS"}
	for _, v := range ciVars {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}

// ReadSecret prompts on w and reads a line from the terminal on stdin
// without echoing it. It fails when stdin is not a terminal.
func ReadSecret(w io.Writer, prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("cannot prompt for %s: stdin is not a terminal", strings.TrimSuffix(prompt, ": "))
	}
	fmt.Fprint(w, prompt)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(secret), nil
}
