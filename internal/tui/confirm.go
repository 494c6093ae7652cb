package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/huh"
	"github.com/octandevelopment/mvnpub/internal/style"
)

// ConfirmPublish asks before a release is uploaded. Released versions cannot
// be replaced, so the default answer is no.
func ConfirmPublish(w io.Writer, coordinates, repository, url string) (bool, error) {
	var confirmed bool

	fmt.Fprintln(w, style.Warning.Render(fmt.Sprintf(
		"You are about to publish %s to %s",
		style.Code.Render(coordinates),
		style.Code.Render(repository),
	)))
	fmt.Fprintln(w)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Publish %s?", coordinates)).
				Description(url+"\nA released version cannot be overwritten.").
				Affirmative("Yes, publish").
				Negative("No, cancel").
				Value(&confirmed),
		),
	).WithOutput(w)

	if err := form.Run(); err != nil {
		return false, err
	}
	return confirmed, nil
}
