package tui

import (
	"bytes"
	"testing"

	"github.com/octandevelopment/mvnpub/internal/style"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStyledHelpTemplate(t *testing.T) {
	defer style.Init(true)

	style.Init(false)
	assert.Empty(t, StyledHelpTemplate(), "plain output keeps the cobra default")

	style.Init(true)
	tmpl := StyledHelpTemplate()
	require.NotEmpty(t, tmpl)

	root := &cobra.Command{Use: "mvnpub"}
	root.AddCommand(&cobra.Command{Use: "publish", Short: "Upload the release", Run: func(*cobra.Command, []string) {}})
	root.PersistentFlags().Bool("verbose", false, "Enable verbose logging")
	root.SetUsageTemplate(tmpl)

	var out bytes.Buffer
	root.SetOut(&out)
	require.NoError(t, root.Usage())

	assert.Contains(t, out.String(), "publish")
	assert.Contains(t, out.String(), "Upload the release")
	assert.Contains(t, out.String(), "--verbose")
}
