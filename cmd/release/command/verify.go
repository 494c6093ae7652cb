package command

import (
	"fmt"

	"github.com/MakeNowJust/heredoc"
	"github.com/charmbracelet/lipgloss"
	"github.com/octandevelopment/mvnpub/cmd/cmdutils"
	"github.com/octandevelopment/mvnpub/config"
	"github.com/octandevelopment/mvnpub/internal/style"
	"github.com/octandevelopment/mvnpub/module/publish"
	"github.com/octandevelopment/mvnpub/util/common/printer"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/openpgp"
)

func NewVerifyCmd(f *cmdutils.Factory) *cobra.Command {
	var keyring string
	cmd := &cobra.Command{
		Use:   "verify <dir>",
		Short: "Verify the signatures of a release directory",
		Long: heredoc.Doc(`
			Check that every file in <dir> has a detached .asc signature that
			verifies against the public keyring. Without --keyring the configured
			signing key is used.
		`),
		Example: heredoc.Doc(`
			$ mvnpub verify build/release --keyring pubring.asc
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ring openpgp.EntityList
			if keyring != "" {
				var err error
				ring, err = publish.ReadPublicKeyRing(keyring)
				if err != nil {
					return err
				}
			} else {
				cfg, err := f.Config()
				if err != nil {
					return err
				}
				secrets, err := f.Secrets(cfg)
				if err != nil {
					return err
				}
				key, err := f.SigningKey(secrets)
				if err != nil {
					return err
				}
				ring = key.PublicKeyRing()
			}

			results, verr := publish.VerifyDir(args[0], ring)
			if len(results) > 0 {
				opts := printer.DefaultPrintOptions(config.Global.Format)
				opts.Writer = f.Out
				opts.Columns = verifyColumns
				if err := printer.PrintWithOptions(results, opts); err != nil {
					return err
				}
				if msg := unsignedSummary(results); msg != "" {
					fmt.Fprintln(f.ErrOut, msg)
				}
			}
			return verr
		},
	}

	cmd.Flags().StringVar(&keyring, "keyring", "", "Public keyring to verify against")
	return cmd
}

var verifyColumns = printer.ColumnMapping{
	{Field: "file", Title: "File"},
	{Field: "status", Title: "Status", Color: statusColor},
	{Field: "keyId", Title: "Key"},
	{Field: "detail", Title: "Detail"},
}

func statusColor(status string) lipgloss.TerminalColor {
	switch status {
	case publish.VerifyOK:
		return style.Green
	case publish.VerifyBad:
		return style.Red
	default:
		return style.Yellow
	}
}

// unsignedSummary warns about files that have no signature or signatures
// without their file. Bad signatures are reported by the returned error.
func unsignedSummary(results []publish.Verification) string {
	var unsigned, orphan int
	for _, r := range results {
		switch r.Status {
		case publish.VerifyUnsigned:
			unsigned++
		case publish.VerifyOrphan:
			orphan++
		}
	}
	if unsigned == 0 && orphan == 0 {
		return ""
	}
	return fmt.Sprintf("%s %d unsigned, %d signatures without a file", style.WarningIcon(), unsigned, orphan)
}
