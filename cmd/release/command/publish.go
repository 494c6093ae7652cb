package command

import (
	"context"
	"fmt"

	"github.com/MakeNowJust/heredoc"
	"github.com/octandevelopment/mvnpub/cmd/cmdutils"
	"github.com/octandevelopment/mvnpub/config"
	"github.com/octandevelopment/mvnpub/internal/tui"
	"github.com/octandevelopment/mvnpub/module/publish"

	"github.com/spf13/cobra"
)

func NewPublishCmd(f *cmdutils.Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Assemble, sign and upload the release",
		Long: heredoc.Doc(`
			Build the project, package the binary, sources and javadoc archives,
			sign every file with the configured OpenPGP key and upload the bundle
			to the Maven repository named in the project file.

			Uploads are all-or-nothing: if any step fails or the run is
			interrupted, files already uploaded are removed again.
		`),
		Example: heredoc.Doc(`
			# Publish the version from mvnpub.yaml
			$ mvnpub publish

			# Publish a different version to a local repository
			$ mvnpub publish --version-override 2.0.2 --repository-url file:///tmp/m2

			# Do everything except the upload
			$ mvnpub publish --dry-run --format json

			# Skip the confirmation prompt
			$ mvnpub publish --yes
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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
			opts, err := cmdutils.RepositoryOptions(cfg, f.ProgressBars())
			if err != nil {
				return err
			}

			p := &publish.Publisher{
				Builder:        f.Assembler(cfg),
				Signer:         &publish.Signer{Key: key},
				Target:         cmdutils.Target(cfg),
				Credentials:    cmdutils.Credentials(secrets),
				Options:        opts,
				Reporter:       f.Reporter(),
				AllowSnapshots: cfg.Publish.AllowSnapshots,
				DryRun:         config.Global.Publish.DryRun,
			}
			coords := cmdutils.Coordinates(cfg)
			if !p.DryRun && !config.Global.Publish.Yes && f.Interactive() {
				ok, err := tui.ConfirmPublish(f.ErrOut, coords.String(), p.Target.Name, p.Target.URL)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("publish declined: %w", context.Canceled)
				}
			}

			receipt, err := p.Run(cmd.Context(), coords)
			if err != nil {
				return err
			}
			return printReceipt(f.Out, receipt, config.Global.Format)
		},
	}

	addOverrideFlags(cmd)
	cmd.Flags().BoolVar(&config.Global.Publish.DryRun, "dry-run", false,
		"Assemble and sign but do not upload")
	cmd.Flags().StringVar(&config.Global.Publish.RepositoryURL, "repository-url", "",
		"Repository URL (overrides repository.url)")
	cmd.Flags().BoolVarP(&config.Global.Publish.Yes, "yes", "y", false,
		"Do not ask for confirmation before uploading")
	return cmd
}

// addOverrideFlags registers the flags shared by publish and assemble.
func addOverrideFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&config.Global.Publish.Version, "version-override", "",
		"Version to publish (overrides project.version)")
	cmd.Flags().StringVar(&config.Global.Publish.KeyFile, "key-file", "",
		"OpenPGP secret keyring (overrides signing.keyFile)")
	cmd.Flags().BoolVar(&config.Global.Publish.SkipBuild, "skip-build", false,
		"Do not run build.command, package existing output")
}
