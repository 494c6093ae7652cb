package command

import (
	"bytes"
	"context"
	"path/filepath"

	"github.com/MakeNowJust/heredoc"
	"github.com/octandevelopment/mvnpub/cmd/cmdutils"
	"github.com/octandevelopment/mvnpub/config"
	"github.com/octandevelopment/mvnpub/internal/tui"
	"github.com/octandevelopment/mvnpub/module/publish"
	"github.com/octandevelopment/mvnpub/util/common/fileutil"
	"github.com/octandevelopment/mvnpub/util/common/progress"

	"github.com/spf13/cobra"
)

func NewAssembleCmd(f *cmdutils.Factory) *cobra.Command {
	var sign bool
	cmd := &cobra.Command{
		Use:   "assemble",
		Short: "Assemble the release archives into a directory",
		Long: heredoc.Doc(`
			Build and package the binary, sources and javadoc archives and the POM
			into the output directory without uploading anything. With --sign a
			detached .asc signature is written next to every file.
		`),
		Example: heredoc.Doc(`
			$ mvnpub assemble --output-dir build/release --sign
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.Config()
			if err != nil {
				return err
			}

			builder := f.Assembler(cfg)
			p := &publish.Publisher{
				Builder:  builder,
				Reporter: f.Reporter(),
			}
			if sign {
				secrets, err := f.Secrets(cfg)
				if err != nil {
					return err
				}
				key, err := f.SigningKey(secrets)
				if err != nil {
					return err
				}
				p.Signer = &publish.Signer{Key: key}
			}

			coords := cmdutils.Coordinates(cfg)
			var set *publish.ArtifactSet
			if f.Interactive() {
				// Build output is only shown when the build fails.
				var buildLog bytes.Buffer
				builder.Runner = publish.ExecRunner{Stdout: &buildLog, Stderr: &buildLog}
				p.Reporter = progress.NewNopReporter()
				set, err = tui.RunWithSpinner(cmd.Context(), f.ErrOut, "Assembling "+coords.String(),
					func(ctx context.Context) (*publish.ArtifactSet, error) {
						return p.Assemble(ctx, coords)
					})
				if err != nil && buildLog.Len() > 0 {
					f.ErrOut.Write(buildLog.Bytes())
				}
			} else {
				set, err = p.Assemble(cmd.Context(), coords)
			}
			if err != nil {
				return err
			}

			outDir := cfg.Resolve(cfg.Publish.OutputDir)
			if err := fileutil.ResetDir(outDir); err != nil {
				return err
			}
			written, err := set.WriteTo(outDir)
			if err != nil {
				return err
			}
			if sign {
				signed, err := p.Sign(cmd.Context(), set)
				if err != nil {
					return err
				}
				sigs, err := signed.WriteSignatures(outDir)
				if err != nil {
					return err
				}
				written = append(written, sigs...)
			}

			return printFiles(f.Out, outDir, written, config.Global.Format)
		},
	}

	addOverrideFlags(cmd)
	cmd.Flags().StringVarP(&config.Global.Publish.OutputDir, "output-dir", "o", "",
		"Directory to write the archives to (overrides publish.outputDir)")
	cmd.Flags().BoolVar(&sign, "sign", false, "Sign every archive")
	return cmd
}

func relPath(dir, p string) string {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return p
	}
	return filepath.ToSlash(rel)
}
