package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/octandevelopment/mvnpub/cmd/cmdutils"
	"github.com/octandevelopment/mvnpub/cmd/release"
	"github.com/octandevelopment/mvnpub/config"
	pconfig "github.com/octandevelopment/mvnpub/internal/config"
	"github.com/octandevelopment/mvnpub/internal/style"
	"github.com/octandevelopment/mvnpub/internal/terminal"
	"github.com/octandevelopment/mvnpub/internal/tui"
	"github.com/octandevelopment/mvnpub/util/common/errors"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// version is set via ldflags during build
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit code.
// SIGINT and SIGTERM cancel the context; a publish in flight then rolls back.
func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var noColor bool
	factory := cmdutils.NewFactory()
	factory.Out = stdout
	factory.ErrOut = stderr

	rootCmd := newRootCmd(factory, &noColor)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if perr := stopProfiling(); perr != nil && err == nil {
		err = perr
	}
	if err == nil {
		return 0
	}

	termInfo := terminal.Detect(noColor, false)
	style.Init(termInfo.ColorEnabled)
	fmt.Fprintln(stderr, style.Failure("Error", err.Error()))
	if hint := hintFor(errors.KindOf(err)); hint != "" {
		fmt.Fprintln(stderr, style.Hint(hint))
	}
	return errors.ExitCode(err)
}

func newRootCmd(factory *cmdutils.Factory, noColor *bool) *cobra.Command {
	var (
		verbose  bool
		jsonFlag bool
	)

	rootCmd := &cobra.Command{
		Use:           "mvnpub",
		Short:         "Assemble, sign and publish Java libraries to Maven repositories",
		SilenceUsage:  true,
		SilenceErrors: true, //errors are rendered once by run
		Long: heredoc.Doc(`
			mvnpub packages a compiled Java library into its binary, sources and
			javadoc archives, signs each of them with an OpenPGP key and uploads
			the bundle to a Maven repository.

			Project settings live in mvnpub.yaml (or mvnpub.toml). Credentials and
			signing passphrases are read from MVNPUB_* environment variables or
			from gradle.properties, never from the project file.
		`),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			termInfo := terminal.Detect(*noColor, jsonFlag)
			style.Init(termInfo.ColorEnabled)

			// Override format to JSON when --json is explicitly passed
			if termInfo.ForceJSON {
				config.Global.Format = "json"
			}
			switch config.Global.Format {
			case "table", "json":
			default:
				return errors.NewValidationError("format", fmt.Sprintf("unsupported format %q, must be table or json", config.Global.Format))
			}

			if verbose {
				logWriter := zerolog.ConsoleWriter{
					Out:        os.Stderr,
					TimeFormat: time.RFC3339,
					NoColor:    !termInfo.ColorEnabled,
				}
				log.Logger = log.Output(logWriter)
			} else {
				// Disable logging when verbose is not enabled
				log.Logger = zerolog.Nop()
			}

			return startProfiling()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&config.Global.ConfigPath, "config", "c", "",
		fmt.Sprintf("Project file (default: first of %v in the working directory)", pconfig.FileNames))
	flags.StringVar(&config.Global.Format, "format", "table", "Format of the result (table or json)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging to console")
	flags.BoolVar(noColor, "no-color", false, "Disable colour output (also respects NO_COLOR env)")
	flags.BoolVar(&jsonFlag, "json", false, "Output results as JSON (equivalent to --format=json)")
	addProfilingFlags(flags)

	rootCmd.AddCommand(release.GetCommands(factory)...)
	rootCmd.AddCommand(versionCmd())

	// --help skips PersistentPreRunE, so colour is decided from the
	// environment here.
	style.Init(terminal.Detect(false, false).ColorEnabled)
	if tmpl := tui.StyledHelpTemplate(); tmpl != "" {
		rootCmd.SetUsageTemplate(tmpl)
	}
	return rootCmd
}

// hintFor suggests the next step after a failure of kind.
func hintFor(kind errors.Kind) string {
	switch kind {
	case errors.KindConfig:
		return "Check mvnpub.yaml; run 'mvnpub --help' for usage."
	case errors.KindBuild:
		return "Run build.command yourself to see the compiler output, or pass --skip-build."
	case errors.KindSigning:
		return fmt.Sprintf("Set signing.keyFile or %s, and %s for encrypted keys.",
			pconfig.EnvSigningKey, pconfig.EnvSigningPassword)
	case errors.KindAuth:
		return fmt.Sprintf("Set %s/%s or <repository>Username/<repository>Password in gradle.properties.",
			pconfig.EnvUsername, pconfig.EnvPassword)
	case errors.KindConflict:
		return "Released versions are immutable; bump project.version."
	case errors.KindNetwork:
		return "Files uploaded by this run were removed; it is safe to retry."
	case errors.KindCanceled:
		return "Interrupted; files uploaded by this run were removed."
	default:
		return ""
	}
}

// versionCmd returns the version command
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of mvnpub",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mvnpub version %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "Built with %s\n", runtime.Version())
		},
	}
}
