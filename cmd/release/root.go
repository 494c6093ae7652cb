package release

import (
	"github.com/octandevelopment/mvnpub/cmd/cmdutils"
	"github.com/octandevelopment/mvnpub/cmd/release/command"

	"github.com/spf13/cobra"
)

// GetCommands returns the release commands, registered at the top level.
func GetCommands(f *cmdutils.Factory) []*cobra.Command {
	return []*cobra.Command{
		command.NewPublishCmd(f),
		command.NewAssembleCmd(f),
		command.NewVerifyCmd(f),
	}
}
