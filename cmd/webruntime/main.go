// Command webruntime is a host-side harness around the execution
// substrate: it builds a Runtime, lets a caller populate its in-memory
// VFS, run CommonJS/JSON modules against it, and persist/restore the
// tree as a snapshot file. It has no script engine of its own (spec §1:
// sandbox executors are external collaborators), so loading a `.js` file
// reports NotSupported; `.json` modules and VFS inspection work
// standalone.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ersinkoc/webruntime/pkg/cmd"
)

var rootCommand = &cobra.Command{
	Use:   "webruntime",
	Short: "webruntime inspects and drives the in-browser Node-shaped execution substrate",
	Run:   cmd.Mainify(rootMain),
}

var rootConfiguration struct {
	help    bool
	version bool
}

func rootMain(command *cobra.Command, arguments []string) error {
	if rootConfiguration.version {
		printVersion()
		return nil
	}
	return command.Help()
}

func init() {
	flags := rootCommand.Flags()
	flags.BoolVarP(&rootConfiguration.help, "help", "h", false, "Show help information")
	flags.BoolVarP(&rootConfiguration.version, "version", "V", false, "Show version information")

	cobra.EnableCommandSorting = false

	rootCommand.AddCommand(
		runCommand,
		requireCommand,
		execCommand,
		vfsCommand,
		envCommand,
		versionCommand,
	)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		os.Exit(1)
	}
}
