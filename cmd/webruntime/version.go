package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ersinkoc/webruntime/pkg/buildinfo"
	"github.com/ersinkoc/webruntime/pkg/cmd"
)

func printVersion() {
	fmt.Println(buildinfo.Version)
}

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cmd.DisallowArguments,
	Run: cmd.Mainify(func(command *cobra.Command, arguments []string) error {
		printVersion()
		return nil
	}),
}
