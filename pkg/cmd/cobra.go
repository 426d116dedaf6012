// Package cmd holds small Cobra helpers shared across the webruntime CLI's
// subcommands, grounded on the teacher's root-level cmd package
// (cmd/cobra.go, cmd/arguments.go, cmd/error.go in mutagen-io/mutagen).
package cmd

import (
	"github.com/spf13/cobra"
)

// Mainify wraps a Cobra entry point that returns an error into the
// standard void-returning Run signature Cobra expects, so that
// subcommands can report failure through a normal return instead of
// calling os.Exit deep inside business logic (which would skip any
// deferred cleanup).
func Mainify(entry func(*cobra.Command, []string) error) func(*cobra.Command, []string) {
	return func(command *cobra.Command, arguments []string) {
		if err := entry(command, arguments); err != nil {
			Fatal(err)
		}
	}
}
