package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/ersinkoc/webruntime/pkg/rterror"
)

// Warning prints a warning message to standard error.
func Warning(message string) {
	fmt.Fprintln(color.Error, color.YellowString("Warning:"), message)
}

// Error prints an error message to standard error, including the
// runtime's tagged kind/context/hint when err is an *rterror.Error.
func Error(err error) {
	if rtErr, ok := err.(*rterror.Error); ok {
		fmt.Fprintln(os.Stderr, color.RedString("Error:"), rtErr.Error())
		if hint := rtErr.Hint; hint != "" {
			fmt.Fprintln(os.Stderr, color.CyanString("Hint:"), hint)
		}
		return
	}
	fmt.Fprintln(os.Stderr, color.RedString("Error:"), err)
}

// Fatal prints an error message to standard error and terminates the
// process with an error exit code.
func Fatal(err error) {
	Error(err)
	os.Exit(1)
}
