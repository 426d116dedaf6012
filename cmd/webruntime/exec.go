package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ersinkoc/webruntime/pkg/cmd"
)

var execConfiguration struct {
	filename string
}

var execCommand = &cobra.Command{
	Use:   "exec [code]",
	Short: "Execute source code directly (positional argument, or stdin if omitted)",
	Args:  cobra.MaximumNArgs(1),
	Run:   cmd.Mainify(execMain),
}

func init() {
	addPersistentFlags(execCommand.Flags())
	execCommand.Flags().StringVar(&execConfiguration.filename, "filename", "", "Virtual filename to write the code to before requiring it")
}

func execMain(command *cobra.Command, arguments []string) error {
	var code string
	if len(arguments) == 1 {
		code = arguments[0]
	} else {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		code = string(data)
	}

	rt, err := buildRuntime()
	if err != nil {
		return err
	}

	result, err := rt.Execute(code, execConfiguration.filename)
	if err != nil {
		return err
	}

	printExecuteResult(result)
	return saveSnapshot(rt.VFS)
}
