package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ersinkoc/webruntime/pkg/cmd"
	"github.com/ersinkoc/webruntime/pkg/webruntime"
)

var runCommand = &cobra.Command{
	Use:   "run <path>",
	Short: "Load and execute a module already present in the VFS snapshot",
	Args:  cobra.ExactArgs(1),
	Run:   cmd.Mainify(runMain),
}

func init() {
	addPersistentFlags(runCommand.Flags())
}

func runMain(command *cobra.Command, arguments []string) error {
	rt, err := buildRuntime()
	if err != nil {
		return err
	}

	result, err := rt.RunFile(arguments[0])
	if err != nil {
		return err
	}

	printExecuteResult(result)
	return saveSnapshot(rt.VFS)
}

// printExecuteResult renders a module's exports (as JSON when possible)
// and any console activity its load produced, shared by run/exec.
func printExecuteResult(result webruntime.ExecuteResult) {
	if encoded, err := json.MarshalIndent(result.Exports, "", "  "); err == nil {
		fmt.Println(string(encoded))
	} else {
		fmt.Printf("%v\n", result.Exports)
	}
	for _, entry := range result.Console {
		fmt.Printf("console.%s: %v\n", entry.Level, entry.Args)
	}
}
