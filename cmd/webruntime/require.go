package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ersinkoc/webruntime/pkg/cmd"
)

var requireCommand = &cobra.Command{
	Use:   "require <specifier>",
	Short: "Resolve and require a module by specifier, as if from the kernel's cwd",
	Args:  cobra.ExactArgs(1),
	Run:   cmd.Mainify(requireMain),
}

func init() {
	addPersistentFlags(requireCommand.Flags())
}

func requireMain(command *cobra.Command, arguments []string) error {
	rt, err := buildRuntime()
	if err != nil {
		return err
	}

	exports, err := rt.Require(arguments[0])
	if err != nil {
		return err
	}

	if encoded, err := json.MarshalIndent(exports, "", "  "); err == nil {
		fmt.Println(string(encoded))
	} else {
		fmt.Printf("%v\n", exports)
	}
	return saveSnapshot(rt.VFS)
}
