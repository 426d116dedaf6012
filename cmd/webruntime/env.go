// env.go implements `webruntime env`: prints the effective kernel
// environment a Runtime would start with, after --dotenv and --config are
// applied, and optionally merges in a block of extra assignments pasted
// via --set or piped on stdin.
package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ersinkoc/webruntime/pkg/cmd"
	"github.com/ersinkoc/webruntime/pkg/environment"
)

var envConfiguration struct {
	set       []string
	fromStdin bool
}

var envCommand = &cobra.Command{
	Use:   "env",
	Short: "Print the effective kernel environment",
	Args:  cobra.NoArgs,
	Run:   cmd.Mainify(envMain),
}

func envMain(command *cobra.Command, _ []string) error {
	rt, err := buildRuntime()
	if err != nil {
		return err
	}

	vars := make(map[string]string, len(rt.Kernel.Config.Env))
	for k, v := range rt.Kernel.Config.Env {
		vars[k] = v
	}

	for k, v := range environment.ToMap(envConfiguration.set) {
		vars[k] = v
	}

	if envConfiguration.fromStdin {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		for k, v := range environment.ToMap(environment.ParseBlock(string(data))) {
			vars[k] = v
		}
	}

	lines := environment.Format(vars)
	sort.Strings(lines)
	for _, line := range lines {
		fmt.Println(line)
	}
	return nil
}

func init() {
	addPersistentFlags(envCommand.PersistentFlags())
	envCommand.Flags().StringArrayVar(&envConfiguration.set, "set", nil, "Additional KEY=value assignment (may be repeated)")
	envCommand.Flags().BoolVar(&envConfiguration.fromStdin, "from-stdin", false, "Merge a KEY=value block read from stdin")
}
