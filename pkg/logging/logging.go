// Package logging provides the structured-but-lightweight logger used
// throughout the runtime: the kernel and the VFS each take a *Logger (the
// runtime facade hands both the same one); the module loader takes none.
package logging

import (
	"log"
	"os"
)

func init() {
	// Set the global logger to use standard output, matching the rest of the
	// process's console output.
	log.SetOutput(os.Stdout)
}
