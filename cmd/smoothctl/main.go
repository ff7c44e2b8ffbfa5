// Command smoothctl runs the anisotropic smoothing filters over image files
// without the GUI.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
