// Command polyplay manages a local audio library from the command line.
package main

import (
	"os"

	"github.com/polyplayapp/polyplay/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
