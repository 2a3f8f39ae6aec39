// Command metaborank is the MetaboRank command line interface and server.
package main

import (
	"os"

	"github.com/metaborank/metaborank/internal/interfaces/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
