// Command kibitz is a terminal front-end for UCI chess engines.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/kibitz/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Commands report their own failures through the formatter; only
		// usage errors reach here unprinted.
		if _, ok := err.(*cli.ExitError); !ok {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
