// Command soltest runs Solidity self-tests against an Ethereum chain.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/soltest/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
