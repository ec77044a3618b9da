// Package main is the rhsctl command itself.
package main

import (
	"fmt"
	"os"

	"go.viam.com/rhsrobot/cli"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		//nolint:errcheck
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
