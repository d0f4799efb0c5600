package main

import (
	"os"

	"github.com/me/odmimport/internal/cli"
)

func main() {
	root := cli.NewRootCmd()
	root.SetArgs(cli.ExpandAliases(os.Args[1:]))
	if err := root.Execute(); err != nil {
		cli.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}
