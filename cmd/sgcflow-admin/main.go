// Package main provides the administrative command line for process seeding
// and the deadline sweep.
package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "sgcflow-admin",
		Usage:                 "Administrative operations for the competency-mapping workflow",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			NewSeedCommand(),
			NewSweepCommand(),
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
