package main

import (
	"os"

	"github.com/ashureev/socratic-labs/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
