package main

import (
	"os"

	"github.com/dan-solli/tempora/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
