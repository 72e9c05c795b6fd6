package main

import (
	"os"

	"github.com/fyerfyer/campusdoc-tutor/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
