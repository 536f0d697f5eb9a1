package main

import (
	"os"

	"github.com/mverdeau/geodispatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
