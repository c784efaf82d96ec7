package main

import (
	"os"

	"github.com/refmatch/refmatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
