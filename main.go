package main

import (
	"os"

	"github.com/spigell/apply-queue/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
