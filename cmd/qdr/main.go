package main

import (
	"os"

	"github.com/aristath/qdr/cmd/qdr/commands"
)

// main is the entry point for the qdr CLI
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
