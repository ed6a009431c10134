package main

import (
	"os"

	"github.com/ashita-ai/quill/cmd/quill/commands"
)

// Version information, set at build time via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	// Errors are already printed by the commands.
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
