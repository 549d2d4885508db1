package main

import (
	"os"

	"github.com/wonny/kassandra/cmd/kassandra/commands"
)

// main is the entry point for the Kassandra CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/kassandra [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
