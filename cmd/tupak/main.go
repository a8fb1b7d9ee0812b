package main

import (
	"os"

	"github.com/tupakrantina/backoffice/cmd/tupak/commands"
)

// main is the entry point for the back-office CLI
// ⭐ single CLI entry point: go run ./cmd/tupak [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
