// cmd/gtd/main.go
//
// Entry point for the gtd CLI. Run `gtd board` inside a vault for the
// interactive board, or any other subcommand for one-shot edits.

package main

import (
	"fmt"
	"os"

	"github.com/kingrea/gtdvault/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
