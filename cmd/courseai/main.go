// Command courseai is the entry point for the course materials assistant.
// It provides a CLI interface (via Cobra) and an HTTP server exposing the
// retrieval-augmented question answering API.
package main

import (
	"fmt"
	"os"

	"github.com/courseai/courseai-go/cmd/courseai/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
