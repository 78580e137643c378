// Main entry point for the go-space service
package main

import (
	"os"

	"go-space/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
