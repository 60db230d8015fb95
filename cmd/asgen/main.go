// Package main provides the entry point for the asgen CLI.
package main

import (
	"os"

	"github.com/asgen-go/asgen/cmd/asgen/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
