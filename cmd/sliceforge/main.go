// Package main provides the sliceforge CLI tool.
//
// Usage:
//
//	sliceforge [flags] <command> [args]
//
// Commands:
//
//	detect - Detect and refine transient onsets in a recording
//	group  - Group recordings into velocity layers and round-robins
//
// Configuration:
//
//	Analysis parameters can be supplied in a YAML file via --config;
//	command-line flags override file values.
package main

import (
	"fmt"
	"os"

	"github.com/sliceforge/sliceforge/cmd/sliceforge/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
