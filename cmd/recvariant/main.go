// Package main provides the recvariant CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/recvariant/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
