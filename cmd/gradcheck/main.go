// Package main provides the gradcheck CLI, which cross-checks autodiff
// gradients against central finite differences.
package main

import (
	"fmt"
	"os"
)

const version = "v0.0.1-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
