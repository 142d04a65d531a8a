package main

import (
	"fmt"
	"os"

	"github.com/foremanhq/foreman/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "foreman: %v\n", err)
		os.Exit(1)
	}
}
