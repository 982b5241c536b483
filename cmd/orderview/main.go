package main

import (
	"os"

	"github.com/orderview/orderview/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
