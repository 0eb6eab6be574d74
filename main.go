package main

import (
	"os"

	"github.com/fragmede/shopterm/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
