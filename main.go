package main

import (
	"os"

	"github.com/ast0815/likelihood-machine/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
