package main

import (
	"os"

	"github.com/solatis/formtrace/cmd/formtrace/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
