package main

import (
	"os"

	"github.com/overshare-io/overshare/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
