package main

import (
	"os"

	"github.com/doglog/doglog/cmd/doglog/cmd"
)

func main() {
	if err := cmd.RootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
