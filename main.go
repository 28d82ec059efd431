package main

import (
	"os"

	"github.com/SteakTheStake/bonemeal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
