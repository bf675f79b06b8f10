package main

import (
	"os"

	"github.com/hmctl/hmdispatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
