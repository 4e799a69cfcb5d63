package main

import (
	"os"

	"github.com/jay060412/stepcode/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
