package main

import (
	"os"

	"github.com/freadom/readrec/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
