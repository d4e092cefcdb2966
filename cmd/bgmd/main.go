package main

import (
	"fmt"
	"os"

	"github.com/bgmd/bgmd/cmd"
)

func main() {
	if err := cmd.Execute(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
