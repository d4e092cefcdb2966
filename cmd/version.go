package cmd

import (
	"fmt"

	"github.com/urfave/cli"
)

// version is overridden at build time via -ldflags.
var version = "dev"

func printVersion(c *cli.Context) error {
	fmt.Printf("bgmd %s\n", version)
	return nil
}
