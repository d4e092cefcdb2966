// Package cmd defines the bgmd command-line interface.
package cmd

import (
	"github.com/urfave/cli"
)

// Execute runs the bgmd CLI with the given arguments.
func Execute(args []string) error {
	app := cli.App{
		Name:      "bgmd",
		HelpName:  "bgmd",
		Usage:     "unattended background-music playback daemon",
		Version:   version,
		UsageText: "bgmd <command> [arguments...]",
		Commands: []cli.Command{
			{
				Name:   "run",
				Usage:  "run the playback daemon in the foreground",
				Action: run,
				Flags:  runFlags,
			},
			{
				Name:   "status",
				Usage:  "show playback state, library progress and identity",
				Action: status,
				Flags:  ctlFlags,
			},
			{
				Name:   "sync",
				Usage:  "trigger an immediate configuration check",
				Action: syncCheck,
				Flags:  ctlFlags,
			},
			{
				Name:   "songs",
				Usage:  "list the song library with download states",
				Action: songs,
				Flags:  ctlFlags,
			},
			{
				Name:   "version",
				Usage:  "print the bgmd version",
				Action: printVersion,
			},
		},
	}
	return app.Run(args)
}
