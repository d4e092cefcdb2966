package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"

	"github.com/bgmd/bgmd/internal/daemon"
	"github.com/bgmd/bgmd/pkg/logger"
)

var runFlags = []cli.Flag{
	cli.StringFlag{
		Name:   "data-dir, d",
		Usage:  "directory for the database and music library",
		Value:  "bgmd-data",
		EnvVar: "BGMD_DATA_DIR",
	},
	cli.StringFlag{
		Name:   "config-url",
		Usage:  "configuration check_update endpoint",
		EnvVar: "BGMD_CONFIG_URL",
	},
	cli.StringFlag{
		Name:   "collect-url",
		Usage:  "auxiliary collection endpoint (empty disables it)",
		EnvVar: "BGMD_COLLECT_URL",
	},
	cli.StringFlag{
		Name:   "secret",
		Usage:  "API secret sent with configuration requests",
		EnvVar: "BGMD_API_SECRET",
	},
	cli.StringFlag{
		Name:   "socket",
		Usage:  "control socket path (default <data-dir>/bgmd.sock)",
		EnvVar: "BGMD_SOCKET",
	},
	cli.StringFlag{
		Name:   "log-file",
		Usage:  "mirror logs to this file in addition to stderr",
		EnvVar: "BGMD_LOG_FILE",
	},
}

func run(c *cli.Context) error {
	if c.String("config-url") == "" {
		return cli.NewExitError("run: --config-url (or BGMD_CONFIG_URL) is required", 1)
	}

	var l logger.Logger = logger.NewStandardLogger(os.Stderr, "bgmd ")
	if path := c.String("log-file"); path != "" {
		fl, err := logger.NewFileLogger(path)
		if err != nil {
			return cli.NewExitError("run: open log file: "+err.Error(), 1)
		}
		l = logger.NewMultiLogger(l, fl)
	}
	defer l.Close()

	d, err := daemon.New(daemon.Config{
		DataDir:    c.String("data-dir"),
		ConfigURL:  c.String("config-url"),
		CollectURL: c.String("collect-url"),
		Secret:     c.String("secret"),
		SocketPath: c.String("socket"),
	}, nil, l)
	if err != nil {
		return cli.NewExitError("run: "+err.Error(), 1)
	}
	defer d.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := d.Run(ctx); err != nil {
		return cli.NewExitError("run: "+err.Error(), 1)
	}
	return nil
}
