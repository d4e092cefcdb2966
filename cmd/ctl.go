package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/urfave/cli"

	"github.com/bgmd/bgmd/pkg/ctl"
)

var ctlFlags = []cli.Flag{
	cli.StringFlag{
		Name:   "socket",
		Usage:  "daemon control socket path",
		EnvVar: "BGMD_SOCKET",
	},
	cli.StringFlag{
		Name:   "data-dir, d",
		Usage:  "data directory (used to locate the default socket)",
		Value:  "bgmd-data",
		EnvVar: "BGMD_DATA_DIR",
	},
}

func dialDaemon(c *cli.Context) (*ctl.Client, error) {
	sock := c.String("socket")
	if sock == "" {
		sock = filepath.Join(c.String("data-dir"), "bgmd.sock")
	}
	client, err := ctl.Dial(sock)
	if err != nil {
		return nil, fmt.Errorf("cannot reach daemon at %s: %w (is bgmd running?)", sock, err)
	}
	return client, nil
}

func status(c *cli.Context) error {
	client, err := dialDaemon(c)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	defer client.Close()

	st, err := client.Status(context.Background())
	if err != nil {
		return cli.NewExitError("status: "+err.Error(), 1)
	}

	fmt.Printf("state:    %s\n", st.State)
	if st.Reason != "" {
		fmt.Printf("reason:   %s\n", st.Reason)
	}
	if st.NowPlaying != "" {
		fmt.Printf("playing:  %s (playlist %d)\n", st.NowPlaying, st.PlaylistID)
	}
	fmt.Printf("pending:  %d songs\n", st.PendingSongs)
	fmt.Printf("version:  %s\n", orDash(st.Version))
	fmt.Printf("device:   %s\n", orDash(st.DeviceID))
	return nil
}

func syncCheck(c *cli.Context) error {
	client, err := dialDaemon(c)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	defer client.Close()

	if _, err := client.SyncCheck(context.Background()); err != nil {
		return cli.NewExitError("sync: "+err.Error(), 1)
	}
	fmt.Println("sync completed")
	return nil
}

func songs(c *cli.Context) error {
	client, err := dialDaemon(c)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	defer client.Close()

	res, err := client.Songs(context.Background())
	if err != nil {
		return cli.NewExitError("songs: "+err.Error(), 1)
	}
	if len(res.Songs) == 0 {
		fmt.Println("library is empty")
		return nil
	}
	for _, s := range res.Songs {
		fmt.Printf("%4d  %-12s  %s\n", s.ID, s.Status, s.Title)
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
