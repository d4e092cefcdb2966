// Package ctl is the client half of the daemon's control socket: a thin
// JSON-RPC wrapper used by the bgmd CLI subcommands.
package ctl

import (
	"context"
	"net"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"

	"github.com/bgmd/bgmd/internal/server"
)

// Client is one control-socket session.
type Client struct {
	conn net.Conn
	rpc  *jrpc2.Client
}

// Dial connects to the daemon's unix control socket.
func Dial(sockPath string) (*Client, error) {
	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		return nil, err
	}
	return &Client{
		conn: conn,
		rpc:  jrpc2.NewClient(channel.Line(conn, conn), nil),
	}, nil
}

// Close ends the session.
func (c *Client) Close() error {
	return c.rpc.Close()
}

// Status fetches the daemon's playback and library status.
func (c *Client) Status(ctx context.Context) (*server.StatusResult, error) {
	var out server.StatusResult
	if err := c.rpc.CallResult(ctx, "status.get", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SyncCheck triggers an immediate config exchange and reports whether
// it succeeded.
func (c *Client) SyncCheck(ctx context.Context) (*server.SyncResult, error) {
	var out server.SyncResult
	if err := c.rpc.CallResult(ctx, "sync.check", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Songs lists the library with download states.
func (c *Client) Songs(ctx context.Context) (*server.SongListResult, error) {
	var out server.SongListResult
	if err := c.rpc.CallResult(ctx, "song.list", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
