// Package server exposes the daemon's local control surface: a JSON-RPC
// 2.0 endpoint on a unix socket for the bgmd CLI to query status,
// trigger a sync, and inspect the song library.
package server

import (
	"context"
	"errors"
	"net"
	"os"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"

	"github.com/bgmd/bgmd/internal/playback"
	"github.com/bgmd/bgmd/internal/store"
	"github.com/bgmd/bgmd/pkg/logger"
)

// StatusSource is the playback state the server reports.
type StatusSource interface {
	Status() playback.Status
}

// SyncTrigger runs one on-demand config exchange.
type SyncTrigger interface {
	CheckUpdate(ctx context.Context) error
}

// Library is the store surface the server queries.
type Library interface {
	AllSongs(ctx context.Context) ([]store.Song, error)
	CountPending(ctx context.Context) (int, error)
	ConfigValue(ctx context.Context, key string) (string, error)
}

// Server accepts control connections on a unix socket and serves each
// one with its own JSON-RPC session.
type Server struct {
	sockPath string
	playback StatusSource
	syncer   SyncTrigger
	library  Library
	log      logger.Logger
}

// New builds a Server.
func New(sockPath string, pb StatusSource, syncer SyncTrigger, lib Library, l logger.Logger) *Server {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Server{
		sockPath: sockPath,
		playback: pb,
		syncer:   syncer,
		library:  lib,
		log:      l,
	}
}

// Serve listens on the unix socket until ctx is cancelled. A stale
// socket file from an unclean shutdown is removed before binding.
func (s *Server) Serve(ctx context.Context) error {
	if err := os.Remove(s.sockPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	lis, err := net.Listen("unix", s.sockPath)
	if err != nil {
		return err
	}
	defer os.Remove(s.sockPath)

	go func() {
		<-ctx.Done()
		lis.Close()
	}()
	s.log.Info("server: control socket listening on %s", s.sockPath)

	methods := s.methods()
	for {
		conn, err := lis.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			s.log.Error("server: accept: %v", err)
			return err
		}
		go s.serveConn(conn, methods)
	}
}

func (s *Server) serveConn(conn net.Conn, methods jrpc2.Assigner) {
	defer conn.Close()
	srv := jrpc2.NewServer(methods, nil)
	srv.Start(channel.Line(conn, conn))
	if err := srv.Wait(); err != nil {
		s.log.Info("server: session ended: %v", err)
	}
}
