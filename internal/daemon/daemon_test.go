package daemon

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/bgmd/bgmd/pkg/logger"
)

func TestDaemonStartsAndShutsDownCleanly(t *testing.T) {
	dir := t.TempDir()
	sock := filepath.Join(dir, "bgmd.sock")

	d, err := New(Config{
		DataDir:    dir,
		ConfigURL:  "http://127.0.0.1:0/check_update", // unreachable: sync failures must not kill the daemon
		SocketPath: sock,
	}, nil, logger.NewNopLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	// The control socket coming up means the component group is live.
	deadline := time.Now().Add(2 * time.Second)
	up := false
	for time.Now().Before(deadline) {
		if conn, err := net.Dial("unix", sock); err == nil {
			conn.Close()
			up = true
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !up {
		t.Fatal("control socket never came up")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v after cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not shut down")
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{DataDir: "/data/bgmd"}
	cfg.applyDefaults()
	if cfg.SocketPath != filepath.Join("/data/bgmd", "bgmd.sock") {
		t.Errorf("socket default = %q", cfg.SocketPath)
	}
}
