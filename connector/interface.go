package connector

import (
	"context"
	"os"
)

// Connection is a live session with one remote host.
type Connection interface {
	// Exec runs cmd on the host. A non-zero exit status is returned in
	// exitCode with a nil error.
	Exec(ctx context.Context, cmd string) (stdout []byte, stderr []byte, exitCode int, err error)
	// Upload copies a local file to remotePath, creating parent directories.
	// A zero mode keeps the local file's permissions.
	Upload(ctx context.Context, localPath, remotePath string, mode os.FileMode) error
	Exists(ctx context.Context, remotePath string) (bool, error)
	MkdirAll(ctx context.Context, remotePath string, mode os.FileMode) error
	Remove(ctx context.Context, remotePath string) error
	Close() error
}

// Dialer opens a Connection for cfg.
type Dialer func(cfg Config) (Connection, error)
