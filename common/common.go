package common

import (
	"io/fs"
	"path/filepath"
	"time"
)

const (
	AppName    = "xmbuild"
	TmpDirBase = "/tmp/"
)

// GetTmpDir is the last-resort temp base when no XDG cache home is available.
func GetTmpDir() string {
	return filepath.Join(TmpDirBase, AppName) + "/"
}

// Log field keys, in display order.
const (
	CollectionName = "Collection"
	EntryName      = "Entry"
	PhaseName      = "Phase"
	StepName       = "Step"
	HostName       = "Host"
	LocalHostname  = "LocalHost"
)

const (
	// FileMode0755 represents rwxr-xr-x
	FileMode0755 fs.FileMode = 0755
	// FileMode0644 represents rw-r--r--
	FileMode0644 fs.FileMode = 0644
	// FileMode0600 represents rw-------
	FileMode0600 fs.FileMode = 0600
	// FileMode0700 represents rwx------
	FileMode0700 fs.FileMode = 0700
)

const (
	// MkdirCmdTpl is a template for creating directories on a remote host.
	MkdirCmdTpl = "mkdir -p %s"
	// RemoveCmdTpl removes a remote path, ignoring a missing one.
	RemoveCmdTpl = "rm -rf %s"
	// ChmodCmdTpl is a template for changing file permissions.
	// Example: fmt.Sprintf(ChmodCmdTpl, "0755", "/path/to/file")
	ChmodCmdTpl = "chmod %s %s"
)

const (
	DefaultSSHPort    = 22
	DefaultSSHTimeout = 30 * time.Second
	// TempPrefix prefixes every directory or file allocated for a run.
	TempPrefix = AppName + "-"
)
