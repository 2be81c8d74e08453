package preflight

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/felix-dieterle/mycontracts/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Err converts a failed result to an error.
func (r Result) Err() error {
	if r.Passed {
		return nil
	}
	return fmt.Errorf("%s: %s", r.Name, r.Detail)
}

// Access selects the permissions CheckDirectoryAccess requires.
type Access uint32

const (
	// ReadOnly needs list and traverse permission.
	ReadOnly Access = unix.R_OK | unix.X_OK
	// ReadWrite additionally needs permission to create files.
	ReadWrite Access = unix.R_OK | unix.W_OK | unix.X_OK
)

func (a Access) label() string {
	if a&unix.W_OK != 0 {
		return "read/write ok"
	}
	return "read ok"
}

// CheckDirectoryAccess verifies that the directory exists and grants access.
func CheckDirectoryAccess(name, path string, access Access) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, uint32(access)); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, access.label())}
}

// PrepareWatchDir creates the watch directory when missing and verifies the
// watcher can list it.
func PrepareWatchDir(path string) Result {
	const name = "Watch directory"
	if err := os.MkdirAll(path, 0o755); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: create: %v)", path, err)}
	}
	return CheckDirectoryAccess(name, path, ReadOnly)
}

// RunAll checks every configured directory without creating any of them.
func RunAll(_ context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckDirectoryAccess("Watch directory", cfg.Watcher.WatchDir, ReadOnly),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir, ReadWrite),
		CheckDirectoryAccess("Storage directory", cfg.Paths.StorageDir, ReadWrite),
	}
}
