//go:build !windows

package updater

import (
	"fmt"
	"os"
	"syscall"
)

// Restart replaces the current process image with the binary at path,
// keeping arguments and environment.
func Restart(path string) error {
	if err := syscall.Exec(path, os.Args, os.Environ()); err != nil {
		return fmt.Errorf("restarting %s: %w", path, err)
	}
	return nil
}
