//go:build windows

package updater

import (
	"fmt"
	"os"
	"os/exec"
)

// Restart starts the binary at path with the same arguments and exits the
// current process.
func Restart(path string) error {
	cmd := exec.Command(path, os.Args[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("restarting %s: %w", path, err)
	}
	os.Exit(0)
	return nil
}
