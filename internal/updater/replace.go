package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"
)

const verifyTimeout = 5 * time.Second

// ReplaceBinary safely replaces the binary at currentPath with newPath.
// It creates a backup, performs the swap, and verifies the new binary.
// On failure it rolls back to the backup. A running Windows executable
// cannot be overwritten but can be renamed, so the same backup-then-move
// sequence works there too.
func ReplaceBinary(newPath, currentPath, expectedVersion string) error {
	info, err := os.Stat(currentPath)
	if err != nil {
		return fmt.Errorf("stat current binary: %w", err)
	}
	origPerm := info.Mode().Perm()

	backupPath := backupPathFor(currentPath)
	_ = os.Remove(backupPath)

	if err := os.Rename(currentPath, backupPath); err != nil {
		// Rename may fail across filesystems; try copy.
		if copyErr := copyFile(currentPath, backupPath); copyErr != nil {
			return fmt.Errorf("creating backup: %w", copyErr)
		}
		os.Remove(currentPath)
	}

	if err := os.Rename(newPath, currentPath); err != nil {
		if copyErr := copyFile(newPath, currentPath); copyErr != nil {
			RollbackBinary(backupPath, currentPath)
			return fmt.Errorf("installing new binary: %w", copyErr)
		}
		os.Remove(newPath)
	}

	// Windows has no permission bits to restore.
	if runtime.GOOS != "windows" {
		if err := os.Chmod(currentPath, origPerm); err != nil {
			log.Debugf("restoring mode on %s: %v", currentPath, err)
		}
	}

	if err := VerifyBinary(currentPath, expectedVersion); err != nil {
		RollbackBinary(backupPath, currentPath)
		return fmt.Errorf("verification failed, rolled back: %w", err)
	}

	// The old image of a running Windows binary stays locked until exit.
	if err := os.Remove(backupPath); err != nil && runtime.GOOS != "windows" {
		log.Debugf("removing backup %s: %v", backupPath, err)
	}

	return nil
}

func backupPathFor(currentPath string) string {
	if runtime.GOOS == "windows" {
		return currentPath + ".old"
	}
	return currentPath + ".backup"
}

// VerifyBinary executes the binary with "version --json" and checks that it
// reports expectedVersion. An empty expectedVersion only checks that the
// binary runs.
func VerifyBinary(binaryPath, expectedVersion string) error {
	ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
	defer cancel()

	output, err := exec.CommandContext(ctx, binaryPath, "version", "--json").Output()
	if ctx.Err() != nil {
		return fmt.Errorf("new binary timed out after %s", verifyTimeout)
	}
	if err != nil {
		return fmt.Errorf("new binary exited with error: %w", err)
	}

	var versionInfo map[string]string
	if err := json.Unmarshal(output, &versionInfo); err != nil {
		return fmt.Errorf("parsing version output: %w", err)
	}

	if expectedVersion != "" {
		got := DisplayVersion(versionInfo["version"])
		if got != DisplayVersion(expectedVersion) {
			return fmt.Errorf("new binary reports version %q, want %q", got, expectedVersion)
		}
	}

	return nil
}

// RollbackBinary restores the backup to the current path.
func RollbackBinary(backupPath, currentPath string) error {
	if err := os.Rename(backupPath, currentPath); err != nil {
		if copyErr := copyFile(backupPath, currentPath); copyErr != nil {
			return fmt.Errorf("rollback failed: %w (original rename error: %v)", copyErr, err)
		}
		os.Remove(backupPath)
	}
	return nil
}

// CurrentExecutable resolves the path of the running binary, following
// symlinks so the real file gets replaced.
func CurrentExecutable() (string, error) {
	self, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("cannot determine executable path: %w", err)
	}
	self, err = filepath.EvalSymlinks(self)
	if err != nil {
		return "", fmt.Errorf("cannot resolve symlinks: %w", err)
	}
	return self, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
