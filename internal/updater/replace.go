package updater

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"time"
)

// verifyTimeout bounds how long a freshly installed binary may take to
// answer `version --json`.
const verifyTimeout = 5 * time.Second

// ErrUnsupportedPlatform is returned by ReplaceBinary on Windows, where a
// running executable cannot be renamed over.
var ErrUnsupportedPlatform = errors.New("in-place update is not supported on this platform")

// ReplaceBinary swaps newPath in for currentPath. It keeps a backup, restores
// the original permissions, runs the new binary to confirm it reports
// expectedVersion, and rolls back on any failure.
func ReplaceBinary(ctx context.Context, newPath, currentPath, expectedVersion string) error {
	if runtime.GOOS == "windows" {
		return ErrUnsupportedPlatform
	}

	info, err := os.Stat(currentPath)
	if err != nil {
		return fmt.Errorf("stat current binary: %w", err)
	}
	origPerm := info.Mode().Perm()

	backupPath := currentPath + ".backup"

	if err := os.Rename(currentPath, backupPath); err != nil {
		// Rename fails across filesystems; fall back to a copy.
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

	if err := os.Chmod(currentPath, origPerm); err != nil {
		RollbackBinary(backupPath, currentPath)
		return fmt.Errorf("restoring permissions: %w", err)
	}

	if err := VerifyBinary(ctx, currentPath, expectedVersion); err != nil {
		if rbErr := RollbackBinary(backupPath, currentPath); rbErr != nil {
			return fmt.Errorf("verification failed (%v) and %w", err, rbErr)
		}
		return fmt.Errorf("verification failed, rolled back: %w", err)
	}

	os.Remove(backupPath)
	return nil
}

// VerifyBinary runs `<binary> version --json` and checks that the reported
// version matches expectedVersion.
func VerifyBinary(ctx context.Context, binaryPath, expectedVersion string) error {
	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	output, err := exec.CommandContext(ctx, binaryPath, "version", "--json").Output()
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("new binary timed out after %s", verifyTimeout)
	}
	if err != nil {
		return fmt.Errorf("new binary exited with error: %w", err)
	}

	var info struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(output, &info); err != nil {
		return fmt.Errorf("parsing version output: %w", err)
	}
	if !SameVersion(info.Version, expectedVersion) {
		return fmt.Errorf("new binary reports version %q, want %q", info.Version, expectedVersion)
	}
	return nil
}

// RollbackBinary restores the backup to currentPath.
func RollbackBinary(backupPath, currentPath string) error {
	if err := os.Rename(backupPath, currentPath); err != nil {
		if copyErr := copyFile(backupPath, currentPath); copyErr != nil {
			return fmt.Errorf("rollback failed: %w (original rename error: %v)", copyErr, err)
		}
		os.Remove(backupPath)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
