package storage

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/arlenn/secvault/internal/events"
)

// RelocateDatabase moves the vault file once from its app-private
// location to the shared-group location: copy, verify the copy opens
// with the file key, then delete the original. Any failure leaves the
// original in place and returns it, so the system always has a usable
// file.
func RelocateDatabase(oldPath, newPath string, fileKey []byte, reporter events.Reporter) string {
	if reporter == nil {
		reporter = events.NopReporter{}
	}

	if _, err := os.Stat(newPath); err == nil {
		return newPath
	}
	if _, err := os.Stat(oldPath); err != nil {
		// Nothing to move; a fresh install starts at the new location.
		return newPath
	}

	if err := copyFile(oldPath, newPath); err != nil {
		reporter.Report(events.RelocationFailed{From: oldPath, To: newPath, Err: err})
		zap.L().Warn("vault file relocation failed, keeping original location",
			zap.String("from", oldPath), zap.Error(err))
		return oldPath
	}

	// Verify the copy before trusting it.
	s, err := Open(newPath, fileKey, nil)
	if err == nil {
		err = s.Close()
	}
	if err != nil {
		os.Remove(newPath)
		reporter.Report(events.RelocationFailed{From: oldPath, To: newPath, Err: err})
		zap.L().Warn("relocated vault file failed verification, keeping original location",
			zap.String("from", oldPath), zap.Error(err))
		return oldPath
	}

	if err := os.Remove(oldPath); err != nil {
		// The copy is good; the stale original is only a cleanup
		// problem.
		zap.L().Warn("failed to remove original vault file after relocation",
			zap.String("path", oldPath), zap.Error(err))
	}

	reporter.Report(events.DatabaseRelocated{From: oldPath, To: newPath})
	zap.L().Info("vault file relocated",
		zap.String("from", oldPath), zap.String("to", newPath))
	return newPath
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("failed to copy file: %w", err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("failed to sync destination: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("failed to close destination: %w", err)
	}
	return nil
}
