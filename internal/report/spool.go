package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Spool drops records into per-consumer directories under Dir. Consumers pick
// up complete *.record files; partial writes are never visible under that
// name.
type Spool struct {
	Dir string
}

// Write stores record for consumer and returns the final path.
func (s Spool) Write(consumer, record string) (string, error) {
	dir := filepath.Join(s.Dir, consumer)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating consumer directory: %w", err)
	}

	// Atomic write: temp file + rename.
	tmpFile, err := os.CreateTemp(dir, ".record-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp record file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.WriteString(record); err != nil {
		tmpFile.Close()
		return "", fmt.Errorf("writing record: %w", err)
	}
	if err := tmpFile.Chmod(0o644); err != nil {
		tmpFile.Close()
		return "", fmt.Errorf("setting record permissions: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("closing temp record file: %w", err)
	}

	finalPath := filepath.Join(dir, uuid.New().String()+".record")
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("renaming record file: %w", err)
	}

	success = true
	return finalPath, nil
}
