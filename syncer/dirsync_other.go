//go:build !windows

package syncer

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

func syncDir(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("could not open directory %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	err = f.Sync()
	// Some filesystems do not support flushing directories.
	if err != nil && !errors.Is(err, syscall.EINVAL) && !errors.Is(err, syscall.EBADF) {
		return fmt.Errorf("could not fsync directory %s: %w", path, err)
	}
	return nil
}
