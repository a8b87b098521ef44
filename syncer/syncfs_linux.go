package syncer

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/safing/dbinit/log"
	"github.com/safing/dbinit/metrics"
)

const syncfsSupported = true

// syncFilesystems calls syncfs once for every filesystem the tree spans.
func syncFilesystems(root string) error {
	t := collect(root)
	if err := t.errs.ErrorOrNil(); err != nil {
		return err
	}

	seen := make(map[uint64]struct{})
	for _, dir := range t.roots {
		var stat unix.Stat_t
		if err := unix.Stat(dir, &stat); err != nil {
			metrics.SyncErrors.Inc()
			return fmt.Errorf("could not stat %s: %w", dir, err)
		}
		if _, ok := seen[uint64(stat.Dev)]; ok {
			continue
		}
		seen[uint64(stat.Dev)] = struct{}{}

		if err := syncfs(dir); err != nil {
			metrics.SyncErrors.Inc()
			return err
		}
		mountpoint, fstype := metrics.FilesystemOf(dir)
		log.Debugf("syncer: synced filesystem of %s (%s at %s)", dir, fstype, mountpoint)
	}

	metrics.SyncedDirs.Add(len(t.dirs))
	metrics.SyncedFiles.Add(len(t.files))
	return nil
}

func syncfs(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("could not open %s: %w", dir, err)
	}
	defer f.Close() //nolint:errcheck

	if err := unix.Syncfs(int(f.Fd())); err != nil {
		return fmt.Errorf("could not synchronize file system for %s: %w", dir, err)
	}
	return nil
}
