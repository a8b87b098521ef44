package syncer

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/safing/dbinit/log"
	"github.com/safing/dbinit/metrics"
)

// syncFileFn flushes a single file. Tests replace it.
var syncFileFn = syncFile

// fsyncTree flushes every file, then every directory deepest first, then
// the parent of root. Every entry is attempted and all failures are
// returned together.
func fsyncTree(root string, workers int) error {
	t := collect(root)

	var (
		errs     = t.errs
		errsLock sync.Mutex
	)
	record := func(err error) {
		metrics.SyncErrors.Inc()
		errsLock.Lock()
		errs = multierror.Append(errs, err)
		errsLock.Unlock()
	}

	group := new(errgroup.Group)
	group.SetLimit(workers)
	for _, file := range t.files {
		file := file
		group.Go(func() error {
			if err := syncFileFn(file); err != nil {
				record(err)
				return nil
			}
			metrics.SyncedFiles.Inc()
			return nil
		})
	}
	_ = group.Wait()
	log.Debugf("syncer: flushed %d files of %s", len(t.files), root)

	for _, dir := range t.dirsDeepestFirst() {
		if err := syncDir(dir); err != nil {
			record(err)
			continue
		}
		metrics.SyncedDirs.Inc()
	}

	// The entry of root itself lives in its parent.
	if err := syncDir(filepath.Dir(filepath.Clean(root))); err != nil {
		record(err)
	} else {
		metrics.SyncedDirs.Inc()
	}

	return errs.ErrorOrNil()
}

func syncFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("could not open file %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	if err := f.Sync(); err != nil {
		return fmt.Errorf("could not fsync file %s: %w", path, err)
	}
	return nil
}
