// Copyright Safing ICS Technologies GmbH. Use of this source code is governed by the AGPL license that can be found in the LICENSE file.

/*
Package syncer flushes a data directory to stable storage.

A data directory is only reported as created once every file and directory
entry below it, including the relocated WAL directory, has been flushed.
A failed flush leaves the tree in an unknown durability state; running the
sync again is always safe.
*/
package syncer

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/safing/dbinit/initerr"
	"github.com/safing/dbinit/log"
	"github.com/safing/dbinit/metrics"
)

// Method selects how the tree is flushed.
type Method string

// Sync methods.
const (
	// MethodFsync flushes every file and directory on its own.
	MethodFsync Method = "fsync"
	// MethodSyncfs flushes whole filesystems at once. Linux only.
	MethodSyncfs Method = "syncfs"
)

// Errors.
var (
	ErrUnknownMethod     = errors.New("unrecognized sync method")
	ErrUnsupportedMethod = errors.New("sync method is not supported on this platform")
)

// Options configures a sync.
type Options struct {
	Method Method
	// Workers limits the number of files flushed concurrently. Zero uses
	// GOMAXPROCS.
	Workers int
}

// ParseMethod returns the method with the given name. An empty name selects
// fsync.
func ParseMethod(name string) (Method, error) {
	switch Method(strings.ToLower(name)) {
	case "", MethodFsync:
		return MethodFsync, nil
	case MethodSyncfs:
		return MethodSyncfs, nil
	default:
		return "", initerr.New(initerr.KindConfig, ErrUnknownMethod, name, "unrecognized sync method: %s", name)
	}
}

// Supported checks whether the method is available on this platform.
func Supported(method Method) error {
	switch method {
	case MethodFsync:
		return nil
	case MethodSyncfs:
		if syncfsSupported {
			return nil
		}
		return initerr.New(
			initerr.KindCapability, ErrUnsupportedMethod, string(method),
			"this build does not support sync method %q on %s", method, runtime.GOOS,
		)
	default:
		return initerr.New(initerr.KindConfig, ErrUnknownMethod, string(method), "unrecognized sync method: %s", method)
	}
}

// Sync flushes the tree below root to stable storage. Symlinks to
// directories, like a relocated WAL directory, are followed once.
func Sync(root string, opts Options) error {
	if opts.Method == "" {
		opts.Method = MethodFsync
	}
	if err := Supported(opts.Method); err != nil {
		return err
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}

	started := time.Now()
	defer metrics.SyncDuration.UpdateDuration(started)
	log.Infof("syncer: syncing %s using %s", root, opts.Method)

	var err error
	switch opts.Method {
	case MethodSyncfs:
		err = syncFilesystems(root)
	default:
		err = fsyncTree(root, opts.Workers)
	}
	if err != nil {
		return initerr.Wrap(initerr.KindIO, err, root, fmt.Sprintf("could not sync data directory %q", root))
	}

	log.Infof("syncer: synced %s in %s", root, time.Since(started).Round(time.Millisecond))
	return nil
}
