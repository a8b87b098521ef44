// Copyright Safing ICS Technologies GmbH. Use of this source code is governed by the AGPL license that can be found in the LICENSE file.

package layout

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio"

	"github.com/safing/dbinit/dataroot"
	"github.com/safing/dbinit/initerr"
	"github.com/safing/dbinit/log"
	"github.com/safing/dbinit/metrics"
	"github.com/safing/dbinit/utils"
)

// createMode is used for every new directory. The final permission profile
// is applied once the whole tree exists.
const createMode os.FileMode = 0o700

// Subdirectories of a new data directory, parents before children.
var Subdirectories = []string{
	"global",
	"base",
	"base/1",
	"pg_wal/archive_status",
	"pg_wal/summaries",
	"pg_xact",
	"pg_multixact/members",
	"pg_multixact/offsets",
	"pg_subtrans",
	"pg_twophase",
	"pg_tblspc",
	"pg_stat",
	"pg_stat_tmp",
	"pg_replslot",
	"pg_snapshots",
	"pg_serial",
	"pg_notify",
	"pg_dynshmem",
	"pg_commit_ts",
	"pg_logical/snapshots",
	"pg_logical/mappings",
}

// Structure returns the directory structure of the plan. With a relocated
// WAL directory, the WAL subdirectories belong to a second structure rooted
// at the WAL directory.
func Structure(plan *dataroot.Plan) (data, wal *utils.DirStructure) {
	data = utils.NewDirStructure(plan.DataDir, createMode)
	if plan.Relocated() {
		wal = utils.NewDirStructure(plan.WALDir, createMode)
	} else {
		wal = data.ChildDir(dataroot.WALSlotName, createMode)
	}

	for _, dir := range Subdirectories {
		if rel := strings.TrimPrefix(dir, dataroot.WALSlotName+"/"); rel != dir {
			wal.ChildPath(rel, createMode)
			continue
		}
		data.ChildPath(dir, createMode)
	}
	return data, wal
}

// Build creates the data directory tree. Missing parents of the data
// directory are created. With a relocated WAL directory, pg_wal is a symlink
// to it. There is no rollback on failure.
func Build(plan *dataroot.Plan) error {
	if err := os.MkdirAll(filepath.Dir(plan.DataDir), 0o755); err != nil {
		return initerr.Wrap(initerr.KindIO, err, plan.DataDir, "could not create parent of data directory")
	}

	data, wal := Structure(plan)
	if err := ensureAll(data); err != nil {
		return err
	}

	if plan.Relocated() {
		if err := os.MkdirAll(filepath.Dir(plan.WALDir), 0o755); err != nil {
			return initerr.Wrap(initerr.KindIO, err, plan.WALDir, "could not create parent of WAL directory")
		}
		if err := ensureAll(wal); err != nil {
			return err
		}
		if err := linkWAL(plan); err != nil {
			return err
		}
	}

	log.Infof("layout: created data directory %s", plan.DataDir)
	return nil
}

func ensureAll(ds *utils.DirStructure) error {
	return ds.Walk(func(d *utils.DirStructure) error {
		existed := exists(d.Path)
		if err := d.Ensure(); err != nil {
			return initerr.Wrap(initerr.KindIO, err, d.Path, "could not create directory "+d.Path)
		}
		if !existed {
			metrics.CreatedDirs.Inc()
			log.Tracef("layout: created %s", d.Path)
		}
		return nil
	})
}

// linkWAL points the WAL slot of the data directory to the WAL directory.
// The link is renamed into place, so it either fully exists or not at all.
func linkWAL(plan *dataroot.Plan) error {
	slot := plan.WALSlot()
	if _, err := os.Lstat(slot); err == nil {
		return initerr.New(initerr.KindIO, fs.ErrExist, slot, "could not create symbolic link %q: file exists", slot)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return initerr.Wrap(initerr.KindIO, err, slot, "could not access "+slot)
	}

	if err := renameio.Symlink(plan.WALDir, slot); err != nil {
		return initerr.Wrap(initerr.KindIO, err, slot, "could not create symbolic link "+slot)
	}
	log.Debugf("layout: linked %s to %s", slot, plan.WALDir)
	return nil
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
