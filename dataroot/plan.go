// Copyright Safing ICS Technologies GmbH. Use of this source code is governed by the AGPL license that can be found in the LICENSE file.

/*
Package dataroot resolves the data and WAL directory locations of a run and
decides, from what is found on disk, whether a run may proceed.

The filesystem is the only source of truth: every check stats the paths
again and nothing is cached between calls.
*/
package dataroot

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/safing/dbinit/initerr"
)

// WALSlotName is the name of the WAL directory inside the data directory.
const WALSlotName = "pg_wal"

// Path errors.
var (
	ErrNoDataDir         = errors.New("no data directory specified")
	ErrWALDirNotAbsolute = errors.New("WAL directory location must be an absolute path")
	ErrWALDirContainment = errors.New("WAL directory must be outside of the data directory")
)

// Plan holds the resolved directory locations of a run.
type Plan struct {
	// DataDir is the absolute, cleaned data directory.
	DataDir string
	// WALDir is the absolute, cleaned external WAL directory, if relocated.
	WALDir string
}

// Resolve validates the given locations and returns the plan. A relative
// WAL directory is rejected before anything else is looked at.
func Resolve(dataDir, walDir string) (*Plan, error) {
	if walDir != "" && !filepath.IsAbs(walDir) {
		return nil, initerr.New(
			initerr.KindPath, ErrWALDirNotAbsolute, walDir,
			"WAL directory location must be an absolute path: %q", walDir,
		)
	}
	if dataDir == "" {
		return nil, initerr.New(initerr.KindPath, ErrNoDataDir, "", "no data directory specified")
	}

	absData, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, initerr.Wrap(initerr.KindPath, err, dataDir, "failed to resolve data directory "+dataDir)
	}

	plan := &Plan{DataDir: absData}
	if walDir == "" {
		return plan, nil
	}

	plan.WALDir = filepath.Clean(walDir)
	if within(plan.DataDir, plan.WALDir) || within(plan.WALDir, plan.DataDir) {
		return nil, initerr.New(
			initerr.KindPath, ErrWALDirContainment, plan.WALDir,
			"WAL directory %q must not be inside of or contain the data directory %q", plan.WALDir, plan.DataDir,
		)
	}

	return plan, nil
}

// Relocated returns whether the WAL lives outside the data directory.
func (p *Plan) Relocated() bool {
	return p.WALDir != ""
}

// WALSlot returns the location of the WAL entry inside the data directory.
func (p *Plan) WALSlot() string {
	return filepath.Join(p.DataDir, WALSlotName)
}

// WALTarget returns the directory that holds the WAL files.
func (p *Plan) WALTarget() string {
	if p.Relocated() {
		return p.WALDir
	}
	return p.WALSlot()
}

// within returns whether path is equal to or below dir.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
