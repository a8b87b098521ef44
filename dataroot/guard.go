package dataroot

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-version"

	"github.com/safing/dbinit/controlfile"
	"github.com/safing/dbinit/info"
	"github.com/safing/dbinit/initerr"
	"github.com/safing/dbinit/log"
)

// VersionFileName is the name of the file holding the major version a data
// directory was created for.
const VersionFileName = "PG_VERSION"

// State errors.
var (
	ErrExistingDataDir = errors.New("data directory already exists")
	ErrNotEmpty        = errors.New("directory exists but is not empty")
	ErrMissingDataDir  = errors.New("data directory is missing")
	ErrNotInitialized  = errors.New("data directory is not initialized")
	ErrInvalidControl  = errors.New("data directory has an invalid control file")
)

// CheckForInit checks that a full initialization may proceed: the data
// directory and the WAL directory, if any, must be absent or empty.
func CheckForInit(plan *Plan) error {
	primary, err := Classify(plan.DataDir)
	if err != nil {
		return err
	}

	switch primary.State {
	case Initialized:
		return initerr.New(
			initerr.KindState, ErrExistingDataDir, plan.DataDir,
			"directory %q already contains a data directory; remove it, choose another directory or run with --sync-only",
			plan.DataDir,
		)
	case ForeignNonEmpty:
		return notEmptyError(primary)
	}

	if !plan.Relocated() {
		return nil
	}

	wal, err := Classify(plan.WALDir)
	if err != nil {
		return err
	}
	switch wal.State {
	case Initialized, ForeignNonEmpty:
		return notEmptyError(wal)
	}

	return nil
}

// CheckForSync checks that the data directory was initialized before and
// that its control file is valid. It warns if it was created for another
// major version.
func CheckForSync(plan *Plan) error {
	primary, err := Classify(plan.DataDir)
	if err != nil {
		return err
	}

	switch primary.State {
	case Initialized:
		record, err := controlfile.Read(plan.DataDir)
		if err != nil {
			return initerr.New(
				initerr.KindState, fmt.Errorf("%w: %w", ErrInvalidControl, err), plan.DataDir,
				"directory %q does not contain a valid data directory: %s", plan.DataDir, err,
			)
		}
		log.Debugf("dataroot: data directory %s has cluster id %s, created %s", plan.DataDir, record.ClusterID, record.Created)
		checkMajorVersion(plan.DataDir)
		return nil
	case Absent:
		return initerr.New(
			initerr.KindState, ErrMissingDataDir, plan.DataDir,
			"cannot sync missing data directory %q", plan.DataDir,
		)
	default:
		return initerr.New(
			initerr.KindState, ErrNotInitialized, plan.DataDir,
			"directory %q does not contain an initialized data directory (%s)", plan.DataDir, primary.State,
		)
	}
}

func notEmptyError(c *Classification) error {
	var hint string
	switch c.Contents {
	case ContentsNotDirectory:
		return initerr.New(
			initerr.KindState, ErrNotEmpty, c.Path,
			"%q exists but is not a directory", c.Path,
		)
	case ContentsLostFound:
		hint = "; it contains a lost+found directory, perhaps due to it being a mount point, create a subdirectory under the mount point instead"
	case ContentsHidden:
		hint = "; it contains a dot-prefixed/invisible file, perhaps due to it being a mount point"
	case ContentsOther:
		if c.State == Initialized {
			hint = "; it already contains a data directory"
		}
	}

	return initerr.New(
		initerr.KindState, ErrNotEmpty, c.Path,
		"directory %q exists but is not empty%s", c.Path, hint,
	)
}

// checkMajorVersion logs a warning if the version file of the data
// directory does not match the major version this tool creates.
func checkMajorVersion(dataDir string) {
	path := filepath.Join(dataDir, VersionFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warningf("dataroot: could not read %s: %s", path, err)
		} else {
			log.Warningf("dataroot: %s is missing", path)
		}
		return
	}

	found, err := version.NewVersion(strings.TrimSpace(string(data)))
	if err != nil {
		log.Warningf("dataroot: %s holds an invalid version: %s", path, err)
		return
	}
	own := version.Must(version.NewVersion(info.MajorVersion))
	if found.Segments()[0] != own.Segments()[0] {
		log.Warningf("dataroot: data directory %s was created for major version %s, this tool creates version %s", dataDir, found, own)
		return
	}

	log.Debugf("dataroot: data directory %s has major version %s", dataDir, found)
}
