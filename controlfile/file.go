package controlfile

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio"

	"github.com/safing/dbinit/initerr"
)

// RelPath is the location of the control file within a data directory.
const RelPath = "global/pg_control"

// ErrExists is returned when a control file is already present.
var ErrExists = errors.New("control file already exists")

// Path returns the control file location of the given data directory.
func Path(dataDir string) string {
	return filepath.Join(dataDir, filepath.FromSlash(RelPath))
}

// Write encodes the record and atomically writes it to the data directory.
// An existing control file is never replaced.
func Write(dataDir string, r *Record, perm os.FileMode) error {
	path := Path(dataDir)

	_, err := os.Lstat(path)
	switch {
	case err == nil:
		return initerr.New(initerr.KindState, ErrExists, path, "control file %q already exists", path)
	case !errors.Is(err, fs.ErrNotExist):
		return initerr.Wrap(initerr.KindIO, err, path, "could not access control file")
	}

	data, err := r.Encode()
	if err != nil {
		return initerr.Wrap(initerr.KindIO, err, path, "could not encode control file")
	}

	// The temp file is synced before it is renamed into place.
	if err := renameio.WriteFile(path, data, perm); err != nil {
		return initerr.Wrap(initerr.KindIO, err, path, "could not write control file")
	}
	return nil
}

// Read reads and verifies the control file of the given data directory.
func Read(dataDir string) (*Record, error) {
	path := Path(dataDir)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, initerr.Wrap(initerr.KindIO, err, path, "could not read control file")
	}

	r, err := Decode(data)
	if err != nil {
		return nil, initerr.Wrap(initerr.KindState, err, path, "invalid control file "+path)
	}
	return r, nil
}
