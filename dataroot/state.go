package dataroot

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/safing/dbinit/controlfile"
	"github.com/safing/dbinit/initerr"
)

// State is the classification of a directory location.
type State uint8

// Directory states.
const (
	Absent State = iota
	EmptyExists
	Initialized
	ForeignNonEmpty
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case EmptyExists:
		return "empty"
	case Initialized:
		return "initialized"
	case ForeignNonEmpty:
		return "not empty"
	default:
		return "unknown"
	}
}

// Contents details what was found in a directory. It only refines messages.
type Contents uint8

// Directory contents.
const (
	ContentsNone Contents = iota
	// ContentsHidden means only dot-prefixed entries were found.
	ContentsHidden
	// ContentsLostFound means a lost+found entry was found, possibly
	// next to hidden entries, typical for a mount point.
	ContentsLostFound
	ContentsOther
	ContentsNotDirectory
)

const lostFound = "lost+found"

// Classification is the result of Classify.
type Classification struct {
	Path     string
	State    State
	Contents Contents
}

// Classify inspects the given location. A symlink is followed for the
// location itself. Any entry, hidden ones included, makes a directory
// non-empty.
func Classify(path string) (*Classification, error) {
	c := &Classification{Path: path}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		c.State = Absent
		return c, nil
	case err != nil:
		return nil, initerr.Wrap(initerr.KindIO, err, path, "could not access directory "+quote(path))
	case !info.IsDir():
		c.State = ForeignNonEmpty
		c.Contents = ContentsNotDirectory
		return c, nil
	}

	// A control file marks a data directory created by us.
	_, err = os.Stat(controlfile.Path(path))
	switch {
	case err == nil:
		c.State = Initialized
		c.Contents = ContentsOther
		return c, nil
	case !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, syscall.ENOTDIR):
		return nil, initerr.Wrap(initerr.KindIO, err, path, "could not access directory "+quote(path))
	}

	c.Contents, err = scanContents(path)
	if err != nil {
		return nil, initerr.Wrap(initerr.KindIO, err, path, "could not read directory "+quote(path))
	}
	if c.Contents == ContentsNone {
		c.State = EmptyExists
	} else {
		c.State = ForeignNonEmpty
	}
	return c, nil
}

func scanContents(path string) (Contents, error) {
	dir, err := os.Open(path)
	if err != nil {
		return ContentsNone, err
	}
	defer dir.Close() //nolint:errcheck

	contents := ContentsNone
	for {
		names, err := dir.Readdirnames(64)
		for _, name := range names {
			switch {
			case name == "." || name == "..":
				// not reported by Readdirnames
			case name == lostFound:
				contents = ContentsLostFound
			case strings.HasPrefix(name, "."):
				if contents == ContentsNone {
					contents = ContentsHidden
				}
			default:
				return ContentsOther, nil
			}
		}
		if errors.Is(err, io.EOF) {
			return contents, nil
		}
		if err != nil {
			return ContentsNone, err
		}
	}
}

func quote(path string) string {
	return strconv.Quote(path)
}
