package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
)

// ErrNotADirectory is returned when a path that should be a directory is
// taken by something else.
var ErrNotADirectory = errors.New("not a directory")

// EnsureDirectory ensures that the given directory exists and that is has the given permissions set.
// If the path is taken by a file, an error is returned and the file is left alone.
// Missing parent directories are not created.
func EnsureDirectory(path string, perm os.FileMode) error {
	f, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		err = os.Mkdir(path, perm)
		if err != nil && !errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("could not create dir %s: %w", path, err)
		}
		// mkdir is subject to the umask, set the exact permissions
		return chmod(path, perm)
	case err != nil:
		return fmt.Errorf("failed to access %s: %w", path, err)
	case !f.IsDir():
		return fmt.Errorf("%s: %w", path, ErrNotADirectory)
	case f.Mode().Perm() != perm:
		return chmod(path, perm)
	default:
		return nil
	}
}

func chmod(path string, perm os.FileMode) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	if err := os.Chmod(path, perm); err != nil {
		return fmt.Errorf("could not set permissions of %s: %w", path, err)
	}
	return nil
}
