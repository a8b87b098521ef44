package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
)

// PermissionProfile describes the modes applied to every directory and
// regular file of a data directory.
type PermissionProfile uint8

// Permission profiles.
const (
	// Private allows access by the owner only.
	Private PermissionProfile = iota
	// GroupReadable additionally grants access to the owning group.
	GroupReadable
)

// ProfileFor returns the profile that matches the group access setting.
func ProfileFor(groupAccess bool) PermissionProfile {
	if groupAccess {
		return GroupReadable
	}
	return Private
}

// DirMode returns the mode of directories.
func (p PermissionProfile) DirMode() os.FileMode {
	if p == GroupReadable {
		return 0o770
	}
	return 0o700
}

// FileMode returns the mode of regular files.
func (p PermissionProfile) FileMode() os.FileMode {
	if p == GroupReadable {
		return 0o660
	}
	return 0o600
}

func (p PermissionProfile) String() string {
	switch p {
	case Private:
		return "private"
	case GroupReadable:
		return "group-readable"
	default:
		return "unknown"
	}
}

// ApplyProfile sets the profile's modes on root and everything below it.
// Symlinks are not changed themselves, but a symlink to a directory is
// followed once and the profile is applied to the directory it points to.
// Applying the same profile twice yields the same result.
func ApplyProfile(root string, profile PermissionProfile) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	return applyProfile(root, profile, make(map[string]struct{}))
}

func applyProfile(root string, profile PermissionProfile, visited map[string]struct{}) error {
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	if _, ok := visited[resolved]; ok {
		return nil
	}
	visited[resolved] = struct{}{}

	return filepath.WalkDir(resolved, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		switch {
		case d.IsDir():
			return os.Chmod(path, profile.DirMode())
		case d.Type().IsRegular():
			return os.Chmod(path, profile.FileMode())
		case d.Type()&fs.ModeSymlink != 0:
			target, err := os.Stat(path)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					// dangling links are left alone
					return nil
				}
				return err
			}
			if target.IsDir() {
				return applyProfile(path, profile, visited)
			}
			return nil
		default:
			return nil
		}
	})
}
