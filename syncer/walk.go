package syncer

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// tree holds everything that needs to be flushed.
type tree struct {
	files []string
	dirs  []string
	// roots are the walked directories: the root and every directory
	// reached through a symlink.
	roots []string

	visited map[string]struct{}
	errs    *multierror.Error
}

func collect(root string) *tree {
	t := &tree{visited: make(map[string]struct{})}
	t.walk(root)
	return t
}

func (t *tree) walk(root string) {
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		t.errs = multierror.Append(t.errs, fmt.Errorf("could not resolve %s: %w", root, err))
		return
	}
	if _, ok := t.visited[resolved]; ok {
		return
	}
	t.visited[resolved] = struct{}{}
	t.roots = append(t.roots, resolved)

	err = filepath.WalkDir(resolved, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			t.errs = multierror.Append(t.errs, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		switch {
		case d.IsDir():
			t.dirs = append(t.dirs, path)
		case d.Type().IsRegular():
			t.files = append(t.files, path)
		case d.Type()&fs.ModeSymlink != 0:
			target, err := os.Stat(path)
			switch {
			case err != nil:
				// dangling links have nothing to flush
			case target.IsDir():
				t.walk(path)
			case target.Mode().IsRegular():
				t.files = append(t.files, path)
			}
		}
		return nil
	})
	if err != nil {
		t.errs = multierror.Append(t.errs, err)
	}
}

// dirsDeepestFirst returns the directories ordered so that every directory
// comes before its parent.
func (t *tree) dirsDeepestFirst() []string {
	dirs := append([]string(nil), t.dirs...)
	sort.SliceStable(dirs, func(i, j int) bool {
		return depth(dirs[i]) > depth(dirs[j])
	})
	return dirs
}

func depth(path string) int {
	return strings.Count(filepath.Clean(path), string(filepath.Separator))
}
