// Package discover finds the build descriptions of a source tree.
package discover

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// BuildFileName is the fixed name of a build description.
const BuildFileName = "build.toml"

// FindBuildFiles walks root depth-first and returns the path of every
// build description below it. Entries are visited in lexical order, so the
// result is stable across runs. Below root, symbolic links are never
// followed, neither to directories nor to description files; root itself
// may be a link to the tree.
func FindBuildFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", root)
	}
	// WalkDir does not descend into a symlinked root, so walk its target
	// and report paths under root
	walkRoot, err := linkTarget(root)
	if err != nil {
		return nil, err
	}
	rebase := func(path string) string {
		if walkRoot == root {
			return path
		}
		rel, err := filepath.Rel(walkRoot, path)
		if err != nil {
			return path
		}
		return filepath.Join(root, rel)
	}

	var files []string
	err = filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("%s: %w", rebase(path), unwrapPath(err))
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if !d.IsDir() && d.Name() == BuildFileName {
			files = append(files, rebase(path))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func linkTarget(root string) (string, error) {
	info, err := os.Lstat(root)
	if err != nil {
		return "", err
	}
	if info.Mode()&fs.ModeSymlink == 0 {
		return root, nil
	}
	target, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", fmt.Errorf("%s: %w", root, unwrapPath(err))
	}
	return target, nil
}

// unwrapPath strips the *fs.PathError wrapper so the path is not printed twice.
func unwrapPath(err error) error {
	if pe, ok := err.(*fs.PathError); ok {
		return pe.Err
	}
	return err
}
