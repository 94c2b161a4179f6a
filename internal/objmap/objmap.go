// Package objmap plans where each declared source file is compiled to.
//
// Mapping is pure path arithmetic: it never touches the filesystem, so the
// whole object layout is known before any source or header is read.
package objmap

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Suffixes of translation units and their objects.
const (
	SourceSuffix = ".c"
	ObjectSuffix = ".o"
)

// Unit is one translation unit: a source and the object compiled from it.
type Unit struct {
	Source string
	Object string
}

// SuffixError reports a source declaration that is not a C file.
type SuffixError struct {
	Decl string
}

func (e *SuffixError) Error() string {
	return fmt.Sprintf("%s: expected c source file", e.Decl)
}

// EscapeError reports a source declaration whose object would land outside
// the build output root.
type EscapeError struct {
	Decl   string
	Object string
	Root   string
}

func (e *EscapeError) Error() string {
	return fmt.Sprintf("%s: object %s escapes build output root %s", e.Decl, e.Object, e.Root)
}

// Map derives the unit for src as declared in the description file at
// descPath. The source resolves against the description's directory; the
// object mirrors that directory under outRoot.
//
//	Map("usr/src/uts/fs/build.toml", "vnode.c", "bld")
//	  => {usr/src/uts/fs/vnode.c, bld/usr/src/uts/fs/vnode.o}
func Map(descPath, src, outRoot string) (Unit, error) {
	stem, ok := strings.CutSuffix(src, SourceSuffix)
	if !ok || stem == "" {
		return Unit{}, &SuffixError{Decl: src}
	}
	dir := filepath.Dir(descPath)
	obj := filepath.Join(outRoot, dir, stem+ObjectSuffix)
	if !under(obj, outRoot) {
		return Unit{}, &EscapeError{Decl: src, Object: obj, Root: outRoot}
	}
	return Unit{
		Source: filepath.Join(dir, src),
		Object: obj,
	}, nil
}

// MapAll maps every source of one description, preserving declaration
// order. The first bad declaration fails the whole list.
func MapAll(descPath string, srcs []string, outRoot string) ([]Unit, error) {
	units := make([]Unit, 0, len(srcs))
	for _, src := range srcs {
		u, err := Map(descPath, src, outRoot)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, nil
}

// Sources returns the source paths of units.
func Sources(units []Unit) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.Source
	}
	return out
}

// Objects returns the object paths of units.
func Objects(units []Unit) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.Object
	}
	return out
}

func under(path, root string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
