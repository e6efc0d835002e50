package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
)

// ErrNotFound is returned when a navigation file does not exist.
var ErrNotFound = errors.New("not found")

// ErrNoSuchNode is returned when a breadcrumb path leaves the tree.
var ErrNoSuchNode = errors.New("no such node")

// Source opens the generated files of one documentation project.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	String() string
}

// DirSource reads files from a directory or any fs.FS.
type DirSource struct {
	fsys fs.FS
	desc string
}

// NewDirSource reads from the html output directory dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{fsys: os.DirFS(dir), desc: dir}
}

// NewFSSource reads from fsys; desc names it in errors and logs.
func NewFSSource(fsys fs.FS, desc string) *DirSource {
	return &DirSource{fsys: fsys, desc: desc}
}

func (s *DirSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name = path.Clean(name)
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("open %s: invalid path", name)
	}
	f, err := s.fsys.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s/%s: %w", s.desc, name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s/%s: %w", s.desc, name, err)
	}
	return f, nil
}

func (s *DirSource) String() string {
	return s.desc
}
