package lstree

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/karrick/godirwalk"
	"github.com/spf13/afero"
)

// StatResult is the part of a stat response the lister needs to classify an entry.
type StatResult interface {
	IsDir() bool
	IsFile() bool
}

// Source is the filesystem service a walk reads from.
// Implementations must be safe for concurrent use.
type Source interface {
	// Name identifies the backend in timeout messages.
	Name() string
	// ListNames returns the names of the immediate children of path.
	ListNames(ctx context.Context, path string) ([]string, error)
	// Stat describes the entry at path.
	Stat(ctx context.Context, path string) (StatResult, error)
	// Join builds a child path from its parent and a name.
	Join(parent, name string) string
}

// fileInfoStat adapts an os.FileInfo to StatResult.
type fileInfoStat struct {
	os.FileInfo
}

func (s fileInfoStat) IsFile() bool { return s.Mode().IsRegular() }

// StatFromFileInfo wraps info as a StatResult.
func StatFromFileInfo(info os.FileInfo) StatResult {
	return fileInfoStat{FileInfo: info}
}

// --------------------------------------------------------------------------
// Local filesystem
// --------------------------------------------------------------------------

// OSSource reads the local filesystem. Directory names come from godirwalk,
// which avoids building an os.FileInfo for every child.
// Stat follows symbolic links, so a link to a directory is walked into.
type OSSource struct {
	scratch sync.Pool
}

// NewOSSource returns a Source backed by the local filesystem.
func NewOSSource() *OSSource {
	return &OSSource{
		scratch: sync.Pool{
			New: func() any {
				b := make([]byte, godirwalk.MinimumScratchBufferSize)
				return &b
			},
		},
	}
}

// Name implements Source.
func (s *OSSource) Name() string { return "os" }

// ListNames implements Source.
func (s *OSSource) ListNames(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf, _ := s.scratch.Get().(*[]byte)
	if buf == nil {
		b := make([]byte, godirwalk.MinimumScratchBufferSize)
		buf = &b
	}
	defer s.scratch.Put(buf)

	names, err := godirwalk.ReadDirnames(path, *buf)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Stat implements Source.
func (s *OSSource) Stat(ctx context.Context, path string) (StatResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return StatFromFileInfo(info), nil
}

// Join implements Source.
func (s *OSSource) Join(parent, name string) string {
	return filepath.Join(parent, name)
}

// --------------------------------------------------------------------------
// afero
// --------------------------------------------------------------------------

// AferoSource reads any afero filesystem, such as an in-memory tree or a
// read-only view of the OS filesystem.
type AferoSource struct {
	fs afero.Fs
}

// NewAferoSource returns a Source backed by fs.
func NewAferoSource(fs afero.Fs) *AferoSource {
	return &AferoSource{fs: fs}
}

// Name implements Source.
func (s *AferoSource) Name() string { return "afero" }

// ListNames implements Source.
func (s *AferoSource) ListNames(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := s.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	names, err := f.Readdirnames(-1)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Stat implements Source.
func (s *AferoSource) Stat(ctx context.Context, path string) (StatResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := s.fs.Stat(path)
	if err != nil {
		return nil, err
	}
	return StatFromFileInfo(info), nil
}

// Join implements Source.
func (s *AferoSource) Join(parent, name string) string {
	return filepath.Join(parent, name)
}
