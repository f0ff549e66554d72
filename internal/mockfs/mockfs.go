// Package mockfs provides a scripted, in-memory filesystem source with
// injectable failures and latencies.
package mockfs

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lstree "github.com/TFMV/lstree/internal/walk"
)

// ErrFilesystem is the generic failure used by Fixture.
var ErrFilesystem = errors.New("Filesystem error")

type kind int

const (
	kindFile kind = iota
	kindDir
	kindOther
)

type node struct {
	kind      kind
	listErr   error
	statErr   error
	listDelay time.Duration
	statDelay time.Duration
}

// stat is the StatResult handed out by FS.
type stat struct {
	kind kind
}

func (s stat) IsDir() bool  { return s.kind == kindDir }
func (s stat) IsFile() bool { return s.kind == kindFile }

// FS is a slash-separated in-memory tree. The zero value is not usable;
// create one with New.
type FS struct {
	mu    sync.RWMutex
	nodes map[string]*node

	listCalls atomic.Int64
	statCalls atomic.Int64
}

// New returns an FS holding only the root directory "/".
func New() *FS {
	return &FS{nodes: map[string]*node{"/": {kind: kindDir}}}
}

// File adds a regular file, creating parent directories.
func (f *FS) File(p string) *FS { return f.add(p, kindFile) }

// Dir adds a directory, creating parent directories.
func (f *FS) Dir(p string) *FS { return f.add(p, kindDir) }

// Other adds an entry that is neither a file nor a directory.
func (f *FS) Other(p string) *FS { return f.add(p, kindOther) }

// FailList makes listing p fail with err.
func (f *FS) FailList(p string, err error) *FS {
	f.mutate(p, func(n *node) { n.listErr = err })
	return f
}

// FailStat makes stat of p fail with err.
func (f *FS) FailStat(p string, err error) *FS {
	f.mutate(p, func(n *node) { n.statErr = err })
	return f
}

// DelayList makes listing p respond after d.
func (f *FS) DelayList(p string, d time.Duration) *FS {
	f.mutate(p, func(n *node) { n.listDelay = d })
	return f
}

// DelayStat makes stat of p respond after d.
func (f *FS) DelayStat(p string, d time.Duration) *FS {
	f.mutate(p, func(n *node) { n.statDelay = d })
	return f
}

// ListCalls returns how many times ListNames was called.
func (f *FS) ListCalls() int64 { return f.listCalls.Load() }

// StatCalls returns how many times Stat was called.
func (f *FS) StatCalls() int64 { return f.statCalls.Load() }

// Name implements lstree.Source.
func (f *FS) Name() string { return "mockfs" }

// Join implements lstree.Source.
func (f *FS) Join(parent, name string) string { return path.Join(parent, name) }

// ListNames implements lstree.Source. Delays ignore ctx so that late
// responses can be observed by callers.
func (f *FS) ListNames(ctx context.Context, p string) ([]string, error) {
	f.listCalls.Add(1)
	p = clean(p)

	f.mu.RLock()
	n, ok := f.nodes[p]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("mockfs: %s: no such file or directory", p)
	}
	sleep(n.listDelay)
	if n.listErr != nil {
		return nil, n.listErr
	}
	if n.kind != kindDir {
		return nil, fmt.Errorf("mockfs: %s: not a directory", p)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	var names []string
	for child := range f.nodes {
		if child != "/" && path.Dir(child) == p {
			names = append(names, path.Base(child))
		}
	}
	sort.Strings(names)
	return names, nil
}

// Stat implements lstree.Source.
func (f *FS) Stat(ctx context.Context, p string) (lstree.StatResult, error) {
	f.statCalls.Add(1)
	p = clean(p)

	f.mu.RLock()
	n, ok := f.nodes[p]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("mockfs: %s: no such file or directory", p)
	}
	sleep(n.statDelay)
	if n.statErr != nil {
		return nil, n.statErr
	}
	return stat{kind: n.kind}, nil
}

func (f *FS) add(p string, k kind) *FS {
	p = clean(p)
	f.mu.Lock()
	defer f.mu.Unlock()
	for dir := path.Dir(p); dir != "/"; dir = path.Dir(dir) {
		if _, ok := f.nodes[dir]; !ok {
			f.nodes[dir] = &node{kind: kindDir}
		}
	}
	if n, ok := f.nodes[p]; ok {
		n.kind = k
		return f
	}
	f.nodes[p] = &node{kind: k}
	return f
}

func (f *FS) mutate(p string, fn func(*node)) {
	p = clean(p)
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.nodes[p]
	if !ok {
		panic(fmt.Sprintf("mockfs: %s was never added", p))
	}
	fn(n)
}

func clean(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

func sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

// Fixture returns the demonstration tree: a mix of files, nested and empty
// directories, an unknown entry, a failing stat and a stat that responds
// only after timeout.
func Fixture(timeout time.Duration) *FS {
	return New().
		File("/e").
		File("/a").
		File("/g").
		File("/c").
		Dir("/d/dd").
		File("/b/aa").
		File("/b/bb").FailStat("/b/bb", ErrFilesystem).
		File("/b/cc").
		Other("/f/ee").
		File("/f/ff").DelayStat("/f/ff", 2*timeout).
		File("/f/gg/hhh/iiii")
}
