// Package walk is the public API for building nested snapshots of directory
// trees.
//
// It re-exports the implementation from the internal package so callers get a
// stable import path.
package walk

import (
	"context"
	"time"

	internal "github.com/TFMV/lstree/internal/walk"
	"github.com/spf13/afero"
)

// Re-export all the types from the internal package
type (
	// Tree maps path segments to nested trees or leaves.
	Tree = internal.Tree

	// Node is either a Tree or a Leaf.
	Node = internal.Node

	// Leaf is a terminal value: a type name or an error message.
	Leaf = internal.Leaf

	// LeafKind tags the variant of a Leaf.
	LeafKind = internal.LeafKind

	// Entry is one classified child of a listed directory.
	Entry = internal.Entry

	// EntryType classifies an Entry.
	EntryType = internal.EntryType

	// DirectoryResult is the listing outcome for one visited directory.
	DirectoryResult = internal.DirectoryResult

	// Source is the filesystem service a walk reads from.
	Source = internal.Source

	// StatResult is what a Source reports about one entry.
	StatResult = internal.StatResult

	// Options configures a walk.
	Options = internal.Options

	// Stats holds walk statistics.
	Stats = internal.Stats

	// ProgressFn is called periodically with walk statistics.
	ProgressFn = internal.ProgressFn

	// LogLevel defines the verbosity of logging.
	LogLevel = internal.LogLevel

	// TimeoutError is delivered when a list or stat call exceeds its deadline.
	TimeoutError = internal.TimeoutError

	// Re-export watch types
	WatchEvent   = internal.WatchEvent
	WatchOptions = internal.WatchOptions
	WatchResult  = internal.WatchResult
	WatchHandler = internal.WatchHandler
)

// Re-export all the constants
const (
	// Leaf kinds
	LeafFile      = internal.LeafFile
	LeafUnknown   = internal.LeafUnknown
	LeafDirectory = internal.LeafDirectory
	LeafError     = internal.LeafError

	// Entry types
	EntryFile      = internal.EntryFile
	EntryDirectory = internal.EntryDirectory
	EntryUnknown   = internal.EntryUnknown
	EntryError     = internal.EntryError

	// Log levels
	LogLevelError = internal.LogLevelError
	LogLevelWarn  = internal.LogLevelWarn
	LogLevelInfo  = internal.LogLevelInfo
	LogLevelDebug = internal.LogLevelDebug

	// Watch event constants
	EventInitial = internal.EventInitial
	EventCreate  = internal.EventCreate
	EventModify  = internal.EventModify
	EventDelete  = internal.EventDelete
	EventRename  = internal.EventRename
	EventChmod   = internal.EventChmod

	DefaultTimeout  = internal.DefaultTimeout
	DefaultDebounce = internal.DefaultDebounce
)

// Re-export sentinel errors
var (
	ErrNilSource      = internal.ErrNilSource
	ErrInvalidTimeout = internal.ErrInvalidTimeout
	ErrRootNotVisited = internal.ErrRootNotVisited
)

// ListTree walks root in the background and calls cb exactly once.
func ListTree(ctx context.Context, root string, opts Options, cb func(Tree, error)) {
	internal.ListTree(ctx, root, opts, cb)
}

// List walks root and returns its tree.
func List(ctx context.Context, root string, opts Options) (Tree, error) {
	return internal.List(ctx, root, opts)
}

// ListDir walks a local directory with the default timeout.
func ListDir(ctx context.Context, root string) (Tree, error) {
	return internal.List(ctx, root, NewOptions(internal.NewOSSource()))
}

// Watch re-lists root every time it changes and hands each tree to handler.
func Watch(ctx context.Context, root string, opts Options, wopts WatchOptions, handler WatchHandler) error {
	return internal.Watch(ctx, root, opts, wopts, handler)
}

// NewOptions creates Options with default values for src.
func NewOptions(src Source) Options {
	return Options{
		Source:   src,
		Timeout:  DefaultTimeout,
		LogLevel: LogLevelWarn,
	}
}

// NewOSSource returns a Source backed by the local filesystem.
func NewOSSource() Source {
	return internal.NewOSSource()
}

// NewAferoSource returns a Source backed by an afero filesystem.
func NewAferoSource(fs afero.Fs) Source {
	return internal.NewAferoSource(fs)
}

// WithTimeout returns a copy of opts with a per-call deadline of d.
func WithTimeout(opts Options, d time.Duration) Options {
	opts.Timeout = d
	return opts
}

// IsTimeout reports whether err was caused by a list or stat deadline.
func IsTimeout(err error) bool {
	return internal.IsTimeout(err)
}

// Assemble builds a tree from the raw results of a walk of root.
func Assemble(root string, results map[string]DirectoryResult) (Tree, error) {
	return internal.Assemble(root, results)
}
