package lstree

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// EntryType classifies a child of a listed directory.
type EntryType string

const (
	EntryFile      EntryType = "file"
	EntryDirectory EntryType = "directory"
	EntryUnknown   EntryType = "unknown"
	EntryError     EntryType = "error"
)

// Entry is one classified child of a listed directory.
type Entry struct {
	Name string    // Name as returned by the listing
	Path string    // Joined path of the child
	Type EntryType // Classification
	Err  error     // Stat failure, set only when Type is EntryError
}

// Lister lists one directory and classifies its children.
type Lister struct {
	src       Source
	timeout   time.Duration
	normalize bool
	logger    *zap.Logger
	stats     *Stats
}

// NewLister returns a Lister that bounds every call to src by timeout.
func NewLister(src Source, timeout time.Duration, logger *zap.Logger) *Lister {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lister{src: src, timeout: timeout, logger: logger, stats: &Stats{}}
}

// List returns the classified children of path in stat completion order.
// Only a failure to list path itself is returned as an error.
func (l *Lister) List(ctx context.Context, path string) ([]Entry, error) {
	type outcome struct {
		entries []Entry
		err     error
	}
	ch := make(chan outcome, 1)
	l.ListAsync(ctx, path, func(entries []Entry, err error) {
		ch <- outcome{entries: entries, err: err}
	})
	res := <-ch
	return res.entries, res.err
}

// ListAsync is the callback form of List. done is called exactly once from
// another goroutine.
func (l *Lister) ListAsync(ctx context.Context, path string, done func([]Entry, error)) {
	go func() {
		names, err := CallWithDeadline(ctx, l.timeout,
			fmt.Sprintf("%s.list: timeout - %s", l.src.Name(), path),
			func(ctx context.Context) ([]string, error) {
				return l.src.ListNames(ctx, path)
			})
		l.stats.addListed(err)
		if err != nil {
			done(nil, err)
			return
		}
		if len(names) == 0 {
			done([]Entry{}, nil)
			return
		}

		// Each stat owns one send; entries land in the order responses arrive.
		results := make(chan Entry, len(names))
		for _, name := range names {
			go func(name string) {
				results <- l.classify(ctx, path, name)
			}(name)
		}

		entries := make([]Entry, 0, len(names))
		for range names {
			entries = append(entries, <-results)
		}
		done(entries, nil)
	}()
}

// classify stats one child of parent.
func (l *Lister) classify(ctx context.Context, parent, name string) Entry {
	childPath := l.src.Join(parent, name)
	if l.normalize {
		name = norm.NFC.String(name)
	}
	entry := Entry{Name: name, Path: childPath, Type: EntryUnknown}

	st, err := CallWithDeadline(ctx, l.timeout,
		fmt.Sprintf("%s.stat: timeout - %s", l.src.Name(), childPath),
		func(ctx context.Context) (StatResult, error) {
			return l.src.Stat(ctx, childPath)
		})
	l.stats.addStatted(err)

	switch {
	case err != nil:
		entry.Type = EntryError
		entry.Err = err
		l.logger.Debug("stat failed", zap.String("path", childPath), zap.Error(err))
	case st == nil:
	case st.IsDir():
		entry.Type = EntryDirectory
	case st.IsFile():
		entry.Type = EntryFile
	}
	return entry
}
