package lstree

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// DirectoryResult is the listing outcome for one visited directory.
type DirectoryResult struct {
	Entries  []Entry  // Non-directory children, in completion order
	Err      error    // Listing failure; Entries is nil when set
	Segments []string // Names leading from the walk root to this directory
}

// walkState is shared by every step of one walk.
type walkState struct {
	mu      sync.Mutex
	results map[string]DirectoryResult
	pending atomic.Int64
	once    sync.Once
	done    func(map[string]DirectoryResult)
}

// Walker drives a Lister across a whole directory tree.
//
// Every discovered directory is listed as soon as it is found; there is no
// limit on the number of listings in flight.
type Walker struct {
	lister *Lister
	logger *zap.Logger
}

// NewWalker returns a Walker that lists directories with lister.
func NewWalker(lister *Lister, logger *zap.Logger) *Walker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Walker{lister: lister, logger: logger}
}

// Walk lists root and every directory below it and returns the result of
// each visited path. Listing failures are recorded, not returned.
func (w *Walker) Walk(ctx context.Context, root string) map[string]DirectoryResult {
	ch := make(chan map[string]DirectoryResult, 1)
	w.WalkAsync(ctx, root, func(results map[string]DirectoryResult) {
		ch <- results
	})
	return <-ch
}

// WalkAsync starts a walk at root and calls done exactly once, after every
// listing the walk spawned has resolved.
func (w *Walker) WalkAsync(ctx context.Context, root string, done func(map[string]DirectoryResult)) {
	state := &walkState{
		results: make(map[string]DirectoryResult),
		done:    done,
	}
	w.step(ctx, state, root, []string{})
}

// step visits one directory. The pending counter is raised before the
// listing is issued and lowered only after every child step has raised it
// again, so it reaches zero once, when the whole tree is done.
func (w *Walker) step(ctx context.Context, state *walkState, path string, segments []string) {
	state.pending.Add(1)

	w.lister.ListAsync(ctx, path, func(entries []Entry, err error) {
		if err != nil {
			w.logger.Warn("list failed", zap.String("path", path), zap.Error(err))
			state.record(path, DirectoryResult{Err: err, Segments: segments})
		} else {
			w.logger.Debug("listed directory", zap.String("path", path), zap.Int("entries", len(entries)))
			files := make([]Entry, 0, len(entries))
			for _, entry := range entries {
				if entry.Type == EntryDirectory {
					child := make([]string, len(segments), len(segments)+1)
					copy(child, segments)
					w.step(ctx, state, entry.Path, append(child, entry.Name))
					continue
				}
				files = append(files, entry)
			}
			state.record(path, DirectoryResult{Entries: files, Segments: segments})
		}

		if state.pending.Add(-1) == 0 {
			state.finish()
		}
	})
}

func (s *walkState) record(path string, res DirectoryResult) {
	s.mu.Lock()
	s.results[path] = res
	s.mu.Unlock()
}

func (s *walkState) finish() {
	s.once.Do(func() {
		s.mu.Lock()
		results := s.results
		s.mu.Unlock()
		s.done(results)
	})
}
