package lstree

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// WatchEvent represents a filesystem event type
type WatchEvent string

// Watch event types
const (
	EventInitial WatchEvent = "initial"
	EventCreate  WatchEvent = "create"
	EventModify  WatchEvent = "modify"
	EventDelete  WatchEvent = "delete"
	EventRename  WatchEvent = "rename"
	EventChmod   WatchEvent = "chmod"
)

// DefaultDebounce is how long Watch collects events before re-walking.
const DefaultDebounce = 100 * time.Millisecond

// WatchOptions defines options for watching a tree.
type WatchOptions struct {
	// Events that trigger a new snapshot. If empty, all events do.
	Events []WatchEvent

	// Quiet period after the last event before the tree is re-walked.
	Debounce time.Duration

	// Timeout duration (0 means no timeout)
	Timeout time.Duration
}

// WatchResult carries one snapshot of the watched tree.
type WatchResult struct {
	Tree  Tree
	Event WatchEvent // Event that triggered this snapshot
	Path  string     // Path of the triggering event; empty for the initial snapshot
	Error error      // Root listing failure, or a watcher error
}

// WatchHandler processes snapshots. Returning an error stops the watch.
type WatchHandler func(ctx context.Context, result WatchResult) error

// Watch lists root, hands the tree to handler, and lists it again every time
// the watched directories change. Sources must address local filesystem paths,
// since fsnotify watches the operating system's view of root.
//
// Watch returns when ctx is done, the timeout elapses, or handler fails.
func Watch(ctx context.Context, root string, opts Options, wopts WatchOptions, handler WatchHandler) error {
	if ctx == nil {
		ctx = context.Background()
	}
	opts, err := opts.withDefaults()
	if err != nil {
		return err
	}
	if handler == nil {
		return fmt.Errorf("lstree: watch handler must not be nil")
	}
	if wopts.Debounce <= 0 {
		wopts.Debounce = DefaultDebounce
	}
	if wopts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, wopts.Timeout)
		defer cancel()
	}

	logger := opts.Logger
	if logger == nil {
		logger = newLogger(opts.LogLevel)
		defer logger.Sync()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating watcher: %w", err)
	}
	defer watcher.Close()

	lister := NewLister(opts.Source, opts.Timeout, logger)
	lister.normalize = opts.Normalize
	walker := NewWalker(lister, logger)

	snapshot := func(event WatchEvent, path string) error {
		results := walker.Walk(ctx, root)
		for dir, res := range results {
			if res.Err != nil {
				continue
			}
			if err := watcher.Add(dir); err != nil {
				logger.Warn("error watching directory", zap.String("path", dir), zap.Error(err))
			}
		}
		tree, err := Assemble(root, results)
		if err != nil {
			err = fmt.Errorf("lstree: list root %q: %w", root, err)
		}
		return handler(ctx, WatchResult{Tree: tree, Event: event, Path: path, Error: err})
	}

	if err := snapshot(EventInitial, ""); err != nil {
		return err
	}

	wanted := eventMask(wopts.Events)

	var (
		debounce  *time.Timer
		fire      <-chan time.Time
		lastEvent WatchEvent
		lastPath  string
	)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			kind, match := classifyEvent(event, wanted)
			if !match {
				continue
			}
			logger.Debug("filesystem event", zap.String("path", event.Name), zap.String("event", string(kind)))
			lastEvent, lastPath = kind, event.Name
			if debounce == nil {
				debounce = time.NewTimer(wopts.Debounce)
			} else {
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(wopts.Debounce)
			}
			fire = debounce.C

		case <-fire:
			fire = nil
			if err := snapshot(lastEvent, lastPath); err != nil {
				return err
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if herr := handler(ctx, WatchResult{Error: fmt.Errorf("watcher error: %w", err)}); herr != nil {
				return herr
			}

		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil
		}
	}
}

// eventMask maps requested events to fsnotify operations.
func eventMask(events []WatchEvent) fsnotify.Op {
	if len(events) == 0 {
		return fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename | fsnotify.Chmod
	}
	var mask fsnotify.Op
	for _, e := range events {
		switch e {
		case EventCreate:
			mask |= fsnotify.Create
		case EventModify:
			mask |= fsnotify.Write
		case EventDelete:
			mask |= fsnotify.Remove
		case EventRename:
			mask |= fsnotify.Rename
		case EventChmod:
			mask |= fsnotify.Chmod
		}
	}
	return mask
}

// classifyEvent picks the first requested operation present on event.
func classifyEvent(event fsnotify.Event, wanted fsnotify.Op) (WatchEvent, bool) {
	switch {
	case event.Has(fsnotify.Create) && wanted.Has(fsnotify.Create):
		return EventCreate, true
	case event.Has(fsnotify.Write) && wanted.Has(fsnotify.Write):
		return EventModify, true
	case event.Has(fsnotify.Remove) && wanted.Has(fsnotify.Remove):
		return EventDelete, true
	case event.Has(fsnotify.Rename) && wanted.Has(fsnotify.Rename):
		return EventRename, true
	case event.Has(fsnotify.Chmod) && wanted.Has(fsnotify.Chmod):
		return EventChmod, true
	}
	return "", false
}

// ParseWatchEvent converts a user-supplied event name.
func ParseWatchEvent(s string) (WatchEvent, error) {
	switch s {
	case "create":
		return EventCreate, nil
	case "write", "modify":
		return EventModify, nil
	case "remove", "delete":
		return EventDelete, nil
	case "rename":
		return EventRename, nil
	case "chmod":
		return EventChmod, nil
	}
	return "", fmt.Errorf("unknown event type: %s", s)
}
