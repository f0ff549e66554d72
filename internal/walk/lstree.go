// Package lstree builds a nested snapshot of a directory tree from a pluggable
// filesystem source, tolerating per-entry failures and bounding every
// filesystem call by a deadline.
package lstree

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultTimeout bounds each list or stat call when Options.Timeout is zero.
const DefaultTimeout = 500 * time.Millisecond

var (
	// ErrNilSource is returned when Options.Source is nil.
	ErrNilSource = errors.New("lstree: source must not be nil")
	// ErrInvalidTimeout is returned when Options.Timeout is negative.
	ErrInvalidTimeout = errors.New("lstree: timeout must not be negative")
)

// --------------------------------------------------------------------------
// Core types for progress monitoring
// --------------------------------------------------------------------------

// ProgressFn is called periodically with walk statistics.
// Implementations must be thread-safe as this may be called concurrently.
type ProgressFn func(stats Stats)

// Stats holds walk statistics that are updated atomically during the walk.
type Stats struct {
	DirsListed     int64         // Directories whose listing responded
	EntriesStatted int64         // Children whose stat responded
	ListErrors     int64         // Listings that failed or timed out
	StatErrors     int64         // Stats that failed or timed out
	Timeouts       int64         // Calls that hit the deadline
	ElapsedTime    time.Duration // Total time elapsed
}

func (s *Stats) addListed(err error) {
	atomic.AddInt64(&s.DirsListed, 1)
	if err != nil {
		atomic.AddInt64(&s.ListErrors, 1)
		s.addTimeout(err)
	}
}

func (s *Stats) addStatted(err error) {
	atomic.AddInt64(&s.EntriesStatted, 1)
	if err != nil {
		atomic.AddInt64(&s.StatErrors, 1)
		s.addTimeout(err)
	}
}

func (s *Stats) addTimeout(err error) {
	if IsTimeout(err) {
		atomic.AddInt64(&s.Timeouts, 1)
	}
}

// snapshot copies the counters with atomic loads.
func (s *Stats) snapshot(elapsed time.Duration) Stats {
	return Stats{
		DirsListed:     atomic.LoadInt64(&s.DirsListed),
		EntriesStatted: atomic.LoadInt64(&s.EntriesStatted),
		ListErrors:     atomic.LoadInt64(&s.ListErrors),
		StatErrors:     atomic.LoadInt64(&s.StatErrors),
		Timeouts:       atomic.LoadInt64(&s.Timeouts),
		ElapsedTime:    elapsed,
	}
}

// --------------------------------------------------------------------------
// Configuration types
// --------------------------------------------------------------------------

// LogLevel defines the verbosity of logging.
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// Options configures a walk.
type Options struct {
	Source    Source        // Filesystem to read; required
	Timeout   time.Duration // Deadline for every list and stat call; zero means DefaultTimeout
	Normalize bool          // NFC-normalize entry names used as tree keys
	Progress  ProgressFn
	Logger    *zap.Logger
	LogLevel  LogLevel // Used only when Logger is nil
}

// --------------------------------------------------------------------------
// Primary API functions
// --------------------------------------------------------------------------

// List walks root and returns its tree. Only a failure to list root itself
// is returned as an error.
func List(ctx context.Context, root string, opts Options) (Tree, error) {
	type outcome struct {
		tree Tree
		err  error
	}
	ch := make(chan outcome, 1)
	ListTree(ctx, root, opts, func(tree Tree, err error) {
		ch <- outcome{tree: tree, err: err}
	})
	res := <-ch
	return res.tree, res.err
}

// ListTree walks root in the background and calls cb exactly once, with the
// assembled tree on success or with the root's listing error.
func ListTree(ctx context.Context, root string, opts Options, cb func(Tree, error)) {
	if ctx == nil {
		ctx = context.Background()
	}
	opts, err := opts.withDefaults()
	if err != nil {
		go cb(nil, err)
		return
	}

	logger := opts.Logger
	if logger == nil {
		logger = newLogger(opts.LogLevel)
	}

	logger.Debug("starting walk",
		zap.String("root", root),
		zap.String("source", opts.Source.Name()),
		zap.Duration("timeout", opts.Timeout),
	)

	lister := NewLister(opts.Source, opts.Timeout, logger)
	lister.normalize = opts.Normalize
	stats := lister.stats
	startTime := time.Now()

	doneCh := make(chan struct{})
	if opts.Progress != nil {
		go func() {
			ticker := time.NewTicker(500 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-doneCh:
					return
				case <-ticker.C:
					opts.Progress(stats.snapshot(time.Since(startTime)))
				}
			}
		}()
	}

	walker := NewWalker(lister, logger)
	walker.WalkAsync(ctx, root, func(results map[string]DirectoryResult) {
		close(doneCh)
		final := stats.snapshot(time.Since(startTime))
		if opts.Progress != nil {
			opts.Progress(final)
		}

		tree, err := Assemble(root, results)
		if err != nil {
			logger.Error("walk failed", zap.String("root", root), zap.Error(err))
			err = fmt.Errorf("lstree: list root %q: %w", root, err)
		} else {
			logger.Info("walk complete",
				zap.String("root", root),
				zap.Int64("dirs_listed", final.DirsListed),
				zap.Int64("entries_statted", final.EntriesStatted),
				zap.Int64("list_errors", final.ListErrors),
				zap.Int64("stat_errors", final.StatErrors),
				zap.Int64("timeouts", final.Timeouts),
				zap.Duration("elapsed", final.ElapsedTime),
			)
		}
		if opts.Logger == nil {
			_ = logger.Sync()
		}
		cb(tree, err)
	})
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// withDefaults validates opts and fills in the default timeout.
func (o Options) withDefaults() (Options, error) {
	if o.Source == nil {
		return o, ErrNilSource
	}
	switch {
	case o.Timeout < 0:
		return o, fmt.Errorf("%w: %s", ErrInvalidTimeout, o.Timeout)
	case o.Timeout == 0:
		o.Timeout = DefaultTimeout
	}
	return o, nil
}

// zapLevel maps a LogLevel onto the matching zap level. Unknown values log
// at info.
func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LogLevelError:
		return zapcore.ErrorLevel
	case LogLevelWarn:
		return zapcore.WarnLevel
	case LogLevelDebug:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

// newLogger builds the logger used when Options.Logger is nil. Debug runs get
// zap's console encoder with colored levels, everything else logs JSON.
func newLogger(level LogLevel) *zap.Logger {
	config := zap.NewProductionConfig()
	if level == LogLevelDebug {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	config.Level = zap.NewAtomicLevelAt(level.zapLevel())

	logger, err := config.Build(zap.Fields(zap.String("component", "lstree")))
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
