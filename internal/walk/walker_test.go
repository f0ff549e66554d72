package lstree_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/TFMV/lstree/internal/mockfs"
	lstree "github.com/TFMV/lstree/internal/walk"
)

func newWalker(t *testing.T, fs lstree.Source, timeout time.Duration) *lstree.Walker {
	logger := zaptest.NewLogger(t)
	return lstree.NewWalker(lstree.NewLister(fs, timeout, logger), logger)
}

func TestWalkerResults(t *testing.T) {
	boom := errors.New("boom")
	fs := mockfs.New().
		File("/a").
		Dir("/empty").
		File("/b/aa").
		File("/b/c/cc").
		File("/locked/x").FailList("/locked", boom)

	results := newWalker(t, fs, time.Second).Walk(context.Background(), "/")

	require.Len(t, results, 5)
	require.ElementsMatch(t, []string{"/", "/empty", "/b", "/b/c", "/locked"}, keys(results))

	// Directories are recursed into, never kept as entries.
	root := results["/"]
	require.NoError(t, root.Err)
	require.Len(t, root.Entries, 1)
	require.Equal(t, "a", root.Entries[0].Name)
	require.Empty(t, root.Segments)

	require.Equal(t, []string{"b", "c"}, results["/b/c"].Segments)
	require.Empty(t, results["/empty"].Entries)
	require.NotNil(t, results["/empty"].Entries)

	locked := results["/locked"]
	require.ErrorIs(t, locked.Err, boom)
	require.Nil(t, locked.Entries)
	require.Equal(t, []string{"locked"}, locked.Segments)
}

func TestWalkerRootFailure(t *testing.T) {
	boom := errors.New("boom")
	fs := mockfs.New().File("/a").FailList("/", boom)

	results := newWalker(t, fs, time.Second).Walk(context.Background(), "/")
	require.Len(t, results, 1)
	require.ErrorIs(t, results["/"].Err, boom)
	require.EqualValues(t, 0, fs.StatCalls())
}

// The completion callback fires exactly once however deep and wide the tree
// is and however the responses interleave.
func TestWalkerCompletesOnce(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	fs := mockfs.New()
	var dirs []string
	var build func(prefix string, depth int)
	build = func(prefix string, depth int) {
		for i := 0; i < 3; i++ {
			p := fmt.Sprintf("%s/f%d", prefix, i)
			fs.File(p).DelayStat(p, time.Duration(rng.Intn(5))*time.Millisecond)
		}
		if depth == 0 {
			return
		}
		for i := 0; i < 3; i++ {
			p := fmt.Sprintf("%s/d%d", prefix, i)
			fs.Dir(p).DelayList(p, time.Duration(rng.Intn(5))*time.Millisecond)
			dirs = append(dirs, p)
			build(p, depth-1)
		}
	}
	build("", 3)

	var calls atomic.Int32
	done := make(chan map[string]lstree.DirectoryResult, 2)
	logger := zap.NewNop()
	walker := lstree.NewWalker(lstree.NewLister(fs, time.Second, logger), logger)
	walker.WalkAsync(context.Background(), "/", func(results map[string]lstree.DirectoryResult) {
		calls.Add(1)
		done <- results
	})

	var results map[string]lstree.DirectoryResult
	select {
	case results = <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("walk never completed")
	}

	time.Sleep(50 * time.Millisecond)
	require.EqualValues(t, 1, calls.Load())
	require.Len(t, results, len(dirs)+1)
	for _, d := range dirs {
		require.Contains(t, results, d)
		require.Len(t, results[d].Entries, 3)
	}
}

func TestWalkerTimeoutsAreAbsorbed(t *testing.T) {
	fs := mockfs.New().
		File("/a").
		File("/slow/x").DelayList("/slow", 200*time.Millisecond).
		File("/b/late").DelayStat("/b/late", 200*time.Millisecond)

	results := newWalker(t, fs, 30*time.Millisecond).Walk(context.Background(), "/")

	require.True(t, lstree.IsTimeout(results["/slow"].Err))
	require.Len(t, results["/b"].Entries, 1)
	late := results["/b"].Entries[0]
	require.Equal(t, lstree.EntryError, late.Type)
	require.True(t, lstree.IsTimeout(late.Err))
}

func keys(m map[string]lstree.DirectoryResult) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
