package walk

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestListAfero(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/data/empty", 0755))
	require.NoError(t, afero.WriteFile(fs, "/data/a.txt", []byte("a"), 0644))

	opts := WithTimeout(NewOptions(NewAferoSource(fs)), time.Second)
	opts.Logger = zap.NewNop()

	tree, err := List(context.Background(), "/data", opts)
	require.NoError(t, err)
	require.Equal(t, Tree{"a.txt": Leaf{Kind: LeafFile}, "empty": Tree{}}, tree)
}

func TestListDirMissing(t *testing.T) {
	_, err := ListDir(context.Background(), "/path/that/does/not/exist")
	require.Error(t, err)
	require.False(t, IsTimeout(err))
}

func TestNewOptions(t *testing.T) {
	opts := NewOptions(NewOSSource())
	require.Equal(t, DefaultTimeout, opts.Timeout)
	require.Equal(t, LogLevelWarn, opts.LogLevel)
	require.NotNil(t, opts.Source)
}
