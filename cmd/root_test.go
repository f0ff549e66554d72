package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	lstree "github.com/TFMV/lstree/internal/walk"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func setConfig(t *testing.T, values map[string]any) {
	t.Helper()
	for k, v := range values {
		viper.Set(k, v)
	}
	t.Cleanup(viper.Reset)
}

func TestRunListMockBackend(t *testing.T) {
	setConfig(t, map[string]any{
		"backend": "mock",
		"timeout": 30 * time.Millisecond,
		"format":  "json",
		"silent":  true,
	})

	var out bytes.Buffer
	require.NoError(t, runList(context.Background(), &out, "/"))

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Equal(t, "file", got["a"])
	require.Equal(t, map[string]any{"aa": "file", "bb": "Filesystem error", "cc": "file"}, got["b"])
	require.Equal(t, "mockfs.stat: timeout - /f/ff", got["f"].(map[string]any)["ff"])
}

func TestRunListMockBackendRejectsPath(t *testing.T) {
	setConfig(t, map[string]any{
		"backend": "mock",
		"timeout": 30 * time.Millisecond,
		"format":  "json",
		"silent":  true,
	})

	var out bytes.Buffer
	err := runList(context.Background(), &out, "/home/user")
	require.EqualError(t, err, `mock backend only serves "/", got "/home/user"`)
	require.Empty(t, out.String())
}

func TestRunListTextFormat(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "a.txt"), []byte("a"), 0644))

	for _, backend := range []string{"os", "afero"} {
		t.Run(backend, func(t *testing.T) {
			setConfig(t, map[string]any{
				"backend": backend,
				"timeout": time.Second,
				"format":  "text",
				"silent":  true,
			})

			var out bytes.Buffer
			require.NoError(t, runList(context.Background(), &out, root))
			require.Equal(t, "sub/\n  a.txt: file\n", out.String())
		})
	}
}

func TestOptionsFromConfigErrors(t *testing.T) {
	setConfig(t, map[string]any{"backend": "ftp", "timeout": time.Second})
	_, err := optionsFromConfig()
	require.EqualError(t, err, "invalid backend: ftp")

	setConfig(t, map[string]any{"backend": "os", "timeout": "0s"})
	_, err = optionsFromConfig()
	require.Error(t, err)
}

func TestOptionsFromConfigLogLevel(t *testing.T) {
	setConfig(t, map[string]any{"backend": "os", "timeout": time.Second, "verbose": true})
	opts, err := optionsFromConfig()
	require.NoError(t, err)
	require.Equal(t, lstree.LogLevelDebug, opts.LogLevel)
	require.IsType(t, &lstree.OSSource{}, opts.Source)
}

func TestWriteTreeInvalidFormat(t *testing.T) {
	err := writeTree(&bytes.Buffer{}, lstree.Tree{}, "yaml")
	require.EqualError(t, err, "invalid format: yaml")
}
