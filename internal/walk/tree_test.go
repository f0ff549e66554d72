package lstree

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func file(name, path string) Entry {
	return Entry{Name: name, Path: path, Type: EntryFile}
}

func TestAssemble(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name    string
		results map[string]DirectoryResult
		want    Tree
		wantErr error
	}{
		{
			name: "root listing failed",
			results: map[string]DirectoryResult{
				"/": {Err: boom, Segments: []string{}},
			},
			wantErr: boom,
		},
		{
			name:    "root missing",
			results: map[string]DirectoryResult{},
			wantErr: ErrRootNotVisited,
		},
		{
			name: "flat directory",
			results: map[string]DirectoryResult{
				"/": {Entries: []Entry{file("c", "/c"), file("a", "/a"), file("b", "/b")}},
			},
			want: Tree{"a": Leaf{Kind: LeafFile}, "b": Leaf{Kind: LeafFile}, "c": Leaf{Kind: LeafFile}},
		},
		{
			name: "nested with empty directory",
			results: map[string]DirectoryResult{
				"/":      {Entries: []Entry{file("e", "/e")}},
				"/d":     {Entries: []Entry{}, Segments: []string{"d"}},
				"/b":     {Entries: []Entry{file("aa", "/b/aa")}, Segments: []string{"b"}},
				"/b/x/y": {Entries: []Entry{file("z", "/b/x/y/z")}, Segments: []string{"b", "x", "y"}},
			},
			want: Tree{
				"e": Leaf{Kind: LeafFile},
				"d": Tree{},
				"b": Tree{
					"aa": Leaf{Kind: LeafFile},
					"x":  Tree{"y": Tree{"z": Leaf{Kind: LeafFile}}},
				},
			},
		},
		{
			name: "failed subdirectory becomes an error leaf",
			results: map[string]DirectoryResult{
				"/":  {Entries: []Entry{file("a", "/a")}},
				"/b": {Err: boom, Segments: []string{"b"}},
			},
			want: Tree{"a": Leaf{Kind: LeafFile}, "b": Leaf{Kind: LeafError, Message: "boom"}},
		},
		{
			name: "entry errors and unknown entries",
			results: map[string]DirectoryResult{
				"/": {Entries: []Entry{
					{Name: "bad", Path: "/bad", Type: EntryError, Err: errors.New("Filesystem error")},
					{Name: "sock", Path: "/sock", Type: EntryUnknown},
				}},
			},
			want: Tree{
				"bad":  Leaf{Kind: LeafError, Message: "Filesystem error"},
				"sock": Leaf{Kind: LeafUnknown},
			},
		},
		{
			name: "paths without recorded segments",
			results: map[string]DirectoryResult{
				"/":      {Entries: []Entry{file("a", "/a")}},
				"/b":     {Entries: []Entry{file("aa", "/b/aa")}},
				"/c":     {Err: boom},
				"/b/x/y": {Entries: []Entry{file("z", "/b/x/y/z")}},
			},
			want: Tree{
				"a": Leaf{Kind: LeafFile},
				"b": Tree{
					"aa": Leaf{Kind: LeafFile},
					"x":  Tree{"y": Tree{"z": Leaf{Kind: LeafFile}}},
				},
				"c": Leaf{Kind: LeafError, Message: "boom"},
			},
		},
		{
			name: "non-slash root",
			results: map[string]DirectoryResult{
				"data":     {Entries: []Entry{file("a", "data/a")}},
				"data/sub": {Entries: []Entry{file("b", "data/sub/b")}, Segments: []string{"sub"}},
			},
			want: Tree{"a": Leaf{Kind: LeafFile}, "sub": Tree{"b": Leaf{Kind: LeafFile}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := "/"
			if _, ok := tt.results["data"]; ok {
				root = "data"
			}
			got, err := Assemble(root, tt.results)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Nil(t, got)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestAssembleSkipsPathsOutsideRoot(t *testing.T) {
	got, err := Assemble("data", map[string]DirectoryResult{
		"data":       {Entries: []Entry{file("a", "data/a")}},
		"data/sub":   {Entries: []Entry{file("b", "data/sub/b")}},
		"database":   {Entries: []Entry{file("x", "database/x")}},
		"other/data": {Err: errors.New("boom")},
	})
	require.NoError(t, err)
	require.Equal(t, Tree{"a": Leaf{Kind: LeafFile}, "sub": Tree{"b": Leaf{Kind: LeafFile}}}, got)
}

func TestTreeMarshalJSON(t *testing.T) {
	tree := Tree{
		"e": Leaf{Kind: LeafFile},
		"d": Tree{},
		"b": Tree{
			"aa": Leaf{Kind: LeafFile},
			"bb": Leaf{Kind: LeafError, Message: "Filesystem error"},
		},
		"u": Leaf{Kind: LeafUnknown},
		"l": Leaf{Kind: LeafDirectory},
	}

	data, err := json.Marshal(tree)
	require.NoError(t, err)
	require.JSONEq(t, `{"e":"file","d":{},"b":{"aa":"file","bb":"Filesystem error"},"u":"unknown","l":"directory"}`, string(data))
}

func TestTreeEqualAndLookup(t *testing.T) {
	a := Tree{"x": Tree{"y": Leaf{Kind: LeafFile}}, "z": Leaf{Kind: LeafUnknown}}
	b := Tree{"z": Leaf{Kind: LeafUnknown}, "x": Tree{"y": Leaf{Kind: LeafFile}}}
	c := Tree{"z": Leaf{Kind: LeafUnknown}, "x": Leaf{Kind: LeafFile}}

	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
	require.False(t, a.Equal(Tree{}))

	n, ok := a.Lookup("/x/y")
	require.True(t, ok)
	require.Equal(t, Leaf{Kind: LeafFile}, n)

	_, ok = a.Lookup("x/y/w")
	require.False(t, ok)

	n, ok = a.Lookup("")
	require.True(t, ok)
	require.Equal(t, a, n)
}

func TestRenderText(t *testing.T) {
	tree := Tree{
		"b": Tree{"bb": Leaf{Kind: LeafError, Message: "Filesystem error"}, "aa": Leaf{Kind: LeafFile}},
		"a": Leaf{Kind: LeafFile},
		"d": Tree{},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, tree))
	require.Equal(t, "a: file\nb/\n  aa: file\n  bb: Filesystem error\nd/\n", buf.String())
}
