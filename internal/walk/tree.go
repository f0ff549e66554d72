package lstree

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
)

// ErrRootNotVisited is returned by Assemble when the results hold no entry
// for the root path.
var ErrRootNotVisited = errors.New("lstree: root path was not visited")

// LeafKind tags the variant of a Leaf.
type LeafKind int

const (
	LeafFile LeafKind = iota
	LeafUnknown
	LeafDirectory
	LeafError
)

// Node is either a Tree (a directory) or a Leaf.
type Node interface {
	isNode()
}

// Tree maps path segments to nodes.
type Tree map[string]Node

// Leaf is a terminal value in a Tree.
type Leaf struct {
	Kind    LeafKind
	Message string // Error text, set only for LeafError
}

func (Tree) isNode() {}
func (Leaf) isNode() {}

// String returns the serialized form of the leaf: its type name, or the
// error message for an error leaf.
func (l Leaf) String() string {
	switch l.Kind {
	case LeafFile:
		return string(EntryFile)
	case LeafDirectory:
		return string(EntryDirectory)
	case LeafError:
		return l.Message
	default:
		return string(EntryUnknown)
	}
}

// MarshalJSON encodes a leaf as a bare string.
func (l Leaf) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// MarshalJSON encodes the tree as nested objects.
func (t Tree) MarshalJSON() ([]byte, error) {
	m := make(map[string]json.Marshaler, len(t))
	for k, n := range t {
		switch v := n.(type) {
		case Tree:
			m[k] = v
		case Leaf:
			m[k] = v
		default:
			return nil, fmt.Errorf("lstree: unexpected node type %T at %q", n, k)
		}
	}
	return json.Marshal(m)
}

// LeafFromEntry converts a classified entry into a leaf.
func LeafFromEntry(e Entry) Leaf {
	if e.Err != nil {
		return Leaf{Kind: LeafError, Message: e.Err.Error()}
	}
	switch e.Type {
	case EntryFile:
		return Leaf{Kind: LeafFile}
	case EntryDirectory:
		return Leaf{Kind: LeafDirectory}
	case EntryError:
		return Leaf{Kind: LeafError, Message: string(EntryError)}
	default:
		return Leaf{Kind: LeafUnknown}
	}
}

// Assemble builds the nested tree for a finished walk of root.
//
// If root itself failed to list, its error is returned and every other
// result is discarded. A subdirectory that failed to list becomes an error
// leaf at its own position; an empty subdirectory becomes an empty Tree.
func Assemble(root string, results map[string]DirectoryResult) (Tree, error) {
	rootRes, ok := results[root]
	if !ok {
		return nil, ErrRootNotVisited
	}
	if rootRes.Err != nil {
		return nil, rootRes.Err
	}

	tree := Tree{}

	// Failed directories are applied last so they replace any node an
	// earlier path created at the same position.
	type placed struct {
		segments []string
		err      error
	}
	var failed []placed
	for path, res := range results {
		segments, ok := segmentsOf(root, path, res)
		if !ok {
			continue
		}
		if res.Err != nil {
			if len(segments) > 0 {
				failed = append(failed, placed{segments: segments, err: res.Err})
			}
			continue
		}
		node := tree.nodeAt(segments)
		if node == nil {
			continue
		}
		for _, e := range res.Entries {
			node[e.Name] = LeafFromEntry(e)
		}
	}

	for _, f := range failed {
		n := len(f.segments)
		parent := tree.nodeAt(f.segments[:n-1])
		if parent == nil {
			continue
		}
		parent[f.segments[n-1]] = Leaf{Kind: LeafError, Message: f.err.Error()}
	}
	return tree, nil
}

// segmentsOf returns the names leading from root to the directory at p.
// Results recorded by a Walker carry them already. Otherwise p is split
// relative to root on '/' and the OS separator. ok is false when p does not
// lie under root.
func segmentsOf(root, p string, res DirectoryResult) ([]string, bool) {
	if res.Segments != nil {
		return res.Segments, true
	}
	if p == root {
		return nil, true
	}
	rest, found := strings.CutPrefix(p, root)
	if !found {
		return nil, false
	}
	if !isSeparator(lastByte(root)) && (rest == "" || !isSeparator(rest[0])) {
		return nil, false
	}
	segments := strings.FieldsFunc(rest, func(r rune) bool {
		return r == '/' || r == filepath.Separator
	})
	return segments, true
}

func isSeparator(c byte) bool {
	return c == '/' || c == filepath.Separator
}

func lastByte(s string) byte {
	if s == "" {
		return 0
	}
	return s[len(s)-1]
}

// nodeAt returns the subtree at segments, creating empty intermediate trees
// as needed. It returns nil when a leaf already occupies part of the way.
func (t Tree) nodeAt(segments []string) Tree {
	cur := t
	for _, seg := range segments {
		next, ok := cur[seg]
		if !ok {
			sub := Tree{}
			cur[seg] = sub
			cur = sub
			continue
		}
		sub, isTree := next.(Tree)
		if !isTree {
			return nil
		}
		cur = sub
	}
	return cur
}

// Lookup returns the node at the slash-separated path p relative to the tree.
func (t Tree) Lookup(p string) (Node, bool) {
	p = strings.Trim(p, "/")
	if p == "" {
		return t, true
	}
	var cur Node = t
	for _, seg := range strings.Split(p, "/") {
		sub, ok := cur.(Tree)
		if !ok {
			return nil, false
		}
		cur, ok = sub[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Equal reports whether t and other hold the same keys and leaves.
func (t Tree) Equal(other Tree) bool {
	if len(t) != len(other) {
		return false
	}
	for k, n := range t {
		o, ok := other[k]
		if !ok {
			return false
		}
		switch v := n.(type) {
		case Tree:
			ot, ok := o.(Tree)
			if !ok || !v.Equal(ot) {
				return false
			}
		case Leaf:
			ol, ok := o.(Leaf)
			if !ok || ol != v {
				return false
			}
		}
	}
	return true
}

// RenderText writes an indented listing of the tree with sorted keys.
func RenderText(w io.Writer, t Tree) error {
	return renderText(w, t, "")
}

func renderText(w io.Writer, t Tree, indent string) error {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		switch v := t[k].(type) {
		case Tree:
			if _, err := fmt.Fprintf(w, "%s%s/\n", indent, k); err != nil {
				return err
			}
			if err := renderText(w, v, indent+"  "); err != nil {
				return err
			}
		case Leaf:
			if _, err := fmt.Fprintf(w, "%s%s: %s\n", indent, k, v); err != nil {
				return err
			}
		}
	}
	return nil
}
