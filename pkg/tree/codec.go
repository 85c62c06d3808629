package tree

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/leapstack-labs/recvariant/pkg/variant"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned for YAML that does not describe a tree.
var ErrInvalid = errors.New("invalid tree")

// Document is the YAML form of a Tree. A node is written as
//
//	leaf: 3
//	branch: [<node>, <node>]
//
// or in shorthand as a bare integer (a leaf) or a two-element sequence (a
// branch).
type Document struct {
	Tree Tree
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Document) UnmarshalYAML(n *yaml.Node) error {
	t, err := decodeNode(n)
	if err != nil {
		return err
	}
	d.Tree = t
	return nil
}

// MarshalYAML implements yaml.Marshaler using the long form.
func (d Document) MarshalYAML() (any, error) {
	return Export(d.Tree), nil
}

// Parse decodes one tree from YAML bytes.
func Parse(data []byte) (Tree, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads one tree from r.
func Decode(r io.Reader) (Tree, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Tree{}, fmt.Errorf("%w: empty document", ErrInvalid)
		}
		return Tree{}, err
	}
	return doc.Tree, nil
}

// Encode writes t to w in the long form.
func Encode(w io.Writer, t Tree) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Document{Tree: t}); err != nil {
		return err
	}
	return enc.Close()
}

// Export converts t to plain maps and slices, suitable for YAML or JSON.
func Export(t Tree) any {
	return visitExport(t)
}

func visitExport(t Tree) map[string]any {
	if l, ok := variant.Get[Leaf](t); ok {
		return map[string]any{"leaf": l.Value}
	}
	b, _ := variant.Get[Branch](t)
	return map[string]any{"branch": []any{visitExport(b.Left), visitExport(b.Right)}}
}

func decodeNode(n *yaml.Node) (Tree, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Tree{}, fmt.Errorf("%w: empty document", ErrInvalid)
		}
		return decodeNode(n.Content[0])
	case yaml.AliasNode:
		return decodeNode(n.Alias)
	case yaml.ScalarNode:
		return decodeLeaf(n)
	case yaml.SequenceNode:
		return decodeBranch(n)
	case yaml.MappingNode:
		if len(n.Content) != 2 {
			return Tree{}, fmt.Errorf("%w: line %d: a node has exactly one key, leaf or branch", ErrInvalid, n.Line)
		}
		key, val := n.Content[0], n.Content[1]
		switch key.Value {
		case "leaf":
			return decodeLeaf(val)
		case "branch":
			return decodeBranch(val)
		}
		return Tree{}, fmt.Errorf("%w: line %d: unknown node %q", ErrInvalid, key.Line, key.Value)
	}
	return Tree{}, fmt.Errorf("%w: line %d: unexpected node", ErrInvalid, n.Line)
}

func decodeLeaf(n *yaml.Node) (Tree, error) {
	if n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	if n.Kind != yaml.ScalarNode || n.ShortTag() != "!!int" {
		return Tree{}, fmt.Errorf("%w: line %d: leaf must be an integer, got %q", ErrInvalid, n.Line, n.Value)
	}
	var v int
	if err := n.Decode(&v); err != nil {
		return Tree{}, fmt.Errorf("%w: line %d: leaf must be an integer, got %q", ErrInvalid, n.Line, n.Value)
	}
	return NewLeaf(v), nil
}

func decodeBranch(n *yaml.Node) (Tree, error) {
	if n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	if n.Kind != yaml.SequenceNode || len(n.Content) != 2 {
		return Tree{}, fmt.Errorf("%w: line %d: branch must have exactly two children", ErrInvalid, n.Line)
	}
	l, err := decodeNode(n.Content[0])
	if err != nil {
		return Tree{}, err
	}
	r, err := decodeNode(n.Content[1])
	if err != nil {
		return Tree{}, err
	}
	return NewBranch(l, r), nil
}
