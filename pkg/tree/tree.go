// Package tree implements a binary tree of integers as a recursive sum type.
//
// A Tree is either a Leaf or a Branch holding two subtrees. Branch embeds
// Tree by value, so it is incomplete while Tree is being declared and is
// stored boxed; Leaf is stored inline.
package tree

import (
	"fmt"
	"reflect"

	"github.com/leapstack-labs/recvariant/pkg/variant"
)

type tag struct{}

func (tag) SumName() string { return "Tree" }

// Tree is a Leaf or a Branch. The zero Tree is Leaf(0).
type Tree = variant.Sum[tag]

// Leaf is a terminal node.
type Leaf struct {
	Value int
}

// Branch is an interior node with exactly two children.
type Branch struct {
	Left, Right Tree
}

var layout = variant.MustDeclare[tag](nil, Alternatives()...)

// Alternatives returns the alternative list Tree is declared with.
func Alternatives() []variant.Alternative {
	return []variant.Alternative{
		variant.Of[Leaf](),
		variant.Of[Branch](),
	}
}

// Layout returns the declared layout of Tree.
func Layout() *variant.Layout { return layout }

// Types maps the names accepted by the CLI to the types they denote.
func Types() map[string]reflect.Type {
	return map[string]reflect.Type{
		"Tree":   reflect.TypeFor[Tree](),
		"Leaf":   reflect.TypeFor[Leaf](),
		"Branch": reflect.TypeFor[Branch](),
	}
}

// NewLeaf returns Leaf(v).
func NewLeaf(v int) Tree {
	return variant.MustNew[tag](Leaf{Value: v})
}

// NewBranch returns Branch(l, r). The branch holds its own copies of l and r.
func NewBranch(l, r Tree) Tree {
	return variant.MustNew[tag](Branch{Left: l, Right: r})
}

// Sum adds up every leaf.
func Sum(t Tree) int {
	return variant.MustVisit(t, variant.Cases(
		variant.On(func(l Leaf) int { return l.Value }),
		variant.On(func(b Branch) int { return Sum(b.Left) + Sum(b.Right) }),
	))
}

// Depth is the number of nodes on the longest root-to-leaf path.
func Depth(t Tree) int {
	return variant.MustVisit(t, variant.Cases(
		variant.On(func(Leaf) int { return 1 }),
		variant.On(func(b Branch) int { return 1 + max(Depth(b.Left), Depth(b.Right)) }),
	))
}

// Leaves counts the leaves.
func Leaves(t Tree) int {
	return variant.MustVisit(t, variant.Cases(
		variant.On(func(Leaf) int { return 1 }),
		variant.On(func(b Branch) int { return Leaves(b.Left) + Leaves(b.Right) }),
	))
}

// Format renders t in constructor form, e.g. Branch(Leaf(1), Leaf(2)).
func Format(t Tree) string {
	return variant.MustVisit(t, variant.Cases(
		variant.On(func(l Leaf) string { return fmt.Sprintf("Leaf(%d)", l.Value) }),
		variant.On(func(b Branch) string {
			return fmt.Sprintf("Branch(%s, %s)", Format(b.Left), Format(b.Right))
		}),
	))
}

// Scale multiplies every leaf of t by n in place.
func Scale(t *Tree, n int) error {
	var err error
	_, verr := variant.VisitPtr(t, variant.Cases(
		variant.OnPtr(func(l *Leaf) struct{} {
			l.Value *= n
			return struct{}{}
		}),
		variant.OnPtr(func(b *Branch) struct{} {
			if err = Scale(&b.Left, n); err == nil {
				err = Scale(&b.Right, n)
			}
			return struct{}{}
		}),
	))
	if verr != nil {
		return verr
	}
	return err
}

// Scaled returns a deep copy of t with every leaf multiplied by n. t is not
// modified.
func Scaled(t Tree, n int) (Tree, error) {
	dup, err := t.Clone()
	if err != nil {
		return Tree{}, fmt.Errorf("failed to copy tree: %w", err)
	}
	if err := Scale(&dup, n); err != nil {
		return Tree{}, err
	}
	return dup, nil
}
