package variant_test

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/leapstack-labs/recvariant/pkg/variant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		value     any
		wantIndex int
		wantBoxed bool
	}{
		{"bare alternative", Num{V: 7}, 0, false},
		{"boxed alternative", Add{L: num(1), R: num(2)}, 1, true},
		{"boxed alternative from box", variant.NewBox(Neg{X: num(3)}), 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := variant.New[exprTag](tt.value)
			require.NoError(t, err)

			assert.Equal(t, tt.wantIndex, e.Index())
			assert.Equal(t, tt.wantBoxed, e.Boxed())

			want := tt.value
			if b, ok := tt.value.(variant.Box[Neg]); ok {
				want = b.Get()
			}
			got, err := variant.Visit(e, variant.Cases(
				variant.Default(func(v any) any { return v }),
			))
			require.NoError(t, err)
			assert.Equal(t, want, got)
			assert.Equal(t, want, e.Value())
		})
	}
}

func TestNew_Rejects(t *testing.T) {
	_, err := variant.New[exprTag]("not an expression")
	assert.ErrorIs(t, err, variant.ErrNoAlternative)

	// A box of a bare alternative is not one of the stored representations.
	_, err = variant.New[exprTag](variant.NewBox(Num{V: 1}))
	assert.ErrorIs(t, err, variant.ErrNoAlternative)

	_, err = variant.New[exprTag](nil)
	assert.ErrorIs(t, err, variant.ErrNoAlternative)

	assert.Panics(t, func() { variant.MustNew[exprTag](3.5) })
}

func TestDiscriminantStability(t *testing.T) {
	a := num(1)
	b := num(99)
	assert.Equal(t, a.Index(), b.Index())

	c := add(num(1), num(2))
	d := add(neg(num(1)), num(5))
	assert.Equal(t, c.Index(), d.Index())
	assert.NotEqual(t, a.Index(), c.Index())

	// The same alternatives with the opposite boxing keep their discriminants.
	bare := variant.MustNew[bareLabelTag](Label{Text: "x"})
	boxed := variant.MustNew[boxedLabelTag](Label{Text: "x"})
	assert.False(t, bare.Boxed())
	assert.True(t, boxed.Boxed())
	assert.Equal(t, bare.Index(), boxed.Index())
}

type bareLabelTag struct{}
type boxedLabelTag struct{}

var (
	_ = variant.MustDeclare[bareLabelTag](variant.NewScope(), variant.Of[Num](), variant.Of[Label]())
	_ = func() *variant.Layout {
		s := variant.NewScope()
		s.Forward(reflect.TypeFor[Label]())
		return variant.MustDeclare[boxedLabelTag](s, variant.Of[Num](), variant.Of[Label]())
	}()
)

func describe[D any](s variant.Sum[D]) string {
	return variant.MustVisit(s, variant.Cases(
		variant.On(func(n Num) string { return fmt.Sprintf("num %d", n.V) }),
		variant.On(func(l Label) string { return "label " + l.Text }),
	))
}

func TestAutoBoxingTransparency(t *testing.T) {
	for _, v := range []any{Num{V: 3}, Label{Text: "hello"}} {
		bare := variant.MustNew[bareLabelTag](v)
		boxed := variant.MustNew[boxedLabelTag](v)
		assert.Equal(t, describe(bare), describe(boxed))
	}

	// Mutation through a pointer case behaves the same either way.
	rename := variant.Cases(variant.OnPtr(func(l *Label) struct{} {
		l.Text += "!"
		return struct{}{}
	}))
	bare := variant.MustNew[bareLabelTag](Label{Text: "hi"})
	boxed := variant.MustNew[boxedLabelTag](Label{Text: "hi"})
	_, err := variant.VisitPtr(&bare, rename)
	require.NoError(t, err)
	_, err = variant.VisitPtr(&boxed, rename)
	require.NoError(t, err)
	assert.Equal(t, "label hi!", describe(bare))
	assert.Equal(t, describe(bare), describe(boxed))
}

func TestClone_DeepCopyIndependence(t *testing.T) {
	orig := add(add(num(1), num(2)), num(3))

	dup, err := orig.Clone()
	require.NoError(t, err)

	_, err = variant.VisitPtr(&dup, variant.Cases(
		variant.OnPtr(func(a *Add) struct{} {
			a.R = num(30)
			_, _ = variant.VisitPtr(&a.L, variant.Cases(
				variant.OnPtr(func(inner *Add) struct{} {
					inner.L = num(10)
					return struct{}{}
				}),
			))
			return struct{}{}
		}),
	))
	require.NoError(t, err)

	assert.Equal(t, 42, eval(dup))
	assert.Equal(t, 6, eval(orig))
}

func TestClone_BareIsValueCopy(t *testing.T) {
	orig := num(5)
	dup, err := orig.Clone()
	require.NoError(t, err)

	_, err = variant.VisitPtr(&dup, variant.Cases(
		variant.OnPtr(func(n *Num) struct{} {
			n.V = 6
			return struct{}{}
		}),
	))
	require.NoError(t, err)
	assert.Equal(t, 5, eval(orig))
	assert.Equal(t, 6, eval(dup))
}

func TestMove(t *testing.T) {
	src := add(num(4), neg(num(1)))
	want := eval(src)

	dst := src.Move()

	assert.Equal(t, want, eval(dst))
	assert.Equal(t, 1, dst.Index())
}

func TestAssign(t *testing.T) {
	e := num(1)
	require.NoError(t, e.Assign(Add{L: num(2), R: num(3)}))
	assert.Equal(t, 1, e.Index())
	assert.True(t, e.Boxed())
	assert.Equal(t, 5, eval(e))

	err := e.Assign(struct{}{})
	assert.ErrorIs(t, err, variant.ErrNoAlternative)
	assert.Equal(t, 5, eval(e), "failed assignment leaves the sum unchanged")

	require.NoError(t, e.Assign(Num{V: 9}))
	assert.False(t, e.Boxed())
	assert.Equal(t, 9, eval(e))
}

func TestZeroValue(t *testing.T) {
	var e Expr
	assert.True(t, e.Valid())
	assert.Equal(t, 0, e.Index())
	assert.Equal(t, Num{}, e.Value())
	assert.Equal(t, 0, eval(e))

	_, err := variant.VisitPtr(&e, variant.Cases(
		variant.OnPtr(func(n *Num) struct{} {
			n.V = 7
			return struct{}{}
		}),
	))
	require.NoError(t, err)
	assert.Equal(t, 7, eval(e))
}

type listTag struct{}

type List = variant.Sum[listTag]

type Cons struct {
	Head int
	Tail List
}

type Nil struct{}

var _ = variant.MustDeclare[listTag](nil, variant.Of[Cons](), variant.Of[Nil]())

func TestZeroValue_BoxedFirstAlternative(t *testing.T) {
	var l List
	assert.True(t, l.Boxed())
	assert.Equal(t, Cons{}, l.Value())

	_, err := variant.VisitPtr(&l, variant.Cases(
		variant.OnPtr(func(c *Cons) struct{} {
			c.Head = 1
			c.Tail = variant.MustNew[listTag](Nil{})
			return struct{}{}
		}),
	))
	require.NoError(t, err)

	c, ok := variant.Get[Cons](l)
	require.True(t, ok)
	assert.Equal(t, 1, c.Head)
	assert.Equal(t, 1, c.Tail.Index())
}

type neverTag struct{}

func TestUndeclared(t *testing.T) {
	_, err := variant.New[neverTag](1)
	assert.ErrorIs(t, err, variant.ErrUndeclared)

	var s variant.Sum[neverTag]
	assert.False(t, s.Valid())
	assert.False(t, s.Boxed())
	assert.Nil(t, s.Layout())
	assert.Nil(t, s.Value())
	assert.Contains(t, s.String(), "undeclared")

	_, err = variant.Visit(s, variant.Cases(variant.Default(func(any) int { return 0 })))
	assert.ErrorIs(t, err, variant.ErrUndeclared)
}

type dupTag struct{}

var _ = variant.MustDeclare[dupTag](nil, variant.Of[int](), variant.Of[int]().Named("other"))

func TestSharedPayloadType(t *testing.T) {
	_, err := variant.New[dupTag](1)
	assert.ErrorIs(t, err, variant.ErrAmbiguous)

	s, err := variant.NewAt[dupTag](1, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Index())
	assert.Equal(t, 5, s.Value())

	_, err = variant.NewAt[dupTag](2, 5)
	assert.ErrorIs(t, err, variant.ErrIndex)

	_, err = variant.NewAt[dupTag](0, "five")
	assert.ErrorIs(t, err, variant.ErrNoAlternative)

	require.NoError(t, s.AssignAt(0, 6))
	assert.Equal(t, 0, s.Index())
}

type resultTag struct{}

var _ = variant.MustDeclare[resultTag](nil, variant.Of[error](), variant.Of[int]())

type both struct{}

func (both) Error() string  { return "both" }
func (both) String() string { return "both" }

type stringerTag struct{}

var _ = variant.MustDeclare[stringerTag](nil, variant.Of[error](), variant.Of[fmt.Stringer]())

func TestInterfaceAlternatives(t *testing.T) {
	boom := errors.New("boom")

	r, err := variant.New[resultTag](boom)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Index())
	got, ok := variant.Get[error](r)
	require.True(t, ok)
	assert.Same(t, boom, got)

	r, err = variant.New[resultTag](42)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Index())

	r, err = variant.New[resultTag](nil)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Index())
	assert.Nil(t, r.Value())

	_, err = variant.New[stringerTag](both{})
	assert.ErrorIs(t, err, variant.ErrAmbiguous)

	s, err := variant.NewAt[stringerTag](1, both{})
	require.NoError(t, err)
	assert.Equal(t, "both", variant.MustVisit(s, variant.Cases(
		variant.On(func(s fmt.Stringer) string { return s.String() }),
	)))
}

func TestGet(t *testing.T) {
	e := num(3)

	n, ok := variant.Get[Num](e)
	assert.True(t, ok)
	assert.Equal(t, 3, n.V)

	_, ok = variant.Get[Add](e)
	assert.False(t, ok)

	a, ok := variant.Get[Add](add(num(1), num(1)))
	assert.True(t, ok)
	assert.Equal(t, 2, eval(a.L)+eval(a.R))
}

func TestString(t *testing.T) {
	assert.Equal(t, "Expr[0]({1})", num(1).String())
	assert.Equal(t, "Expr[2]({Expr[0]({1})})", neg(num(1)).String())
}

func TestLayoutOf(t *testing.T) {
	l, err := variant.LayoutOf[exprTag]()
	require.NoError(t, err)
	assert.Same(t, exprLayout, l)
	assert.Same(t, exprLayout, num(1).Layout())

	_, err = variant.LayoutOf[neverTag]()
	assert.ErrorIs(t, err, variant.ErrUndeclared)
}

func setRight(t *testing.T, e *Expr, r Expr) {
	t.Helper()
	_, err := variant.VisitPtr(e, variant.Cases(
		variant.OnPtr(func(a *Add) struct{} {
			a.R = r
			return struct{}{}
		}),
	))
	require.NoError(t, err)
}

func TestNew_OwnsNestedSums(t *testing.T) {
	inner := add(num(1), num(2))
	outer := add(inner, inner)

	setRight(t, &inner, num(10))
	assert.Equal(t, 11, eval(inner))
	assert.Equal(t, 6, eval(outer))

	o, ok := variant.Get[Add](outer)
	require.True(t, ok)
	setRight(t, &o.L, num(20))
	assert.Equal(t, 21, eval(o.L))
	assert.Equal(t, 3, eval(o.R), "siblings built from one value are independent")
}

func TestNew_ClonesBox(t *testing.T) {
	b := variant.NewBox(Neg{X: num(3)})
	e, err := variant.New[exprTag](b)
	require.NoError(t, err)

	b.Ptr().X = num(4)
	assert.Equal(t, -3, eval(e))

	var empty variant.Box[Neg]
	_, err = variant.New[exprTag](empty)
	assert.ErrorIs(t, err, variant.ErrNoAlternative)
}

type seqTag struct{}

type Seq = variant.Sum[seqTag]

// Items reaches Seq only through a slice, so it is stored bare.
type Items struct{ List []Seq }

var _ = variant.MustDeclare[seqTag](nil, variant.Of[Num](), variant.Of[Items]())

func TestNew_OwnsBareNestedSums(t *testing.T) {
	list := []Seq{variant.MustNew[seqTag](Num{V: 1})}
	s := variant.MustNew[seqTag](Items{List: list})
	require.False(t, s.Boxed())

	list[0] = variant.MustNew[seqTag](Num{V: 9})

	got, ok := variant.Get[Items](s)
	require.True(t, ok)
	n, ok := variant.Get[Num](got.List[0])
	require.True(t, ok)
	assert.Equal(t, 1, n.V)
}

type weightedTag struct{}

type Weighted = variant.Sum[weightedTag]

type weightedNode struct {
	weight int
	Next   Weighted
}

func (n weightedNode) Clone() weightedNode {
	next, err := n.Next.Clone()
	if err != nil {
		panic(err)
	}
	return weightedNode{weight: n.weight, Next: next}
}

type opaqueNode struct {
	weight int
	Next   Weighted
}

var _ = variant.MustDeclare[weightedTag](nil,
	variant.Of[Num](),
	variant.Of[weightedNode](),
	variant.Of[opaqueNode](),
)

func TestClone_UnexportedState(t *testing.T) {
	w, err := variant.New[weightedTag](weightedNode{weight: 7, Next: variant.MustNew[weightedTag](Num{V: 1})})
	require.NoError(t, err)
	require.True(t, w.Boxed())

	dup, err := w.Clone()
	require.NoError(t, err)
	got, ok := variant.Get[weightedNode](dup)
	require.True(t, ok)
	assert.Equal(t, 7, got.weight)

	_, err = variant.New[weightedTag](opaqueNode{weight: 7})
	assert.ErrorIs(t, err, variant.ErrCopy)
}
