package variant_test

import (
	"github.com/leapstack-labs/recvariant/pkg/variant"
)

// Expr is a small recursive expression language used across the tests.
type exprTag struct{}

func (exprTag) SumName() string { return "Expr" }

type Expr = variant.Sum[exprTag]

type Num struct{ V int }

type Add struct{ L, R Expr }

type Neg struct{ X Expr }

var exprLayout = variant.MustDeclare[exprTag](nil,
	variant.Of[Num](),
	variant.Of[Add](),
	variant.Of[Neg](),
)

func num(v int) Expr { return variant.MustNew[exprTag](Num{V: v}) }

func add(l, r Expr) Expr { return variant.MustNew[exprTag](Add{L: l, R: r}) }

func neg(x Expr) Expr { return variant.MustNew[exprTag](Neg{X: x}) }

func eval(e Expr) int {
	return variant.MustVisit(e, variant.Cases(
		variant.On(func(n Num) int { return n.V }),
		variant.On(func(a Add) int { return eval(a.L) + eval(a.R) }),
		variant.On(func(n Neg) int { return -eval(n.X) }),
	))
}

// Label is complete everywhere unless a scope forward-declares it.
type Label struct{ Text string }
