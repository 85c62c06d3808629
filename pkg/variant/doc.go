// Package variant implements recursive sum types.
//
// A sum type is declared once per phantom tag type D with Declare. Each
// alternative is stored either directly or behind a Box, depending on whether
// the alternative is complete at the point of declaration:
//
//   - an alternative whose by-value layout reaches the sum being declared, or a
//     type forward-declared in the Scope and not yet defined, is boxed
//   - every other alternative is stored bare
//
// Consumers never see the box. Visit, VisitPtr and VisitMove hand visitors the
// logical alternative value, and New wraps values into boxes as needed.
//
// A recursive tree:
//
//	type tree struct{}
//	type Tree = variant.Sum[tree]
//	type Leaf struct{ Value int }
//	type Branch struct{ Left, Right Tree }
//
//	var _ = variant.MustDeclare[tree](nil, variant.Of[Leaf](), variant.Of[Branch]())
//
// Leaf is stored bare and Branch is boxed.
package variant
