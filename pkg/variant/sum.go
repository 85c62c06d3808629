package variant

import (
	"fmt"
	"reflect"
)

// Sum is a value of the recursive sum type declared for tag D.
//
// The zero value is the default-constructed sum: alternative 0 holding the
// zero value of its payload. Plain assignment of a Sum holding a boxed
// alternative shares the box; use Clone for an independent copy and Move to
// transfer ownership.
type Sum[D any] struct {
	layout *Layout
	tag    int
	slot   any // payload for a bare slot, Box[T] for a boxed slot
}

type sumValue interface{ isSum() }

func (Sum[D]) isSum() {}

// New constructs a sum from v. v must be a payload type of exactly one
// alternative, an already built Box of a boxed alternative, or a value
// assignable to exactly one alternative's payload type.
//
// The sum owns what it stores: a Box argument is cloned, and sums nested in
// the payload are deep copied as by Clone.
func New[D any](v any) (Sum[D], error) {
	l, err := LayoutOf[D]()
	if err != nil {
		return Sum[D]{}, err
	}
	i, stored, err := l.resolve(v)
	if err != nil {
		return Sum[D]{}, err
	}
	return Sum[D]{layout: l, tag: i, slot: stored}, nil
}

// NewAt constructs a sum holding alternative i. It is the only way to select
// between alternatives that share a payload type.
func NewAt[D any](i int, v any) (Sum[D], error) {
	l, err := LayoutOf[D]()
	if err != nil {
		return Sum[D]{}, err
	}
	stored, err := l.resolveAt(i, v)
	if err != nil {
		return Sum[D]{}, err
	}
	return Sum[D]{layout: l, tag: i, slot: stored}, nil
}

// MustNew is like New but panics on error.
func MustNew[D any](v any) Sum[D] {
	s, err := New[D](v)
	if err != nil {
		panic(fmt.Sprintf("variant: %v", err))
	}
	return s
}

// Assign replaces the active alternative with v, resolved as in New. On
// error s is left unchanged.
func (s *Sum[D]) Assign(v any) error {
	n, err := New[D](v)
	if err != nil {
		return err
	}
	*s = n
	return nil
}

// AssignAt replaces the active alternative with alternative i holding v.
func (s *Sum[D]) AssignAt(i int, v any) error {
	n, err := NewAt[D](i, v)
	if err != nil {
		return err
	}
	*s = n
	return nil
}

// Index returns the discriminant.
func (s Sum[D]) Index() int { return s.tag }

// Valid reports whether D has been declared.
func (s Sum[D]) Valid() bool {
	_, err := s.resolve()
	return err == nil
}

// Layout returns the declared layout, or nil if D is undeclared.
func (s Sum[D]) Layout() *Layout {
	l, _ := s.resolve()
	return l
}

// Boxed reports whether the active alternative is stored behind a box.
func (s Sum[D]) Boxed() bool {
	l, err := s.resolve()
	if err != nil {
		return false
	}
	return l.slots[s.tag].Rep == Boxed
}

// Value returns the logical value of the active alternative. Boxes are
// unwrapped; a boxed payload is returned as a shallow copy of the owned value.
func (s Sum[D]) Value() any {
	l, err := s.resolve()
	if err != nil {
		return nil
	}
	if s.layout == nil {
		return l.slots[0].alt.zero()
	}
	if l.slots[s.tag].Rep == Boxed {
		return s.slot.(boxed).logical()
	}
	return s.slot
}

// Clone returns an independent copy. A boxed alternative gets a new
// allocation holding a deep copy; a bare alternative is copied by value,
// deeply when its payload can reach another sum. Deep copies follow exported
// fields only: a payload type with unexported state must implement Cloner,
// otherwise Clone fails with ErrCopy.
func (s Sum[D]) Clone() (Sum[D], error) {
	if s.layout == nil {
		return s, nil
	}
	sl := s.layout.slots[s.tag]
	switch {
	case sl.Rep == Boxed:
		b, err := s.slot.(boxed).cloneBoxed()
		if err != nil {
			return Sum[D]{}, fmt.Errorf("clone %s: %w", sl, err)
		}
		return Sum[D]{layout: s.layout, tag: s.tag, slot: b}, nil
	case sl.nested && s.slot != nil:
		dup, err := deepCopy(s.slot)
		if err != nil {
			return Sum[D]{}, fmt.Errorf("clone %s: %w", sl, err)
		}
		return Sum[D]{layout: s.layout, tag: s.tag, slot: dup}, nil
	}
	return s, nil
}

// Move returns the contents of s and resets s. The caller must not read the
// old value's payload through s afterwards.
func (s *Sum[D]) Move() Sum[D] {
	out := *s
	*s = Sum[D]{}
	return out
}

// String formats the sum as Name[index](value).
func (s Sum[D]) String() string {
	l, err := s.resolve()
	if err != nil {
		return fmt.Sprintf("%s(<undeclared>)", reflect.TypeFor[D]())
	}
	return fmt.Sprintf("%s[%d](%v)", l.name, s.tag, s.Value())
}

// Get returns the logical value as T when the active alternative's payload type is T.
func Get[T, D any](s Sum[D]) (T, bool) {
	var zero T
	l, err := s.resolve()
	if err != nil || l.slots[s.tag].Type != reflect.TypeFor[T]() {
		return zero, false
	}
	v, _ := s.Value().(T)
	return v, true
}

func (s Sum[D]) resolve() (*Layout, error) {
	if s.layout != nil {
		return s.layout, nil
	}
	return LayoutOf[D]()
}

// materialize turns the zero value into explicit storage so it can be
// mutated in place.
func (s *Sum[D]) materialize() error {
	if s.layout != nil {
		return nil
	}
	l, err := LayoutOf[D]()
	if err != nil {
		return err
	}
	s.layout = l
	s.tag = 0
	if l.slots[0].Rep == Boxed {
		s.slot = l.slots[0].alt.zeroBox()
	} else {
		s.slot = l.slots[0].alt.zero()
	}
	return nil
}
