package variant

// Box owns exactly one heap-allocated T. It gives a payload a fixed,
// pointer-sized representation regardless of the payload's own layout.
//
// A Box must not be duplicated by plain assignment: two copies would share
// the allocation. Use Clone for an independent copy and Move to hand the
// allocation to a new owner. Reading a box after it was moved from is a
// contract violation and is not checked.
type Box[T any] struct {
	p *T
}

// Cloner is implemented by payload types that know how to deep copy
// themselves. Box.Clone prefers it over reflective copying.
type Cloner[T any] interface {
	Clone() T
}

// NewBox allocates a box holding a copy of v.
func NewBox[T any](v T) Box[T] {
	p := new(T)
	*p = v
	return Box[T]{p: p}
}

// BoxFunc allocates a zero T and lets init construct it in place.
func BoxFunc[T any](init func(*T)) Box[T] {
	p := new(T)
	if init != nil {
		init(p)
	}
	return Box[T]{p: p}
}

// Get returns the owned value.
func (b Box[T]) Get() T { return *b.p }

// Ptr returns the owned value for in-place mutation.
func (b Box[T]) Ptr() *T { return b.p }

// Empty reports whether the box holds no allocation, either because it was
// never constructed or because it was moved from.
func (b Box[T]) Empty() bool { return b.p == nil }

// Move transfers the allocation to the returned box and empties b.
func (b *Box[T]) Move() Box[T] {
	out := Box[T]{p: b.p}
	b.p = nil
	return out
}

// Clone allocates a new T holding a deep copy of the owned value. T's Cloner
// is used when it has one. Otherwise the copy is reflective and follows
// exported fields only, so a value with unexported state fails with ErrCopy
// rather than losing that state.
func (b Box[T]) Clone() (Box[T], error) {
	if b.p == nil {
		return Box[T]{}, nil
	}
	x, err := cloneValue(*b.p)
	if err != nil {
		return Box[T]{}, err
	}
	return NewBox(x), nil
}

func cloneValue[T any](x T) (T, error) {
	if c, ok := any(x).(Cloner[T]); ok {
		return c.Clone(), nil
	}
	if c, ok := any(&x).(Cloner[T]); ok {
		return c.Clone(), nil
	}
	if any(x) == nil {
		return x, nil
	}
	dup, err := deepCopy(x)
	if err != nil {
		var zero T
		return zero, err
	}
	return dup.(T), nil
}

// boxed is the type-erased view of a Box used by Sum to hold boxes without
// knowing T statically.
type boxed interface {
	logical() any
	addr() any
	empty() bool
	cloneBoxed() (boxed, error)
}

func (b Box[T]) logical() any { return *b.p }

func (b Box[T]) addr() any { return b.p }

func (b Box[T]) empty() bool { return b.p == nil }

func (b Box[T]) cloneBoxed() (boxed, error) {
	c, err := b.Clone()
	if err != nil {
		return nil, err
	}
	return c, nil
}
