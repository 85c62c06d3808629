package variant

import (
	"fmt"
	"reflect"
	"sync"
)

// Representation is the storage chosen for one alternative.
type Representation uint8

// Representation values.
const (
	Bare  Representation = iota // stored directly in the sum
	Boxed                       // stored behind a Box
)

func (r Representation) String() string {
	if r == Boxed {
		return "boxed"
	}
	return "bare"
}

// Alternative describes one payload type of a sum. Build it with Of.
type Alternative struct {
	typ     reflect.Type
	boxType reflect.Type
	name    string

	own     func(v any, nested bool) (boxed, error)
	zero    func() any
	zeroBox func() boxed
	ref     func(v any) any
	deref   func(p any) any
}

// Of returns the alternative for payload type T.
func Of[T any]() Alternative {
	t := reflect.TypeFor[T]()
	name := t.Name()
	if name == "" {
		name = t.String()
	}
	boxType := reflect.TypeFor[Box[T]]()
	if _, ok := copiers()[boxType]; !ok {
		registerCopier(boxType, func(v any) (any, error) {
			return v.(Box[T]).Clone()
		})
	}
	return Alternative{
		typ:     t,
		boxType: boxType,
		name:    name,
		own: func(v any, nested bool) (boxed, error) {
			x := payload[T](v)
			if nested {
				dup, err := cloneValue(x)
				if err != nil {
					return nil, err
				}
				x = dup
			}
			return NewBox(x), nil
		},
		zero: func() any {
			var x T
			return x
		},
		zeroBox: func() boxed { return BoxFunc[T](nil) },
		ref: func(v any) any {
			x := payload[T](v)
			return &x
		},
		deref: func(p any) any { return *p.(*T) },
	}
}

// payload converts a stored value back to T. Only a nil interface or
// pointer payload is stored as untyped nil.
func payload[T any](v any) T {
	if v == nil {
		var zero T
		return zero
	}
	return v.(T)
}

// Named returns a copy of a with a display name.
func (a Alternative) Named(name string) Alternative {
	a.name = name
	return a
}

// Type returns the payload type.
func (a Alternative) Type() reflect.Type { return a.typ }

// Name returns the display name.
func (a Alternative) Name() string { return a.name }

// Slot is one alternative of a declared sum together with its selected representation.
type Slot struct {
	Index int
	Name  string
	Type  reflect.Type
	Rep   Representation

	alt Alternative
	// nested is set for payloads that reach a sum through any path;
	// copying them must not share that sum's boxes.
	nested bool
}

func (s Slot) String() string {
	return fmt.Sprintf("%d:%s (%s)", s.Index, s.Name, s.Rep)
}

// Layout is the storage plan of one declared sum type.
type Layout struct {
	name  string
	self  reflect.Type
	slots []Slot
}

// Name returns the sum's name.
func (l *Layout) Name() string { return l.name }

// Type returns the Go type of the sum's values.
func (l *Layout) Type() reflect.Type { return l.self }

// Len returns the number of alternatives.
func (l *Layout) Len() int { return len(l.slots) }

// Slot returns alternative i. It panics if i is out of range.
func (l *Layout) Slot(i int) Slot { return l.slots[i] }

// Slots returns all alternatives in declaration order.
func (l *Layout) Slots() []Slot {
	out := make([]Slot, len(l.slots))
	copy(out, l.slots)
	return out
}

// IndexOf returns the first alternative whose payload type is t.
func (l *Layout) IndexOf(t reflect.Type) (int, bool) {
	for _, s := range l.slots {
		if s.Type == t {
			return s.Index, true
		}
	}
	return -1, false
}

// resolve finds the slot a value constructs into and the representation to
// store. Exact matches win over assignable ones.
func (l *Layout) resolve(v any) (int, any, error) {
	vt := reflect.TypeOf(v)

	var hits []int
	var stored []any
	for i, s := range l.slots {
		if st, ok := s.exact(v, vt); ok {
			hits = append(hits, i)
			stored = append(stored, st)
		}
	}
	if len(hits) == 0 {
		for i, s := range l.slots {
			if st, ok := s.assignable(v, vt); ok {
				hits = append(hits, i)
				stored = append(stored, st)
			}
		}
	}

	switch len(hits) {
	case 0:
		return 0, nil, fmt.Errorf("%w: %s has no alternative for %v", ErrNoAlternative, l.name, vt)
	case 1:
		owned, err := l.slots[hits[0]].own(stored[0])
		if err != nil {
			return 0, nil, err
		}
		return hits[0], owned, nil
	default:
		return 0, nil, fmt.Errorf("%w: %s alternatives %v accept %v", ErrAmbiguous, l.name, hits, vt)
	}
}

// resolveAt constructs into slot i only.
func (l *Layout) resolveAt(i int, v any) (any, error) {
	if i < 0 || i >= len(l.slots) {
		return nil, fmt.Errorf("%w: %s has %d alternatives, got %d", ErrIndex, l.name, len(l.slots), i)
	}
	s := l.slots[i]
	vt := reflect.TypeOf(v)
	if st, ok := s.exact(v, vt); ok {
		return s.own(st)
	}
	if st, ok := s.assignable(v, vt); ok {
		return s.own(st)
	}
	return nil, fmt.Errorf("%w: %s alternative %s does not accept %v", ErrNoAlternative, l.name, s, vt)
}

// exact accepts the payload type itself, or an already built box for a boxed slot.
func (s Slot) exact(v any, vt reflect.Type) (any, bool) {
	if vt == nil {
		return nil, false
	}
	switch {
	case vt == s.Type:
		return v, true
	case vt == s.alt.boxType && s.Rep == Boxed:
		return v, true
	}
	return nil, false
}

// assignable accepts values Go would assign to the payload type without a
// conversion written by the caller, such as a concrete type for an interface
// alternative. A nil value initialises the zero value of a nilable payload.
func (s Slot) assignable(v any, vt reflect.Type) (any, bool) {
	if vt == nil {
		if !nilable(s.Type) {
			return nil, false
		}
		return s.alt.zero(), true
	}
	if !vt.AssignableTo(s.Type) {
		return nil, false
	}
	if s.Type.Kind() != reflect.Interface {
		return reflect.ValueOf(v).Convert(s.Type).Interface(), true
	}
	return v, true
}

// own turns a matched value into storage owned by the new sum. A passed box
// is cloned, and sums reachable from the payload are deep copied, so the new
// sum never shares an allocation with the caller.
func (s Slot) own(v any) (any, error) {
	if s.Rep == Boxed {
		if b, ok := v.(boxed); ok && reflect.TypeOf(v) == s.alt.boxType {
			if b.empty() {
				return nil, fmt.Errorf("%w: %s given an empty box", ErrNoAlternative, s)
			}
			return b.cloneBoxed()
		}
		return s.alt.own(v, s.nested)
	}
	if s.nested && v != nil {
		return deepCopy(v)
	}
	return v, nil
}

func nilable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return true
	}
	return false
}

// registry holds every declared layout keyed by its Sum[D] type.
var registry = struct {
	sync.RWMutex
	layouts map[reflect.Type]*Layout
}{layouts: make(map[reflect.Type]*Layout)}

func lookup(self reflect.Type) (*Layout, bool) {
	registry.RLock()
	defer registry.RUnlock()
	l, ok := registry.layouts[self]
	return l, ok
}

// Namer lets a tag type name its sum. Without it the tag type's name is used.
type Namer interface {
	SumName() string
}

func sumName[D any]() string {
	var d D
	if n, ok := any(d).(Namer); ok {
		return n.SumName()
	}
	if name := reflect.TypeFor[D]().Name(); name != "" {
		return name
	}
	return reflect.TypeFor[Sum[D]]().String()
}

// Declare computes and registers the layout of Sum[D] at the current point of
// scope. Alternatives incomplete at that point are boxed. A nil scope means
// DefaultScope. Each D may be declared once.
func Declare[D any](scope *Scope, alts ...Alternative) (*Layout, error) {
	self := reflect.TypeFor[Sum[D]]()
	name := sumName[D]()
	if len(alts) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoAlternatives, name)
	}
	if scope == nil {
		scope = DefaultScope()
	}

	registry.Lock()
	defer registry.Unlock()
	if _, ok := registry.layouts[self]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyDeclared, name)
	}

	l := scope.declare(name, self, alts)
	registry.layouts[self] = l
	registerCopier(self, func(v any) (any, error) {
		c, err := v.(Sum[D]).Clone()
		if err != nil {
			return nil, err
		}
		return c, nil
	})
	return l, nil
}

// MustDeclare is like Declare but panics on error. It is intended for
// package-level declarations.
func MustDeclare[D any](scope *Scope, alts ...Alternative) *Layout {
	l, err := Declare[D](scope, alts...)
	if err != nil {
		panic(fmt.Sprintf("variant: %v", err))
	}
	return l
}

// LayoutOf returns the registered layout of Sum[D].
func LayoutOf[D any]() (*Layout, error) {
	self := reflect.TypeFor[Sum[D]]()
	if l, ok := lookup(self); ok {
		return l, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUndeclared, self)
}
