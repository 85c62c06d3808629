package variant

import (
	"log/slog"
	"reflect"
	"sync"

	"github.com/leapstack-labs/recvariant/internal/dag"
)

// Scope is a declaration point. Whether a type is complete is judged against
// the scope's state at the moment of the question: types forward-declared
// and not yet defined are pending, and so is a sum while it is being
// declared. Answers are never cached, so the same type may be incomplete
// before Define and complete after it.
type Scope struct {
	mu      sync.Mutex
	pending map[reflect.Type]struct{}
	sums    map[reflect.Type]string

	// contains has an edge for every "holds" or "embeds by value" relation
	// and may be cyclic. before has an edge from each bare alternative to
	// its sum: the alternative must be complete first.
	contains *dag.Graph
	before   *dag.Graph

	logger *slog.Logger
}

// Option configures a Scope.
type Option func(*Scope)

// WithLogger sets the logger used to report representation decisions.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scope) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewScope creates an empty scope.
func NewScope(opts ...Option) *Scope {
	s := &Scope{
		pending:  make(map[reflect.Type]struct{}),
		sums:     make(map[reflect.Type]string),
		contains: dag.NewGraph(),
		before:   dag.NewGraph(),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var defaultScope = NewScope()

// DefaultScope returns the process-wide scope used when Declare gets a nil scope.
func DefaultScope() *Scope { return defaultScope }

// Forward marks types as declared but not yet defined.
func (s *Scope) Forward(types ...reflect.Type) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range types {
		s.pending[t] = struct{}{}
	}
}

// Define completes forward-declared types.
func (s *Scope) Define(types ...reflect.Type) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range types {
		delete(s.pending, t)
	}
}

// IsComplete reports whether t is complete at this point: its by-value layout
// reaches no pending type. Pointers, slices, maps, channels, functions and
// interfaces are indirections and end the walk.
func (s *Scope) IsComplete(t reflect.Type) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isComplete(t)
}

func (s *Scope) isComplete(t reflect.Type) bool {
	complete := true
	byValue(t, make(map[reflect.Type]bool), func(x reflect.Type) bool {
		if _, ok := s.pending[x]; ok {
			complete = false
		}
		return complete
	})
	return complete
}

// Select picks the representation of every alternative of the sum self at
// this point, with self pending while the alternatives are probed. It does
// not register anything.
func (s *Scope) Select(name string, self reflect.Type, alts ...Alternative) []Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectSlots(name, self, alts)
}

func (s *Scope) selectSlots(name string, self reflect.Type, alts []Alternative) []Slot {
	if self != nil {
		if _, already := s.pending[self]; !already {
			s.pending[self] = struct{}{}
			defer delete(s.pending, self)
		}
	}

	slots := make([]Slot, len(alts))
	for i, a := range alts {
		rep := Bare
		if !s.isComplete(a.typ) {
			rep = Boxed
		}
		slots[i] = Slot{
			Index:  i,
			Name:   a.name,
			Type:   a.typ,
			Rep:    rep,
			alt:    a,
			nested: reachesSum(a.typ, make(map[reflect.Type]bool)),
		}
		s.logger.Debug("selected representation",
			"sum", name,
			"alternative", a.name,
			"index", i,
			"representation", rep.String(),
		)
	}
	return slots
}

func (s *Scope) declare(name string, self reflect.Type, alts []Alternative) *Layout {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots := s.selectSlots(name, self, alts)
	s.sums[self] = name
	s.record(name, self, slots)

	s.logger.Debug("declared sum type", "sum", name, "alternatives", len(slots))
	return &Layout{name: name, self: self, slots: slots}
}

func (s *Scope) record(name string, self reflect.Type, slots []Slot) {
	s.contains.AddNode(name, self)
	s.before.AddNode(name, self)

	for _, sl := range slots {
		id := s.nodeID(sl.Type)
		s.contains.AddNode(id, sl.Type)
		_ = s.contains.AddEdge(name, id)

		root := sl.Type
		byValue(root, make(map[reflect.Type]bool), func(x reflect.Type) bool {
			if x == root {
				return true
			}
			_, isSum := s.sums[x]
			_, isPending := s.pending[x]
			if !isSum && !isPending {
				return true
			}
			xid := s.nodeID(x)
			s.contains.AddNode(xid, x)
			_ = s.contains.AddEdge(id, xid)
			return false
		})

		if sl.Rep == Bare && id != name {
			s.before.AddNode(id, sl.Type)
			_ = s.before.AddEdge(id, name)
		}
	}
}

func (s *Scope) nodeID(t reflect.Type) string {
	if name, ok := s.sums[t]; ok {
		return name
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

// Cycle returns the containment cycle through the named sum or type, such as
// [Tree Branch Tree], or nil when it is not recursive.
func (s *Scope) Cycle(name string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contains.CycleThrough(name)
}

// Order returns declared sums and their bare alternatives so that every
// alternative comes before the sum storing it directly.
func (s *Scope) Order() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nodes, err := s.before.TopologicalSort()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out, nil
}

// byValue calls fn for t and for every type laid out inside t by value. fn
// returns false to stop descending below a type.
func byValue(t reflect.Type, seen map[reflect.Type]bool, fn func(reflect.Type) bool) {
	if seen[t] {
		return
	}
	seen[t] = true
	if !fn(t) {
		return
	}
	switch t.Kind() {
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			byValue(t.Field(i).Type, seen, fn)
		}
	case reflect.Array:
		byValue(t.Elem(), seen, fn)
	}
}

var sumType = reflect.TypeFor[sumValue]()

// reachesSum reports whether values of t can lead to a sum through any path,
// indirections included.
func reachesSum(t reflect.Type, seen map[reflect.Type]bool) bool {
	if seen[t] {
		return false
	}
	seen[t] = true
	if t.Kind() != reflect.Interface && t.Implements(sumType) {
		return true
	}
	switch t.Kind() {
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if reachesSum(t.Field(i).Type, seen) {
				return true
			}
		}
	case reflect.Array, reflect.Slice, reflect.Pointer, reflect.Chan:
		return reachesSum(t.Elem(), seen)
	case reflect.Map:
		return reachesSum(t.Key(), seen) || reachesSum(t.Elem(), seen)
	}
	return false
}
