package variant

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/mitchellh/copystructure"
	"github.com/mitchellh/reflectwalk"
)

// copierTable maps every declared sum and box type to its deep-copy function. It is
// replaced wholesale on registration so copies in flight keep a stable view.
var (
	copierMu    sync.Mutex
	copierTable atomic.Pointer[map[reflect.Type]copystructure.CopierFunc]
)

func copiers() map[reflect.Type]copystructure.CopierFunc {
	if t := copierTable.Load(); t != nil {
		return *t
	}
	return copystructure.Copiers
}

func registerCopier(t reflect.Type, fn copystructure.CopierFunc) {
	copierMu.Lock()
	defer copierMu.Unlock()

	cur := copiers()
	next := make(map[reflect.Type]copystructure.CopierFunc, len(cur)+1)
	for k, v := range cur {
		next[k] = v
	}
	next[t] = fn
	copierTable.Store(&next)
}

// deepCopy copies v, descending through pointers, slices, maps and nested
// sums. The reflective copy cannot set unexported fields, so v is walked
// first and any unexported field outside a type with a registered copier
// fails the copy.
func deepCopy(v any) (any, error) {
	table := copiers()
	if err := reflectwalk.Walk(v, hiddenState{copiers: table}); err != nil {
		return nil, fmt.Errorf("%w: %T: %v", ErrCopy, v, err)
	}
	dup, err := copystructure.Config{Copiers: table}.Copy(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %T: %v", ErrCopy, v, err)
	}
	return dup, nil
}

// hiddenState reports the first unexported struct field the reflective copy
// would drop. Types with a copier are trusted and not entered.
type hiddenState struct {
	copiers map[reflect.Type]copystructure.CopierFunc
}

func (h hiddenState) Struct(v reflect.Value) error {
	if _, ok := h.copiers[v.Type()]; ok {
		return reflectwalk.SkipEntry
	}
	return nil
}

func (h hiddenState) StructField(f reflect.StructField, _ reflect.Value) error {
	if !f.IsExported() {
		return fmt.Errorf("unexported field %s; implement Cloner to copy it", f.Name)
	}
	return nil
}
