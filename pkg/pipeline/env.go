package pipeline

import (
	"maps"
	"reflect"
	"slices"

	"github.com/mitchellh/copystructure"
	"github.com/mitchellh/reflectwalk"
	"github.com/pkg/errors"
)

// Env is the key-value state threaded through a run.
type Env map[string]any

// Cloner is implemented by values Snapshot cannot copy field by field, such as structs with
// unexported fields. Clone returns an independent copy of the receiver, either as a value of
// the receiver's struct type or as a pointer to one.
type Cloner interface {
	Clone() any
}

var clonerType = reflect.TypeOf((*Cloner)(nil)).Elem()

// Snapshot returns a deep copy of baseline. Nested maps, slices and pointers of the copy are
// not shared with baseline, so mutating the copy is invisible to baseline and to other copies.
// A nil baseline gives an empty Env.
//
// Structs with unexported fields are copied with their Clone method when they implement
// Cloner. Otherwise Snapshot fails with ErrSnapshot rather than return a partial copy.
// Channels and functions are shared.
func Snapshot(baseline Env) (Env, error) {
	if baseline == nil {
		return Env{}, nil
	}

	check := &copyCheck{copiers: maps.Clone(copystructure.Copiers)}

	for _, key := range slices.Sorted(maps.Keys(baseline)) {
		err := reflectwalk.Walk(baseline[key], check)
		if err != nil {
			return nil, errors.Wrapf(ErrSnapshot, "key %q: %v", key, err)
		}
	}

	cp, err := copystructure.Config{Copiers: check.copiers}.Copy(map[string]any(baseline))
	if err != nil {
		return nil, errors.Wrapf(ErrSnapshot, "%v", err)
	}

	m, ok := cp.(map[string]any)
	if !ok {
		return nil, errors.Wrapf(ErrSnapshot, "unexpected copy type %T", cp)
	}

	return Env(m), nil
}

// Clone is Snapshot for environments known to hold plain data. It panics if the copy fails.
func (e Env) Clone() Env {
	cp, err := Snapshot(e)
	if err != nil {
		panic(err)
	}

	return cp
}

// copyCheck walks a value before it is copied. It registers a copier for every Cloner struct
// type and rejects the other structs copystructure would silently zero.
type copyCheck struct {
	copiers map[reflect.Type]copystructure.CopierFunc
}

func (c *copyCheck) Struct(v reflect.Value) error {
	typ := v.Type()

	if _, ok := c.copiers[typ]; ok {
		return reflectwalk.SkipEntry
	}

	if typ.Implements(clonerType) || reflect.PointerTo(typ).Implements(clonerType) {
		c.copiers[typ] = cloneCopier(typ)

		return reflectwalk.SkipEntry
	}

	for i := range typ.NumField() {
		if !typ.Field(i).IsExported() {
			return errors.Errorf("%s has unexported field %s and does not implement Cloner", typ, typ.Field(i).Name)
		}
	}

	return nil
}

func (c *copyCheck) StructField(reflect.StructField, reflect.Value) error {
	return nil
}

func cloneCopier(typ reflect.Type) copystructure.CopierFunc {
	return func(v any) (any, error) {
		ptr := reflect.New(typ)
		ptr.Elem().Set(reflect.ValueOf(v))

		out := reflect.ValueOf(ptr.Interface().(Cloner).Clone())
		if !out.IsValid() {
			return nil, errors.Errorf("%s.Clone returned nil", typ)
		}

		if out.Kind() == reflect.Pointer && out.Type().Elem() == typ {
			if out.IsNil() {
				return nil, errors.Errorf("%s.Clone returned nil", typ)
			}

			out = out.Elem()
		}

		if out.Type() != typ {
			return nil, errors.Errorf("%s.Clone returned %s", typ, out.Type())
		}

		return out.Interface(), nil
	}
}
