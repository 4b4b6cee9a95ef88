package object

import (
	"sort"
)

// An Object is an ordered map of field names to values.
//
// The zero value is an empty object ready to use. Not safe for concurrent
// writes.
type Object struct {
	keys   []string
	values map[string]Value
}

// New creates an empty object.
func New() *Object {
	return &Object{}
}

// Len returns the number of fields.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Keys returns the field names in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Get returns a field value.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return Value{}, false
	}
	v, ok := o.values[key]
	return v, ok
}

// Has reports whether the field is set, regardless of its value.
func (o *Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Set sets a field. Setting an existing field keeps its position.
func (o *Object) Set(key string, v Value) *Object {
	if o.values == nil {
		o.values = make(map[string]Value)
	}
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
	return o
}

// Delete removes a field. Deleting a missing field is a no-op.
func (o *Object) Delete(key string) {
	if o == nil {
		return
	}
	if _, ok := o.values[key]; !ok {
		return
	}
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// GetString returns a string field. The second return value is false if the
// field is missing or not a string.
func (o *Object) GetString(key string) (string, bool) {
	v, ok := o.Get(key)
	if !ok || v.kind != String {
		return "", false
	}
	return v.s, true
}

// Clone returns a deep copy of the object.
func (o *Object) Clone() *Object {
	if o == nil {
		return nil
	}
	out := &Object{
		keys:   make([]string, len(o.keys)),
		values: make(map[string]Value, len(o.values)),
	}
	copy(out.keys, o.keys)
	for k, v := range o.values {
		out.values[k] = v.Clone()
	}
	return out
}

// Equal reports whether two objects hold the same fields with equal values.
// Field order is not significant. Used by go-cmp in tests.
func (o *Object) Equal(other *Object) bool {
	if o.Len() != other.Len() {
		return false
	}
	for _, k := range o.Keys() {
		b, ok := other.Get(k)
		if !ok || !o.values[k].Equal(b) {
			return false
		}
	}
	return true
}

// Range calls fn for every field in order. Iteration stops if fn returns
// false.
func (o *Object) Range(fn func(key string, v Value) bool) {
	if o == nil {
		return
	}
	for _, k := range o.keys {
		if !fn(k, o.values[k]) {
			return
		}
	}
}

// Interface converts the object to a map of plain Go values.
func (o *Object) Interface() map[string]interface{} {
	out := make(map[string]interface{}, o.Len())
	o.Range(func(k string, v Value) bool {
		out[k] = v.Interface()
		return true
	})
	return out
}

// FromMap creates an object from a Go map. Keys are added in sorted order.
func FromMap(m map[string]interface{}) (*Object, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	obj := New()
	for _, k := range keys {
		v, err := FromInterface(m[k])
		if err != nil {
			return nil, pathErr(k, err)
		}
		obj.Set(k, v)
	}
	return obj, nil
}

// MustFromMap is like FromMap but panics on error. Intended for tests and
// static tables.
func MustFromMap(m map[string]interface{}) *Object {
	obj, err := FromMap(m)
	if err != nil {
		panic(err)
	}
	return obj
}
