package schema

import (
	"reflect"

	"github.com/func/avictl/object"
	"github.com/pkg/errors"
)

// Describe converts a populated struct of the schema's Go type to an object.
// Nil pointers, slices and maps are unset and do not appear in the output.
//
// Returns an error if v is not a struct or pointer to struct.
func (s *Schema) Describe(v interface{}) (*object.Object, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, errors.New("nil definition")
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, errors.Errorf("%s: cannot describe %s", s.Type, rv.Kind())
	}
	return s.describe(nil, rv)
}

func (s *Schema) describe(path object.Path, rv reflect.Value) (*object.Object, error) {
	out := object.New()
	for _, name := range s.order(rv.Type()) {
		f := s.Fields[name]
		fv := rv.Field(f.Index)
		if isUnset(fv) {
			continue
		}
		val, err := s.describeValue(path.Key(name), f, fv)
		if err != nil {
			return nil, err
		}
		out.Set(name, val)
	}
	return out, nil
}

func (s *Schema) describeValue(path object.Path, f Field, fv reflect.Value) (object.Value, error) {
	for fv.Kind() == reflect.Ptr || fv.Kind() == reflect.Interface {
		fv = fv.Elem()
	}
	switch {
	case f.Kind == Dict && f.Nested != nil:
		obj, err := f.Nested.describe(path, fv)
		if err != nil {
			return object.Value{}, err
		}
		return object.MapValue(obj), nil
	case f.Kind == List && f.Nested != nil:
		elems := make([]object.Value, 0, fv.Len())
		for i := 0; i < fv.Len(); i++ {
			ev := fv.Index(i)
			if isUnset(ev) {
				continue
			}
			e, err := f.Nested.describeValue(path.Index(i), Field{Kind: Dict, Nested: f.Nested}, ev)
			if err != nil {
				return object.Value{}, err
			}
			elems = append(elems, e)
		}
		return object.ListValue(elems...), nil
	}
	val, err := object.FromInterface(fv.Interface())
	if err != nil {
		return object.Value{}, object.PathError{Path: path, Err: err}
	}
	return val, nil
}

// order returns field names in Go declaration order.
func (s *Schema) order(t reflect.Type) []string {
	names := make([]string, 0, len(s.Fields))
	byIndex := make(map[int]string, len(s.Fields))
	for n, f := range s.Fields {
		byIndex[f.Index] = n
	}
	for i := 0; i < t.NumField(); i++ {
		if n, ok := byIndex[i]; ok {
			names = append(names, n)
		}
	}
	return names
}

func isUnset(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map:
		return v.IsNil()
	}
	return false
}
