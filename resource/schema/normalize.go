package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/func/avictl/object"
	"github.com/func/avictl/suggest"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// A FieldError is a problem with a single field of a desired object.
type FieldError struct {
	Type string
	Path object.Path
	Err  error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Type, e.Path, e.Err)
}

// Cause returns the underlying error.
func (e *FieldError) Cause() error { return e.Err }

// Unwrap returns the underlying error.
func (e *FieldError) Unwrap() error { return e.Err }

// Normalize returns a copy of desired that is ready to be compared and sent:
//
//	Null fields are dropped, they express no opinion.
//	Read-only fields are dropped, the controller rejects them on write.
//	Absent markers ({state: absent}) are kept as object.Absent.
//	Scalars are coerced to the field kind ("1500" to 1500 for ints).
//
// Unknown fields, missing required fields, values that cannot be coerced and
// values that break a validation rule are errors. All errors are returned
// together; use multierr.Errors to get the individual *FieldError values.
func (s *Schema) Normalize(desired *object.Object) (*object.Object, error) {
	n := &normalizer{typename: s.Type, required: true}
	out := n.object(nil, s, desired)
	if n.errs != nil {
		return nil, n.errs
	}
	return out, nil
}

// NormalizePartial is Normalize without the required field check, for
// partial updates.
func (s *Schema) NormalizePartial(desired *object.Object) (*object.Object, error) {
	n := &normalizer{typename: s.Type}
	out := n.object(nil, s, desired)
	if n.errs != nil {
		return nil, n.errs
	}
	return out, nil
}

type normalizer struct {
	typename string
	required bool
	errs     error
}

func (n *normalizer) fail(p object.Path, err error) {
	n.errs = multierr.Append(n.errs, &FieldError{Type: n.typename, Path: p, Err: err})
}

func (n *normalizer) object(path object.Path, s *Schema, desired *object.Object) *object.Object {
	out := object.New()
	for _, k := range desired.Keys() {
		v, _ := desired.Get(k)
		p := path.Key(k)
		f, ok := s.Fields[k]
		if !ok {
			if sug := suggest.String(k, s.Names()); sug != "" {
				n.fail(p, errors.Errorf("unknown field, did you mean %q?", sug))
				continue
			}
			n.fail(p, errors.New("unknown field"))
			continue
		}
		if f.ReadOnly || v.IsNull() {
			continue
		}
		if v.Kind() == object.Absent || object.IsAbsentMarker(v) {
			if f.Required {
				n.fail(p, errors.New("required field cannot be cleared"))
				continue
			}
			out.Set(k, object.AbsentValue())
			continue
		}
		cv, ok := n.value(p, f, v)
		if !ok {
			continue
		}
		if f.Rules != "" {
			if err := validate(ruleValue(f, cv), f.Rules); err != nil {
				n.fail(p, err)
				continue
			}
		}
		out.Set(k, cv)
	}

	if n.required {
		for _, name := range s.Names() {
			if !s.Fields[name].Required {
				continue
			}
			if !out.Has(name) {
				n.fail(path.Key(name), errors.New("required field is not set"))
			}
		}
	}
	return out
}

func (n *normalizer) value(p object.Path, f Field, v object.Value) (object.Value, bool) {
	switch f.Kind {
	case List:
		if v.Kind() != object.List {
			n.fail(p, errors.Errorf("must be a list, not %s", v.Kind()))
			return v, false
		}
		ef := Field{Kind: f.Elem, Nested: f.Nested}
		out := make([]object.Value, 0, len(v.Elems()))
		ok := true
		for i, e := range v.Elems() {
			if e.IsNull() {
				continue
			}
			ce, eok := n.value(p.Index(i), ef, e)
			ok = ok && eok
			out = append(out, ce)
		}
		return object.ListValue(out...), ok
	case Dict:
		if v.Kind() != object.Map {
			n.fail(p, errors.Errorf("must be a dict, not %s", v.Kind()))
			return v, false
		}
		if f.Nested == nil {
			return dropNulls(v), true
		}
		before := len(multierr.Errors(n.errs))
		obj := n.object(p, f.Nested, v.Obj())
		return object.MapValue(obj), len(multierr.Errors(n.errs)) == before
	case Any:
		return dropNulls(v), true
	}
	cv, err := coerceScalar(f.Kind, v)
	if err != nil {
		n.fail(p, err)
		return v, false
	}
	return cv, true
}

func coerceScalar(k Kind, v object.Value) (object.Value, error) {
	switch k {
	case String:
		switch v.Kind() {
		case object.String:
			return v, nil
		case object.Number:
			return object.StringValue(v.Num().String()), nil
		case object.Bool:
			return object.StringValue(strconv.FormatBool(v.Boolean())), nil
		}
	case Int:
		n, err := number(v)
		if err != nil {
			return v, err
		}
		if _, ok := n.Int64(); !ok {
			return v, errors.Errorf("must be a whole number, not %s", n.Num())
		}
		return n, nil
	case Float:
		return number(v)
	case Bool:
		switch v.Kind() {
		case object.Bool:
			return v, nil
		case object.String:
			switch strings.ToLower(strings.TrimSpace(v.Str())) {
			case "true", "yes", "on", "1":
				return object.BoolValue(true), nil
			case "false", "no", "off", "0":
				return object.BoolValue(false), nil
			}
			return v, errors.Errorf("must be a bool, not %q", v.Str())
		}
	}
	return v, errors.Errorf("must be %s, not %s", article(k), v.Kind())
}

func number(v object.Value) (object.Value, error) {
	switch v.Kind() {
	case object.Number:
		return v, nil
	case object.String:
		n, err := object.ParseNumber(strings.TrimSpace(v.Str()))
		if err != nil {
			return v, errors.Errorf("must be a number, not %q", v.Str())
		}
		return n, nil
	}
	return v, errors.Errorf("must be a number, not %s", v.Kind())
}

func article(k Kind) string {
	if k == Int {
		return "an int"
	}
	return "a " + k.String()
}

// dropNulls removes null map entries at every depth of a free-form value.
func dropNulls(v object.Value) object.Value {
	switch v.Kind() {
	case object.Map:
		out := object.New()
		v.Obj().Range(func(k string, e object.Value) bool {
			if !e.IsNull() {
				out.Set(k, dropNulls(e))
			}
			return true
		})
		return object.MapValue(out)
	case object.List:
		elems := v.Elems()
		out := make([]object.Value, len(elems))
		for i, e := range elems {
			out[i] = dropNulls(e)
		}
		return object.ListValue(out...)
	}
	return v
}

// ruleValue converts a coerced value to the Go type validator rules expect.
func ruleValue(f Field, v object.Value) interface{} {
	switch v.Kind() {
	case object.Number:
		if f.Kind == Int || f.Elem == Int {
			i, _ := v.Int64()
			return i
		}
		return v.Float64()
	case object.List:
		elems := v.Elems()
		out := make([]interface{}, len(elems))
		ef := Field{Kind: f.Elem, Elem: f.Elem}
		for i, e := range elems {
			out[i] = ruleValue(ef, e)
		}
		return out
	}
	return v.Interface()
}
