package reconciler

import (
	"github.com/func/avictl/object"
	"github.com/func/avictl/resource/schema"
)

func (r *Reconciler) schema(typename string) *schema.Schema {
	if r.Registry == nil {
		return nil
	}
	return r.Registry.Schema(typename)
}

// normalizeGeneric prepares a description of a type without a schema: nulls
// are dropped at every depth, absent markers become object.Absent and
// controller-managed fields are removed.
func normalizeGeneric(desired *object.Object) *object.Object {
	out := genericObject(desired)
	for _, f := range identity {
		out.Delete(f)
	}
	return out
}

func genericObject(in *object.Object) *object.Object {
	out := object.New()
	in.Range(func(k string, v object.Value) bool {
		if !v.IsNull() {
			out.Set(k, genericValue(v))
		}
		return true
	})
	return out
}

func genericValue(v object.Value) object.Value {
	switch {
	case object.IsAbsentMarker(v):
		return object.AbsentValue()
	case v.Kind() == object.Map:
		return object.MapValue(genericObject(v.Obj()))
	case v.Kind() == object.List:
		elems := v.Elems()
		out := make([]object.Value, len(elems))
		for i, e := range elems {
			out[i] = genericValue(e)
		}
		return object.ListValue(out...)
	}
	return v
}

// stripPayload returns a copy of desired without absent fields and without
// the given fields, at every depth.
func stripPayload(desired *object.Object, drop []string) *object.Object {
	skip := make(map[string]bool, len(drop))
	for _, n := range drop {
		skip[n] = true
	}
	return stripObject(desired, skip)
}

func stripObject(in *object.Object, skip map[string]bool) *object.Object {
	out := object.New()
	in.Range(func(k string, v object.Value) bool {
		if skip[k] || v.Kind() == object.Absent || object.IsAbsentMarker(v) {
			return true
		}
		out.Set(k, stripValue(v, skip))
		return true
	})
	return out
}

func stripValue(v object.Value, skip map[string]bool) object.Value {
	switch v.Kind() {
	case object.Map:
		return object.MapValue(stripObject(v.Obj(), skip))
	case object.List:
		elems := v.Elems()
		out := make([]object.Value, 0, len(elems))
		for _, e := range elems {
			if e.Kind() == object.Absent {
				continue
			}
			out = append(out, stripValue(e, skip))
		}
		return object.ListValue(out...)
	}
	return v
}
