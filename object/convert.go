package object

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
)

// FromInterface converts a plain Go value to a Value.
//
// Supported are nil, bool, strings, all integer and float types, json.Number,
// slices, maps with string keys, Value and *Object. Pointers are followed; a
// nil pointer becomes null.
func FromInterface(in interface{}) (Value, error) {
	switch v := in.(type) {
	case nil:
		return Value{}, nil
	case Value:
		return v, nil
	case *Object:
		if v == nil {
			return Value{}, nil
		}
		return MapValue(v), nil
	case bool:
		return BoolValue(v), nil
	case string:
		return StringValue(v), nil
	case json.Number:
		return ParseNumber(string(v))
	case int:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Value{}, fmt.Errorf("number %v cannot be represented", v)
		}
		return Float(v), nil
	case []interface{}:
		l := make([]Value, len(v))
		for i, e := range v {
			ev, err := FromInterface(e)
			if err != nil {
				return Value{}, pathErr(i, err)
			}
			l[i] = ev
		}
		return ListValue(l...), nil
	case map[string]interface{}:
		obj, err := FromMap(v)
		if err != nil {
			return Value{}, err
		}
		return MapValue(obj), nil
	}
	return fromReflect(reflect.ValueOf(in))
}

func fromReflect(rv reflect.Value) (Value, error) {
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return Value{}, nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Bool:
		return BoolValue(rv.Bool()), nil
	case reflect.String:
		return StringValue(rv.String()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Value{kind: Number, s: strconv.FormatUint(rv.Uint(), 10)}, nil
	case reflect.Float32, reflect.Float64:
		return FromInterface(rv.Float())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return Value{}, nil
		}
		l := make([]Value, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			ev, err := FromInterface(rv.Index(i).Interface())
			if err != nil {
				return Value{}, pathErr(i, err)
			}
			l[i] = ev
		}
		return ListValue(l...), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Value{}, fmt.Errorf("map key must be string, not %s", rv.Type().Key())
		}
		if rv.IsNil() {
			return Value{}, nil
		}
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		obj := New()
		for _, k := range keys {
			ev, err := FromInterface(rv.MapIndex(k).Interface())
			if err != nil {
				return Value{}, pathErr(k.String(), err)
			}
			obj.Set(k.String(), ev)
		}
		return MapValue(obj), nil
	}
	return Value{}, fmt.Errorf("unsupported type %s", rv.Type())
}
