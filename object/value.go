// Package object provides the structured key-value container used for
// desired and remote controller objects.
//
// An Object is an ordered map from field name to Value. A Value is a small
// closed variant: null, bool, number, string, list, map, or the Absent marker.
//
// Unset fields are represented by missing keys. Null carries no opinion and is
// dropped when a description is normalized. Absent asks for the field to be
// cleared on the controller.
package object

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
)

// Kind is the kind of a Value.
type Kind uint8

// Value kinds.
const (
	Null Kind = iota
	Bool
	Number
	String
	List
	Map
	Absent
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case List:
		return "list"
	case Map:
		return "map"
	case Absent:
		return "absent"
	}
	return fmt.Sprintf("kind(%d)", k)
}

// A Value is a single field value. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	s    string // string value or number literal
	l    []Value
	m    *Object
}

// NullValue returns a null value.
func NullValue() Value { return Value{} }

// AbsentValue returns the marker for a field that must not be set.
func AbsentValue() Value { return Value{kind: Absent} }

// BoolValue returns a bool value.
func BoolValue(b bool) Value { return Value{kind: Bool, b: b} }

// StringValue returns a string value.
func StringValue(s string) Value { return Value{kind: String, s: s} }

// Int returns a number value from an integer.
func Int(i int64) Value { return Value{kind: Number, s: strconv.FormatInt(i, 10)} }

// Float returns a number value from a float.
func Float(f float64) Value {
	return Value{kind: Number, s: strconv.FormatFloat(f, 'g', -1, 64)}
}

// NumberValue returns a number value from a literal. The literal is not
// validated; use ParseNumber for untrusted input.
func NumberValue(n json.Number) Value { return Value{kind: Number, s: string(n)} }

// ParseNumber parses s as a number.
func ParseNumber(s string) (Value, error) {
	if s == "" || !(s[0] == '-' || (s[0] >= '0' && s[0] <= '9')) || !json.Valid([]byte(s)) {
		return Value{}, fmt.Errorf("invalid number %q", s)
	}
	return Value{kind: Number, s: s}, nil
}

// ListValue returns a list value holding the given elements.
func ListValue(elems ...Value) Value {
	if elems == nil {
		elems = []Value{}
	}
	return Value{kind: List, l: elems}
}

// MapValue returns a map value wrapping obj. A nil obj is an empty map.
func MapValue(obj *Object) Value {
	if obj == nil {
		obj = New()
	}
	return Value{kind: Map, m: obj}
}

// Kind returns the value kind.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == Null }

// Str returns the string value. Panics if the value is not a string.
func (v Value) Str() string {
	v.must(String)
	return v.s
}

// Num returns the number literal. Panics if the value is not a number.
func (v Value) Num() json.Number {
	v.must(Number)
	return json.Number(v.s)
}

// BigFloat returns the number as a big.Float. Panics if the value is not a
// number.
func (v Value) BigFloat() *big.Float {
	v.must(Number)
	f, _ := new(big.Float).SetString(v.s)
	if f == nil {
		f = new(big.Float)
	}
	return f
}

// Float64 returns the number as a float64. Panics if the value is not a
// number.
func (v Value) Float64() float64 {
	f, _ := v.BigFloat().Float64()
	return f
}

// Int64 returns the number as an int64 and whether the conversion was exact.
// Panics if the value is not a number.
func (v Value) Int64() (int64, bool) {
	f := v.BigFloat()
	if !f.IsInt() {
		return 0, false
	}
	i, acc := f.Int64()
	return i, acc == big.Exact
}

// Boolean returns the bool value. Panics if the value is not a bool.
func (v Value) Boolean() bool {
	v.must(Bool)
	return v.b
}

// Elems returns the list elements. Panics if the value is not a list.
func (v Value) Elems() []Value {
	v.must(List)
	return v.l
}

// Obj returns the map value. Panics if the value is not a map.
func (v Value) Obj() *Object {
	v.must(Map)
	return v.m
}

// Empty reports whether the value is an empty list or map.
func (v Value) Empty() bool {
	switch v.kind {
	case List:
		return len(v.l) == 0
	case Map:
		return v.m.Len() == 0
	}
	return false
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.kind {
	case List:
		l := make([]Value, len(v.l))
		for i, e := range v.l {
			l[i] = e.Clone()
		}
		return Value{kind: List, l: l}
	case Map:
		return Value{kind: Map, m: v.m.Clone()}
	}
	return v
}

// Equal reports whether v and o are strictly equal: same kind, numbers with
// the same numeric value, lists in the same order and maps with the same
// fields. For the reconciliation comparison rules see package compare.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case Bool:
		return v.b == o.b
	case String:
		return v.s == o.s
	case Number:
		return v.BigFloat().Cmp(o.BigFloat()) == 0
	case List:
		if len(v.l) != len(o.l) {
			return false
		}
		for i := range v.l {
			if !v.l[i].Equal(o.l[i]) {
				return false
			}
		}
		return true
	case Map:
		return v.m.Equal(o.m)
	}
	return true
}

// Interface converts the value to plain Go types: nil, bool, json.Number,
// string, []interface{} and map[string]interface{}. Absent converts to nil.
func (v Value) Interface() interface{} {
	switch v.kind {
	case Bool:
		return v.b
	case Number:
		return json.Number(v.s)
	case String:
		return v.s
	case List:
		out := make([]interface{}, len(v.l))
		for i, e := range v.l {
			out[i] = e.Interface()
		}
		return out
	case Map:
		return v.m.Interface()
	}
	return nil
}

// GoString renders the value for debugging and test diffs.
func (v Value) GoString() string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("<%s: %v>", v.kind, err)
	}
	if v.kind == Absent {
		return "<absent>"
	}
	return string(b)
}

func (v Value) String() string { return v.GoString() }

func (v Value) must(k Kind) {
	if v.kind != k {
		panic(fmt.Sprintf("object: value is %s, not %s", v.kind, k))
	}
}

// IsAbsentMarker reports whether v is a map of exactly {"state": "absent"},
// the config file spelling of the Absent marker.
func IsAbsentMarker(v Value) bool {
	if v.kind != Map || v.m.Len() != 1 {
		return false
	}
	s, ok := v.m.Get("state")
	return ok && s.kind == String && s.s == "absent"
}
