package schema

import (
	"fmt"
	"reflect"
)

// Kind is the value kind a field holds.
type Kind int

// Field kinds.
const (
	Any Kind = iota
	String
	Int
	Float
	Bool
	List
	Dict
)

var kindNames = [...]string{"any", "string", "int", "float", "bool", "list", "dict"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// kindOf maps a Go type to a field kind. Pointers are followed; an interface
// type accepts any value.
//
// Panics if the type has no kind. In practice this only applies to funcs and
// channels.
func kindOf(t reflect.Type) Kind {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Struct, reflect.Map:
		return Dict
	case reflect.Slice, reflect.Array:
		return List
	case reflect.Bool:
		return Bool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Int
	case reflect.Float32, reflect.Float64:
		return Float
	case reflect.String:
		return String
	case reflect.Interface:
		return Any
	default:
		panic(fmt.Sprintf("no kind for %s", t))
	}
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
