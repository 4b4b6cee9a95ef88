package resource

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/func/avictl/resource/schema"
	"github.com/func/avictl/suggest"
)

// NotSupportedError is returned when a resource type is not registered.
type NotSupportedError struct {
	Type string
}

func (e NotSupportedError) Error() string {
	return fmt.Sprintf("resource type %q not supported", e.Type)
}

type entry struct {
	typ    reflect.Type
	schema *schema.Schema
}

// A Registry maintains a list of registered resources.
type Registry struct {
	resources map[string]entry
}

// RegistryFromDefinitions creates a new registry from a predefined list of
// definitions. It should primarily used in tests to set up a registry.
func RegistryFromDefinitions(defs ...Definition) *Registry {
	r := &Registry{}
	for _, def := range defs {
		r.Register(def)
	}
	return r
}

// Register adds a new resource type. The schema is extracted from the struct
// tags of the definition.
//
// The Definition interface must be implemented on a pointer receiver on a
// struct. Panics otherwise. If another resource with the same type is already
// registered, it is overwritten.
//
// Not safe for concurrent access.
func (r *Registry) Register(def Definition) {
	t := reflect.TypeOf(def)
	if t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Struct {
		panic(fmt.Sprintf("Definition must be a pointer to a struct, not %s", t))
	}
	if r.resources == nil {
		r.resources = make(map[string]entry)
	}
	name := def.Type()
	r.resources[name] = entry{
		typ:    t.Elem(),
		schema: schema.FromType(name, t),
	}
}

// Schema returns the schema of a registered type. Returns nil if the type has
// not been registered.
func (r *Registry) Schema(typename string) *schema.Schema {
	return r.resources[typename].schema
}

// New returns a new, empty definition of the given type.
func (r *Registry) New(typename string) (Definition, error) {
	e, ok := r.resources[typename]
	if !ok {
		return nil, NotSupportedError{Type: typename}
	}
	return reflect.New(e.typ).Interface().(Definition), nil
}

// Types returns the type names that have been registered. The results are
// lexicographically sorted.
func (r *Registry) Types() []string {
	tt := make([]string, 0, len(r.resources))
	for k := range r.resources {
		tt = append(tt, k)
	}
	sort.Strings(tt)
	return tt
}

// SuggestType returns the registered type closest to typename, or an empty
// string if nothing is close.
func (r *Registry) SuggestType(typename string) string {
	return suggest.String(typename, r.Types())
}
