package schema

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// A Field describes a single field of a controller object.
type Field struct {
	Name      string
	Index     int // Index of the Go struct field.
	Kind      Kind
	Elem      Kind   // Element kind for lists.
	Required  bool   // Must be set when the object is present.
	Sensitive bool   // Write-only; skipped in comparisons and on update.
	ReadOnly  bool   // Set by the controller, never sent.
	Rules     string // Validator rules, validator.v9 syntax.

	// Nested is the schema of a dict field, or of the elements of a list
	// field, when they are declared as structs. Free-form maps have no nested
	// schema and are passed through as is.
	Nested *Schema
}

// A Schema is the field table of one controller object type.
type Schema struct {
	Type   string
	Fields map[string]Field
}

// FromType extracts a schema from a struct type. Unexported fields are
// ignored.
//
// The name of the field is derived from the struct field name. For example,
// ApdexResponseThreshold becomes apdex_response_threshold. This can be
// overridden by setting a `name:"<override>"` tag.
//
// Panics if target is not a struct or a pointer to a struct, or if an avi
// tag holds an unknown attribute.
func FromType(typename string, target reflect.Type) *Schema {
	t := indirect(target)
	if t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("Target must be a struct or pointer to struct, not %s", target.Kind()))
	}
	s := &Schema{
		Type:   typename,
		Fields: make(map[string]Field, t.NumField()),
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue
		}
		name := fieldName(f)
		if name == "-" {
			continue
		}
		field := Field{
			Name:  name,
			Index: i,
			Kind:  kindOf(f.Type),
			Rules: f.Tag.Get("validate"),
		}
		if attrs, ok := f.Tag.Lookup("avi"); ok {
			for _, attr := range strings.Split(attrs, ",") {
				switch strings.TrimSpace(attr) {
				case "required":
					field.Required = true
				case "sensitive":
					field.Sensitive = true
				case "readonly":
					field.ReadOnly = true
				case "":
				default:
					panic(fmt.Sprintf("Unsupported attribute %q set on %s", attr, f.Name))
				}
			}
		}
		ft := indirect(f.Type)
		switch field.Kind {
		case List:
			et := indirect(ft.Elem())
			field.Elem = kindOf(et)
			if et.Kind() == reflect.Struct {
				field.Nested = FromType(typename+"."+name, et)
			}
		case Dict:
			if ft.Kind() == reflect.Struct {
				field.Nested = FromType(typename+"."+name, ft)
			}
		}
		s.Fields[name] = field
	}
	return s
}

// Names returns the field names, sorted.
func (s *Schema) Names() []string {
	names := make([]string, 0, len(s.Fields))
	for n := range s.Fields {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SensitiveFields returns the names of top-level sensitive fields, sorted.
func (s *Schema) SensitiveFields() []string {
	var out []string
	for _, n := range s.Names() {
		if s.Fields[n].Sensitive {
			out = append(out, n)
		}
	}
	return out
}

// ReadOnlyFields returns the names of top-level read-only fields, sorted.
func (s *Schema) ReadOnlyFields() []string {
	var out []string
	for _, n := range s.Names() {
		if s.Fields[n].ReadOnly {
			out = append(out, n)
		}
	}
	return out
}
