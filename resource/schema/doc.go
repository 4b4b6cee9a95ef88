// Package schema extracts controller object schemas from struct tags.
//
// A resource definition is a Go struct. Each exported field becomes a schema
// field named after the snake_case of the Go name, unless a name:"" tag
// overrides it. Attributes are set with the avi:"" tag:
//
//	required   the field must be set when the object is present
//	sensitive  write-only; never compared and never sent on update
//	readonly   set by the controller; dropped from desired state
//
// Value rules use go-playground/validator syntax in a validate:"" tag.
package schema
