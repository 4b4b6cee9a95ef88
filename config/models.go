package config

import (
	"github.com/func/avictl/object"
)

// Resource is a desired controller object loaded from a file.
type Resource struct {
	Type string
	Name string

	// State is "present" or "absent". Empty means present.
	State string

	// Scope. Empty uses the connection default.
	Tenant     string
	TenantUUID string

	// Fields of the object, in file order. Does not include the name.
	Fields *object.Object

	// Pos is the file and line the resource is defined on.
	Pos string
}

// Key identifies the resource across files.
func (r Resource) Key() string {
	t := r.TenantUUID
	if t == "" {
		t = r.Tenant
	}
	return t + "/" + r.Type + "/" + r.Name
}

// Absent reports whether the resource should not exist.
func (r Resource) Absent() bool {
	return r.State == "absent"
}
