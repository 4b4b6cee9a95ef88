// Package resource maps controller object types to their definitions.
package resource

import (
	"reflect"

	"github.com/func/avictl/object"
	"github.com/func/avictl/resource/schema"
)

// A Definition describes a controller object type.
//
// All resources must implement this interface.
type Definition interface {
	// Type returns the controller collection name, for example wafpolicy.
	//
	// The name will be used for matching the resource to the resource
	// configuration provided by the user, and as the REST path under /api/.
	Type() string
}

// Describe converts a populated definition to the object sent to the
// controller. Unset (nil) fields are omitted.
func Describe(def Definition) (*object.Object, error) {
	return schema.FromType(def.Type(), reflect.TypeOf(def)).Describe(def)
}
