// Package avi declares the controller object types managed by avictl.
//
// Each type is a struct whose fields map to the controller's REST object.
// Pointer, slice and map fields are optional; a nil value leaves the
// controller's value untouched.
package avi

import (
	"github.com/func/avictl/resource"
)

type registry interface {
	Register(resource.Definition)
}

// Register adds all supported controller object types to the registry.
func Register(reg registry) {
	reg.Register(&AnalyticsProfile{})
	reg.Register(&Cloud{})
	reg.Register(&DebugServiceEngine{})
	reg.Register(&UserAccountProfile{})
	reg.Register(&WafPolicy{})
}
