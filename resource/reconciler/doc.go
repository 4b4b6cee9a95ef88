// Package reconciler drives a single controller object to its desired state.
//
// # Steps
//
// A reconciliation of one object consists of:
//
//  1. Normalize
//
//     The desired description is normalized with the type's schema when the
//     type is registered. Nulls are dropped, scalars are coerced and
//     read-only fields are removed. Unregistered types only get nulls and
//     controller-managed fields removed.
//
//  2. Absent
//
//     The object is deleted by name. An object that does not exist is
//     already in the desired state.
//
//  3. Present
//
//     The object is looked up by name with references expanded.
//
//     - When no object exists, it is created.
//
//     - When an object exists and all desired fields match, nothing is
//     written.
//
//     - Otherwise the object is replaced. Sensitive fields and fields
//     marked {state: absent} are not sent.
//
// # Ad-hoc calls
//
// Call issues a single REST call with the same change detection: put only
// writes when the object differs, patch compares the object before and after,
// and deleting a missing object is not a change.
//
// # Concurrency
//
// A Reconciler holds no state between calls and may be used concurrently.
// Concurrent reconciliations of the same object are not coordinated; both may
// observe it missing and attempt to create it, and the controller rejects the
// second.
package reconciler
