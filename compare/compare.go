// Package compare decides whether a controller object already matches a
// desired description.
//
// The desired description is partial: only fields it sets are compared and
// fields that exist only on the controller are ignored. Lists are compared
// without regard to order, numbers by value, and references by the object
// they point to.
package compare

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/func/avictl/object"
)

// DefaultIgnore lists fields that are never compared. The controller sets
// them on every write.
var DefaultIgnore = []string{"_last_modified", "tenant"}

// A Diff describes a single differing field.
type Diff struct {
	Path    object.Path
	Desired object.Value
	Remote  object.Value
	Reason  string
}

func (d Diff) String() string {
	return fmt.Sprintf("%s: %s", d.Path, d.Reason)
}

// Result is the outcome of a comparison.
type Result struct {
	Equal bool
	Diffs []Diff
}

// String returns one line per differing field, or "equal".
func (r Result) String() string {
	if r.Equal {
		return "equal"
	}
	lines := make([]string, len(r.Diffs))
	for i, d := range r.Diffs {
		lines[i] = d.String()
	}
	return strings.Join(lines, "\n")
}

// Paths returns the differing paths as strings.
func (r Result) Paths() []string {
	out := make([]string, len(r.Diffs))
	for i, d := range r.Diffs {
		out[i] = d.Path.String()
	}
	return out
}

// An Option configures a comparison.
type Option func(*comparer)

// Sensitive excludes fields from the comparison at every depth. Used for
// write-only values the controller never echoes back.
func Sensitive(names ...string) Option {
	return func(c *comparer) {
		for _, n := range names {
			c.skip[n] = true
		}
	}
}

// Ignore excludes additional fields from the comparison at every depth.
func Ignore(names ...string) Option {
	return Sensitive(names...)
}

type comparer struct {
	skip map[string]bool
}

// Objects compares a desired description to a remote object.
//
// The remote object is equal when every field that is set and non-null in
// desired matches the same field in remote:
//
//	Null in desired is ignored.
//	Absent in desired requires the field to be missing or null in remote.
//	An empty list or map in desired matches a missing field.
//	Lists must have the same length and be a permutation of each other.
//	Maps are compared recursively with the same rules.
//	Numbers are compared by value; strings that parse as the other side's
//	number or bool are coerced.
//	Reference fields (*_ref, *_refs) are compared with Ref.Equal.
func Objects(desired, remote *object.Object, opts ...Option) Result {
	c := &comparer{skip: make(map[string]bool)}
	for _, n := range DefaultIgnore {
		c.skip[n] = true
	}
	for _, opt := range opts {
		opt(c)
	}
	diffs := c.object(nil, desired, remote)
	return Result{Equal: len(diffs) == 0, Diffs: diffs}
}

// Equal is a shorthand for Objects(...).Equal.
func Equal(desired, remote *object.Object, opts ...Option) bool {
	return Objects(desired, remote, opts...).Equal
}

func (c *comparer) object(path object.Path, desired, remote *object.Object) []Diff {
	var diffs []Diff
	for _, k := range desired.Keys() {
		if c.skip[k] {
			continue
		}
		dv, _ := desired.Get(k)
		if dv.IsNull() {
			continue
		}
		p := path.Key(k)
		rv, ok := remote.Get(k)
		if dv.Kind() == object.Absent || object.IsAbsentMarker(dv) {
			if ok && !rv.IsNull() {
				diffs = append(diffs, Diff{Path: p, Desired: dv, Remote: rv, Reason: "must not be set"})
			}
			continue
		}
		if !ok || rv.IsNull() {
			if dv.Empty() {
				continue
			}
			diffs = append(diffs, Diff{Path: p, Desired: dv, Remote: rv, Reason: "not set on controller"})
			continue
		}
		diffs = append(diffs, c.value(p, k, dv, rv)...)
	}
	return diffs
}

func (c *comparer) value(path object.Path, key string, desired, remote object.Value) []Diff {
	if desired.Kind() == object.String && remote.Kind() == object.String && IsRefField(key) {
		if desired.Str() == remote.Str() || ParseRef(desired.Str()).Equal(ParseRef(remote.Str())) {
			return nil
		}
		return []Diff{{Path: path, Desired: desired, Remote: remote, Reason: fmt.Sprintf("references %s, want %s", remote.Str(), desired.Str())}}
	}

	switch desired.Kind() {
	case object.Map:
		if remote.Kind() != object.Map {
			return []Diff{{Path: path, Desired: desired, Remote: remote, Reason: fmt.Sprintf("is %s, want map", remote.Kind())}}
		}
		return c.object(path, desired.Obj(), remote.Obj())
	case object.List:
		if remote.Kind() != object.List {
			return []Diff{{Path: path, Desired: desired, Remote: remote, Reason: fmt.Sprintf("is %s, want list", remote.Kind())}}
		}
		return c.list(path, key, desired.Elems(), remote.Elems())
	}

	if scalarEqual(desired, remote) {
		return nil
	}
	return []Diff{{Path: path, Desired: desired, Remote: remote, Reason: fmt.Sprintf("is %s, want %s", remote, desired)}}
}

// list matches every desired element to a distinct remote element. Desired
// elements may be partial, so one desired element can match several remote
// ones; a bipartite matching finds an assignment if one exists.
func (c *comparer) list(path object.Path, key string, desired, remote []object.Value) []Diff {
	if len(desired) != len(remote) {
		return []Diff{{
			Path:    path,
			Desired: object.ListValue(desired...),
			Remote:  object.ListValue(remote...),
			Reason:  fmt.Sprintf("has %d elements, want %d", len(remote), len(desired)),
		}}
	}

	fits := make([][]bool, len(desired))
	for i, d := range desired {
		fits[i] = make([]bool, len(remote))
		for j, r := range remote {
			fits[i][j] = len(c.value(path.Index(i), key, d, r)) == 0
		}
	}

	owner := make([]int, len(remote)) // remote index -> desired index
	for j := range owner {
		owner[j] = -1
	}
	var assign func(i int, seen []bool) bool
	assign = func(i int, seen []bool) bool {
		for j := range remote {
			if !fits[i][j] || seen[j] {
				continue
			}
			seen[j] = true
			if owner[j] < 0 || assign(owner[j], seen) {
				owner[j] = i
				return true
			}
		}
		return false
	}

	var diffs []Diff
	for i, d := range desired {
		if !assign(i, make([]bool, len(remote))) {
			diffs = append(diffs, Diff{Path: path.Index(i), Desired: d, Reason: "no matching element on controller"})
		}
	}
	return diffs
}

func scalarEqual(a, b object.Value) bool {
	switch {
	case a.Kind() == b.Kind():
		return a.Equal(b)
	case a.Kind() == object.String:
		return coercedEqual(a.Str(), b)
	case b.Kind() == object.String:
		return coercedEqual(b.Str(), a)
	}
	return false
}

// coercedEqual compares a string to a number or bool by parsing the string.
func coercedEqual(s string, v object.Value) bool {
	switch v.Kind() {
	case object.Number:
		n, err := object.ParseNumber(strings.TrimSpace(s))
		return err == nil && n.Equal(v)
	case object.Bool:
		b, err := strconv.ParseBool(s)
		return err == nil && b == v.Boolean()
	}
	return false
}
