package compare

import (
	"net/url"
	"strings"
)

// A Ref is a parsed reference to another controller object.
//
// References appear in many shapes depending on who wrote them:
//
//	/api/wafprofile?name=default           written by users
//	/api/wafprofile/wafprofile-1234        written by the controller
//	https://10.1.1.1/api/wafprofile/wafprofile-1234#default
//	                                       returned with include_name
//	default                                bare name
type Ref struct {
	Type string
	UUID string
	Name string
}

// IsRefField reports whether a field holds references, by naming convention:
// *_ref for a single reference, *_refs for a list.
func IsRefField(name string) bool {
	return strings.HasSuffix(name, "_ref") || strings.HasSuffix(name, "_refs")
}

// ParseRef parses a reference. Strings without an /api/ segment are taken as
// a bare name.
func ParseRef(s string) Ref {
	var ref Ref
	idx := strings.Index(s, "/api/")
	if idx < 0 {
		ref.Name = s
		return ref
	}
	rest := s[idx+len("/api/"):]
	if hash := strings.Index(rest, "#"); hash >= 0 {
		ref.Name = rest[hash+1:]
		rest = rest[:hash]
	}
	if q := strings.Index(rest, "?"); q >= 0 {
		if vals, err := url.ParseQuery(rest[q+1:]); err == nil {
			if n := vals.Get("name"); n != "" {
				ref.Name = n
			}
		}
		rest = rest[:q]
	}
	parts := strings.SplitN(strings.Trim(rest, "/"), "/", 2)
	ref.Type = parts[0]
	if len(parts) == 2 {
		ref.UUID = parts[1]
	}
	return ref
}

// Equal reports whether two references point to the same object. Names are
// compared when both sides carry one, otherwise UUIDs.
func (r Ref) Equal(other Ref) bool {
	if r.Type != "" && other.Type != "" && r.Type != other.Type {
		return false
	}
	if r.Name != "" && other.Name != "" {
		return r.Name == other.Name
	}
	if r.UUID != "" && other.UUID != "" {
		return r.UUID == other.UUID
	}
	return false
}

// String formats the reference in the by-name form accepted by the
// controller.
func (r Ref) String() string {
	if r.Type == "" {
		return r.Name
	}
	if r.Name != "" {
		return "/api/" + r.Type + "?name=" + url.QueryEscape(r.Name)
	}
	return "/api/" + r.Type + "/" + r.UUID
}
