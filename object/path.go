package object

import (
	"bytes"
	"fmt"
)

// A Path addresses a value inside an object. Steps are either field names
// (string) or list indexes (int).
type Path []interface{}

// Key returns a copy of the path with a field step appended.
func (p Path) Key(name string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, name)
}

// Index returns a copy of the path with a list index step appended.
func (p Path) Index(i int) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, i)
}

// String formats the path as foo.bar[1].baz.
func (p Path) String() string {
	var buf bytes.Buffer
	for i, s := range p {
		switch v := s.(type) {
		case string:
			if i > 0 {
				buf.WriteByte('.')
			}
			buf.WriteString(v)
		case int:
			fmt.Fprintf(&buf, "[%d]", v)
		default:
			panic(fmt.Sprintf("Unknown path step %T", v))
		}
	}
	return buf.String()
}

// PathError is an error with an associated path.
type PathError struct {
	Path Path
	Err  error
}

// Error formats the error message with a string path.
func (e PathError) Error() string {
	if len(e.Path) == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// pathErr prefixes err with a step, merging with an existing PathError.
func pathErr(step interface{}, err error) error {
	if pe, ok := err.(PathError); ok {
		return PathError{Path: append(Path{step}, pe.Path...), Err: pe.Err}
	}
	return PathError{Path: Path{step}, Err: err}
}
