package schema

import (
	"reflect"
	"strings"
	"unicode"
)

// fieldName returns the controller attribute name for a struct field. A name
// tag wins, otherwise the Go name is converted to snake case, keeping
// acronyms together: SEAgentDebug becomes se_agent_debug.
func fieldName(f reflect.StructField) string {
	if n, ok := f.Tag.Lookup("name"); ok {
		return n
	}
	rr := []rune(f.Name)
	var b strings.Builder
	for i, r := range rr {
		if i > 0 && unicode.IsUpper(r) {
			prev := rr[i-1]
			nextLower := i+1 < len(rr) && unicode.IsLower(rr[i+1])
			if !unicode.IsUpper(prev) || nextLower {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
