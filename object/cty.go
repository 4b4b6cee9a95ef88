package object

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// FromCty converts a cty value, as produced by evaluating HCL expressions, to
// a Value.
//
// Null values become Null. Objects and maps become Map values with keys in
// lexicographic order. Lists, sets and tuples become List values. Unknown
// values cannot be converted.
func FromCty(val cty.Value) (Value, error) {
	if !val.IsKnown() {
		return Value{}, fmt.Errorf("value is not known")
	}
	if val.IsNull() {
		return Value{}, nil
	}
	ty := val.Type()
	switch {
	case ty == cty.String:
		return StringValue(val.AsString()), nil
	case ty == cty.Bool:
		return BoolValue(val.True()), nil
	case ty == cty.Number:
		return Value{kind: Number, s: val.AsBigFloat().Text('g', -1)}, nil
	case ty.IsListType(), ty.IsSetType(), ty.IsTupleType():
		l := make([]Value, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			e, err := FromCty(ev)
			if err != nil {
				return Value{}, pathErr(len(l), err)
			}
			l = append(l, e)
		}
		return ListValue(l...), nil
	case ty.IsObjectType(), ty.IsMapType():
		obj := New()
		for it := val.ElementIterator(); it.Next(); {
			kv, ev := it.Element()
			key := kv.AsString()
			e, err := FromCty(ev)
			if err != nil {
				return Value{}, pathErr(key, err)
			}
			obj.Set(key, e)
		}
		return MapValue(obj), nil
	}
	return Value{}, fmt.Errorf("unsupported type %s", ty.FriendlyName())
}
