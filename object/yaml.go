package object

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// FromYAML converts a decoded YAML node to a Value. Mapping key order is
// preserved. Scalars are resolved with the YAML core schema: !!null, !!bool,
// !!int and !!float become their Value kinds, everything else is a string.
func FromYAML(n *yaml.Node) (Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Value{}, nil
		}
		return FromYAML(n.Content[0])
	case yaml.AliasNode:
		return FromYAML(n.Alias)
	case yaml.ScalarNode:
		return yamlScalar(n)
	case yaml.SequenceNode:
		l := make([]Value, len(n.Content))
		for i, c := range n.Content {
			e, err := FromYAML(c)
			if err != nil {
				return Value{}, pathErr(i, err)
			}
			l[i] = e
		}
		return ListValue(l...), nil
	case yaml.MappingNode:
		obj := New()
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.Kind != yaml.ScalarNode {
				return Value{}, fmt.Errorf("line %d: mapping key must be a scalar", k.Line)
			}
			e, err := FromYAML(v)
			if err != nil {
				return Value{}, pathErr(k.Value, err)
			}
			obj.Set(k.Value, e)
		}
		return MapValue(obj), nil
	}
	return Value{}, fmt.Errorf("line %d: unsupported yaml node", n.Line)
}

func yamlScalar(n *yaml.Node) (Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return Value{}, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return Value{}, err
		}
		return BoolValue(b), nil
	case "!!int", "!!float":
		var f interface{}
		if err := n.Decode(&f); err != nil {
			return Value{}, err
		}
		switch num := f.(type) {
		case int:
			return Int(int64(num)), nil
		case int64:
			return Int(num), nil
		case uint64:
			return ParseNumber(fmt.Sprint(num))
		case float64:
			return FromInterface(num)
		}
		return ParseNumber(n.Value)
	}
	return StringValue(n.Value), nil
}
