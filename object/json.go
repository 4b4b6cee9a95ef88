package object

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// MarshalJSON implements json.Marshaler. Absent is encoded with its config
// spelling, {"state":"absent"}; it is never sent to a controller.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case Null:
		return []byte("null"), nil
	case Absent:
		return []byte(`{"state":"absent"}`), nil
	case Bool:
		if v.b {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case Number:
		return []byte(v.s), nil
	case String:
		return json.Marshal(v.s)
	case List:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, e := range v.l {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := e.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case Map:
		return v.m.MarshalJSON()
	}
	return nil, fmt.Errorf("unknown kind %s", v.kind)
}

// UnmarshalJSON implements json.Unmarshaler. Number literals and the order of
// object keys are preserved.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	val, err := decodeValue(dec)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

// MarshalJSON implements json.Marshaler, writing fields in insertion order.
func (o *Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := o.values[k].MarshalJSON()
		if err != nil {
			return nil, errors.Wrapf(err, "field %q", k)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler. The input must be a JSON object.
func (o *Object) UnmarshalJSON(data []byte) error {
	var v Value
	if err := v.UnmarshalJSON(data); err != nil {
		return err
	}
	if v.kind != Map {
		return fmt.Errorf("expected a json object, got %s", v.kind)
	}
	*o = *v.m
	return nil
}

// Decode reads a single JSON object from r.
func Decode(r io.Reader) (*Object, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if v.kind != Map {
		return nil, fmt.Errorf("expected a json object, got %s", v.kind)
	}
	return v.m, nil
}

// ParseJSON parses a JSON object.
func ParseJSON(data []byte) (*Object, error) {
	return Decode(bytes.NewReader(data))
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	switch t := tok.(type) {
	case nil:
		return Value{}, nil
	case bool:
		return BoolValue(t), nil
	case json.Number:
		return Value{kind: Number, s: string(t)}, nil
	case string:
		return StringValue(t), nil
	case json.Delim:
		switch t {
		case '[':
			l := []Value{}
			for dec.More() {
				e, err := decodeValue(dec)
				if err != nil {
					return Value{}, pathErr(len(l), err)
				}
				l = append(l, e)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return ListValue(l...), nil
		case '{':
			obj := New()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := kt.(string)
				if !ok {
					return Value{}, fmt.Errorf("unexpected object key %v", kt)
				}
				e, err := decodeValue(dec)
				if err != nil {
					return Value{}, pathErr(key, err)
				}
				obj.Set(key, e)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return MapValue(obj), nil
		}
	}
	return Value{}, fmt.Errorf("unexpected token %v", tok)
}
