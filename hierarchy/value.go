package hierarchy

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is the closed variant for context data: null, bool, number, string,
// list of Value, or map of string to Value. The zero Value is null.
//
// Contract:
//   - Immutability: Values are treated as immutable once constructed; lists
//     and maps passed to constructors must not be mutated afterward.
//   - Determinism: MarshalJSON produces a canonical encoding (map keys
//     sorted), so equal Values always encode to identical bytes.
type Value struct {
	kind Kind
	b    bool
	num  float64
	str  string
	list []Value
	obj  map[string]Value
}

// Null returns the null Value.
func Null() Value { return Value{} }

// Bool returns a boolean Value.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Number returns a numeric Value.
func Number(v float64) Value { return Value{kind: KindNumber, num: v} }

// String returns a string Value.
func String(v string) Value { return Value{kind: KindString, str: v} }

// List returns a list Value holding the given elements.
func List(elems ...Value) Value { return Value{kind: KindList, list: elems} }

// Map returns a map Value holding the given entries.
func Map(entries map[string]Value) Value { return Value{kind: KindMap, obj: entries} }

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the null Value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload. ok is false if v is not a bool.
func (v Value) AsBool() (val, ok bool) { return v.b, v.kind == KindBool }

// AsNumber returns the numeric payload. ok is false if v is not a number.
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }

// AsString returns the string payload. ok is false if v is not a string.
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

// AsList returns the list payload. ok is false if v is not a list.
// The returned slice must not be mutated.
func (v Value) AsList() ([]Value, bool) { return v.list, v.kind == KindList }

// AsMap returns the map payload. ok is false if v is not a map.
// The returned map must not be mutated.
func (v Value) AsMap() (map[string]Value, bool) { return v.obj, v.kind == KindMap }

// Equal reports deep equality of two Values.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.num == o.num
	case KindString:
		return v.str == o.str
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.obj) != len(o.obj) {
			return false
		}
		for k, ve := range v.obj {
			oe, ok := o.obj[k]
			if !ok || !ve.Equal(oe) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// FromAny converts a decoded-JSON style Go value (nil, bool, float64, int,
// string, []any, map[string]any) into a Value.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(val), nil
	case float64:
		return Number(val), nil
	case int:
		return Number(float64(val)), nil
	case int64:
		return Number(float64(val)), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("hierarchy: invalid number %q: %w", val, err)
		}
		return Number(f), nil
	case string:
		return String(val), nil
	case []any:
		elems := make([]Value, len(val))
		for i, e := range val {
			ev, err := FromAny(e)
			if err != nil {
				return Value{}, err
			}
			elems[i] = ev
		}
		return List(elems...), nil
	case map[string]any:
		entries := make(map[string]Value, len(val))
		for k, e := range val {
			ev, err := FromAny(e)
			if err != nil {
				return Value{}, err
			}
			entries[k] = ev
		}
		return Map(entries), nil
	default:
		return Value{}, fmt.Errorf("hierarchy: unsupported value type %T", v)
	}
}

// ToAny converts v back into plain Go values (nil, bool, float64, string,
// []any, map[string]any), suitable for encoding by any serializer.
func (v Value) ToAny() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	case KindList:
		out := make([]any, len(v.list))
		for i, e := range v.list {
			out[i] = e.ToAny()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.obj))
		for k, e := range v.obj {
			out[k] = e.ToAny()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON encodes v canonically: map keys are emitted in sorted order so
// the same Value always produces the same bytes regardless of map iteration
// order.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool, KindNumber, KindString:
		return json.Marshal(v.ToAny())
	case KindList:
		out := []byte{'['}
		for i, e := range v.list {
			if i > 0 {
				out = append(out, ',')
			}
			b, err := e.MarshalJSON()
			if err != nil {
				return nil, err
			}
			out = append(out, b...)
		}
		return append(out, ']'), nil
	case KindMap:
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		out := []byte{'{'}
		for i, k := range keys {
			if i > 0 {
				out = append(out, ',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			out = append(out, kb...)
			out = append(out, ':')
			vb, err := v.obj[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			out = append(out, vb...)
		}
		return append(out, '}'), nil
	default:
		return nil, fmt.Errorf("hierarchy: cannot marshal kind %s", v.kind)
	}
}

// UnmarshalJSON decodes any JSON value into the matching variant.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// EncodeData canonically encodes a top-level data map. Used for payload
// storage and size accounting.
func EncodeData(data map[string]Value) ([]byte, error) {
	return Map(data).MarshalJSON()
}

// DecodeData decodes a canonical payload produced by EncodeData.
func DecodeData(b []byte) (map[string]Value, error) {
	var v Value
	if err := v.UnmarshalJSON(b); err != nil {
		return nil, fmt.Errorf("hierarchy: decode data: %w", err)
	}
	m, ok := v.AsMap()
	if !ok {
		return nil, fmt.Errorf("hierarchy: decoded payload is %s, want map", v.Kind())
	}
	return m, nil
}

// Ensure Value implements the json interfaces.
var (
	_ json.Marshaler   = Value{}
	_ json.Unmarshaler = (*Value)(nil)
)
