package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

type wireValue struct {
	Kind  Kind            `json:"kind"`
	Value json.RawMessage `json:"value,omitempty"`
}

// MarshalJSON encodes v as {"kind": ..., "value": ...}.
// Boxed payloads are encoded with encoding/json and decode back as ManagedObject.
func (v Value) MarshalJSON() ([]byte, error) {
	var payload any
	switch v.kind {
	case Unknown:
		return json.Marshal(wireValue{Kind: Unknown})
	case Float2, Float3, Float4, Quaternion, Color:
		c := make([]float32, v.kind.components())
		for i := range c {
			c[i] = v.f(i)
		}
		payload = c
	case Enum:
		e := v.Enum()
		payload = []int64{int64(e.Type), int64(e.Value)}
	default:
		payload = v.Box()
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("value: encode %s: %w", v.kind, err)
	}
	return json.Marshal(wireValue{Kind: v.kind, Value: raw})
}

// UnmarshalJSON decodes the format written by MarshalJSON.
func (v *Value) UnmarshalJSON(b []byte) error {
	var w wireValue
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	switch w.Kind {
	case Unknown:
		*v = Value{}
	case Bool:
		var x bool
		if err := json.Unmarshal(w.Value, &x); err != nil {
			return err
		}
		*v = FromBool(x)
	case Int:
		var x int
		if err := json.Unmarshal(w.Value, &x); err != nil {
			return err
		}
		*v = FromInt(x)
	case Float:
		var x float32
		if err := json.Unmarshal(w.Value, &x); err != nil {
			return err
		}
		*v = FromFloat(x)
	case Float2, Float3, Float4, Quaternion, Color:
		var c []float32
		if err := json.Unmarshal(w.Value, &c); err != nil {
			return err
		}
		if len(c) != w.Kind.components() {
			return fmt.Errorf("value: %s needs %d components, got %d", w.Kind, w.Kind.components(), len(c))
		}
		*v = floats(w.Kind, c...)
	case Enum:
		var e [2]int64
		if err := json.Unmarshal(w.Value, &e); err != nil {
			return err
		}
		*v = FromEnum(EnumValue{Type: uint32(e[0]), Value: int32(e[1])})
	case Struct, ManagedObject:
		var x any
		if err := json.Unmarshal(w.Value, &x); err != nil {
			return err
		}
		*v = Object(x)
	default:
		return fmt.Errorf("value: cannot decode kind %s", w.Kind)
	}
	return nil
}

// FromJSON decodes an external payload. The tagged form written by MarshalJSON
// is decoded exactly; any other JSON document is classified with FromObject,
// whole numbers becoming Int. Empty input is Unknown.
func FromJSON(b []byte) (Value, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return Value{}, nil
	}
	var probe map[string]json.RawMessage
	if json.Unmarshal(b, &probe) == nil {
		if _, tagged := probe["kind"]; tagged && len(probe) <= 2 {
			var v Value
			if err := v.UnmarshalJSON(b); err == nil {
				return v, nil
			}
		}
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return Value{}, fmt.Errorf("value: decode payload: %w", err)
	}
	if n, ok := x.(json.Number); ok {
		if i, err := n.Int64(); err == nil && i >= math.MinInt32 && i <= math.MaxInt32 {
			return FromInt(int(i)), nil
		}
		f, err := n.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("value: decode payload: %w", err)
		}
		return FromFloat(float32(f)), nil
	}
	return FromObject(x), nil
}
