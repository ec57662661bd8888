package value

import (
	"fmt"
	"strings"
)

// Kind is the tag of a Value.
type Kind uint8

const (
	Unknown Kind = iota
	Bool
	Int
	Float
	Float2
	Float3
	Float4
	Quaternion
	Color
	Enum
	Struct
	ManagedObject
)

var kindNames = [...]string{
	Unknown:       "unknown",
	Bool:          "bool",
	Int:           "int",
	Float:         "float",
	Float2:        "float2",
	Float3:        "float3",
	Float4:        "float4",
	Quaternion:    "quaternion",
	Color:         "color",
	Enum:          "enum",
	Struct:        "struct",
	ManagedObject: "object",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind resolves a kind name (case-insensitive). The empty string is Unknown.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Unknown, nil
	}
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	switch s {
	case "integer":
		return Int, nil
	case "boolean":
		return Bool, nil
	case "vector2":
		return Float2, nil
	case "vector3":
		return Float3, nil
	case "vector4":
		return Float4, nil
	case "managedobject", "string", "list":
		return ManagedObject, nil
	}
	return Unknown, fmt.Errorf("unknown value kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// IsNumeric reports whether k takes part in numeric widening.
func (k Kind) IsNumeric() bool {
	return k >= Int && k <= Float4
}

// IsBoxed reports whether values of kind k carry a Handle.
func (k Kind) IsBoxed() bool {
	return k == Struct || k == ManagedObject
}

// components returns the float component count of a numeric kind.
func (k Kind) components() int {
	switch k {
	case Int, Float:
		return 1
	case Float2:
		return 2
	case Float3:
		return 3
	case Float4, Quaternion, Color:
		return 4
	}
	return 0
}

// KindError reports a read of a Value under an incompatible kind.
type KindError struct {
	Want Kind
	Got  Kind
}

func (e *KindError) Error() string {
	return fmt.Sprintf("value: cannot read %s as %s", e.Got, e.Want)
}
