package value

import (
	"fmt"
	"math"
	"reflect"
)

// Value is the tagged union stored in data slots.
// The zero Value is Unknown.
type Value struct {
	kind Kind
	data [4]uint32
	obj  *Handle
}

// Kind returns the tag.
func (v Value) Kind() Kind { return v.kind }

// IsUnknown reports whether v carries no payload.
func (v Value) IsUnknown() bool { return v.kind == Unknown }

func (v Value) f(i int) float32 { return math.Float32frombits(v.data[i]) }

func floats(k Kind, c ...float32) Value {
	v := Value{kind: k}
	for i, x := range c {
		v.data[i] = math.Float32bits(x)
	}
	return v
}

// FromBool builds a Bool value.
func FromBool(b bool) Value {
	v := Value{kind: Bool}
	if b {
		v.data[0] = 1
	}
	return v
}

// FromInt builds an Int value. The payload is 32 bits wide.
func FromInt(i int) Value {
	return Value{kind: Int, data: [4]uint32{uint32(int32(i))}}
}

// FromFloat builds a Float value.
func FromFloat(f float32) Value { return floats(Float, f) }

// FromVec2 builds a Float2 value.
func FromVec2(x Vec2) Value { return floats(Float2, x.X, x.Y) }

// FromVec3 builds a Float3 value.
func FromVec3(x Vec3) Value { return floats(Float3, x.X, x.Y, x.Z) }

// FromVec4 builds a Float4 value.
func FromVec4(x Vec4) Value { return floats(Float4, x.X, x.Y, x.Z, x.W) }

// FromQuat builds a Quaternion value.
func FromQuat(q Quat) Value { return floats(Quaternion, q.X, q.Y, q.Z, q.W) }

// FromColor builds a Color value.
func FromColor(c RGBA) Value { return floats(Color, c.R, c.G, c.B, c.A) }

// FromEnum builds an Enum value.
func FromEnum(e EnumValue) Value {
	return Value{kind: Enum, data: [4]uint32{e.Type, uint32(e.Value)}}
}

// Object boxes an arbitrary host object as a ManagedObject.
// A nil object yields Unknown.
func Object(obj any) Value {
	if obj == nil {
		return Value{}
	}
	return Value{kind: ManagedObject, obj: NewHandle(obj)}
}

// StructOf boxes a host struct value.
func StructOf(s any) Value {
	if s == nil {
		return Value{}
	}
	return Value{kind: Struct, obj: NewHandle(s)}
}

// FromHandle wraps an existing handle, sharing it with the other owners.
func FromHandle(k Kind, h *Handle) Value {
	if !k.IsBoxed() {
		panic(&KindError{Want: ManagedObject, Got: k})
	}
	return Value{kind: k, obj: h}
}

// Zero returns the zero value of kind k.
func Zero(k Kind) Value {
	if k.IsBoxed() {
		return Value{}
	}
	return Value{kind: k}
}

// Bool reads a Bool. Numeric values read as true when non-zero.
func (v Value) Bool() bool {
	switch v.kind {
	case Bool, Int:
		return v.data[0] != 0
	case Float:
		return v.f(0) != 0
	case Unknown:
		return false
	case Struct, ManagedObject:
		return v.obj != nil && v.obj.Object() != nil
	}
	panic(&KindError{Want: Bool, Got: v.kind})
}

// Int reads an Int. Floats are truncated.
func (v Value) Int() int {
	switch v.kind {
	case Int:
		return int(int32(v.data[0]))
	case Float:
		return int(v.f(0))
	case Bool:
		return int(v.data[0])
	case Enum:
		return int(int32(v.data[1]))
	case Unknown:
		return 0
	}
	panic(&KindError{Want: Int, Got: v.kind})
}

// Float reads a Float, widening Int.
func (v Value) Float() float32 {
	switch v.kind {
	case Float:
		return v.f(0)
	case Int:
		return float32(int32(v.data[0]))
	case Unknown:
		return 0
	}
	panic(&KindError{Want: Float, Got: v.kind})
}

// Float2 reads a Float2, widening scalars.
func (v Value) Float2() Vec2 {
	if v.kind == Unknown {
		return Vec2{}
	}
	w := CoerceValueToType(Float2, v)
	if w.kind != Float2 {
		panic(&KindError{Want: Float2, Got: v.kind})
	}
	return Vec2{w.f(0), w.f(1)}
}

// Float3 reads a Float3, widening scalars and Float2.
func (v Value) Float3() Vec3 {
	if v.kind == Unknown {
		return Vec3{}
	}
	w := CoerceValueToType(Float3, v)
	if w.kind != Float3 {
		panic(&KindError{Want: Float3, Got: v.kind})
	}
	return Vec3{w.f(0), w.f(1), w.f(2)}
}

// Float4 reads a Float4, widening every smaller numeric kind.
func (v Value) Float4() Vec4 {
	if v.kind == Unknown {
		return Vec4{}
	}
	w := CoerceValueToType(Float4, v)
	if w.kind != Float4 {
		panic(&KindError{Want: Float4, Got: v.kind})
	}
	return Vec4{w.f(0), w.f(1), w.f(2), w.f(3)}
}

// Quaternion reads a Quaternion. Unknown reads as the identity rotation.
func (v Value) Quaternion() Quat {
	switch v.kind {
	case Quaternion:
		return Quat{v.f(0), v.f(1), v.f(2), v.f(3)}
	case Unknown:
		return IdentityQuat
	}
	panic(&KindError{Want: Quaternion, Got: v.kind})
}

// Color reads a Color. A Float4 is accepted as RGBA.
func (v Value) Color() RGBA {
	switch v.kind {
	case Color, Float4:
		return RGBA{v.f(0), v.f(1), v.f(2), v.f(3)}
	case Unknown:
		return RGBA{}
	}
	panic(&KindError{Want: Color, Got: v.kind})
}

// Enum reads an Enum.
func (v Value) Enum() EnumValue {
	switch v.kind {
	case Enum:
		return EnumValue{Type: v.data[0], Value: int32(v.data[1])}
	case Unknown:
		return EnumValue{}
	}
	panic(&KindError{Want: Enum, Got: v.kind})
}

// Object returns the boxed payload of a Struct or ManagedObject value.
func (v Value) Object() any {
	switch v.kind {
	case Struct, ManagedObject:
		return v.obj.Object()
	case Unknown:
		return nil
	}
	panic(&KindError{Want: ManagedObject, Got: v.kind})
}

// Handle returns the boxed handle, or nil for inline kinds.
func (v Value) Handle() *Handle { return v.obj }

// Retain takes a share of the boxed handle, if any.
func (v Value) Retain() {
	if v.obj != nil {
		v.obj.Retain()
	}
}

// Release gives back a share of the boxed handle, if any.
func (v Value) Release() {
	if v.obj != nil {
		v.obj.Release()
	}
}

// Box materializes v as a native Go value.
func (v Value) Box() any {
	switch v.kind {
	case Bool:
		return v.Bool()
	case Int:
		return v.Int()
	case Float:
		return v.Float()
	case Float2:
		return v.Float2()
	case Float3:
		return v.Float3()
	case Float4:
		return v.Float4()
	case Quaternion:
		return v.Quaternion()
	case Color:
		return v.Color()
	case Enum:
		return v.Enum()
	case Struct, ManagedObject:
		return v.obj.Object()
	}
	return nil
}

// BoxAs materializes v converted to t, as reflection-driven callers need.
func (v Value) BoxAs(t reflect.Type) (any, error) {
	boxed := v.Box()
	if boxed == nil {
		return reflect.Zero(t).Interface(), nil
	}
	rv := reflect.ValueOf(boxed)
	if rv.Type().AssignableTo(t) {
		return boxed, nil
	}
	if rv.Type().ConvertibleTo(t) {
		return rv.Convert(t).Interface(), nil
	}
	return nil, fmt.Errorf("value: cannot box %s as %s", v.kind, t)
}

func (v Value) String() string {
	switch v.kind {
	case Unknown:
		return "<unknown>"
	case Bool:
		return fmt.Sprintf("%t", v.Bool())
	case Int:
		return fmt.Sprintf("%d", v.Int())
	case Float:
		return fmt.Sprintf("%g", v.Float())
	case Float2:
		x := v.Float2()
		return fmt.Sprintf("(%g, %g)", x.X, x.Y)
	case Float3:
		x := v.Float3()
		return fmt.Sprintf("(%g, %g, %g)", x.X, x.Y, x.Z)
	case Float4, Quaternion, Color:
		return fmt.Sprintf("(%g, %g, %g, %g)", v.f(0), v.f(1), v.f(2), v.f(3))
	case Enum:
		e := v.Enum()
		return fmt.Sprintf("enum(%d:%d)", e.Type, e.Value)
	}
	return fmt.Sprintf("%v", v.Object())
}
