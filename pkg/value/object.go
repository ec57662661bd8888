package value

import (
	"math"
	"reflect"
)

func deepEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Kind() == reflect.Pointer && rb.Kind() == reflect.Pointer {
		return ra.Pointer() == rb.Pointer() || reflect.DeepEqual(a, b)
	}
	return reflect.DeepEqual(a, b)
}

// FromObject classifies a host value into the matching kind.
// Reference types, integers outside the int32 range and anything else without
// an inline representation become ManagedObject.
func FromObject(obj any) Value {
	switch o := obj.(type) {
	case nil:
		return Value{}
	case Value:
		return o
	case bool:
		return FromBool(o)
	case int:
		return integer(obj, int64(o))
	case int8:
		return FromInt(int(o))
	case int16:
		return FromInt(int(o))
	case int32:
		return FromInt(int(o))
	case int64:
		return integer(obj, o)
	case uint:
		return unsigned(obj, uint64(o))
	case uint8:
		return FromInt(int(o))
	case uint16:
		return FromInt(int(o))
	case uint32:
		return unsigned(obj, uint64(o))
	case uint64:
		return unsigned(obj, o)
	case float32:
		return FromFloat(o)
	case float64:
		return FromFloat(float32(o))
	case Vec2:
		return FromVec2(o)
	case Vec3:
		return FromVec3(o)
	case Vec4:
		return FromVec4(o)
	case Quat:
		return FromQuat(o)
	case RGBA:
		return FromColor(o)
	case EnumValue:
		return FromEnum(o)
	case Enumer:
		return FromEnum(o.EnumValue())
	case *Handle:
		return FromHandle(ManagedObject, o)
	}
	if reflect.TypeOf(obj).Kind() == reflect.Struct {
		return StructOf(obj)
	}
	return Object(obj)
}

func integer(obj any, i int64) Value {
	if i < math.MinInt32 || i > math.MaxInt32 {
		return Object(obj)
	}
	return FromInt(int(i))
}

func unsigned(obj any, u uint64) Value {
	if u > math.MaxInt32 {
		return Object(obj)
	}
	return FromInt(int(u))
}
