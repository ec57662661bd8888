package value

// Vec2 is a two component float vector.
type Vec2 struct{ X, Y float32 }

// Vec3 is a three component float vector.
type Vec3 struct{ X, Y, Z float32 }

// Vec4 is a four component float vector.
type Vec4 struct{ X, Y, Z, W float32 }

// Quat is a rotation quaternion.
type Quat struct{ X, Y, Z, W float32 }

// IdentityQuat is the no-rotation quaternion.
var IdentityQuat = Quat{W: 1}

// RGBA is a linear color.
type RGBA struct{ R, G, B, A float32 }

// EnumValue is an enum member: a type identifier and the member's integer value.
type EnumValue struct {
	Type  uint32
	Value int32
}

// Enumer is implemented by host enums that want to be stored as Enum values.
type Enumer interface {
	EnumValue() EnumValue
}
