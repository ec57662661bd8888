package value

import "math"

// Epsilon is the tolerance used when comparing floats.
const Epsilon = 1e-5

// Approximately reports whether a and b are equal within a relative tolerance.
func Approximately(a, b float32) bool {
	diff := math.Abs(float64(a) - float64(b))
	scale := math.Max(math.Abs(float64(a)), math.Abs(float64(b)))
	return diff <= math.Max(Epsilon*scale, Epsilon)
}

// CoerceValueToType widens v to target when the numeric chain allows it.
// Any other combination returns v unchanged.
func CoerceValueToType(target Kind, v Value) Value {
	if v.kind == target || !target.IsNumeric() || !v.kind.IsNumeric() || target < v.kind {
		return v
	}
	if v.kind == Int {
		if target == Float {
			return FromFloat(v.Float())
		}
		v = FromFloat(v.Float())
	}
	n := target.components()
	out := Value{kind: target}
	if v.kind == Float {
		for i := 0; i < n; i++ {
			out.data[i] = v.data[0]
		}
		return out
	}
	copy(out.data[:v.kind.components()], v.data[:v.kind.components()])
	return out
}

// Equals compares two values. Floats compare within tolerance, Int and Float
// compare across kinds, boxed values compare by reference or deep equality.
func Equals(a, b Value) bool {
	if a.kind != b.kind {
		if (a.kind == Int && b.kind == Float) || (a.kind == Float && b.kind == Int) {
			return Approximately(a.Float(), b.Float())
		}
		return false
	}
	switch a.kind {
	case Unknown:
		return true
	case Bool, Int, Enum:
		return a.data == b.data
	case Float, Float2, Float3, Float4, Quaternion, Color:
		for i := 0; i < a.kind.components(); i++ {
			if !Approximately(a.f(i), b.f(i)) {
				return false
			}
		}
		return true
	}
	if a.obj == b.obj {
		return true
	}
	return deepEqual(a.Object(), b.Object())
}
