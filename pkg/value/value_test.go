package value_test

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/aretw0/weft/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct{ X, Y int }

type closer struct{ closed bool }

func (c *closer) Close() error {
	c.closed = true
	return nil
}

func TestFromObject_RoundTrip(t *testing.T) {
	list := []value.Value{value.FromInt(1)}
	ptr := &point{X: 1}

	tests := []struct {
		name string
		in   any
		kind value.Kind
		read func(value.Value) any
	}{
		{"bool", true, value.Bool, func(v value.Value) any { return v.Bool() }},
		{"int", 42, value.Int, func(v value.Value) any { return v.Int() }},
		{"negative int", -7, value.Int, func(v value.Value) any { return v.Int() }},
		{"float", float32(1.5), value.Float, func(v value.Value) any { return v.Float() }},
		{"vec2", value.Vec2{X: 1, Y: 2}, value.Float2, func(v value.Value) any { return v.Float2() }},
		{"vec3", value.Vec3{X: 1, Y: 2, Z: 3}, value.Float3, func(v value.Value) any { return v.Float3() }},
		{"vec4", value.Vec4{X: 1, Y: 2, Z: 3, W: 4}, value.Float4, func(v value.Value) any { return v.Float4() }},
		{"quaternion", value.Quat{X: 0, Y: 0.7071, Z: 0, W: 0.7071}, value.Quaternion, func(v value.Value) any { return v.Quaternion() }},
		{"color", value.RGBA{R: 1, G: 0.5, B: 0.25, A: 1}, value.Color, func(v value.Value) any { return v.Color() }},
		{"enum", value.EnumValue{Type: 3, Value: -2}, value.Enum, func(v value.Value) any { return v.Enum() }},
		{"struct", point{X: 1, Y: 2}, value.Struct, func(v value.Value) any { return v.Object() }},
		{"string", "hello", value.ManagedObject, func(v value.Value) any { return v.Object() }},
		{"slice", list, value.ManagedObject, func(v value.Value) any { return v.Object() }},
		{"pointer", ptr, value.ManagedObject, func(v value.Value) any { return v.Object() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := value.FromObject(tt.in)
			assert.Equal(t, tt.kind, v.Kind())
			assert.Equal(t, tt.in, tt.read(v))
			assert.Equal(t, tt.in, v.Box())
		})
	}
}

func TestFromObject_IntegerWidths(t *testing.T) {
	assert.Equal(t, 5, value.FromObject(int64(5)).Int())
	assert.Equal(t, 5, value.FromObject(uint8(5)).Int())
	assert.Equal(t, value.Float, value.FromObject(2.5).Kind())
	assert.True(t, value.FromObject(nil).IsUnknown())
}

func TestFromObject_WideIntegersStayBoxed(t *testing.T) {
	tests := []any{
		int64(1) << 33,
		int64(math.MinInt32) - 1,
		uint32(math.MaxInt32) + 1,
		uint64(math.MaxUint64),
		uint(1) << 40,
	}
	for _, in := range tests {
		v := value.FromObject(in)
		assert.Equal(t, value.ManagedObject, v.Kind(), "%T %v", in, in)
		assert.Equal(t, in, v.Object())
		assert.Equal(t, in, v.Box())
	}

	edge := value.FromObject(int64(math.MaxInt32))
	assert.Equal(t, value.Int, edge.Kind())
	assert.Equal(t, math.MaxInt32, edge.Int())

	big, err := value.FromJSON([]byte("8589934592"))
	require.NoError(t, err)
	assert.Equal(t, value.Float, big.Kind())
	assert.Equal(t, float32(8589934592), big.Float())
}

func TestCoerceValueToType(t *testing.T) {
	v := value.CoerceValueToType(value.Float, value.FromInt(3))
	assert.Equal(t, value.Float, v.Kind())
	assert.Equal(t, float32(3), v.Float())

	v = value.CoerceValueToType(value.Float3, value.FromFloat(2))
	assert.Equal(t, value.Vec3{X: 2, Y: 2, Z: 2}, v.Float3())

	v = value.CoerceValueToType(value.Float4, value.FromVec2(value.Vec2{X: 1, Y: 2}))
	assert.Equal(t, value.Vec4{X: 1, Y: 2}, v.Float4())

	// narrowing is never performed
	v = value.CoerceValueToType(value.Int, value.FromFloat(2.5))
	assert.Equal(t, value.Float, v.Kind())

	v = value.CoerceValueToType(value.Float, value.FromBool(true))
	assert.Equal(t, value.Bool, v.Kind())
}

func TestGetter_WrongKindPanics(t *testing.T) {
	v := value.FromVec3(value.Vec3{X: 1})
	assert.PanicsWithError(t, "value: cannot read float3 as float", func() { v.Float() })

	var kerr *value.KindError
	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r)
			err, ok := r.(error)
			require.True(t, ok)
			require.True(t, errors.As(err, &kerr))
		}()
		value.FromBool(true).Float2()
	}()
	assert.Equal(t, value.Float2, kerr.Want)
}

func TestUnknownReadsAsZero(t *testing.T) {
	var v value.Value
	assert.Equal(t, 0, v.Int())
	assert.Equal(t, float32(0), v.Float())
	assert.Equal(t, value.Vec3{}, v.Float3())
	assert.Equal(t, value.IdentityQuat, v.Quaternion())
	assert.Nil(t, v.Object())
}

func TestEquals(t *testing.T) {
	assert.True(t, value.Equals(value.FromFloat(0.1+0.2), value.FromFloat(0.3)))
	assert.True(t, value.Equals(value.FromInt(2), value.FromFloat(2.000001)))
	assert.False(t, value.Equals(value.FromInt(2), value.FromFloat(2.5)))
	assert.False(t, value.Equals(value.FromInt(1), value.FromBool(true)))
	assert.True(t, value.Equals(value.Object([]int{1, 2}), value.Object([]int{1, 2})))
	assert.False(t, value.Equals(value.Object("a"), value.Object("b")))

	shared := value.Object(&point{X: 1})
	assert.True(t, value.Equals(shared, shared))
}

func TestHandle_RefCounting(t *testing.T) {
	c := &closer{}
	v := value.Object(c)
	freed := 0
	v.Handle().OnFree(func(any) { freed++ })

	v.Retain()
	v.Retain()
	assert.Equal(t, 2, v.Handle().Refs())

	v.Release()
	assert.False(t, c.closed)
	assert.Same(t, c, v.Object())

	v.Release()
	assert.True(t, c.closed)
	assert.Equal(t, 1, freed)
	assert.Nil(t, v.Object())

	// releasing past zero does not free twice
	v.Release()
	assert.Equal(t, 1, freed)
}

func TestArith(t *testing.T) {
	assert.Equal(t, 8, value.Arith(value.OpAdd, value.FromInt(5), value.FromInt(3)).Int())
	assert.Equal(t, value.Float, value.Arith(value.OpAdd, value.FromInt(5), value.FromFloat(0.5)).Kind())

	v := value.Arith(value.OpMultiply, value.FromVec2(value.Vec2{X: 1, Y: 2}), value.FromFloat(3))
	assert.Equal(t, value.Vec2{X: 3, Y: 6}, v.Float2())

	assert.PanicsWithError(t, value.ErrDivideByZero.Error(), func() {
		value.Arith(value.OpDivide, value.FromInt(1), value.FromInt(0))
	})
}

func TestCompare(t *testing.T) {
	assert.True(t, value.Compare(value.Less, value.FromInt(1), value.FromFloat(1.5)))
	assert.False(t, value.Compare(value.Less, value.FromFloat(1), value.FromFloat(1.000001)))
	assert.True(t, value.Compare(value.GreaterOrEqual, value.FromFloat(1), value.FromFloat(1.000001)))
	assert.True(t, value.Compare(value.NotEqual, value.FromInt(1), value.FromInt(2)))
}

func TestBoxAs(t *testing.T) {
	boxed, err := value.FromInt(7).BoxAs(reflect.TypeOf(int64(0)))
	require.NoError(t, err)
	assert.Equal(t, int64(7), boxed)

	boxed, err = value.Value{}.BoxAs(reflect.TypeOf(""))
	require.NoError(t, err)
	assert.Equal(t, "", boxed)

	_, err = value.FromVec2(value.Vec2{}).BoxAs(reflect.TypeOf(0))
	assert.Error(t, err)
}

func TestJSON(t *testing.T) {
	for _, v := range []value.Value{
		{},
		value.FromBool(true),
		value.FromInt(-3),
		value.FromFloat(2.5),
		value.FromVec3(value.Vec3{X: 1, Y: 2, Z: 3}),
		value.FromColor(value.RGBA{R: 1, A: 1}),
		value.FromEnum(value.EnumValue{Type: 9, Value: 4}),
		value.Object("text"),
	} {
		raw, err := json.Marshal(v)
		require.NoError(t, err)

		var back value.Value
		require.NoError(t, json.Unmarshal(raw, &back), string(raw))
		assert.True(t, value.Equals(v, back), "%s != %s", v, back)
	}

	var v value.Value
	assert.Error(t, json.Unmarshal([]byte(`{"kind":"float3","value":[1,2]}`), &v))
}

func TestParseKind(t *testing.T) {
	k, err := value.ParseKind("Float3")
	require.NoError(t, err)
	assert.Equal(t, value.Float3, k)

	k, err = value.ParseKind("string")
	require.NoError(t, err)
	assert.Equal(t, value.ManagedObject, k)

	_, err = value.ParseKind("matrix")
	assert.Error(t, err)
}

func TestFromJSON(t *testing.T) {
	cases := []struct {
		in   string
		kind value.Kind
		str  string
	}{
		{"", value.Unknown, "<unknown>"},
		{"7", value.Int, "7"},
		{"2.5", value.Float, "2.5"},
		{"true", value.Bool, "true"},
		{`{"kind":"float3","value":[1,2,3]}`, value.Float3, "(1, 2, 3)"},
		{`{"kind":"x","other":1}`, value.ManagedObject, "map[kind:x other:1]"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			v, err := value.FromJSON([]byte(tc.in))
			require.NoError(t, err)
			assert.Equal(t, tc.kind, v.Kind())
			assert.Equal(t, tc.str, v.String())
		})
	}

	_, err := value.FromJSON([]byte("{broken"))
	assert.Error(t, err)
}
