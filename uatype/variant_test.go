package uatype

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVariant_Scalar(t *testing.T) {
	require := require.New(t)

	v := Scalar(float64(21.5))
	require.Equal(TypeDouble, v.Type())
	require.False(v.IsArray())
	require.Equal(1, v.Len())
	require.Equal(21.5, v.Value())
	require.Equal("Double(21.5)", v.String())

	s := Scalar("abc")
	require.Equal(TypeString, s.Type())
	require.Equal("abc", s.Value())
}

func TestVariant_Array(t *testing.T) {
	require := require.New(t)

	src := []int16{1, 2, 3}
	v := Array(src)
	src[0] = 9

	require.Equal(TypeInt16, v.Type())
	require.True(v.IsArray())
	require.Equal(3, v.Len())
	require.Equal([]int16{1, 2, 3}, v.Value())
	require.Equal("Int16[3]{1,2,3}", v.String())

	empty := Array[bool](nil)
	require.Equal(0, empty.Len())
	require.True(empty.IsArray())
}

func TestVariant_NullAndOpaque(t *testing.T) {
	require := require.New(t)

	var null Variant
	require.True(null.IsNull())
	require.Equal(0, null.Len())
	require.Equal("Null", null.String())

	o := Opaque(TypeDateTime, "2024-01-01T00:00:00Z", false)
	require.Equal(TypeDateTime, o.Type())
	require.Equal(1, o.Len())
	require.False(o.Type().IsPrimitive())
}

func TestVariant_Equal(t *testing.T) {
	require := require.New(t)

	require.True(Scalar(int32(5)).Equal(Scalar(int32(5))))
	require.False(Scalar(int32(5)).Equal(Scalar(uint32(5))))
	require.False(Scalar(int32(5)).Equal(Array([]int32{5})))
}

func TestStatusCode(t *testing.T) {
	require := require.New(t)

	require.True(StatusGood.IsGood())
	require.False(StatusBadNotWritable.IsGood())
	require.True(StatusBadNotWritable.IsBad())
	require.Equal("BadNotWritable", StatusBadNotWritable.Name())
	require.Contains(StatusBadNotWritable.Error(), "BadNotWritable")
	require.Equal("0x12345678", StatusCode(0x12345678).String())
}

func TestAccessLevel(t *testing.T) {
	require := require.New(t)

	require.Equal("rw", (AccessCurrentRead | AccessCurrentWrite).String())
	require.Equal("r-", AccessCurrentRead.String())
	require.False(AccessCurrentRead.CanWrite())
	require.Equal("--", AccessLevel(0).String())
}

func TestLocalType(t *testing.T) {
	require := require.New(t)

	for lt := LocalInt8; lt <= LocalString; lt++ {
		got, ok := ParseLocalType(lt.String())
		require.True(ok)
		require.Equal(lt, got)
	}
	require.True(LocalEnum16.IsInteger())
	require.True(LocalFloat32.IsFloat())
	require.Equal("Float64[10]", Slot{Type: LocalFloat64, Array: true, Capacity: 10}.String())
}
