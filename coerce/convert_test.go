package coerce

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bkuner/opcUaUnifiedAutomation/uatype"
)

func TestToLocal_Scalar(t *testing.T) {
	require := require.New(t)

	got, err := ToLocal(uatype.Scalar(float64(21.5)), uatype.Slot{Type: uatype.LocalFloat32})
	require.NoError(err)
	require.Equal(float32(21.5), got)

	got, err = ToLocal(uatype.Scalar(int16(-7)), uatype.Slot{Type: uatype.LocalInt32})
	require.NoError(err)
	require.Equal(int32(-7), got)

	got, err = ToLocal(uatype.Scalar(true), uatype.Slot{Type: uatype.LocalUInt16})
	require.NoError(err)
	require.Equal(uint16(1), got)

	got, err = ToLocal(uatype.Scalar(2.6), uatype.Slot{Type: uatype.LocalInt32})
	require.NoError(err)
	require.Equal(int32(3), got)

	got, err = ToLocal(uatype.Scalar("42"), uatype.Slot{Type: uatype.LocalFloat64})
	require.NoError(err)
	require.Equal(float64(42), got)

	got, err = ToLocal(uatype.Scalar(uint32(17)), uatype.Slot{Type: uatype.LocalString})
	require.NoError(err)
	require.Equal("17", got)
}

func TestToLocal_Errors(t *testing.T) {
	require := require.New(t)

	_, err := ToLocal(uatype.Scalar(int32(300)), uatype.Slot{Type: uatype.LocalInt8})
	require.ErrorIs(err, ErrOutOfRange)

	_, err = ToLocal(uatype.Scalar(int32(-1)), uatype.Slot{Type: uatype.LocalUInt32})
	require.ErrorIs(err, ErrOutOfRange)

	_, err = ToLocal(uatype.Scalar(math.MaxFloat64), uatype.Slot{Type: uatype.LocalFloat32})
	require.ErrorIs(err, ErrOutOfRange)

	_, err = ToLocal(uatype.Scalar("abc"), uatype.Slot{Type: uatype.LocalInt32})
	require.ErrorIs(err, ErrInvalidValue)

	_, err = ToLocal(uatype.Variant{}, uatype.Slot{Type: uatype.LocalInt32})
	require.ErrorIs(err, ErrNoValue)

	_, err = ToLocal(uatype.Opaque(uatype.TypeDateTime, "x", false), uatype.Slot{Type: uatype.LocalString})
	require.ErrorIs(err, ErrUnsupportedType)

	_, err = ToLocal(uatype.Array([]int32{1}), uatype.Slot{Type: uatype.LocalInt32})
	require.ErrorIs(err, ErrShapeMismatch)
}

func TestToLocal_Array(t *testing.T) {
	require := require.New(t)

	slot := uatype.Slot{Type: uatype.LocalFloat64, Array: true, Capacity: 4}
	got, err := ToLocal(uatype.Array([]int16{1, 2, 3}), slot)
	require.NoError(err)
	require.Equal([]float64{1, 2, 3}, got)

	_, err = ToLocal(uatype.Array([]int16{1, 2, 3, 4, 5}), slot)
	require.ErrorIs(err, ErrCapacityExceeded)

	_, err = ToLocal(uatype.Array([]int32{1, 1000}), uatype.Slot{Type: uatype.LocalInt8, Array: true, Capacity: 2})
	require.ErrorIs(err, ErrOutOfRange)
}

func TestToRemote(t *testing.T) {
	require := require.New(t)

	v, err := ToRemote(float32(1.5), uatype.Slot{Type: uatype.LocalFloat32}, uatype.TypeDouble)
	require.NoError(err)
	require.True(uatype.Scalar(float64(1.5)).Equal(v))

	v, err = ToRemote(int32(5), uatype.Slot{Type: uatype.LocalInt32}, uatype.TypeBoolean)
	require.NoError(err)
	require.True(uatype.Scalar(true).Equal(v))

	v, err = ToRemote("7", uatype.Slot{Type: uatype.LocalString}, uatype.TypeUInt16)
	require.NoError(err)
	require.True(uatype.Scalar(uint16(7)).Equal(v))

	v, err = ToRemote([]uint8{1, 2}, uatype.Slot{Type: uatype.LocalUInt8, Array: true, Capacity: 8}, uatype.TypeInt32)
	require.NoError(err)
	require.True(uatype.Array([]int32{1, 2}).Equal(v))

	_, err = ToRemote(int32(70000), uatype.Slot{Type: uatype.LocalInt32}, uatype.TypeInt16)
	require.ErrorIs(err, ErrOutOfRange)

	_, err = ToRemote([]int32{1, 2, 3}, uatype.Slot{Type: uatype.LocalInt32, Array: true, Capacity: 2}, uatype.TypeInt32)
	require.ErrorIs(err, ErrCapacityExceeded)

	_, err = ToRemote(int32(1), uatype.Slot{Type: uatype.LocalInt32}, uatype.TypeNodeID)
	require.ErrorIs(err, ErrUnsupportedType)

	_, err = ToRemote([]int32{1}, uatype.Slot{Type: uatype.LocalInt32}, uatype.TypeInt32)
	require.ErrorIs(err, ErrShapeMismatch)
}

// Every pair classified lossless must survive local -> remote -> local unchanged.
func TestRoundTrip_Lossless(t *testing.T) {
	samples := map[uatype.LocalType][]any{
		uatype.LocalInt8:    {int8(-128), int8(0), int8(1), int8(127)},
		uatype.LocalUInt8:   {uint8(0), uint8(1), uint8(255)},
		uatype.LocalInt16:   {int16(-300), int16(0), int16(1)},
		uatype.LocalUInt16:  {uint16(0), uint16(1), uint16(300)},
		uatype.LocalEnum16:  {uint16(0), uint16(1), uint16(5)},
		uatype.LocalInt32:   {int32(-5), int32(0), int32(1), int32(100)},
		uatype.LocalUInt32:  {uint32(0), uint32(1), uint32(100)},
		uatype.LocalFloat32: {float32(0), float32(1), float32(-2.5), float32(100.25)},
		uatype.LocalFloat64: {float64(0), float64(1), float64(-2), float64(100)},
		uatype.LocalString:  {"abc", ""},
	}

	for local, values := range samples {
		for remote := uatype.TypeBoolean; remote <= uatype.TypeString; remote++ {
			if CheckDataLoss(uatype.In, local, remote) != LossNone ||
				CheckDataLoss(uatype.Out, local, remote) == LossUnsupported {
				continue
			}
			slot := uatype.Slot{Type: local}
			for _, val := range values {
				if f, ok := val.(float32); ok && remote.IsInteger() && float64(f) != math.Trunc(float64(f)) {
					continue
				}
				rv, err := ToRemote(val, slot, remote)
				if err != nil {
					// value outside the shared range of the pair
					continue
				}
				back, err := ToLocal(rv, slot)
				require.NoError(t, err, "%s <- %s (%v)", local, remote, val)
				if remote == uatype.TypeBoolean {
					continue
				}
				require.Equal(t, val, back, "%s <- %s", local, remote)
			}
		}
	}
}
