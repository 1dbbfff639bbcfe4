package coerce

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/bkuner/opcUaUnifiedAutomation/uatype"
)

// ToLocal converts a remote variant into the Go value of a local slot.
//
// Scalar slots receive int8, uint8, int16, uint16, int32, uint32, float32, float64,
// uint16 (Enum16) or string. Array slots receive the corresponding slice; the variant must
// be an array no longer than the slot capacity.
func ToLocal(v uatype.Variant, slot uatype.Slot) (any, error) {
	if v.IsNull() {
		return nil, ErrNoValue
	}
	if !v.Type().IsPrimitive() {
		return nil, fmt.Errorf("%w: remote type %s", ErrUnsupportedType, v.Type())
	}
	if v.IsArray() != slot.Array {
		return nil, fmt.Errorf("%w: remote %s, local %s", ErrShapeMismatch, v, slot)
	}
	if slot.Array && v.Len() > slot.Capacity {
		return nil, fmt.Errorf("%w: %d > %d", ErrCapacityExceeded, v.Len(), slot.Capacity)
	}

	data := v.Data()
	switch slot.Type {
	case uatype.LocalInt8:
		return local(data, slot.Array, toSigned[int8])
	case uatype.LocalUInt8:
		return local(data, slot.Array, toUnsigned[uint8])
	case uatype.LocalInt16:
		return local(data, slot.Array, toSigned[int16])
	case uatype.LocalUInt16, uatype.LocalEnum16:
		return local(data, slot.Array, toUnsigned[uint16])
	case uatype.LocalInt32:
		return local(data, slot.Array, toSigned[int32])
	case uatype.LocalUInt32:
		return local(data, slot.Array, toUnsigned[uint32])
	case uatype.LocalFloat32:
		return local(data, slot.Array, toFloat32)
	case uatype.LocalFloat64:
		return local(data, slot.Array, toFloat64)
	case uatype.LocalString:
		return local(data, slot.Array, toString)
	}

	return nil, fmt.Errorf("%w: local type %s", ErrUnsupportedType, slot.Type)
}

// ToRemote converts a local Go value into a variant of the given remote type.
//
// value may be any Go integer, float, bool or string (or a slice of them for array slots);
// it does not need to match the slot type exactly.
func ToRemote(value any, slot uatype.Slot, remote uatype.TypeID) (uatype.Variant, error) {
	if !remote.IsPrimitive() {
		return uatype.Variant{}, fmt.Errorf("%w: remote type %s", ErrUnsupportedType, remote)
	}
	if value == nil {
		return uatype.Variant{}, ErrNoValue
	}

	rv := reflect.ValueOf(value)
	isSlice := rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array
	if isSlice != slot.Array {
		return uatype.Variant{}, fmt.Errorf("%w: value %T, local %s", ErrShapeMismatch, value, slot)
	}
	if slot.Array && rv.Len() > slot.Capacity {
		return uatype.Variant{}, fmt.Errorf("%w: %d > %d", ErrCapacityExceeded, rv.Len(), slot.Capacity)
	}

	switch remote {
	case uatype.TypeBoolean:
		return build(value, slot.Array, toBool)
	case uatype.TypeSByte:
		return build(value, slot.Array, toSigned[int8])
	case uatype.TypeByte:
		return build(value, slot.Array, toUnsigned[uint8])
	case uatype.TypeInt16:
		return build(value, slot.Array, toSigned[int16])
	case uatype.TypeUInt16:
		return build(value, slot.Array, toUnsigned[uint16])
	case uatype.TypeInt32:
		return build(value, slot.Array, toSigned[int32])
	case uatype.TypeUInt32:
		return build(value, slot.Array, toUnsigned[uint32])
	case uatype.TypeInt64:
		return build(value, slot.Array, toSigned[int64])
	case uatype.TypeUInt64:
		return build(value, slot.Array, toUnsigned[uint64])
	case uatype.TypeFloat:
		return build(value, slot.Array, toFloat32)
	case uatype.TypeDouble:
		return build(value, slot.Array, toFloat64)
	default:
		return build(value, slot.Array, toString)
	}
}

func build[T uatype.Primitive](value any, array bool, conv func(any) (T, error)) (uatype.Variant, error) {
	out, err := convertAll(value, conv)
	if err != nil {
		return uatype.Variant{}, err
	}
	if array {
		return uatype.Array(out), nil
	}

	return uatype.Scalar(out[0]), nil
}

// local converts data for a local slot, unwrapping the single element of scalar slots.
func local[T any](data any, array bool, conv func(any) (T, error)) (any, error) {
	out, err := convertAll(data, conv)
	if err != nil {
		return nil, err
	}
	if array {
		return out, nil
	}
	if len(out) == 0 {
		return nil, ErrNoValue
	}

	return out[0], nil
}

// convertAll applies conv to every element of data. A non-slice value is one element.
func convertAll[T any](data any, conv func(any) (T, error)) ([]T, error) {
	rv := reflect.ValueOf(data)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		v, err := conv(data)
		if err != nil {
			return nil, err
		}
		return []T{v}, nil
	}

	out := make([]T, rv.Len())
	for i := range out {
		v, err := conv(rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = v
	}

	return out, nil
}

type signed interface{ int8 | int16 | int32 | int64 }

type unsigned interface{ uint8 | uint16 | uint32 | uint64 }

func toSigned[T signed](x any) (T, error) {
	bits := int(reflect.TypeFor[T]().Size()) * 8
	lo, hi := int64(-1)<<(bits-1), int64(1)<<(bits-1)-1
	if bits == 64 {
		lo, hi = math.MinInt64, math.MaxInt64
	}

	switch n := number(x).(type) {
	case int64:
		if n < lo || n > hi {
			return 0, fmt.Errorf("%w: %d for %d-bit signed", ErrOutOfRange, n, bits)
		}
		return T(n), nil
	case uint64:
		if n > uint64(hi) {
			return 0, fmt.Errorf("%w: %d for %d-bit signed", ErrOutOfRange, n, bits)
		}
		return T(n), nil
	case float64:
		r := math.Round(n)
		if math.IsNaN(r) || r < float64(lo) || r >= -float64(lo) {
			return 0, fmt.Errorf("%w: %g for %d-bit signed", ErrOutOfRange, n, bits)
		}
		return T(r), nil
	case error:
		return 0, n
	}

	return 0, fmt.Errorf("%w: %T", ErrInvalidValue, x)
}

func toUnsigned[T unsigned](x any) (T, error) {
	bits := int(reflect.TypeFor[T]().Size()) * 8
	hi := uint64(math.MaxUint64)
	if bits < 64 {
		hi = uint64(1)<<bits - 1
	}

	switch n := number(x).(type) {
	case int64:
		if n < 0 || uint64(n) > hi {
			return 0, fmt.Errorf("%w: %d for %d-bit unsigned", ErrOutOfRange, n, bits)
		}
		return T(n), nil
	case uint64:
		if n > hi {
			return 0, fmt.Errorf("%w: %d for %d-bit unsigned", ErrOutOfRange, n, bits)
		}
		return T(n), nil
	case float64:
		r := math.Round(n)
		if math.IsNaN(r) || r < 0 || r >= float64(hi)+1 {
			return 0, fmt.Errorf("%w: %g for %d-bit unsigned", ErrOutOfRange, n, bits)
		}
		return T(r), nil
	case error:
		return 0, n
	}

	return 0, fmt.Errorf("%w: %T", ErrInvalidValue, x)
}

func toFloat64(x any) (float64, error) {
	switch n := number(x).(type) {
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case float64:
		return n, nil
	case error:
		return 0, n
	}

	return 0, fmt.Errorf("%w: %T", ErrInvalidValue, x)
}

func toFloat32(x any) (float32, error) {
	if f, ok := x.(float32); ok {
		return f, nil
	}
	f, err := toFloat64(x)
	if err != nil {
		return 0, err
	}
	if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
		return 0, fmt.Errorf("%w: %g for float32", ErrOutOfRange, f)
	}

	return float32(f), nil
}

func toBool(x any) (bool, error) {
	switch n := number(x).(type) {
	case int64:
		return n != 0, nil
	case uint64:
		return n != 0, nil
	case float64:
		return n != 0, nil
	case error:
		return false, n
	}

	return false, fmt.Errorf("%w: %T", ErrInvalidValue, x)
}

func toString(x any) (string, error) {
	switch v := x.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	}

	switch n := number(x).(type) {
	case int64:
		return strconv.FormatInt(n, 10), nil
	case uint64:
		return strconv.FormatUint(n, 10), nil
	case error:
		return "", n
	}

	return "", fmt.Errorf("%w: %T", ErrInvalidValue, x)
}

// number normalizes a scalar into int64, uint64 or float64. Booleans become 0 or 1 and
// strings are parsed. An error value is returned for anything else.
func number(x any) any {
	switch v := x.(type) {
	case bool:
		if v {
			return int64(1)
		}
		return int64(0)
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case uint:
		return uint64(v)
	case uint8:
		return uint64(v)
	case uint16:
		return uint64(v)
	case uint32:
		return uint64(v)
	case uint64:
		return v
	case float32:
		return float64(v)
	case float64:
		return v
	case string:
		return parseNumber(v)
	}

	return fmt.Errorf("%w: %T", ErrInvalidValue, x)
}

func parseNumber(s string) any {
	s = strings.TrimSpace(s)
	if b, err := strconv.ParseBool(s); err == nil && (s == "true" || s == "false") {
		if b {
			return int64(1)
		}
		return int64(0)
	}
	if i, err := strconv.ParseInt(s, 0, 64); err == nil {
		return i
	}
	if u, err := strconv.ParseUint(s, 0, 64); err == nil {
		return u
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}

	return fmt.Errorf("%w: cannot parse %q as a number", ErrInvalidValue, s)
}
