package uatype

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// Primitive is the set of Go types a Variant stores natively.
type Primitive interface {
	bool | int8 | uint8 | int16 | uint16 | int32 | uint32 | int64 | uint64 | float32 | float64 | string
}

// Variant is an immutable tagged union over the remote type system.
//
// Primitive types keep their values in a typed slice ([]float64 for Double, []string for
// String, ...). Other built-in types (DateTime, NodeId, ExtensionObject, ...) are carried
// opaquely so that their type id can still be reported and classified.
//
// The zero Variant is the Null variant.
type Variant struct {
	typ   TypeID
	array bool
	data  any
}

// Scalar creates a scalar variant holding v.
func Scalar[T Primitive](v T) Variant {
	return Variant{typ: TypeOf[T](), data: []T{v}}
}

// Array creates an array variant holding a copy of values.
func Array[T Primitive](values []T) Variant {
	if values == nil {
		values = []T{}
	}

	return Variant{typ: TypeOf[T](), array: true, data: slices.Clone(values)}
}

// Opaque creates a variant of a non-primitive built-in type. raw is kept as is.
func Opaque(typ TypeID, raw any, array bool) Variant {
	return Variant{typ: typ, array: array, data: raw}
}

// TypeOf returns the TypeID a Variant uses for the Go type T.
func TypeOf[T Primitive]() TypeID {
	var zero T
	switch any(zero).(type) {
	case bool:
		return TypeBoolean
	case int8:
		return TypeSByte
	case uint8:
		return TypeByte
	case int16:
		return TypeInt16
	case uint16:
		return TypeUInt16
	case int32:
		return TypeInt32
	case uint32:
		return TypeUInt32
	case int64:
		return TypeInt64
	case uint64:
		return TypeUInt64
	case float32:
		return TypeFloat
	case float64:
		return TypeDouble
	default:
		return TypeString
	}
}

// Type returns the remote type id of the variant.
func (v Variant) Type() TypeID { return v.typ }

// IsArray reports whether the variant is an array.
func (v Variant) IsArray() bool { return v.array }

// IsNull reports whether the variant carries no value.
func (v Variant) IsNull() bool { return v.typ == TypeNull }

// Len returns the number of elements. Scalars have length 1, Null has length 0.
func (v Variant) Len() int {
	if v.typ == TypeNull || v.data == nil {
		return 0
	}
	rv := reflect.ValueOf(v.data)
	if rv.Kind() == reflect.Slice {
		if !v.typ.IsPrimitive() && !v.array {
			return 1
		}
		return rv.Len()
	}

	return 1
}

// Data returns the typed slice backing a primitive variant, or the raw payload of an opaque
// one. The returned slice must not be modified.
func (v Variant) Data() any { return v.data }

// Value returns the scalar value, or a copy of the array.
func (v Variant) Value() any {
	if !v.typ.IsPrimitive() {
		return v.data
	}
	rv := reflect.ValueOf(v.data)
	if rv.Kind() != reflect.Slice {
		return v.data
	}
	if v.array {
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		reflect.Copy(out, rv)
		return out.Interface()
	}
	if rv.Len() == 0 {
		return nil
	}

	return rv.Index(0).Interface()
}

// Equal reports whether two variants have the same type, shape and values.
func (v Variant) Equal(other Variant) bool {
	return v.typ == other.typ && v.array == other.array && reflect.DeepEqual(v.data, other.data)
}

func (v Variant) String() string {
	if v.typ == TypeNull {
		return "Null"
	}
	if !v.array {
		return fmt.Sprintf("%s(%v)", v.typ, v.Value())
	}

	rv := reflect.ValueOf(v.data)
	if rv.Kind() != reflect.Slice {
		return fmt.Sprintf("%s[]{%v}", v.typ, v.data)
	}
	parts := make([]string, 0, rv.Len())
	for i := range rv.Len() {
		parts = append(parts, fmt.Sprint(rv.Index(i).Interface()))
	}

	return fmt.Sprintf("%s[%d]{%s}", v.typ, rv.Len(), strings.Join(parts, ","))
}
