package uatype

import "strconv"

// LocalType is the fixed type of a local value slot.
type LocalType uint8

const (
	LocalInt8 LocalType = iota
	LocalUInt8
	LocalInt16
	LocalUInt16
	LocalInt32
	LocalUInt32
	LocalFloat32
	LocalFloat64
	LocalEnum16
	LocalString
)

var localNames = [...]string{
	"Int8", "UInt8", "Int16", "UInt16", "Int32", "UInt32", "Float32", "Float64", "Enum16", "String",
}

func (t LocalType) String() string {
	if int(t) < len(localNames) {
		return localNames[t]
	}

	return "LocalType(" + strconv.Itoa(int(t)) + ")"
}

// ParseLocalType converts a name as printed by String back into a LocalType.
func ParseLocalType(name string) (LocalType, bool) {
	for i, n := range localNames {
		if n == name {
			return LocalType(i), true
		}
	}

	return 0, false
}

// IsFloat reports whether the local type is a floating-point type.
func (t LocalType) IsFloat() bool {
	return t == LocalFloat32 || t == LocalFloat64
}

// IsInteger reports whether the local type holds integers (Enum16 included).
func (t LocalType) IsInteger() bool {
	return t <= LocalUInt32 || t == LocalEnum16
}

// Slot describes a local value slot: its fixed type, whether it holds an array and, for
// arrays, how many elements fit.
//
// Go values exchanged with a slot use the natural Go type of the local type: int8, uint8,
// int16, uint16, int32, uint32, float32, float64, uint16 (Enum16) and string; arrays use
// the corresponding slice type.
type Slot struct {
	Type     LocalType
	Array    bool
	Capacity int
}

func (s Slot) String() string {
	if s.Array {
		return s.Type.String() + "[" + strconv.Itoa(s.Capacity) + "]"
	}

	return s.Type.String()
}

// Direction tells whether an item feeds a local slot from the remote side (In) or pushes
// local values to the remote side (Out).
type Direction uint8

const (
	In Direction = iota
	Out
)

func (d Direction) String() string {
	if d == Out {
		return "out"
	}

	return "in"
}
