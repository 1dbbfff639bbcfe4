package uatype

import "strconv"

// TypeID is the built-in type identifier of a remote variant.
type TypeID uint8

const (
	TypeNull TypeID = iota
	TypeBoolean
	TypeSByte
	TypeByte
	TypeInt16
	TypeUInt16
	TypeInt32
	TypeUInt32
	TypeInt64
	TypeUInt64
	TypeFloat
	TypeDouble
	TypeString
	TypeDateTime
	TypeGUID
	TypeByteString
	TypeXMLElement
	TypeNodeID
	TypeExpandedNodeID
	TypeStatusCode
	TypeQualifiedName
	TypeLocalizedText
	TypeExtensionObject
	TypeDataValue
	TypeVariant
	TypeDiagnosticInfo
)

var typeNames = [...]string{
	"Null", "Boolean", "SByte", "Byte", "Int16", "UInt16", "Int32", "UInt32", "Int64", "UInt64",
	"Float", "Double", "String", "DateTime", "Guid", "ByteString", "XmlElement", "NodeId",
	"ExpandedNodeId", "StatusCode", "QualifiedName", "LocalizedText", "ExtensionObject",
	"DataValue", "Variant", "DiagnosticInfo",
}

func (t TypeID) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}

	return "Type(" + strconv.Itoa(int(t)) + ")"
}

// IsInteger reports whether t is one of the signed or unsigned integer types.
func (t TypeID) IsInteger() bool {
	return t >= TypeSByte && t <= TypeUInt64
}

// IsFloat reports whether t is Float or Double.
func (t TypeID) IsFloat() bool {
	return t == TypeFloat || t == TypeDouble
}

// IsNumeric reports whether t is Boolean, an integer or a floating-point type.
func (t TypeID) IsNumeric() bool {
	return t == TypeBoolean || t.IsInteger() || t.IsFloat()
}

// IsPrimitive reports whether Variant can hold values of type t as a typed slice.
func (t TypeID) IsPrimitive() bool {
	return t.IsNumeric() || t == TypeString
}
