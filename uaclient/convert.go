package uaclient

import (
	"errors"
	"fmt"

	"github.com/gopcua/opcua/ua"

	"github.com/bkuner/opcUaUnifiedAutomation/address"
	"github.com/bkuner/opcUaUnifiedAutomation/bridge"
	"github.com/bkuner/opcUaUnifiedAutomation/uatype"
)

func toUANodeID(n address.NodeID) *ua.NodeID {
	if n.Kind == address.StringID {
		return ua.NewStringNodeID(n.Namespace, n.Name)
	}

	return ua.NewNumericNodeID(n.Namespace, n.Numeric)
}

func fromUANodeID(n *ua.NodeID) (address.NodeID, error) {
	if n == nil {
		return address.NodeID{}, errors.New("nil node id")
	}

	switch n.Type() {
	case ua.NodeIDTypeTwoByte, ua.NodeIDTypeFourByte, ua.NodeIDTypeNumeric:
		return address.NewNumericNodeID(n.Namespace(), n.IntID()), nil
	case ua.NodeIDTypeString:
		return address.NewStringNodeID(n.Namespace(), n.StringID()), nil
	default:
		return address.NodeID{}, fmt.Errorf("unsupported node id type %v in %s", n.Type(), n)
	}
}

func toUABrowsePath(p address.BrowsePath) *ua.BrowsePath {
	elements := make([]*ua.RelativePathElement, len(p.Elements))
	for i, e := range p.Elements {
		elements[i] = &ua.RelativePathElement{
			ReferenceTypeID: toUANodeID(address.HierarchicalReferences),
			IncludeSubtypes: true,
			TargetName:      &ua.QualifiedName{NamespaceIndex: e.Namespace, Name: e.Name},
		}
	}

	return &ua.BrowsePath{
		StartingNode: toUANodeID(p.Start),
		RelativePath: &ua.RelativePath{Elements: elements},
	}
}

func toUAAttribute(attr bridge.AttributeID) ua.AttributeID {
	switch attr {
	case bridge.AttributeUserAccessLevel:
		return ua.AttributeIDUserAccessLevel
	default:
		return ua.AttributeIDValue
	}
}

// fromUAVariant converts a library variant. Primitive values keep their typed storage,
// everything else is carried opaquely.
func fromUAVariant(v *ua.Variant) uatype.Variant {
	if v == nil || v.Value() == nil {
		return uatype.Variant{}
	}

	switch x := v.Value().(type) {
	case bool:
		return uatype.Scalar(x)
	case []bool:
		return uatype.Array(x)
	case int8:
		return uatype.Scalar(x)
	case []int8:
		return uatype.Array(x)
	case uint8:
		return uatype.Scalar(x)
	case []uint8:
		if v.Type() == ua.TypeIDByteString {
			return uatype.Opaque(uatype.TypeByteString, x, false)
		}
		return uatype.Array(x)
	case int16:
		return uatype.Scalar(x)
	case []int16:
		return uatype.Array(x)
	case uint16:
		return uatype.Scalar(x)
	case []uint16:
		return uatype.Array(x)
	case int32:
		return uatype.Scalar(x)
	case []int32:
		return uatype.Array(x)
	case uint32:
		return uatype.Scalar(x)
	case []uint32:
		return uatype.Array(x)
	case int64:
		return uatype.Scalar(x)
	case []int64:
		return uatype.Array(x)
	case uint64:
		return uatype.Scalar(x)
	case []uint64:
		return uatype.Array(x)
	case float32:
		return uatype.Scalar(x)
	case []float32:
		return uatype.Array(x)
	case float64:
		return uatype.Scalar(x)
	case []float64:
		return uatype.Array(x)
	case string:
		return uatype.Scalar(x)
	case []string:
		return uatype.Array(x)
	default:
		return uatype.Opaque(uatype.TypeID(v.Type()), x, v.ArrayLength() > 0)
	}
}

func toUAVariant(v uatype.Variant) (*ua.Variant, error) {
	if !v.Type().IsPrimitive() {
		return nil, fmt.Errorf("cannot write %s", v.Type())
	}

	return ua.NewVariant(v.Value())
}

func fromUADataValue(dv *ua.DataValue) bridge.DataValue {
	if dv == nil {
		return bridge.DataValue{Status: uatype.StatusBadUnexpectedError}
	}

	return bridge.DataValue{
		Value:           fromUAVariant(dv.Value),
		Status:          uatype.StatusCode(dv.Status),
		SourceTimestamp: dv.SourceTimestamp,
		ServerTimestamp: dv.ServerTimestamp,
	}
}
