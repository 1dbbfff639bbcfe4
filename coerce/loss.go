package coerce

import (
	"math"

	"github.com/bkuner/opcUaUnifiedAutomation/uatype"
)

// Loss classifies a local/remote type pair.
type Loss uint8

const (
	// LossNone means every value of the source type is represented exactly.
	LossNone Loss = iota
	// LossLossy means some values may lose precision or range.
	LossLossy
	// LossUnsupported means the pair cannot be converted at all.
	LossUnsupported
)

func (l Loss) String() string {
	switch l {
	case LossNone:
		return "none"
	case LossLossy:
		return "lossy"
	default:
		return "unsupported"
	}
}

// CheckDataLoss classifies converting between a local slot type and a remote type.
//
// For In items the remote value feeds the local slot, for Out items the local value is
// written to the remote variable. Int32, UInt32, Float64 and String slots use fixed tables;
// the remaining local types are classified by value-range containment.
func CheckDataLoss(dir uatype.Direction, local uatype.LocalType, remote uatype.TypeID) Loss {
	if dir == uatype.Out {
		return checkOut(local, remote)
	}

	return checkIn(local, remote)
}

func checkIn(local uatype.LocalType, remote uatype.TypeID) Loss { //nolint:gocyclo,cyclop
	switch local {
	case uatype.LocalInt32:
		switch remote {
		case uatype.TypeBoolean, uatype.TypeSByte, uatype.TypeByte, uatype.TypeInt16,
			uatype.TypeUInt16, uatype.TypeInt32, uatype.TypeUInt32:
			return LossNone
		case uatype.TypeFloat, uatype.TypeDouble, uatype.TypeString:
			return LossLossy
		default:
			return LossUnsupported
		}
	case uatype.LocalUInt32:
		switch remote {
		case uatype.TypeBoolean, uatype.TypeSByte, uatype.TypeByte, uatype.TypeInt16,
			uatype.TypeUInt16, uatype.TypeUInt32:
			return LossNone
		case uatype.TypeInt32, uatype.TypeFloat, uatype.TypeDouble, uatype.TypeString:
			return LossLossy
		default:
			return LossUnsupported
		}
	case uatype.LocalFloat64:
		switch remote {
		case uatype.TypeBoolean, uatype.TypeSByte, uatype.TypeByte, uatype.TypeInt16,
			uatype.TypeUInt16, uatype.TypeInt32, uatype.TypeUInt32, uatype.TypeFloat, uatype.TypeDouble:
			return LossNone
		case uatype.TypeString:
			return LossLossy
		default:
			return LossUnsupported
		}
	case uatype.LocalString:
		if remote != uatype.TypeString {
			return LossLossy
		}
		return LossNone
	}

	if remote == uatype.TypeString {
		return LossLossy
	}
	from, ok := remoteSpans[remote]
	to, ok2 := localSpans[local]
	if !ok || !ok2 {
		return LossUnsupported
	}

	return from.lossInto(to)
}

func checkOut(local uatype.LocalType, remote uatype.TypeID) Loss {
	switch local {
	case uatype.LocalInt32, uatype.LocalUInt32, uatype.LocalFloat64, uatype.LocalString:
		switch remote {
		case uatype.TypeBoolean, uatype.TypeInt32, uatype.TypeUInt32, uatype.TypeFloat:
			if local == uatype.LocalFloat64 {
				return LossLossy
			}
			return LossNone
		case uatype.TypeSByte, uatype.TypeByte, uatype.TypeInt16, uatype.TypeUInt16:
			return LossLossy
		case uatype.TypeDouble:
			return LossNone
		case uatype.TypeString:
			if local != uatype.LocalString {
				return LossLossy
			}
			return LossNone
		default:
			return LossUnsupported
		}
	}

	if remote == uatype.TypeString {
		return LossLossy
	}
	from, ok := localSpans[local]
	to, ok2 := remoteSpans[remote]
	if !ok || !ok2 {
		return LossUnsupported
	}

	return from.lossInto(to)
}

// span is the value range of a numeric type. exact is the largest integer magnitude a
// floating-point type represents without rounding.
type span struct {
	lo, hi  float64
	integer bool
	exact   float64
}

func (s span) lossInto(to span) Loss {
	if s.lo < to.lo || s.hi > to.hi {
		return LossLossy
	}
	if to.integer && !s.integer {
		return LossLossy
	}
	if !to.integer && s.integer && math.Max(-s.lo, s.hi) > to.exact {
		return LossLossy
	}

	return LossNone
}

var (
	spanBool    = span{lo: 0, hi: 1, integer: true}
	spanInt8    = span{lo: math.MinInt8, hi: math.MaxInt8, integer: true}
	spanUint8   = span{lo: 0, hi: math.MaxUint8, integer: true}
	spanInt16   = span{lo: math.MinInt16, hi: math.MaxInt16, integer: true}
	spanUint16  = span{lo: 0, hi: math.MaxUint16, integer: true}
	spanInt32   = span{lo: math.MinInt32, hi: math.MaxInt32, integer: true}
	spanUint32  = span{lo: 0, hi: math.MaxUint32, integer: true}
	spanInt64   = span{lo: math.MinInt64, hi: math.MaxInt64, integer: true}
	spanUint64  = span{lo: 0, hi: math.MaxUint64, integer: true}
	spanFloat32 = span{lo: -math.MaxFloat32, hi: math.MaxFloat32, exact: 1 << 24}
	spanFloat64 = span{lo: -math.MaxFloat64, hi: math.MaxFloat64, exact: 1 << 53}
)

var remoteSpans = map[uatype.TypeID]span{
	uatype.TypeBoolean: spanBool,
	uatype.TypeSByte:   spanInt8,
	uatype.TypeByte:    spanUint8,
	uatype.TypeInt16:   spanInt16,
	uatype.TypeUInt16:  spanUint16,
	uatype.TypeInt32:   spanInt32,
	uatype.TypeUInt32:  spanUint32,
	uatype.TypeInt64:   spanInt64,
	uatype.TypeUInt64:  spanUint64,
	uatype.TypeFloat:   spanFloat32,
	uatype.TypeDouble:  spanFloat64,
}

var localSpans = map[uatype.LocalType]span{
	uatype.LocalInt8:    spanInt8,
	uatype.LocalUInt8:   spanUint8,
	uatype.LocalInt16:   spanInt16,
	uatype.LocalUInt16:  spanUint16,
	uatype.LocalEnum16:  spanUint16,
	uatype.LocalInt32:   spanInt32,
	uatype.LocalUInt32:  spanUint32,
	uatype.LocalFloat32: spanFloat32,
	uatype.LocalFloat64: spanFloat64,
}
