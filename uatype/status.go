package uatype

import "fmt"

// StatusCode is the result of a remote or local operation. Zero means good, any other value
// is an error code.
//
// Non-zero codes implement the error interface so they can be wrapped and matched with
// errors.Is.
type StatusCode uint32

const (
	StatusGood                   StatusCode = 0
	StatusBadUnexpectedError     StatusCode = 0x80010000
	StatusBadInternalError       StatusCode = 0x80020000
	StatusBadCommunicationError  StatusCode = 0x80050000
	StatusBadTimeout             StatusCode = 0x800A0000
	StatusBadShutdown            StatusCode = 0x800C0000
	StatusBadServerNotConnected  StatusCode = 0x800D0000
	StatusBadWaitingForInitData  StatusCode = 0x80320000
	StatusBadNodeIDInvalid       StatusCode = 0x80330000
	StatusBadNodeIDUnknown       StatusCode = 0x80340000
	StatusBadNotReadable         StatusCode = 0x803A0000
	StatusBadNotWritable         StatusCode = 0x803B0000
	StatusBadOutOfRange          StatusCode = 0x803C0000
	StatusBadBrowseNameInvalid   StatusCode = 0x80600000
	StatusBadNoMatch             StatusCode = 0x806F0000
	StatusBadTypeMismatch        StatusCode = 0x80740000
	StatusBadNotConnected        StatusCode = 0x808A0000
	StatusBadInvalidArgument     StatusCode = 0x80AB0000
	StatusBadInvalidState        StatusCode = 0x80AF0000
	StatusBadConnectionRejected  StatusCode = 0x80AC0000
	StatusBadConfigurationError  StatusCode = 0x80890000
	StatusBadDataLost            StatusCode = 0x809D0000
	StatusBadResourceUnavailable StatusCode = 0x80040000
)

var statusNames = map[StatusCode]string{
	StatusGood:                   "Good",
	StatusBadUnexpectedError:     "BadUnexpectedError",
	StatusBadInternalError:       "BadInternalError",
	StatusBadCommunicationError:  "BadCommunicationError",
	StatusBadTimeout:             "BadTimeout",
	StatusBadShutdown:            "BadShutdown",
	StatusBadServerNotConnected:  "BadServerNotConnected",
	StatusBadWaitingForInitData:  "BadWaitingForInitialData",
	StatusBadNodeIDInvalid:       "BadNodeIdInvalid",
	StatusBadNodeIDUnknown:       "BadNodeIdUnknown",
	StatusBadNotReadable:         "BadNotReadable",
	StatusBadNotWritable:         "BadNotWritable",
	StatusBadOutOfRange:          "BadOutOfRange",
	StatusBadBrowseNameInvalid:   "BadBrowseNameInvalid",
	StatusBadNoMatch:             "BadNoMatch",
	StatusBadTypeMismatch:        "BadTypeMismatch",
	StatusBadNotConnected:        "BadNotConnected",
	StatusBadInvalidArgument:     "BadInvalidArgument",
	StatusBadInvalidState:        "BadInvalidState",
	StatusBadConnectionRejected:  "BadConnectionRejected",
	StatusBadConfigurationError:  "BadConfigurationError",
	StatusBadDataLost:            "BadDataLost",
	StatusBadResourceUnavailable: "BadResourceUnavailable",
}

// IsGood reports whether the code is zero.
func (s StatusCode) IsGood() bool { return s == StatusGood }

// IsBad reports whether the severity bits mark the code as bad.
func (s StatusCode) IsBad() bool { return s&0x80000000 != 0 }

// Name returns the symbolic name, or an empty string for unknown codes.
func (s StatusCode) Name() string { return statusNames[s] }

func (s StatusCode) String() string {
	if name, ok := statusNames[s]; ok {
		return fmt.Sprintf("%#08x %s", uint32(s), name)
	}

	return fmt.Sprintf("%#08x", uint32(s))
}

func (s StatusCode) Error() string {
	return "status " + s.String()
}
