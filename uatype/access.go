package uatype

// AccessLevel is the access-rights bit mask reported by the remote server for a variable.
type AccessLevel uint8

const (
	AccessCurrentRead  AccessLevel = 0x01
	AccessCurrentWrite AccessLevel = 0x02
	AccessHistoryRead  AccessLevel = 0x04
	AccessHistoryWrite AccessLevel = 0x08
)

// CanRead reports whether the current value may be read.
func (a AccessLevel) CanRead() bool { return a&AccessCurrentRead != 0 }

// CanWrite reports whether the current value may be written.
func (a AccessLevel) CanWrite() bool { return a&AccessCurrentWrite != 0 }

func (a AccessLevel) String() string {
	b := []byte("--")
	if a.CanRead() {
		b[0] = 'r'
	}
	if a.CanWrite() {
		b[1] = 'w'
	}

	return string(b)
}
