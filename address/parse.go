package address

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	nodeIDDelim    = ','
	namespaceDelim = ':'
	pathDelim      = "."
)

var (
	addressRe = regexp.MustCompile(`^([a-z0-9_-]+)([,:])(.*)$`)
	segmentRe = regexp.MustCompile(`^([0-9]+):(.*)$`)
	linkRe    = regexp.MustCompile(`^([\d\w]+);\s*ns=(\d+);(\w)=(.*)$`)
)

// Mode is the address class of an item.
type Mode uint8

const (
	ModeUnknown Mode = iota
	ModeNodeID
	ModeBrowsePath
)

func (m Mode) String() string {
	switch m {
	case ModeNodeID:
		return "node-id"
	case ModeBrowsePath:
		return "browse-path"
	default:
		return "unknown"
	}
}

// Address is a parsed item address.
type Address struct {
	raw  string
	mode Mode
	node NodeID
	path BrowsePath
}

// Raw returns the address as configured.
func (a Address) Raw() string { return a.raw }

// Mode returns the address class.
func (a Address) Mode() Mode { return a.mode }

// NodeID returns the direct node id. Only valid for ModeNodeID.
func (a Address) NodeID() NodeID { return a.node }

// BrowsePath returns the browse path. Only valid for ModeBrowsePath.
func (a Address) BrowsePath() BrowsePath { return a.path }

func (a Address) String() string { return a.raw }

// Parse parses "ns,identifier" node id addresses and "ns:seg.seg" browse path addresses.
func Parse(raw string) (Address, error) {
	m := addressRe.FindStringSubmatch(raw)
	if m == nil {
		return Address{}, fmt.Errorf("%w: can't parse %q", ErrMalformedAddress, raw)
	}

	ns, err := strconv.Atoi(m[1])
	if err != nil {
		return Address{}, fmt.Errorf("%w: string namespace tag in %q", ErrInvalidNamespace, raw)
	}

	if m[2][0] == nodeIDDelim {
		if ns < 0 || ns > 0xffff {
			return Address{}, fmt.Errorf("%w: namespace %d in %q", ErrInvalidNamespace, ns, raw)
		}
		if m[3] == "" {
			return Address{}, fmt.Errorf("%w: empty identifier in %q", ErrMalformedAddress, raw)
		}
		return Address{raw: raw, mode: ModeNodeID, node: nodeIDFrom(uint16(ns), m[3])}, nil
	}

	path, err := parseBrowsePath(raw)
	if err != nil {
		return Address{}, err
	}

	return Address{raw: raw, mode: ModeBrowsePath, path: path}, nil
}

// ParseLink parses the legacy "TAG;ns=<N>;s=<ID>" / "TAG;ns=<N>;i=<NUM>" link form and
// returns the tag together with the node id address.
func ParseLink(link string) (string, Address, error) {
	m := linkRe.FindStringSubmatch(link)
	if m == nil {
		return "", Address{}, fmt.Errorf("%w: can't parse link %q", ErrMalformedAddress, link)
	}

	ns, err := strconv.ParseUint(m[2], 10, 16)
	if err != nil {
		return "", Address{}, fmt.Errorf("%w: bad namespace in %q", ErrInvalidNamespace, link)
	}

	addr := Address{raw: link, mode: ModeNodeID}
	switch m[3] {
	case "s":
		addr.node = NewStringNodeID(uint16(ns), m[4])
	case "i":
		id, err := strconv.ParseUint(m[4], 10, 32)
		if err != nil {
			return "", Address{}, fmt.Errorf("%w: bad integer id in %q", ErrMalformedAddress, link)
		}
		addr.node = NewNumericNodeID(uint16(ns), uint32(id))
	default:
		return "", Address{}, fmt.Errorf("%w: id type %q not supported in %q", ErrMalformedAddress, m[3], link)
	}

	return m[1], addr, nil
}

func nodeIDFrom(ns uint16, id string) NodeID {
	if n, err := strconv.ParseUint(id, 10, 32); err == nil {
		return NewNumericNodeID(ns, uint32(n))
	}

	return NewStringNodeID(ns, id)
}

// parseBrowsePath splits "ns:seg.seg.ns2:seg" into qualified names. A segment without its
// own namespace prefix inherits the namespace of the previous one.
func parseBrowsePath(raw string) (BrowsePath, error) {
	segments := strings.Split(raw, pathDelim)
	path := BrowsePath{Start: ObjectsFolder, Elements: make([]QualifiedName, 0, len(segments))}

	var ns uint64
	for _, seg := range segments {
		name := seg
		if m := segmentRe.FindStringSubmatch(seg); m != nil {
			n, err := strconv.ParseUint(m[1], 10, 16)
			if err != nil || n == 0 {
				return BrowsePath{}, fmt.Errorf("%w: namespace %q in %q", ErrInvalidNamespace, m[1], raw)
			}
			ns, name = n, m[2]
		} else if ns == 0 {
			return BrowsePath{}, fmt.Errorf("%w: missing namespace in %q", ErrInvalidNamespace, raw)
		}
		if name == "" {
			return BrowsePath{}, fmt.Errorf("%w: empty path element in %q", ErrMalformedAddress, raw)
		}
		path.Elements = append(path.Elements, QualifiedName{Namespace: uint16(ns), Name: name})
	}

	return path, nil
}
